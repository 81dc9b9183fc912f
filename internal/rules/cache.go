package rules

import (
	"context"
	"log"
	"time"

	"sensorstation/internal/models"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultCacheTTL bounds how stale a cached device snapshot may be
// before the provider is consulted again.
const DefaultCacheTTL = 10 * time.Second

// DataCache is a short-TTL read-through cache in front of the device
// data provider, so one sweep does not hammer the provider once per
// rule sharing a device.
type DataCache struct {
	provider DeviceDataProvider
	cache    *gocache.Cache
}

// NewDataCache creates a cache with the given TTL.
func NewDataCache(provider DeviceDataProvider, ttl time.Duration) *DataCache {
	return &DataCache{
		provider: provider,
		cache:    gocache.New(ttl, 2*ttl),
	}
}

// GetDeviceData returns the latest snapshot for a device, served from
// cache when fresh. A nil result means no data is available; failed
// fetches are not cached so the next call retries.
func (c *DataCache) GetDeviceData(ctx context.Context, deviceID string) *models.Snapshot {
	if cached, ok := c.cache.Get(deviceID); ok {
		return cached.(*models.Snapshot)
	}

	snap, err := c.provider.GetLatest(ctx, deviceID)
	if err != nil {
		log.Printf("RULES: Failed to fetch device data for %s: %v", deviceID, err)
		return nil
	}
	if snap == nil {
		return nil
	}
	c.cache.Set(deviceID, snap, gocache.DefaultExpiration)
	return snap
}
