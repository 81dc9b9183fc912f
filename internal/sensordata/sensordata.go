package sensordata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"sensorstation/internal/models"

	"github.com/redis/go-redis/v9"
)

// readingHistoryLimit caps the per-sensor recent-reading lists.
const readingHistoryLimit = 200

// Service stores and serves device telemetry in Redis. The latest full
// snapshot for a device lives at device:<id>:latest; each sensor also
// keeps a capped list of recent readings for the dashboard.
type Service struct {
	rdb *redis.Client
}

// NewService creates a sensor data service.
func NewService(rdb *redis.Client) *Service {
	return &Service{rdb: rdb}
}

func latestKey(deviceID string) string {
	return fmt.Sprintf("device:%s:latest", deviceID)
}

func sensorKey(deviceID, sensor string) string {
	return fmt.Sprintf("device:%s:sensor:%s", deviceID, sensor)
}

func connectionKey(deviceID string) string {
	return fmt.Sprintf("device:%s:connection", deviceID)
}

func commandKey(deviceID, commandID string) string {
	return fmt.Sprintf("device:%s:command:%s", deviceID, commandID)
}

// SaveReading stores a telemetry snapshot as the device's latest data
// and appends each sensor value to its recent-readings list.
func (s *Service) SaveReading(ctx context.Context, deviceID string, snap *models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, latestKey(deviceID), data, 0).Err(); err != nil {
		return err
	}

	for name, sensor := range snap.Sensors {
		reading, err := json.Marshal(models.SensorReading{
			Timestamp: snap.Timestamp,
			Value:     sensor.Value,
			Unit:      sensor.Unit,
		})
		if err != nil {
			continue
		}
		key := sensorKey(deviceID, name)
		pipe := s.rdb.Pipeline()
		pipe.LPush(ctx, key, reading)
		pipe.LTrim(ctx, key, 0, readingHistoryLimit-1)
		if _, err := pipe.Exec(ctx); err != nil {
			log.Printf("SENSORDATA: Failed to record %s reading for device %s: %v", name, deviceID, err)
		}
	}
	return nil
}

// GetLatest returns the most recent snapshot for a device, or nil when
// no data has been seen.
func (s *Service) GetLatest(ctx context.Context, deviceID string) (*models.Snapshot, error) {
	data, err := s.rdb.Get(ctx, latestKey(deviceID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// RecentReadings returns up to limit recent readings for one sensor,
// newest first.
func (s *Service) RecentReadings(ctx context.Context, deviceID, sensor string, limit int64) ([]models.SensorReading, error) {
	if limit <= 0 || limit > readingHistoryLimit {
		limit = readingHistoryLimit
	}
	raw, err := s.rdb.LRange(ctx, sensorKey(deviceID, sensor), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	readings := make([]models.SensorReading, 0, len(raw))
	for _, item := range raw {
		var reading models.SensorReading
		if err := json.Unmarshal([]byte(item), &reading); err != nil {
			log.Printf("SENSORDATA: Skipping malformed reading for %s/%s: %v", deviceID, sensor, err)
			continue
		}
		readings = append(readings, reading)
	}
	return readings, nil
}

// SetConnection records a device's connection status and last-seen
// time.
func (s *Service) SetConnection(ctx context.Context, deviceID, status string) error {
	return s.rdb.HSet(ctx, connectionKey(deviceID), map[string]interface{}{
		"status":   status,
		"lastSeen": models.Timestamp(time.Now()),
	}).Err()
}

// GetConnection returns a device's connection status, or nil when the
// device has never been seen.
func (s *Service) GetConnection(ctx context.Context, deviceID string) (*models.DeviceConnection, error) {
	fields, err := s.rdb.HGetAll(ctx, connectionKey(deviceID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return &models.DeviceConnection{
		Status:   fields["status"],
		LastSeen: fields["lastSeen"],
	}, nil
}

// RecordCommandResult stores the outcome of a command acknowledgment.
// History entries are never rewritten on a late failure ack; the result
// hash is the transport's own record.
func (s *Service) RecordCommandResult(ctx context.Context, deviceID, commandID string, success bool, message string) error {
	status := "executed"
	if !success {
		status = "failed"
	}
	return s.rdb.HSet(ctx, commandKey(deviceID, commandID), map[string]interface{}{
		"status":      status,
		"message":     message,
		"executed_at": models.Timestamp(time.Now()),
	}).Err()
}
