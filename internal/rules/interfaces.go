package rules

import (
	"context"

	"sensorstation/internal/models"
)

// Store is the key-value document store backing rule persistence.
type Store interface {
	Set(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// DeviceDataProvider supplies the latest reading set for a device.
// A nil snapshot with nil error means no data is available.
type DeviceDataProvider interface {
	GetLatest(ctx context.Context, deviceID string) (*models.Snapshot, error)
}

// CommandDispatcher submits commands to devices. It returns the command
// ID, or an empty string when the command could not be submitted.
// Delivery is fire-and-forget at this layer; acknowledgments are the
// transport's concern.
type CommandDispatcher interface {
	SendCommand(deviceID, component, command string, value interface{}) string
	BroadcastCommandToAll(component, command string, value interface{}) string
}

// EventSink publishes events to connected dashboard clients.
type EventSink interface {
	Emit(event string, payload interface{})
}
