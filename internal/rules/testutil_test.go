package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"sensorstation/internal/models"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	setErr error
	getErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	val, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), val...), nil
}

func (s *memStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func (s *memStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// fakeProvider serves canned snapshots and counts lookups per device.
type fakeProvider struct {
	mu        sync.Mutex
	snapshots map[string]*models.Snapshot
	calls     map[string]int
	err       error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		snapshots: make(map[string]*models.Snapshot),
		calls:     make(map[string]int),
	}
}

func (p *fakeProvider) setSnapshot(deviceID string, sensors map[string]models.SensorValue) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots[deviceID] = &models.Snapshot{DeviceID: deviceID, Sensors: sensors}
}

func (p *fakeProvider) GetLatest(_ context.Context, deviceID string) (*models.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[deviceID]++
	if p.err != nil {
		return nil, p.err
	}
	return p.snapshots[deviceID], nil
}

func (p *fakeProvider) callCount(deviceID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[deviceID]
}

type sentCommand struct {
	DeviceID  string
	Component string
	Command   string
	Value     interface{}
}

// fakeDispatcher records dispatch calls. With refuse set it behaves
// like a disconnected transport.
type fakeDispatcher struct {
	mu         sync.Mutex
	sent       []sentCommand
	broadcasts []sentCommand
	refuse     bool
	seq        int
}

func (d *fakeDispatcher) SendCommand(deviceID, component, command string, value interface{}) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.refuse {
		return ""
	}
	d.sent = append(d.sent, sentCommand{DeviceID: deviceID, Component: component, Command: command, Value: value})
	d.seq++
	return fmt.Sprintf("cmd-%d", d.seq)
}

func (d *fakeDispatcher) BroadcastCommandToAll(component, command string, value interface{}) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.refuse {
		return ""
	}
	d.broadcasts = append(d.broadcasts, sentCommand{Component: component, Command: command, Value: value})
	d.seq++
	return fmt.Sprintf("cmd-%d", d.seq)
}

func (d *fakeDispatcher) sentCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

func (d *fakeDispatcher) broadcastCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.broadcasts)
}

// fakeSink records emitted events.
type fakeSink struct {
	mu     sync.Mutex
	events []string
}

func (s *fakeSink) Emit(event string, _ interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *fakeSink) count(event string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e == event {
			n++
		}
	}
	return n
}

var errBoom = errors.New("boom")

func newTestService() (*Service, *memStore, *fakeProvider, *fakeDispatcher) {
	st := newMemStore()
	provider := newFakeProvider()
	dispatcher := &fakeDispatcher{}
	svc := NewService(st, provider, dispatcher, nil)
	return svc, st, provider, dispatcher
}

func conditionRule(name, deviceID, sensor, op string, threshold float64) *models.Rule {
	return &models.Rule{
		Name:     name,
		DeviceID: deviceID,
		Type:     models.RuleTypeCondition,
		Condition: &models.Condition{
			Sensor:   sensor,
			Operator: op,
			Value:    threshold,
		},
		Action: &models.Action{
			Component: "fan",
			Command:   "power",
			Value:     "on",
		},
		Enabled: true,
	}
}

func scheduleRule(name, deviceID, pattern string) *models.Rule {
	return &models.Rule{
		Name:     name,
		DeviceID: deviceID,
		Type:     models.RuleTypeSchedule,
		Schedule: &models.Schedule{Pattern: pattern},
		Action: &models.Action{
			Component: "light",
			Command:   "power",
			Value:     "off",
		},
		Enabled: true,
	}
}
