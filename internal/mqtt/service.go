package mqtt

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"sensorstation/internal/models"
	"sensorstation/internal/sensordata"
	"sensorstation/internal/utils"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// EventSink publishes device events to dashboard clients.
type EventSink interface {
	Emit(event string, payload interface{})
}

// Service bridges devices and the rest of the system over MQTT: it
// ingests telemetry/status/ack messages and implements the command
// dispatcher the rule engine uses.
type Service struct {
	client mqtt.Client
	prefix string
	data   *sensordata.Service
	events EventSink
}

// NewService creates the MQTT transport service. prefix is the topic
// namespace devices publish under, e.g. "ycstation/devices/".
func NewService(client mqtt.Client, prefix string, data *sensordata.Service, events EventSink) *Service {
	return &Service{client: client, prefix: prefix, data: data, events: events}
}

// Subscribe attaches handlers for device telemetry, status and command
// acknowledgment topics.
func (s *Service) Subscribe() error {
	topics := map[string]byte{
		s.prefix + "+/telemetry": 1,
		s.prefix + "+/status":    1,
		s.prefix + "+/ack":       1,
	}
	token := s.client.SubscribeMultiple(topics, s.handleMessage)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("MQTT: Subscribed to device topics under %s", s.prefix)
	return nil
}

func (s *Service) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	deviceID, msgType := utils.ParseDeviceTopic(msg.Topic(), s.prefix)
	if deviceID == "" {
		log.Printf("MQTT: Ignoring message on unexpected topic %s", msg.Topic())
		return
	}

	switch msgType {
	case "telemetry":
		s.handleTelemetry(deviceID, msg.Payload())
	case "status":
		s.handleStatus(deviceID, msg.Payload())
	case "ack":
		s.handleAck(deviceID, msg.Payload())
	default:
		log.Printf("MQTT: Unknown message type %q on topic %s", msgType, msg.Topic())
	}
}

func (s *Service) handleTelemetry(deviceID string, payload []byte) {
	var snap models.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		log.Printf("MQTT: Failed to parse telemetry from device %s: %v", deviceID, err)
		return
	}
	if snap.DeviceID == "" {
		snap.DeviceID = deviceID
	}
	ctx := context.Background()
	if err := s.data.SaveReading(ctx, deviceID, &snap); err != nil {
		log.Printf("MQTT: Failed to store telemetry from device %s: %v", deviceID, err)
		return
	}
	if err := s.data.SetConnection(ctx, deviceID, "online"); err != nil {
		log.Printf("MQTT: Failed to update connection for device %s: %v", deviceID, err)
	}
	if s.events != nil {
		s.events.Emit("sensorUpdate", map[string]interface{}{
			"deviceId": deviceID,
			"data":     snap,
		})
	}
}

func (s *Service) handleStatus(deviceID string, payload []byte) {
	var status map[string]interface{}
	if err := json.Unmarshal(payload, &status); err != nil {
		log.Printf("MQTT: Failed to parse status from device %s: %v", deviceID, err)
		return
	}
	if err := s.data.SetConnection(context.Background(), deviceID, "online"); err != nil {
		log.Printf("MQTT: Failed to update connection for device %s: %v", deviceID, err)
		return
	}
	if s.events != nil {
		s.events.Emit("deviceStatus", map[string]interface{}{
			"deviceId": deviceID,
			"status":   "online",
			"lastSeen": models.Timestamp(time.Now()),
		})
	}
}

type commandAck struct {
	CommandID string `json:"command_id"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
}

func (s *Service) handleAck(deviceID string, payload []byte) {
	var ack commandAck
	if err := json.Unmarshal(payload, &ack); err != nil {
		log.Printf("MQTT: Failed to parse ack from device %s: %v", deviceID, err)
		return
	}
	if err := s.data.RecordCommandResult(context.Background(), deviceID, ack.CommandID, ack.Success, ack.Message); err != nil {
		log.Printf("MQTT: Failed to record command result for device %s: %v", deviceID, err)
	}
	log.Printf("MQTT: Command %s for device %s was %s", ack.CommandID, deviceID, ackStatus(ack.Success))
	if s.events != nil {
		s.events.Emit("commandResult", map[string]interface{}{
			"deviceId":  deviceID,
			"commandId": ack.CommandID,
			"success":   ack.Success,
			"message":   ack.Message,
		})
	}
}

func ackStatus(success bool) string {
	if success {
		return "executed"
	}
	return "failed"
}

// commandPayload is the wire format devices expect on their command
// topics.
type commandPayload struct {
	ID        string      `json:"id"`
	Component string      `json:"component"`
	Action    string      `json:"action"`
	Value     interface{} `json:"value"`
	Timestamp int64       `json:"timestamp"`
}

// SendCommand publishes a command to one device's command topic and
// returns the command ID, or an empty string when the client is not
// connected.
func (s *Service) SendCommand(deviceID, component, command string, value interface{}) string {
	if !s.client.IsConnected() {
		log.Println("MQTT: Client not connected, dropping command")
		return ""
	}
	cmd := commandPayload{
		ID:        "cmd_" + uuid.NewString(),
		Component: component,
		Action:    command,
		Value:     value,
		Timestamp: time.Now().UnixMilli(),
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		log.Printf("MQTT: Failed to marshal command for device %s: %v", deviceID, err)
		return ""
	}
	s.client.Publish(s.prefix+deviceID+"/commands", 1, false, payload)
	log.Printf("MQTT: Command sent to device %s: %s.%s=%v", deviceID, component, command, value)
	return cmd.ID
}

// BroadcastCommandToAll publishes a command on the shared broadcast
// topic every device listens to.
func (s *Service) BroadcastCommandToAll(component, command string, value interface{}) string {
	if !s.client.IsConnected() {
		log.Println("MQTT: Client not connected, dropping broadcast")
		return ""
	}
	cmd := commandPayload{
		ID:        "cmd_" + uuid.NewString(),
		Component: component,
		Action:    command,
		Value:     value,
		Timestamp: time.Now().UnixMilli(),
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		log.Printf("MQTT: Failed to marshal broadcast command: %v", err)
		return ""
	}
	s.client.Publish(s.prefix+"all/commands", 1, false, payload)
	log.Printf("MQTT: Broadcast command sent to all devices: %s.%s=%v", component, command, value)
	return cmd.ID
}
