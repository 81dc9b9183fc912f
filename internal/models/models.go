package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RuleTypeCondition and RuleTypeSchedule are the two trigger mechanisms
// a rule can have; they are mutually exclusive.
const (
	RuleTypeCondition = "condition"
	RuleTypeSchedule  = "schedule"
)

// BroadcastDevice is the sentinel device ID addressing every connected
// device instead of a single one.
const BroadcastDevice = "broadcast"

// AllDevicesLabel is the device field recorded in history entries for
// broadcast dispatches.
const AllDevicesLabel = "All Devices"

// Condition compares a named sensor reading against a threshold.
type Condition struct {
	Sensor   string      `json:"sensor"`
	Operator string      `json:"operator"` // ">", ">=", "<", "<=", "==", "!="
	Value    interface{} `json:"value"`
}

// Schedule holds a cron-style pattern for time-based rules.
type Schedule struct {
	Pattern string `json:"pattern"`
}

// Action describes what a rule does when it fires. Standard actions
// carry component/command/value; free-form actions (IsCustomJSON) may
// use "action" instead of "command" and may override the target device
// or force a broadcast.
type Action struct {
	Component    string      `json:"component"`
	Command      string      `json:"command,omitempty"`
	Action       string      `json:"action,omitempty"`
	Value        interface{} `json:"value"`
	DeviceID     string      `json:"deviceId,omitempty"`
	Broadcast    bool        `json:"broadcast,omitempty"`
	IsCustomJSON bool        `json:"isCustomJson,omitempty"`
}

// CommandName returns the effective command, preferring the free-form
// "action" key over "command".
func (a *Action) CommandName() string {
	if a.Action != "" {
		return a.Action
	}
	return a.Command
}

// ResolvedAction is the canonical form every dispatch works with, after
// the command-name aliasing and addressing mode have been settled.
type ResolvedAction struct {
	Component    string
	Command      string
	Value        interface{}
	Broadcast    bool
	TargetDevice string
}

// Describe renders the history description for this resolved action.
func (a *ResolvedAction) Describe() string {
	if a.Broadcast {
		return fmt.Sprintf("Broadcast %s.%s=%v", a.Component, a.Command, a.Value)
	}
	return fmt.Sprintf("%s.%s=%v", a.Component, a.Command, a.Value)
}

// Rule pairs a trigger (condition or schedule) with an action.
type Rule struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	DeviceID     string     `json:"deviceId"`
	Type         string     `json:"type"`
	Condition    *Condition `json:"condition,omitempty"`
	Schedule     *Schedule  `json:"schedule,omitempty"`
	Action       *Action    `json:"action"`
	Enabled      bool       `json:"enabled"`
	CreatedAt    string     `json:"createdAt,omitempty"`
	UpdatedAt    string     `json:"updatedAt,omitempty"`
	LastExecuted *string    `json:"lastExecuted"`
}

// UnmarshalJSON defaults "enabled" to true when the field is absent, so
// API payloads and stored documents behave the same way.
func (r *Rule) UnmarshalJSON(data []byte) error {
	type alias Rule
	aux := struct {
		Enabled *bool `json:"enabled"`
		*alias
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Enabled = aux.Enabled == nil || *aux.Enabled
	return nil
}

// IsBroadcast reports whether the rule addresses all devices, either
// via the sentinel device ID or an explicitly broadcast action.
func (r *Rule) IsBroadcast() bool {
	return r.DeviceID == BroadcastDevice || (r.Action != nil && r.Action.Broadcast)
}

// Normalize enforces the addressing invariant: a rule targeting the
// broadcast sentinel always carries an explicitly broadcast action.
func (r *Rule) Normalize() {
	if r.DeviceID == BroadcastDevice && r.Action != nil {
		r.Action.Broadcast = true
	}
}

// ResolveAction flattens the action into its canonical dispatch form.
// It fails when a required field is missing so the executor never
// dispatches a partial command.
func (r *Rule) ResolveAction() (*ResolvedAction, error) {
	if r.Action == nil {
		return nil, fmt.Errorf("rule %s has no action", r.ID)
	}
	cmd := r.Action.CommandName()
	if r.Action.Component == "" || cmd == "" || r.Action.Value == nil {
		return nil, fmt.Errorf("rule %s has incomplete action (component=%q command=%q)",
			r.ID, r.Action.Component, cmd)
	}
	resolved := &ResolvedAction{
		Component: r.Action.Component,
		Command:   cmd,
		Value:     r.Action.Value,
		Broadcast: r.IsBroadcast(),
	}
	if !resolved.Broadcast {
		resolved.TargetDevice = r.DeviceID
		if r.Action.DeviceID != "" {
			resolved.TargetDevice = r.Action.DeviceID
		}
	}
	return resolved, nil
}

// HistoryEntry records one rule firing.
type HistoryEntry struct {
	Timestamp string `json:"timestamp"`
	Rule      string `json:"rule"`
	Action    string `json:"action"`
	Device    string `json:"device"`
}

// HistoryLimit caps the number of retained history entries per rule.
const HistoryLimit = 50

// SensorValue is a single reading with its unit.
type SensorValue struct {
	Value interface{} `json:"value"`
	Unit  string      `json:"unit,omitempty"`
}

// Snapshot is the most recent sensor reading set for a device.
type Snapshot struct {
	DeviceID  string                 `json:"device_id,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
	Sensors   map[string]SensorValue `json:"sensors"`
}

// SensorReading is one historical data point for a single sensor.
type SensorReading struct {
	Timestamp string      `json:"timestamp"`
	Value     interface{} `json:"value"`
	Unit      string      `json:"unit,omitempty"`
}

// DeviceConnection tracks whether a device is online and when it was
// last heard from.
type DeviceConnection struct {
	Status   string `json:"status"`
	LastSeen string `json:"lastSeen"`
}

// Timestamp returns the canonical wall-clock representation used in
// rule documents and history entries.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
