package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleUnmarshalDefaultsEnabled(t *testing.T) {
	var rule Rule
	require.NoError(t, json.Unmarshal([]byte(`{"id":"r1","name":"Test","deviceId":"dev1"}`), &rule))
	assert.True(t, rule.Enabled)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"r2","name":"Test","enabled":false}`), &rule))
	assert.False(t, rule.Enabled)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"r3","name":"Test","enabled":true}`), &rule))
	assert.True(t, rule.Enabled)
}

func TestActionCommandNamePrefersAction(t *testing.T) {
	a := &Action{Command: "power"}
	assert.Equal(t, "power", a.CommandName())

	a.Action = "toggle"
	assert.Equal(t, "toggle", a.CommandName())
}

func TestRuleNormalizeForcesBroadcastFlag(t *testing.T) {
	rule := &Rule{
		DeviceID: BroadcastDevice,
		Action:   &Action{Component: "light", Command: "power", Value: "off"},
	}
	rule.Normalize()
	assert.True(t, rule.Action.Broadcast)

	targeted := &Rule{
		DeviceID: "dev1",
		Action:   &Action{Component: "light", Command: "power", Value: "off"},
	}
	targeted.Normalize()
	assert.False(t, targeted.Action.Broadcast)
}

func TestResolveAction(t *testing.T) {
	rule := &Rule{
		ID:       "r1",
		DeviceID: "dev1",
		Action:   &Action{Component: "fan", Command: "power", Value: "on"},
	}
	resolved, err := rule.ResolveAction()
	require.NoError(t, err)
	assert.Equal(t, "fan", resolved.Component)
	assert.Equal(t, "power", resolved.Command)
	assert.Equal(t, "dev1", resolved.TargetDevice)
	assert.False(t, resolved.Broadcast)
	assert.Equal(t, "fan.power=on", resolved.Describe())
}

func TestResolveActionBroadcastAndOverride(t *testing.T) {
	broadcast := &Rule{
		ID:       "r1",
		DeviceID: BroadcastDevice,
		Action:   &Action{Component: "fan", Command: "power", Value: "on"},
	}
	resolved, err := broadcast.ResolveAction()
	require.NoError(t, err)
	assert.True(t, resolved.Broadcast)
	assert.Empty(t, resolved.TargetDevice)
	assert.Equal(t, "Broadcast fan.power=on", resolved.Describe())

	override := &Rule{
		ID:       "r2",
		DeviceID: "dev1",
		Action:   &Action{Component: "pump", Action: "run", Value: 5, DeviceID: "dev2"},
	}
	resolved, err = override.ResolveAction()
	require.NoError(t, err)
	assert.Equal(t, "dev2", resolved.TargetDevice)
	assert.Equal(t, "run", resolved.Command)
}

func TestResolveActionRejectsIncomplete(t *testing.T) {
	tests := []struct {
		name string
		rule *Rule
	}{
		{"nil action", &Rule{ID: "r"}},
		{"missing component", &Rule{ID: "r", Action: &Action{Command: "power", Value: "on"}}},
		{"missing command", &Rule{ID: "r", Action: &Action{Component: "fan", Value: "on"}}},
		{"missing value", &Rule{ID: "r", Action: &Action{Component: "fan", Command: "power"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.rule.ResolveAction()
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Rule {
		return &Rule{
			Name:     "HighTemp",
			DeviceID: "dev1",
			Type:     RuleTypeCondition,
			Condition: &Condition{
				Sensor: "temperature", Operator: ">", Value: 25.0,
			},
			Action: &Action{Component: "fan", Command: "power", Value: "on"},
		}
	}
	require.NoError(t, valid().Validate())

	schedule := &Rule{
		Name:     "Nightly",
		DeviceID: BroadcastDevice,
		Type:     RuleTypeSchedule,
		Schedule: &Schedule{Pattern: "0 22 * * *"},
		Action:   &Action{Component: "light", Command: "power", Value: "off"},
	}
	require.NoError(t, schedule.Validate())

	tests := []struct {
		name   string
		mutate func(*Rule)
	}{
		{"empty name", func(r *Rule) { r.Name = "" }},
		{"empty deviceId", func(r *Rule) { r.DeviceID = "" }},
		{"broadcast condition", func(r *Rule) { r.DeviceID = BroadcastDevice }},
		{"missing condition", func(r *Rule) { r.Condition = nil }},
		{"schedule on condition rule", func(r *Rule) { r.Schedule = &Schedule{Pattern: "* * * * *"} }},
		{"bad operator", func(r *Rule) { r.Condition.Operator = "=>" }},
		{"missing sensor", func(r *Rule) { r.Condition.Sensor = "" }},
		{"missing type", func(r *Rule) { r.Type = "" }},
		{"unknown type", func(r *Rule) { r.Type = "manual" }},
		{"missing action", func(r *Rule) { r.Action = nil }},
		{"missing action component", func(r *Rule) { r.Action.Component = "" }},
		{"missing action command", func(r *Rule) { r.Action.Command = "" }},
		{"missing action value", func(r *Rule) { r.Action.Value = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := valid()
			tt.mutate(rule)
			err := rule.Validate()
			require.Error(t, err)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}
