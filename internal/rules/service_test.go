package rules

import (
	"context"
	"testing"

	"sensorstation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveRuleValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*models.Rule)
	}{
		{"missing name", func(r *models.Rule) { r.Name = "" }},
		{"missing deviceId", func(r *models.Rule) { r.DeviceID = "" }},
		{"missing type", func(r *models.Rule) { r.Type = "" }},
		{"unknown type", func(r *models.Rule) { r.Type = "interval" }},
		{"broadcast condition rule", func(r *models.Rule) { r.DeviceID = models.BroadcastDevice }},
		{"missing condition", func(r *models.Rule) { r.Condition = nil }},
		{"unknown operator", func(r *models.Rule) { r.Condition.Operator = "~=" }},
		{"missing action", func(r *models.Rule) { r.Action = nil }},
		{"missing action value", func(r *models.Rule) { r.Action.Value = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := conditionRule("Valid", "dev1", "temperature", ">", 25)
			tt.mutate(rule)
			_, err := svc.SaveRule(ctx, rule)
			require.Error(t, err)
			var verr *models.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestSaveRuleRejectsInvalidCronPattern(t *testing.T) {
	svc, _, _, _ := newTestService()

	rule := scheduleRule("BadCron", "dev1", "every tuesday")
	_, err := svc.SaveRule(context.Background(), rule)
	require.Error(t, err)
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, svc.ScheduledJobs())
}

func TestSaveRuleNormalizesBroadcastAction(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	rule := scheduleRule("AllOff", models.BroadcastDevice, "0 22 * * *")
	id, err := svc.SaveRule(ctx, rule)
	require.NoError(t, err)

	stored := svc.GetRule(ctx, id)
	require.NotNil(t, stored)
	assert.True(t, stored.Action.Broadcast)
	assert.Equal(t, 1, svc.ScheduledJobs())
}

func TestSaveRuleInstallsAndReplacesScheduleJob(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	rule := scheduleRule("Nightly", "dev1", "0 22 * * *")
	id, err := svc.SaveRule(ctx, rule)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.ScheduledJobs())

	// Saving again replaces the job rather than duplicating it.
	stored := svc.GetRule(ctx, id)
	stored.Schedule.Pattern = "0 23 * * *"
	_, err = svc.SaveRule(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.ScheduledJobs())

	// Saving it disabled drops the job.
	stored = svc.GetRule(ctx, id)
	stored.Enabled = false
	_, err = svc.SaveRule(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, 0, svc.ScheduledJobs())
}

func TestSetRuleEnabledSyncsScheduleJob(t *testing.T) {
	svc, _, _, dispatcher := newTestService()
	ctx := context.Background()

	rule := scheduleRule("Toggle", models.BroadcastDevice, "0 22 * * *")
	id, err := svc.SaveRule(ctx, rule)
	require.NoError(t, err)
	require.Equal(t, 1, svc.ScheduledJobs())

	require.True(t, svc.SetRuleEnabled(ctx, id, false))
	assert.Equal(t, 0, svc.ScheduledJobs())

	// A disabled schedule rule never dispatches, even if its stored
	// cron time is forced to fire.
	svc.sched.fire(id)
	assert.Equal(t, 0, dispatcher.sentCount())
	assert.Equal(t, 0, dispatcher.broadcastCount())

	require.True(t, svc.SetRuleEnabled(ctx, id, true))
	assert.Equal(t, 1, svc.ScheduledJobs())

	assert.False(t, svc.SetRuleEnabled(ctx, "no-such-rule", true))
}

func TestDeleteRuleCancelsJobAndRemovesHistory(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	id, err := svc.SaveRule(ctx, scheduleRule("Doomed", "dev1", "0 22 * * *"))
	require.NoError(t, err)
	require.Equal(t, 1, svc.ScheduledJobs())

	require.True(t, svc.DeleteRule(ctx, id))
	assert.Equal(t, 0, svc.ScheduledJobs())
	assert.Nil(t, svc.GetRule(ctx, id))
	assert.Empty(t, svc.GetRuleHistory(ctx, id))
}

func TestSweepEndToEnd(t *testing.T) {
	svc, _, provider, dispatcher := newTestService()
	ctx := context.Background()

	id, err := svc.SaveRule(ctx, conditionRule("HighTemp", "dev1", "temperature", ">", 25))
	require.NoError(t, err)

	provider.setSnapshot("dev1", map[string]models.SensorValue{
		"temperature": {Value: 26.0, Unit: "C"},
	})

	svc.runSweep(ctx)

	require.Equal(t, 1, dispatcher.sentCount())
	assert.Equal(t, sentCommand{DeviceID: "dev1", Component: "fan", Command: "power", Value: "on"}, dispatcher.sent[0])

	history := svc.GetRuleHistory(ctx, id)
	require.Len(t, history, 1)
	assert.Equal(t, "fan.power=on", history[0].Action)
	assert.Equal(t, "dev1", history[0].Device)

	stored := svc.GetRule(ctx, id)
	require.NotNil(t, stored)
	assert.NotNil(t, stored.LastExecuted)
}

func TestSweepBelowThresholdDoesNotFire(t *testing.T) {
	svc, _, provider, dispatcher := newTestService()
	ctx := context.Background()

	_, err := svc.SaveRule(ctx, conditionRule("HighTemp", "dev1", "temperature", ">", 25))
	require.NoError(t, err)
	provider.setSnapshot("dev1", map[string]models.SensorValue{
		"temperature": {Value: 25.0},
	})

	svc.runSweep(ctx)
	assert.Equal(t, 0, dispatcher.sentCount())
}

func TestSweepFetchesEachDeviceOnce(t *testing.T) {
	svc, _, provider, dispatcher := newTestService()
	ctx := context.Background()

	_, err := svc.SaveRule(ctx, conditionRule("Hot", "dev1", "temperature", ">", 25))
	require.NoError(t, err)
	_, err = svc.SaveRule(ctx, conditionRule("VeryHot", "dev1", "temperature", ">", 30))
	require.NoError(t, err)

	provider.setSnapshot("dev1", map[string]models.SensorValue{
		"temperature": {Value: 31.0},
	})

	svc.runSweep(ctx)
	assert.Equal(t, 1, provider.callCount("dev1"))
	assert.Equal(t, 2, dispatcher.sentCount())
}

func TestSweepIsolatesDeviceFailures(t *testing.T) {
	svc, _, provider, dispatcher := newTestService()
	ctx := context.Background()

	_, err := svc.SaveRule(ctx, conditionRule("NoData", "ghost", "temperature", ">", 25))
	require.NoError(t, err)
	_, err = svc.SaveRule(ctx, conditionRule("HasData", "dev1", "temperature", ">", 25))
	require.NoError(t, err)

	// Only dev1 has a snapshot; the ghost device's missing data must
	// not stop dev1's rule from firing.
	provider.setSnapshot("dev1", map[string]models.SensorValue{
		"temperature": {Value: 26.0},
	})

	svc.runSweep(ctx)
	require.Equal(t, 1, dispatcher.sentCount())
	assert.Equal(t, "dev1", dispatcher.sent[0].DeviceID)
}

func TestSweepIgnoresDisabledAndScheduleRules(t *testing.T) {
	svc, _, provider, dispatcher := newTestService()
	ctx := context.Background()

	disabled := conditionRule("Disabled", "dev1", "temperature", ">", 25)
	disabled.Enabled = false
	_, err := svc.SaveRule(ctx, disabled)
	require.NoError(t, err)
	_, err = svc.SaveRule(ctx, scheduleRule("Scheduled", "dev1", "0 22 * * *"))
	require.NoError(t, err)

	provider.setSnapshot("dev1", map[string]models.SensorValue{
		"temperature": {Value: 30.0},
	})

	svc.runSweep(ctx)
	assert.Equal(t, 0, dispatcher.sentCount())
	assert.Equal(t, 0, dispatcher.broadcastCount())
	// No condition rules were eligible, so the device was never looked up.
	assert.Equal(t, 0, provider.callCount("dev1"))
}
