package rules

import (
	"context"
	"log"
	"time"

	"sensorstation/internal/metrics"
	"sensorstation/internal/models"
)

// Executor turns a triggered rule into exactly one dispatch call and,
// when the transport accepts the command, one history entry and one
// lastExecuted update.
type Executor struct {
	dispatcher CommandDispatcher
	repo       *Repository
}

// NewExecutor creates an executor.
func NewExecutor(dispatcher CommandDispatcher, repo *Repository) *Executor {
	return &Executor{dispatcher: dispatcher, repo: repo}
}

// Execute runs a rule's action. Incomplete actions are logged and
// dropped before any dispatch; a refused dispatch records nothing.
func (e *Executor) Execute(ctx context.Context, rule *models.Rule) {
	action, err := rule.ResolveAction()
	if err != nil {
		log.Printf("RULES: Not executing rule %s: %v", rule.ID, err)
		return
	}

	var cmdID, device, mode string
	if action.Broadcast {
		log.Printf("RULES: Broadcasting action for rule %s: %s.%s=%v",
			rule.ID, action.Component, action.Command, action.Value)
		cmdID = e.dispatcher.BroadcastCommandToAll(action.Component, action.Command, action.Value)
		device = models.AllDevicesLabel
		mode = "broadcast"
	} else {
		log.Printf("RULES: Sending command to device %s for rule %s: %s.%s=%v",
			action.TargetDevice, rule.ID, action.Component, action.Command, action.Value)
		cmdID = e.dispatcher.SendCommand(action.TargetDevice, action.Component, action.Command, action.Value)
		device = action.TargetDevice
		mode = "device"
	}

	if cmdID == "" {
		log.Printf("RULES: Dispatch refused for rule %s, no history recorded", rule.ID)
		metrics.DispatchFailures.Inc()
		return
	}
	metrics.CommandsDispatched.WithLabelValues(mode).Inc()

	e.repo.AppendHistory(ctx, rule.ID, models.HistoryEntry{
		Timestamp: models.Timestamp(time.Now()),
		Rule:      rule.Name,
		Action:    action.Describe(),
		Device:    device,
	})
	e.repo.UpdateLastExecuted(ctx, rule.ID)
}
