package rules

import (
	"context"
	"log"
	"time"

	"sensorstation/internal/metrics"
	"sensorstation/internal/models"
)

// SweepInterval is the fixed cadence of the condition-rule evaluation
// loop.
const SweepInterval = 30 * time.Second

// startLoop runs one sweep immediately, then sweeps on a fixed ticker
// until ctx is cancelled. Sweeps never overlap: a tick arriving while a
// sweep is still in progress is dropped.
func (s *Service) startLoop(ctx context.Context) {
	log.Println("RULES: Starting rule evaluation loop")
	s.runSweep(ctx)

	go func() {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Println("RULES: Evaluation loop stopped")
				return
			case <-ticker.C:
				s.runSweep(ctx)
			}
		}
	}()
}

// runSweep evaluates every enabled condition rule once, grouped by
// device so each device's snapshot is fetched a single time. Problems
// with one device or one rule never abort the rest of the sweep.
func (s *Service) runSweep(ctx context.Context) {
	if !s.sweeping.CompareAndSwap(false, true) {
		log.Println("RULES: Previous sweep still in progress, skipping")
		return
	}
	defer s.sweeping.Store(false)

	start := time.Now()
	metrics.SweepsTotal.Inc()

	all := s.repo.LoadAll(ctx)
	conditionRules := make([]*models.Rule, 0, len(all))
	for _, rule := range all {
		if rule.Type == models.RuleTypeCondition && rule.Enabled {
			conditionRules = append(conditionRules, rule)
		}
	}
	if len(conditionRules) == 0 {
		return
	}
	log.Printf("RULES: Evaluating %d condition rules", len(conditionRules))

	byDevice := make(map[string][]*models.Rule)
	for _, rule := range conditionRules {
		byDevice[rule.DeviceID] = append(byDevice[rule.DeviceID], rule)
	}

	for deviceID, deviceRules := range byDevice {
		snap := s.cache.GetDeviceData(ctx, deviceID)
		if snap == nil {
			log.Printf("RULES: No data available for device %s, skipping %d rules", deviceID, len(deviceRules))
			continue
		}
		for _, rule := range deviceRules {
			metrics.RulesEvaluated.Inc()
			if EvaluateCondition(rule.Condition, snap) {
				log.Printf("RULES: Rule %s (%s) matched", rule.ID, rule.Name)
				metrics.ConditionsMatched.Inc()
				s.exec.Execute(ctx, rule)
			}
		}
	}

	metrics.SweepDuration.Observe(time.Since(start).Seconds())
}
