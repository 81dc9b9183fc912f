package rules

import (
	"context"
	"log"
	"sync"

	"sensorstation/internal/metrics"
	"sensorstation/internal/models"

	"github.com/robfig/cron/v3"
)

// ScheduleManager keeps one active cron job per enabled schedule rule.
// Patterns use the standard five-field cron grammar (minute, hour,
// day-of-month, month, day-of-week); minute granularity.
type ScheduleManager struct {
	cron      *cron.Cron
	repo      *Repository
	exec      *Executor
	jobMap    map[string]cron.EntryID
	jobMapMux sync.RWMutex
}

// NewScheduleManager creates a schedule manager. Jobs do not fire until
// Start is called.
func NewScheduleManager(repo *Repository, exec *Executor) *ScheduleManager {
	return &ScheduleManager{
		cron:   cron.New(),
		repo:   repo,
		exec:   exec,
		jobMap: make(map[string]cron.EntryID),
	}
}

// Start starts the underlying cron runner.
func (m *ScheduleManager) Start() {
	m.cron.Start()
	log.Println("SCHEDULER: Cron scheduler started")
}

// Stop stops the cron runner, waiting for any in-flight job to finish.
func (m *ScheduleManager) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("SCHEDULER: Cron scheduler stopped")
}

// ValidatePattern checks a cron pattern without installing anything.
func (m *ScheduleManager) ValidatePattern(pattern string) error {
	_, err := cron.ParseStandard(pattern)
	return err
}

// Install registers a cron job for a schedule rule, replacing any
// existing job for the same rule so it never fires twice. Returns an
// error on an invalid pattern; no job is installed in that case.
func (m *ScheduleManager) Install(rule *models.Rule) error {
	if rule.Schedule == nil || rule.Schedule.Pattern == "" {
		log.Printf("SCHEDULER: Rule %s has no schedule pattern, not installing", rule.ID)
		return &models.ValidationError{Field: "schedule.pattern", Reason: "is required"}
	}

	m.Cancel(rule.ID)

	ruleID := rule.ID
	entryID, err := m.cron.AddFunc(rule.Schedule.Pattern, func() {
		m.fire(ruleID)
	})
	if err != nil {
		log.Printf("SCHEDULER: Failed to schedule rule %s with pattern %q: %v", rule.ID, rule.Schedule.Pattern, err)
		return err
	}

	m.jobMapMux.Lock()
	m.jobMap[rule.ID] = entryID
	jobs := len(m.jobMap)
	m.jobMapMux.Unlock()
	metrics.ScheduledJobs.Set(float64(jobs))

	log.Printf("SCHEDULER: Scheduled rule %s (%s) with pattern %q (entry ID: %d)", rule.ID, rule.Name, rule.Schedule.Pattern, entryID)
	return nil
}

// fire runs when a job's cron time matches. The rule is re-fetched so a
// rule deleted or disabled after installation never executes.
func (m *ScheduleManager) fire(ruleID string) {
	ctx := context.Background()
	rule := m.repo.GetByID(ctx, ruleID)
	if rule == nil {
		log.Printf("SCHEDULER: Rule %s no longer exists, skipping firing", ruleID)
		return
	}
	if !rule.Enabled {
		log.Printf("SCHEDULER: Rule %s is disabled, skipping firing", ruleID)
		return
	}
	log.Printf("SCHEDULER: Executing scheduled rule %s (%s)", rule.ID, rule.Name)
	m.exec.Execute(ctx, rule)
}

// Cancel removes the job for a rule if one is installed.
func (m *ScheduleManager) Cancel(ruleID string) {
	m.jobMapMux.Lock()
	defer m.jobMapMux.Unlock()

	if entryID, exists := m.jobMap[ruleID]; exists {
		m.cron.Remove(entryID)
		delete(m.jobMap, ruleID)
		metrics.ScheduledJobs.Set(float64(len(m.jobMap)))
		log.Printf("SCHEDULER: Cancelled job for rule %s (entry ID: %d)", ruleID, entryID)
	}
}

// CancelAll removes every installed job.
func (m *ScheduleManager) CancelAll() {
	m.jobMapMux.Lock()
	defer m.jobMapMux.Unlock()

	for ruleID, entryID := range m.jobMap {
		m.cron.Remove(entryID)
		log.Printf("SCHEDULER: Cancelled job for rule %s (entry ID: %d)", ruleID, entryID)
	}
	m.jobMap = make(map[string]cron.EntryID)
	metrics.ScheduledJobs.Set(0)
}

// InstallAll replaces every active job with fresh jobs for the enabled
// schedule rules in the input. Rules with invalid patterns are skipped.
func (m *ScheduleManager) InstallAll(rules []*models.Rule) {
	m.CancelAll()

	installed := 0
	for _, rule := range rules {
		if rule.Type != models.RuleTypeSchedule || !rule.Enabled {
			continue
		}
		if err := m.Install(rule); err == nil {
			installed++
		}
	}
	log.Printf("SCHEDULER: Installed %d schedule rules", installed)
}

// Jobs returns the number of active jobs.
func (m *ScheduleManager) Jobs() int {
	m.jobMapMux.RLock()
	defer m.jobMapMux.RUnlock()
	return len(m.jobMap)
}
