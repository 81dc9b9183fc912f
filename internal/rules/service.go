package rules

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"sensorstation/internal/models"

	"github.com/google/uuid"
)

// ErrStorage is returned when the backing store refused a write.
var ErrStorage = errors.New("storage failure")

// Service is the rule engine's public surface: rule CRUD, history, and
// the two trigger paths (evaluation loop and schedule jobs). Mutations
// are serialized per rule ID so a save can cancel-then-reinstall a
// schedule job atomically with respect to that rule's own job.
type Service struct {
	repo  *Repository
	cache *DataCache
	exec  *Executor
	sched *ScheduleManager

	locks         keyedMutex
	sweepInterval time.Duration
	sweeping      atomic.Bool
	loopCancel    context.CancelFunc
}

// NewService wires the rule engine together from its collaborator
// capabilities. events may be nil.
func NewService(store Store, provider DeviceDataProvider, dispatcher CommandDispatcher, events EventSink) *Service {
	repo := NewRepository(store, events)
	exec := NewExecutor(dispatcher, repo)
	return &Service{
		repo:          repo,
		cache:         NewDataCache(provider, DefaultCacheTTL),
		exec:          exec,
		sched:         NewScheduleManager(repo, exec),
		sweepInterval: SweepInterval,
	}
}

// Init loads all rules, starts the evaluation loop and installs a job
// for every enabled schedule rule.
func (s *Service) Init(ctx context.Context) error {
	log.Println("RULES: Initializing rule service")

	all := s.repo.LoadAll(ctx)
	log.Printf("RULES: Loaded %d rules", len(all))

	loopCtx, cancel := context.WithCancel(context.Background())
	s.loopCancel = cancel
	s.startLoop(loopCtx)

	s.sched.Start()
	s.sched.InstallAll(all)

	log.Println("RULES: Rule service initialized")
	return nil
}

// Stop halts the evaluation loop and the cron runner. Already-firing
// jobs run to completion.
func (s *Service) Stop() {
	if s.loopCancel != nil {
		s.loopCancel()
	}
	s.sched.Stop()
}

// ListRules returns every stored rule.
func (s *Service) ListRules(ctx context.Context) []*models.Rule {
	return s.repo.LoadAll(ctx)
}

// GetRule returns a rule, or nil when it does not exist.
func (s *Service) GetRule(ctx context.Context, ruleID string) *models.Rule {
	return s.repo.GetByID(ctx, ruleID)
}

// SaveRule validates and persists a rule, then syncs its schedule job.
// Validation failures are returned as *models.ValidationError; storage
// failures as ErrStorage.
func (s *Service) SaveRule(ctx context.Context, rule *models.Rule) (string, error) {
	if err := rule.Validate(); err != nil {
		return "", err
	}
	if rule.Type == models.RuleTypeSchedule {
		if err := s.sched.ValidatePattern(rule.Schedule.Pattern); err != nil {
			return "", &models.ValidationError{Field: "schedule.pattern", Reason: err.Error()}
		}
	}
	rule.Normalize()

	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	unlock := s.locks.lock(rule.ID)
	defer unlock()

	id, ok := s.repo.Save(ctx, rule)
	if !ok {
		return "", ErrStorage
	}

	if rule.Type == models.RuleTypeSchedule {
		s.sched.Cancel(id)
		if rule.Enabled {
			if err := s.sched.Install(rule); err != nil {
				log.Printf("RULES: Saved rule %s but failed to install its job: %v", id, err)
			}
		}
	}
	log.Printf("RULES: Saved rule %s (%s)", id, rule.Name)
	return id, nil
}

// DeleteRule cancels any schedule job, then removes the rule and its
// history. Deleting an unknown rule succeeds.
func (s *Service) DeleteRule(ctx context.Context, ruleID string) bool {
	unlock := s.locks.lock(ruleID)
	defer unlock()

	s.sched.Cancel(ruleID)
	return s.repo.Delete(ctx, ruleID)
}

// SetRuleEnabled flips a rule's enabled flag and installs or cancels
// its schedule job to match.
func (s *Service) SetRuleEnabled(ctx context.Context, ruleID string, enabled bool) bool {
	unlock := s.locks.lock(ruleID)
	defer unlock()

	rule, ok := s.repo.SetEnabled(ctx, ruleID, enabled)
	if !ok {
		return false
	}
	if rule.Type == models.RuleTypeSchedule {
		if enabled {
			if err := s.sched.Install(rule); err != nil {
				log.Printf("RULES: Enabled rule %s but failed to install its job: %v", ruleID, err)
			}
		} else {
			s.sched.Cancel(ruleID)
		}
	}
	return true
}

// GetRuleHistory returns the execution history for a rule.
func (s *Service) GetRuleHistory(ctx context.Context, ruleID string) []models.HistoryEntry {
	return s.repo.GetHistory(ctx, ruleID)
}

// ScheduledJobs returns the number of active schedule jobs.
func (s *Service) ScheduledJobs() int {
	return s.sched.Jobs()
}

// keyedMutex hands out one mutex per rule ID so operations on different
// rules never contend.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(id string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[id]
	if !ok {
		l = &sync.Mutex{}
		k.locks[id] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
