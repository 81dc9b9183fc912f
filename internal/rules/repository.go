package rules

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"sensorstation/internal/models"

	"github.com/google/uuid"
)

const (
	rulePrefix    = "rule:"
	historyPrefix = "rule:history:"
)

// Repository persists rule documents and per-rule execution history.
// Storage errors are logged and converted to failure signals (false,
// nil, empty list); they never escape to callers.
type Repository struct {
	store  Store
	events EventSink
}

// NewRepository creates a repository over the given store. events may
// be nil when no UI notification is wanted.
func NewRepository(store Store, events EventSink) *Repository {
	return &Repository{store: store, events: events}
}

// Save persists a rule document, assigning an ID and stamping
// timestamps as needed. Returns the rule ID and whether the write
// succeeded.
func (r *Repository) Save(ctx context.Context, rule *models.Rule) (string, bool) {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := models.Timestamp(time.Now())
	if rule.CreatedAt == "" {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	data, err := json.Marshal(rule)
	if err != nil {
		log.Printf("RULES: Failed to marshal rule %s: %v", rule.ID, err)
		return "", false
	}
	if err := r.store.Set(ctx, rulePrefix+rule.ID, data); err != nil {
		log.Printf("RULES: Failed to save rule %s: %v", rule.ID, err)
		return "", false
	}
	return rule.ID, true
}

// LoadAll reads every rule document. Malformed or incomplete documents
// are skipped and logged; they never fail the batch.
func (r *Repository) LoadAll(ctx context.Context) []*models.Rule {
	keys, err := r.store.Keys(ctx, rulePrefix)
	if err != nil {
		log.Printf("RULES: Failed to list rule keys: %v", err)
		return nil
	}

	rules := make([]*models.Rule, 0, len(keys))
	for _, key := range keys {
		if strings.HasPrefix(key, historyPrefix) {
			continue
		}
		data, err := r.store.Get(ctx, key)
		if err != nil {
			log.Printf("RULES: Failed to read %s: %v", key, err)
			continue
		}
		if data == nil {
			continue
		}
		var rule models.Rule
		if err := json.Unmarshal(data, &rule); err != nil {
			log.Printf("RULES: Failed to parse rule at %s: %v", key, err)
			continue
		}
		if rule.ID == "" || rule.Name == "" {
			log.Printf("RULES: Skipping rule at %s: missing required fields", key)
			continue
		}
		rules = append(rules, &rule)
	}
	return rules
}

// GetByID returns a rule, or nil when it does not exist.
func (r *Repository) GetByID(ctx context.Context, ruleID string) *models.Rule {
	data, err := r.store.Get(ctx, rulePrefix+ruleID)
	if err != nil {
		log.Printf("RULES: Failed to read rule %s: %v", ruleID, err)
		return nil
	}
	if data == nil {
		return nil
	}
	var rule models.Rule
	if err := json.Unmarshal(data, &rule); err != nil {
		log.Printf("RULES: Failed to parse rule %s: %v", ruleID, err)
		return nil
	}
	return &rule
}

// Delete removes a rule document and its history. Deleting a rule that
// does not exist is a successful no-op.
func (r *Repository) Delete(ctx context.Context, ruleID string) bool {
	if err := r.store.Delete(ctx, rulePrefix+ruleID, historyPrefix+ruleID); err != nil {
		log.Printf("RULES: Failed to delete rule %s: %v", ruleID, err)
		return false
	}
	log.Printf("RULES: Deleted rule %s", ruleID)
	return true
}

// SetEnabled flips a rule's enabled flag and persists it. Returns the
// updated rule so callers can sync any scheduled job.
func (r *Repository) SetEnabled(ctx context.Context, ruleID string, enabled bool) (*models.Rule, bool) {
	rule := r.GetByID(ctx, ruleID)
	if rule == nil {
		return nil, false
	}
	rule.Enabled = enabled
	if _, ok := r.Save(ctx, rule); !ok {
		return nil, false
	}
	return rule, true
}

// UpdateLastExecuted stamps the rule's last execution time without
// touching updatedAt.
func (r *Repository) UpdateLastExecuted(ctx context.Context, ruleID string) bool {
	rule := r.GetByID(ctx, ruleID)
	if rule == nil {
		return false
	}
	now := models.Timestamp(time.Now())
	rule.LastExecuted = &now

	data, err := json.Marshal(rule)
	if err != nil {
		log.Printf("RULES: Failed to marshal rule %s: %v", ruleID, err)
		return false
	}
	if err := r.store.Set(ctx, rulePrefix+ruleID, data); err != nil {
		log.Printf("RULES: Failed to update last execution for rule %s: %v", ruleID, err)
		return false
	}
	return true
}

// AppendHistory appends an execution record, keeping only the most
// recent entries, and notifies dashboard clients.
func (r *Repository) AppendHistory(ctx context.Context, ruleID string, entry models.HistoryEntry) bool {
	key := historyPrefix + ruleID

	history := r.GetHistory(ctx, ruleID)
	history = append(history, entry)
	if len(history) > models.HistoryLimit {
		history = history[len(history)-models.HistoryLimit:]
	}

	data, err := json.Marshal(history)
	if err != nil {
		log.Printf("RULES: Failed to marshal history for rule %s: %v", ruleID, err)
		return false
	}
	if err := r.store.Set(ctx, key, data); err != nil {
		log.Printf("RULES: Failed to save history for rule %s: %v", ruleID, err)
		return false
	}

	if r.events != nil {
		r.events.Emit("ruleExecuted", map[string]interface{}{
			"ruleId":    ruleID,
			"execution": entry,
		})
	}
	return true
}

// GetHistory returns the execution history for a rule, oldest first.
func (r *Repository) GetHistory(ctx context.Context, ruleID string) []models.HistoryEntry {
	data, err := r.store.Get(ctx, historyPrefix+ruleID)
	if err != nil {
		log.Printf("RULES: Failed to read history for rule %s: %v", ruleID, err)
		return []models.HistoryEntry{}
	}
	if data == nil {
		return []models.HistoryEntry{}
	}
	var history []models.HistoryEntry
	if err := json.Unmarshal(data, &history); err != nil {
		log.Printf("RULES: Failed to parse history for rule %s: %v", ruleID, err)
		return []models.HistoryEntry{}
	}
	return history
}
