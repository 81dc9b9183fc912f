package models

import "fmt"

// ValidationError describes why a rule document was rejected at the
// save boundary. The reason is safe to surface to API callers.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid rule: %s %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

var operators = map[string]bool{
	">": true, ">=": true, "<": true, "<=": true, "==": true, "!=": true,
}

// KnownOperator reports whether op is one of the supported comparison
// operators.
func KnownOperator(op string) bool {
	return operators[op]
}

// Validate checks a rule document before it is persisted. Malformed
// rules are rejected here and never reach the store.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return invalid("name", "is required")
	}
	if r.DeviceID == "" {
		return invalid("deviceId", "is required")
	}
	switch r.Type {
	case RuleTypeCondition:
		if r.DeviceID == BroadcastDevice {
			return invalid("deviceId", "cannot be broadcast for condition rules")
		}
		if r.Schedule != nil {
			return invalid("schedule", "must not be set on condition rules")
		}
		c := r.Condition
		if c == nil {
			return invalid("condition", "is required for condition rules")
		}
		if c.Sensor == "" {
			return invalid("condition.sensor", "is required")
		}
		if !KnownOperator(c.Operator) {
			return invalid("condition.operator", fmt.Sprintf("%q is not supported", c.Operator))
		}
		if c.Value == nil {
			return invalid("condition.value", "is required")
		}
	case RuleTypeSchedule:
		if r.Condition != nil {
			return invalid("condition", "must not be set on schedule rules")
		}
		if r.Schedule == nil || r.Schedule.Pattern == "" {
			return invalid("schedule.pattern", "is required for schedule rules")
		}
	case "":
		return invalid("type", "is required")
	default:
		return invalid("type", fmt.Sprintf("%q is not supported", r.Type))
	}
	if r.Action == nil {
		return invalid("action", "is required")
	}
	if r.Action.Component == "" {
		return invalid("action.component", "is required")
	}
	if r.Action.CommandName() == "" {
		return invalid("action.command", "is required")
	}
	if r.Action.Value == nil {
		return invalid("action.value", "is required")
	}
	return nil
}
