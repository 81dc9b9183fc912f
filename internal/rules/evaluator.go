package rules

import (
	"log"

	"sensorstation/internal/models"
	"sensorstation/internal/utils"
)

// EvaluateCondition reports whether a condition holds against a sensor
// snapshot. A missing sensor, incomplete condition, unknown operator or
// non-numeric value all mean "rule does not fire" rather than an error.
func EvaluateCondition(cond *models.Condition, snap *models.Snapshot) bool {
	if cond == nil || snap == nil {
		return false
	}
	if cond.Sensor == "" || cond.Operator == "" || cond.Value == nil {
		log.Printf("RULES: Invalid condition (sensor=%q operator=%q), skipping", cond.Sensor, cond.Operator)
		return false
	}

	reading, ok := snap.Sensors[cond.Sensor]
	if !ok {
		log.Printf("RULES: Sensor %s not found in device data, skipping rule", cond.Sensor)
		return false
	}

	current, ok := utils.ToFloat64(reading.Value)
	if !ok {
		log.Printf("RULES: Sensor %s value %v is not numeric, skipping rule", cond.Sensor, reading.Value)
		return false
	}
	threshold, ok := utils.ToFloat64(cond.Value)
	if !ok {
		log.Printf("RULES: Condition value %v is not numeric, skipping rule", cond.Value)
		return false
	}

	switch cond.Operator {
	case ">":
		return current > threshold
	case ">=":
		return current >= threshold
	case "<":
		return current < threshold
	case "<=":
		return current <= threshold
	case "==":
		return current == threshold
	case "!=":
		return current != threshold
	}
	log.Printf("RULES: Unknown operator %q, skipping rule", cond.Operator)
	return false
}
