package utils

import (
	"encoding/json"
	"log"
	"strconv"
	"strings"
)

// InitLogging initializes logging
func InitLogging(level string) {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

// ToFloat64 coerces JSON-decoded values to float64 for threshold
// comparison. Returns false when the value is not numeric.
func ToFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// ParseDeviceTopic extracts the device ID and message type from an
// MQTT topic of the form <prefix><deviceID>/<type>.
func ParseDeviceTopic(topic, prefix string) (deviceID, msgType string) {
	rest := strings.TrimPrefix(topic, prefix)
	parts := strings.Split(rest, "/")
	if len(parts) < 2 {
		return "", ""
	}
	return parts[0], parts[len(parts)-1]
}
