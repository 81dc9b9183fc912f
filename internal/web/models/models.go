package models

// EnableRequest toggles a rule's enabled flag.
type EnableRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// CommandRequest is a manual device command from the dashboard.
type CommandRequest struct {
	Component string      `json:"component" binding:"required"`
	Command   string      `json:"command" binding:"required"`
	Value     interface{} `json:"value" binding:"required"`
}
