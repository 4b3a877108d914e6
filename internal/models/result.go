package models

// SyncError describes one permanently failed action from a flush run.
type SyncError struct {
	ActionID string     `json:"action_id"`
	Type     ActionType `json:"type"`
	Message  string     `json:"message"`
}

// SyncResult summarizes a single flush run.
type SyncResult struct {
	Processed int         `json:"processed_count"`
	Failed    int         `json:"failed_count"`
	Errors    []SyncError `json:"errors,omitempty"`
}
