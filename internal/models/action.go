package models

import (
	"encoding/json"
	"time"
)

// Priority orders queued actions. Higher priority drains first.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the numeric ordering weight of a priority. Unknown
// priorities rank below every valid one.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// ActionType tags a queued mutation with the handler responsible for
// executing it remotely. The engine never inspects payloads, only tags.
type ActionType string

// Action represents one durable unit of deferred work.
type Action struct {
	ID         string            `json:"id"`
	Type       ActionType        `json:"type"`
	Payload    json.RawMessage   `json:"payload"`
	Priority   Priority          `json:"priority"`
	RetryCount int               `json:"retry_count"`
	MaxRetries int               `json:"max_retries"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// FailedAction is a dead-letter record for an action whose retries
// were exhausted or whose type had no registered handler.
type FailedAction struct {
	Action   Action    `json:"action"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}
