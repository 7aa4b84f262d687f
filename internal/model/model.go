// Package model defines the core agent memory data types.
package model

import "time"

// Memory types produced by agents.
const (
	MemoryConversation = "conversation"
	MemoryObservation  = "observation"
	MemoryDecision     = "decision"
	MemoryAction       = "action"
	MemoryResult       = "result"
)

// ValidMemoryTypes are the memory types the system itself produces.
// The store accepts other strings, but nothing else writes them.
var ValidMemoryTypes = map[string]bool{
	MemoryConversation: true,
	MemoryObservation:  true,
	MemoryDecision:     true,
	MemoryAction:       true,
	MemoryResult:       true,
}

// MemoryEntry is one immutable record of something an agent did or perceived.
type MemoryEntry struct {
	ID         string            `json:"id"`
	AgentID    string            `json:"agent_id"`
	Timestamp  time.Time         `json:"timestamp"`
	MemoryType string            `json:"memory_type"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
}

// ActionLogRecord is one structured record of a discrete operation an agent
// performed. Exactly one record is written per monitored operation,
// success or failure.
type ActionLogRecord struct {
	ID         string         `json:"id"`
	AgentID    string         `json:"agent_id"`
	Timestamp  time.Time      `json:"timestamp"`
	ActionType string         `json:"action_type"`
	Target     string         `json:"target"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Result     map[string]any `json:"result,omitempty"`
	Success    bool           `json:"success"`
	DurationMS int64          `json:"duration_ms"`
	SessionID  string         `json:"session_id,omitempty"`
}

// WorkItemRecord is the latest known snapshot of an external work item.
// Only the most recent snapshot per work item id is authoritative.
type WorkItemRecord struct {
	WorkItemID    int               `json:"work_item_id"`
	Timestamp     time.Time         `json:"timestamp"`
	ItemType      string            `json:"item_type"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	State         string            `json:"state"`
	AssignedAgent string            `json:"assigned_agent,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ActionStats aggregates action log records for one action type.
// Count always equals Successful + Failed.
type ActionStats struct {
	Count         int     `json:"count"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
	Successful    int     `json:"successful"`
	Failed        int     `json:"failed"`
}
