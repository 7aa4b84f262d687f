// Package store provides the agent event store interface and SQLite implementation.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kiryl-martsinkevich/sdlc-agents/internal/model"
)

// ErrNotFound is returned when a point lookup matches nothing.
var ErrNotFound = errors.New("not found")

// StorageError wraps a backend failure. Writes are never silently dropped;
// any failed store operation surfaces as a *StorageError to the caller.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// RecentParams holds parameters for querying recent memories.
type RecentParams struct {
	AgentID    string
	Limit      int           // default 100
	MemoryType string        // optional filter
	SessionID  string        // optional filter
	Within     time.Duration // trailing window, default 24h
}

// Store is the event store contract consumed by agents and the CLI.
type Store interface {
	// AppendMemory writes one immutable memory entry. A zero ID or
	// timestamp is assigned at write time.
	AppendMemory(ctx context.Context, e model.MemoryEntry) error

	// RecentMemories returns at most Limit entries for the agent, newest
	// first, restricted to the trailing window and the optional filters.
	// An empty result is not an error.
	RecentMemories(ctx context.Context, p RecentParams) ([]model.MemoryEntry, error)

	// SearchMemories does a case-insensitive substring match against
	// memory content for one agent, newest first.
	SearchMemories(ctx context.Context, agentID, query string, limit int) ([]model.MemoryEntry, error)

	// LogAction writes one action log record.
	LogAction(ctx context.Context, r model.ActionLogRecord) error

	// AgentStatistics aggregates action records for the agent within the
	// trailing window, grouped by action type. An agent with no activity
	// in the window yields an empty map.
	AgentStatistics(ctx context.Context, agentID string, within time.Duration) (map[string]model.ActionStats, error)

	// UpsertWorkItem stores a work item snapshot, last-write-wins by
	// timestamp per work item id.
	UpsertWorkItem(ctx context.Context, r model.WorkItemRecord) error

	// GetWorkItem returns the latest snapshot for the id, or ErrNotFound.
	GetWorkItem(ctx context.Context, workItemID int) (*model.WorkItemRecord, error)

	// PurgeExpired deletes memories and action records older than the
	// retention period. Reads never depend on it having run.
	PurgeExpired(ctx context.Context) (int64, error)

	// Close closes the store.
	Close() error
}
