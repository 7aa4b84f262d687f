package store

import (
	"context"
	"strings"
	"time"

	"github.com/kiryl-martsinkevich/sdlc-agents/internal/model"
)

// RecentMemories returns the newest entries for one agent, newest first.
func (s *SQLiteStore) RecentMemories(ctx context.Context, p RecentParams) ([]model.MemoryEntry, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 100
	}
	within := p.Within
	if within <= 0 {
		within = 24 * time.Hour
	}

	floor := time.Now().UTC().Add(-within).UnixMicro()
	if rf := s.retentionFloor(); rf > floor {
		floor = rf
	}

	where := []string{"agent_id = ?", "ts >= ?"}
	args := []interface{}{p.AgentID, floor}

	if p.MemoryType != "" {
		where = append(where, "memory_type = ?")
		args = append(args, p.MemoryType)
	}
	if p.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, p.SessionID)
	}

	query := `SELECT id, agent_id, ts, memory_type, content, metadata, session_id
		FROM memories WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY ts DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("recent memories", err)
	}
	defer rows.Close()

	var entries []model.MemoryEntry
	for rows.Next() {
		e, err := scanMemoryEntry(rows)
		if err != nil {
			return nil, storageErr("recent memories", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SearchMemories finds an agent's entries whose content contains the query,
// case-insensitively, newest first.
func (s *SQLiteStore) SearchMemories(ctx context.Context, agentID, query string, limit int) ([]model.MemoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	pattern := "%" + strings.ToLower(query) + "%"

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, agent_id, ts, memory_type, content, metadata, session_id
		 FROM memories
		 WHERE agent_id = ? AND ts >= ? AND lower(content) LIKE ?
		 ORDER BY ts DESC LIMIT ?`,
		agentID, s.retentionFloor(), pattern, limit)
	if err != nil {
		return nil, storageErr("search memories", err)
	}
	defer rows.Close()

	var entries []model.MemoryEntry
	for rows.Next() {
		e, err := scanMemoryEntry(rows)
		if err != nil {
			return nil, storageErr("search memories", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ExportMemories returns all of an agent's entries in write order, for
// JSONL export. An empty agent id exports everything.
func (s *SQLiteStore) ExportMemories(ctx context.Context, agentID string) ([]model.MemoryEntry, error) {
	where := []string{"ts >= ?"}
	args := []interface{}{s.retentionFloor()}

	if agentID != "" {
		where = append(where, "agent_id = ?")
		args = append(args, agentID)
	}

	query := `SELECT id, agent_id, ts, memory_type, content, metadata, session_id
		FROM memories WHERE ` + strings.Join(where, " AND ") + ` ORDER BY ts ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("export memories", err)
	}
	defer rows.Close()

	var entries []model.MemoryEntry
	for rows.Next() {
		e, err := scanMemoryEntry(rows)
		if err != nil {
			return nil, storageErr("export memories", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
