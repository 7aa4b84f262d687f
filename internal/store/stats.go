package store

import (
	"context"
	"os"
	"time"

	"github.com/kiryl-martsinkevich/sdlc-agents/internal/model"
)

// AgentStatistics groups one agent's action records in the trailing window
// by action type. Count always equals Successful + Failed per bucket.
func (s *SQLiteStore) AgentStatistics(ctx context.Context, agentID string, within time.Duration) (map[string]model.ActionStats, error) {
	if within <= 0 {
		within = 24 * time.Hour
	}

	floor := time.Now().UTC().Add(-within).UnixMicro()
	if rf := s.retentionFloor(); rf > floor {
		floor = rf
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT action_type, COUNT(*), COALESCE(AVG(duration_ms), 0), COALESCE(SUM(success), 0)
		 FROM actions
		 WHERE agent_id = ? AND ts >= ?
		 GROUP BY action_type`,
		agentID, floor)
	if err != nil {
		return nil, storageErr("agent statistics", err)
	}
	defer rows.Close()

	stats := map[string]model.ActionStats{}
	for rows.Next() {
		var actionType string
		var st model.ActionStats
		if err := rows.Scan(&actionType, &st.Count, &st.AvgDurationMS, &st.Successful); err != nil {
			return nil, storageErr("agent statistics", err)
		}
		st.Failed = st.Count - st.Successful
		stats[actionType] = st
	}
	return stats, rows.Err()
}

// AgentActivity holds per-agent record counts.
type AgentActivity struct {
	AgentID    string    `json:"agent_id"`
	Memories   int       `json:"memories"`
	Actions    int       `json:"actions"`
	LastActive time.Time `json:"last_active"`
}

// StoreStats holds database-level statistics.
type StoreStats struct {
	DBPath         string          `json:"db_path"`
	DBSizeBytes    int64           `json:"db_size_bytes"`
	TotalMemories  int             `json:"total_memories"`
	TotalActions   int             `json:"total_actions"`
	TotalWorkItems int             `json:"total_work_items"`
	Agents         []AgentActivity `json:"agents"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*StoreStats, error) {
	st := &StoreStats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&st.TotalMemories)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM actions`).Scan(&st.TotalActions)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM work_items`).Scan(&st.TotalWorkItems)

	rows, err := s.db.QueryContext(ctx, `
		SELECT agent_id, SUM(mems), SUM(acts), MAX(last_ts) FROM (
			SELECT agent_id, COUNT(*) AS mems, 0 AS acts, MAX(ts) AS last_ts FROM memories GROUP BY agent_id
			UNION ALL
			SELECT agent_id, 0, COUNT(*), MAX(ts) FROM actions GROUP BY agent_id
		) GROUP BY agent_id ORDER BY SUM(mems) + SUM(acts) DESC`)
	if err != nil {
		return st, storageErr("stats", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a AgentActivity
		var lastTS int64
		rows.Scan(&a.AgentID, &a.Memories, &a.Actions, &lastTS)
		a.LastActive = time.UnixMicro(lastTS).UTC()
		st.Agents = append(st.Agents, a)
	}
	return st, nil
}
