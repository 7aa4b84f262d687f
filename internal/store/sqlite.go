package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/kiryl-martsinkevich/sdlc-agents/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	entropy   *rand.Rand
	retention time.Duration // 0 means keep everything
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
// Entries older than retention are invisible to reads and removed by
// PurgeExpired; a zero retention disables expiry.
func NewSQLiteStore(dbPath string, retention time.Duration) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:        db,
		entropy:   rand.New(rand.NewSource(time.Now().UnixNano())),
		retention: retention,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

// retentionFloor is the oldest visible timestamp in unix microseconds.
func (s *SQLiteStore) retentionFloor() int64 {
	if s.retention <= 0 {
		return 0
	}
	return time.Now().UTC().Add(-s.retention).UnixMicro()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id          TEXT PRIMARY KEY,
		agent_id    TEXT NOT NULL,
		ts          INTEGER NOT NULL,
		memory_type TEXT NOT NULL,
		content     TEXT NOT NULL,
		metadata    TEXT,
		session_id  TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_memories_agent_ts ON memories(agent_id, ts DESC);
	CREATE INDEX IF NOT EXISTS idx_memories_agent_type ON memories(agent_id, memory_type);
	CREATE INDEX IF NOT EXISTS idx_memories_session ON memories(session_id);

	CREATE TABLE IF NOT EXISTS actions (
		id          TEXT PRIMARY KEY,
		agent_id    TEXT NOT NULL,
		ts          INTEGER NOT NULL,
		action_type TEXT NOT NULL,
		target      TEXT,
		parameters  TEXT,
		result      TEXT,
		success     INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		session_id  TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_actions_agent_ts ON actions(agent_id, ts DESC);
	CREATE INDEX IF NOT EXISTS idx_actions_agent_type ON actions(agent_id, action_type);

	CREATE TABLE IF NOT EXISTS work_items (
		work_item_id   INTEGER PRIMARY KEY,
		ts             INTEGER NOT NULL,
		item_type      TEXT NOT NULL,
		title          TEXT NOT NULL,
		description    TEXT,
		state          TEXT,
		assigned_agent TEXT,
		metadata       TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AppendMemory writes one memory entry. Entries are immutable once written.
func (s *SQLiteStore) AppendMemory(ctx context.Context, e model.MemoryEntry) error {
	if e.ID == "" {
		e.ID = s.newID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	var metaJSON *string
	if len(e.Metadata) > 0 {
		b, _ := json.Marshal(e.Metadata)
		str := string(b)
		metaJSON = &str
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (id, agent_id, ts, memory_type, content, metadata, session_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.AgentID, e.Timestamp.UTC().UnixMicro(), e.MemoryType, e.Content,
		metaJSON, nullable(e.SessionID))
	return storageErr("append memory", err)
}

// LogAction writes one action log record. Failures are recorded the same
// way successes are, never dropped.
func (s *SQLiteStore) LogAction(ctx context.Context, r model.ActionLogRecord) error {
	if r.ID == "" {
		r.ID = s.newID()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	if r.DurationMS < 0 {
		r.DurationMS = 0
	}

	success := 0
	if r.Success {
		success = 1
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO actions (id, agent_id, ts, action_type, target, parameters, result, success, duration_ms, session_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.AgentID, r.Timestamp.UTC().UnixMicro(), r.ActionType, nullable(r.Target),
		jsonOrNull(r.Parameters), jsonOrNull(r.Result), success, r.DurationMS,
		nullable(r.SessionID))
	return storageErr("log action", err)
}

// UpsertWorkItem stores a snapshot; the newest timestamp per id wins.
func (s *SQLiteStore) UpsertWorkItem(ctx context.Context, r model.WorkItemRecord) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}

	var metaJSON *string
	if len(r.Metadata) > 0 {
		b, _ := json.Marshal(r.Metadata)
		str := string(b)
		metaJSON = &str
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO work_items (work_item_id, ts, item_type, title, description, state, assigned_agent, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(work_item_id) DO UPDATE SET
			ts = excluded.ts,
			item_type = excluded.item_type,
			title = excluded.title,
			description = excluded.description,
			state = excluded.state,
			assigned_agent = excluded.assigned_agent,
			metadata = excluded.metadata
		 WHERE excluded.ts >= work_items.ts`,
		r.WorkItemID, r.Timestamp.UTC().UnixMicro(), r.ItemType, r.Title,
		r.Description, r.State, nullable(r.AssignedAgent), metaJSON)
	return storageErr("upsert work item", err)
}

// GetWorkItem returns the latest snapshot for the id, or ErrNotFound.
func (s *SQLiteStore) GetWorkItem(ctx context.Context, workItemID int) (*model.WorkItemRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT work_item_id, ts, item_type, title, description, state, assigned_agent, metadata
		 FROM work_items WHERE work_item_id = ?`, workItemID)

	var r model.WorkItemRecord
	var ts int64
	var description, state, assignedAgent, metaJSON sql.NullString
	err := row.Scan(&r.WorkItemID, &ts, &r.ItemType, &r.Title, &description, &state, &assignedAgent, &metaJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("work item %d: %w", workItemID, ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("get work item", err)
	}

	r.Timestamp = time.UnixMicro(ts).UTC()
	r.Description = description.String
	r.State = state.String
	r.AssignedAgent = assignedAgent.String
	if metaJSON.Valid {
		json.Unmarshal([]byte(metaJSON.String), &r.Metadata)
	}
	return &r, nil
}

// PurgeExpired deletes memories and action records past retention.
// Work item snapshots are kept; only the latest per id exists anyway.
func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	floor := s.retentionFloor()
	if floor == 0 {
		return 0, nil
	}

	var total int64
	for _, table := range []string{"memories", "actions"} {
		res, err := s.db.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE ts < ?", table), floor)
		if err != nil {
			return total, storageErr("purge "+table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMemoryEntry(row scanner) (model.MemoryEntry, error) {
	var e model.MemoryEntry
	var ts int64
	var metaJSON, sessionID sql.NullString

	err := row.Scan(&e.ID, &e.AgentID, &ts, &e.MemoryType, &e.Content, &metaJSON, &sessionID)
	if err != nil {
		return e, err
	}

	e.Timestamp = time.UnixMicro(ts).UTC()
	if metaJSON.Valid {
		json.Unmarshal([]byte(metaJSON.String), &e.Metadata)
	}
	if sessionID.Valid {
		e.SessionID = sessionID.String
	}
	return e, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func jsonOrNull(m map[string]any) *string {
	if len(m) == 0 {
		return nil
	}
	b, _ := json.Marshal(m)
	str := string(b)
	return &str
}
