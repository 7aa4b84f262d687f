package store

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/kiryl-martsinkevich/sdlc-agents/internal/model"
)

func logActionAt(t *testing.T, s *SQLiteStore, agentID, actionType string, success bool, durationMS int64, at time.Time) {
	t.Helper()
	err := s.LogAction(context.Background(), model.ActionLogRecord{
		AgentID:    agentID,
		Timestamp:  at,
		ActionType: actionType,
		Target:     "llm",
		Success:    success,
		DurationMS: durationMS,
	})
	if err != nil {
		t.Fatalf("log action: %v", err)
	}
}

func TestAgentStatistics(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	now := time.Now().UTC()
	logActionAt(t, s, "bm", "think", true, 100, now.Add(-time.Minute))
	logActionAt(t, s, "bm", "think", true, 300, now.Add(-2*time.Minute))
	logActionAt(t, s, "bm", "think", false, 50, now.Add(-3*time.Minute))
	logActionAt(t, s, "bm", "retry_build", true, 10, now.Add(-4*time.Minute))

	stats, err := s.AgentStatistics(ctx, "bm", 24*time.Hour)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}

	think, ok := stats["think"]
	if !ok {
		t.Fatal("missing 'think' bucket")
	}
	if think.Count != 3 || think.Successful != 2 || think.Failed != 1 {
		t.Errorf("think bucket wrong: %+v", think)
	}
	if think.Count != think.Successful+think.Failed {
		t.Errorf("count invariant broken: %+v", think)
	}
	if think.AvgDurationMS != 150 {
		t.Errorf("expected avg 150, got %v", think.AvgDurationMS)
	}

	retry := stats["retry_build"]
	if retry.Count != 1 || retry.Successful != 1 || retry.Failed != 0 {
		t.Errorf("retry_build bucket wrong: %+v", retry)
	}
}

func TestAgentStatisticsWindow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	now := time.Now().UTC()
	logActionAt(t, s, "bm", "think", true, 10, now.Add(-48*time.Hour))
	logActionAt(t, s, "bm", "think", true, 10, now.Add(-time.Minute))

	stats, _ := s.AgentStatistics(ctx, "bm", 24*time.Hour)
	if stats["think"].Count != 1 {
		t.Errorf("expected only in-window record, got %+v", stats["think"])
	}
}

func TestAgentStatisticsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	now := time.Now().UTC()
	logActionAt(t, s, "bm", "think", true, 120, now.Add(-time.Minute))
	logActionAt(t, s, "bm", "monitor", false, 30, now.Add(-time.Minute))

	first, err := s.AgentStatistics(ctx, "bm", 24*time.Hour)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	second, err := s.AgentStatistics(ctx, "bm", 24*time.Hour)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("statistics not idempotent: %v vs %v", first, second)
	}
}

func TestAgentStatisticsEmpty(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.AgentStatistics(context.Background(), "idle_agent", 24*time.Hour)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats == nil {
		t.Fatal("expected empty map, got nil")
	}
	if len(stats) != 0 {
		t.Errorf("expected empty map, got %v", stats)
	}
}

func TestStoreStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	now := time.Now().UTC()
	appendAt(t, s, "req", model.MemoryObservation, "a", now)
	appendAt(t, s, "req", model.MemoryDecision, "b", now)
	logActionAt(t, s, "bm", "think", true, 10, now)
	s.UpsertWorkItem(ctx, model.WorkItemRecord{WorkItemID: 1, Timestamp: now, ItemType: "User Story", Title: "t"})

	st, err := s.Stats(ctx, "unused.db")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalMemories != 2 || st.TotalActions != 1 || st.TotalWorkItems != 1 {
		t.Errorf("totals wrong: %+v", st)
	}
	if len(st.Agents) != 2 {
		t.Errorf("expected 2 agents, got %d", len(st.Agents))
	}
}
