package agent

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kiryl-martsinkevich/sdlc-agents/internal/devops"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/llm"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/model"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/store"
)

// fakeLLM returns canned responses and records the messages it was given.
type fakeLLM struct {
	resp         *llm.Response
	err          error
	lastMessages []llm.Message
	calls        int
}

func (f *fakeLLM) Generate(ctx context.Context, messages []llm.Message, opts llm.GenerateOptions) (*llm.Response, error) {
	f.calls++
	f.lastMessages = messages
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &llm.Response{Content: "ok", Model: "fake", TokensUsed: 7}, nil
}

func (f *fakeLLM) StreamGenerate(ctx context.Context, messages []llm.Message, opts llm.GenerateOptions, fn llm.StreamFunc) error {
	resp, err := f.Generate(ctx, messages, opts)
	if err != nil {
		return err
	}
	return fn(resp.Content)
}

func (f *fakeLLM) HealthCheck(ctx context.Context) bool { return true }
func (f *fakeLLM) Close() error                         { return nil }

// fakeDevops serves canned work items and builds, and records queue calls.
type fakeDevops struct {
	workItems map[int]*devops.WorkItem
	builds    map[int]*devops.Build
	nextID    int
	queueErr  error
	queued    []*devops.Build
	created   []*devops.WorkItem
	linked    [][2]int
	pullReqs  []*devops.PullRequest
}

func newFakeDevops() *fakeDevops {
	return &fakeDevops{
		workItems: map[int]*devops.WorkItem{},
		builds:    map[int]*devops.Build{},
		nextID:    1000,
	}
}

func (f *fakeDevops) GetWorkItem(ctx context.Context, id int) (*devops.WorkItem, error) {
	wi, ok := f.workItems[id]
	if !ok {
		return nil, fmt.Errorf("work item %d: %w", id, devops.ErrNotFound)
	}
	return wi, nil
}

func (f *fakeDevops) CreateWorkItem(ctx context.Context, itemType, title, description string, fields map[string]string) (*devops.WorkItem, error) {
	f.nextID++
	wi := &devops.WorkItem{ID: f.nextID, Type: itemType, Title: title, Description: description, State: "New"}
	f.workItems[wi.ID] = wi
	f.created = append(f.created, wi)
	return wi, nil
}

func (f *fakeDevops) UpdateWorkItem(ctx context.Context, id int, fields map[string]string) (*devops.WorkItem, error) {
	return f.GetWorkItem(ctx, id)
}

func (f *fakeDevops) LinkWorkItems(ctx context.Context, sourceID, targetID int, linkType string) error {
	f.linked = append(f.linked, [2]int{sourceID, targetID})
	return nil
}

func (f *fakeDevops) SplitIntoSubitems(ctx context.Context, parentID, count int) ([]*devops.WorkItem, error) {
	parent, err := f.GetWorkItem(ctx, parentID)
	if err != nil {
		return nil, err
	}
	var children []*devops.WorkItem
	for i := 1; i <= count; i++ {
		child, _ := f.CreateWorkItem(ctx, "User Story",
			fmt.Sprintf("%s (part %d of %d)", parent.Title, i, count), parent.Description, nil)
		f.LinkWorkItems(ctx, child.ID, parentID, "System.LinkTypes.Hierarchy-Reverse")
		children = append(children, child)
	}
	return children, nil
}

func (f *fakeDevops) GetBuild(ctx context.Context, buildID int) (*devops.Build, error) {
	b, ok := f.builds[buildID]
	if !ok {
		return nil, fmt.Errorf("build %d: %w", buildID, devops.ErrNotFound)
	}
	return b, nil
}

func (f *fakeDevops) QueueBuild(ctx context.Context, definitionName, branch string, params map[string]string) (*devops.Build, error) {
	if f.queueErr != nil {
		return nil, f.queueErr
	}
	f.nextID++
	b := &devops.Build{ID: f.nextID, Status: "notStarted", Definition: definitionName, Branch: branch}
	f.builds[b.ID] = b
	f.queued = append(f.queued, b)
	return b, nil
}

func (f *fakeDevops) CreatePullRequest(ctx context.Context, repoID, sourceBranch, targetBranch, title, description string) (*devops.PullRequest, error) {
	f.nextID++
	pr := &devops.PullRequest{ID: f.nextID, Title: title, SourceBranch: sourceBranch, TargetBranch: targetBranch}
	f.pullReqs = append(f.pullReqs, pr)
	return pr, nil
}

func newTestEventStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), 0)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestThinkSuccessCapturesMemory(t *testing.T) {
	ctx := context.Background()
	st := newTestEventStore(t)
	mock := &fakeLLM{resp: &llm.Response{Content: "the answer", Model: "fake-1", TokensUsed: 42}}
	k := NewKernel("tester", "Tester", nil, "You are a test agent.", mock, st)

	resp, err := k.Think(ctx, "what now?", nil, 0.3)
	if err != nil {
		t.Fatalf("think: %v", err)
	}
	if resp.Content != "the answer" {
		t.Errorf("unexpected response %q", resp.Content)
	}

	mems, _ := st.RecentMemories(ctx, store.RecentParams{AgentID: "tester", MemoryType: model.MemoryConversation})
	if len(mems) != 1 {
		t.Fatalf("expected 1 conversation memory, got %d", len(mems))
	}
	if !strings.Contains(mems[0].Content, "what now?") || !strings.Contains(mems[0].Content, "the answer") {
		t.Errorf("conversation memory missing exchange: %q", mems[0].Content)
	}
	if mems[0].Metadata["model"] != "fake-1" || mems[0].Metadata["tokens_used"] != "42" {
		t.Errorf("metadata wrong: %v", mems[0].Metadata)
	}
	if mems[0].SessionID != k.SessionID() {
		t.Errorf("memory not scoped to session")
	}

	stats, _ := st.AgentStatistics(ctx, "tester", 24*time.Hour)
	think := stats["think"]
	if think.Count != 1 || think.Successful != 1 || think.Failed != 0 {
		t.Errorf("expected one successful think record, got %+v", think)
	}
}

func TestThinkFailureReRaisesAndLogsOnce(t *testing.T) {
	ctx := context.Background()
	st := newTestEventStore(t)
	boom := errors.New("provider down")
	k := NewKernel("tester", "Tester", nil, "prompt", &fakeLLM{err: boom}, st)

	_, err := k.Think(ctx, "anything", nil, 0.3)
	if !errors.Is(err, boom) {
		t.Fatalf("expected original error back, got %v", err)
	}

	stats, _ := st.AgentStatistics(ctx, "tester", 24*time.Hour)
	think := stats["think"]
	if think.Count != 1 || think.Failed != 1 || think.Successful != 0 {
		t.Errorf("expected exactly one failed think record, got %+v", think)
	}

	// A failed call must not leave a conversation memory behind.
	mems, _ := st.RecentMemories(ctx, store.RecentParams{AgentID: "tester", MemoryType: model.MemoryConversation})
	if len(mems) != 0 {
		t.Errorf("expected no conversation memory, got %d", len(mems))
	}
}

func TestThinkInjectsSessionContext(t *testing.T) {
	ctx := context.Background()
	st := newTestEventStore(t)
	mock := &fakeLLM{}
	k := NewKernel("tester", "Tester", nil, "system prompt here", mock, st)

	if err := k.Observe(ctx, "the build turned red", nil); err != nil {
		t.Fatalf("observe: %v", err)
	}

	if _, err := k.Think(ctx, "user question", map[string]string{"branch": "main", "attempt": "2"}, 0.1); err != nil {
		t.Fatalf("think: %v", err)
	}

	msgs := mock.lastMessages
	if msgs[0].Role != llm.RoleSystem || msgs[0].Content != "system prompt here" {
		t.Errorf("first message should be the system prompt, got %+v", msgs[0])
	}
	last := msgs[len(msgs)-1]
	if last.Role != llm.RoleUser || last.Content != "user question" {
		t.Errorf("last message should be the user message verbatim, got %+v", last)
	}

	joined := ""
	for _, m := range msgs {
		joined += m.Content + "\n"
	}
	if !strings.Contains(joined, "the build turned red") {
		t.Error("recent memory not injected into context")
	}
	if !strings.Contains(joined, "branch: main") || !strings.Contains(joined, "attempt: 2") {
		t.Error("caller context not rendered as key: value lines")
	}
}

func TestThinkContextCapsAtFiveEntries(t *testing.T) {
	ctx := context.Background()
	st := newTestEventStore(t)
	mock := &fakeLLM{}
	k := NewKernel("tester", "Tester", nil, "prompt", mock, st)

	for i := 0; i < 8; i++ {
		if err := k.Observe(ctx, fmt.Sprintf("observation-%d", i), nil); err != nil {
			t.Fatalf("observe: %v", err)
		}
	}

	if _, err := k.Think(ctx, "q", nil, 0.1); err != nil {
		t.Fatalf("think: %v", err)
	}

	var recall string
	for _, m := range mock.lastMessages {
		if strings.Contains(m.Content, "Recent context") {
			recall = m.Content
		}
	}
	if recall == "" {
		t.Fatal("no recall message injected")
	}
	if n := strings.Count(recall, "- ["); n != 5 {
		t.Errorf("expected 5 injected memories, got %d", n)
	}
}

func TestObserveDecideRecord(t *testing.T) {
	ctx := context.Background()
	st := newTestEventStore(t)
	k := NewKernel("tester", "Tester", nil, "prompt", &fakeLLM{}, st)

	k.Observe(ctx, "saw a thing", nil)
	k.Decide(ctx, "chose a path", nil)
	k.RecordAction(ctx, "did a thing", nil)
	k.RecordResult(ctx, "it worked", nil)

	for _, memType := range []string{
		model.MemoryObservation, model.MemoryDecision, model.MemoryAction, model.MemoryResult,
	} {
		got, _ := st.RecentMemories(ctx, store.RecentParams{AgentID: "tester", MemoryType: memType})
		if len(got) != 1 {
			t.Errorf("expected 1 %s memory, got %d", memType, len(got))
		}
	}
}

func TestSessionIDStable(t *testing.T) {
	st := newTestEventStore(t)
	k := NewKernel("tester", "Tester", nil, "prompt", &fakeLLM{}, st)

	if k.SessionID() == "" {
		t.Fatal("expected a session id at construction")
	}
	if k.SessionID() != k.SessionID() {
		t.Error("session id must not change over the kernel lifetime")
	}

	other := NewKernel("tester", "Tester", nil, "prompt", &fakeLLM{}, st)
	if other.SessionID() == k.SessionID() {
		t.Error("distinct kernels must own distinct sessions")
	}
}
