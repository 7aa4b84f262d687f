package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kiryl-martsinkevich/sdlc-agents/internal/agent"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/devops"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/llm"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/store"
)

type fakeLLM struct {
	content string
}

func (f *fakeLLM) Generate(ctx context.Context, messages []llm.Message, opts llm.GenerateOptions) (*llm.Response, error) {
	content := f.content
	if content == "" {
		content = "free-text analysis"
	}
	return &llm.Response{Content: content, Model: "fake", TokensUsed: 5}, nil
}

func (f *fakeLLM) StreamGenerate(ctx context.Context, messages []llm.Message, opts llm.GenerateOptions, fn llm.StreamFunc) error {
	resp, _ := f.Generate(ctx, messages, opts)
	return fn(resp.Content)
}

func (f *fakeLLM) HealthCheck(ctx context.Context) bool { return true }
func (f *fakeLLM) Close() error                         { return nil }

// stubAgent answers every task with a canned result and records the
// tasks it was handed.
type stubAgent struct {
	id     string
	result agent.Result
	tasks  []agent.Task
}

func (s *stubAgent) ID() string              { return s.id }
func (s *stubAgent) Name() string            { return s.id }
func (s *stubAgent) Capabilities() []string  { return nil }
func (s *stubAgent) ProcessTask(ctx context.Context, task agent.Task) agent.Result {
	s.tasks = append(s.tasks, task)
	return s.result
}

func newTestOrchestrator(t *testing.T, dv devops.Client) *Orchestrator {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), 0)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(&fakeLLM{}, st, dv)
}

func TestUnknownTaskType(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	res := o.ProcessTask(context.Background(), agent.RawTask{Type: "bogus"})
	if res.Success {
		t.Fatal("expected structured failure")
	}
	if !strings.Contains(res.Error, "bogus") {
		t.Errorf("error should contain the unknown type: %q", res.Error)
	}
}

func TestCreateReleaseWithoutManager(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	res := o.ProcessTask(context.Background(), agent.CreateReleaseTask{
		Components:   []string{"a", "b"},
		SourceBranch: "main",
	})
	if res.Success {
		t.Fatal("expected failure without a release manager")
	}
	if res.Error != "Release manager agent not available" {
		t.Errorf("wrong error: %q", res.Error)
	}
}

func TestCreateReleaseDelegates(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	rm := &stubAgent{id: "release_manager", result: agent.Result{Success: true, Analysis: "released"}}
	o.RegisterAgent(rm)

	task := agent.CreateReleaseTask{Components: []string{"backend"}, SourceBranch: "main"}
	res := o.ProcessTask(context.Background(), task)
	if !res.Success || res.Analysis != "released" {
		t.Fatalf("delegation result not passed through: %+v", res)
	}
	if len(rm.tasks) != 1 {
		t.Fatalf("expected one delegated task, got %d", len(rm.tasks))
	}
	if got, ok := rm.tasks[0].(agent.CreateReleaseTask); !ok || got.Components[0] != "backend" {
		t.Errorf("wrong task delegated: %+v", rm.tasks[0])
	}
}

func TestImplementStoryGracefulDegradation(t *testing.T) {
	// Only a code agent is registered; with no requirements agent the
	// orchestrator returns its own analysis and delegates to nobody.
	o := newTestOrchestrator(t, nil)
	code := &stubAgent{id: "code_repo_backend", result: agent.Result{Success: true}}
	o.RegisterAgent(code)

	res := o.ProcessTask(context.Background(), agent.ImplementStoryTask{StoryID: 10})
	if !res.Success {
		t.Fatalf("expected success: %+v", res)
	}
	if res.Analysis == "" {
		t.Error("expected free-text analysis")
	}
	if len(res.Delegations) != 0 {
		t.Errorf("expected no delegations, got %v", res.Delegations)
	}
	if len(code.tasks) != 0 {
		t.Errorf("code agent must not be invoked, got %v", code.tasks)
	}
}

func TestImplementStoryDelegation(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	req := &stubAgent{id: "requirements", result: agent.Result{
		Success:       true,
		Analysis:      "structured analysis",
		AffectedRepos: []string{"backend", "frontend"},
		Complexity:    "Medium",
	}}
	code := &stubAgent{id: "code_repo_backend", result: agent.Result{Success: true}}
	o.RegisterAgent(req)
	o.RegisterAgent(code)

	res := o.ProcessTask(context.Background(), agent.ImplementStoryTask{StoryID: 10})
	if !res.Success {
		t.Fatalf("expected success: %+v", res)
	}

	if _, ok := res.Delegations["requirements"]; !ok {
		t.Error("requirements delegation missing")
	}
	codeRes, ok := res.Delegations["code_repo_backend"]
	if !ok || !codeRes.Success {
		t.Errorf("backend delegation missing or failed: %+v", res.Delegations)
	}
	// frontend has no registered agent; missing capability is skipped,
	// not an error.
	if _, ok := res.Delegations["code_repo_frontend"]; ok {
		t.Error("unexpected delegation to unregistered agent")
	}

	if len(code.tasks) != 1 {
		t.Fatalf("expected one implement task, got %d", len(code.tasks))
	}
	impl, ok := code.tasks[0].(agent.ImplementTask)
	if !ok {
		t.Fatalf("wrong task type: %T", code.tasks[0])
	}
	if impl.StoryID != 10 || impl.Analysis != "structured analysis" {
		t.Errorf("implement task fields wrong: %+v", impl)
	}

	if fmt.Sprintf("%v", res.AffectedRepos) != "[backend frontend]" {
		t.Errorf("affected repos not aggregated in order: %v", res.AffectedRepos)
	}
}

func TestImplementStoryFailedRequirements(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	req := &stubAgent{id: "requirements", result: agent.Result{Success: false, Error: "work item not found"}}
	code := &stubAgent{id: "code_repo_backend", result: agent.Result{Success: true}}
	o.RegisterAgent(req)
	o.RegisterAgent(code)

	res := o.ProcessTask(context.Background(), agent.ImplementStoryTask{StoryID: 10})
	if !res.Success {
		t.Fatalf("analysis is still best-effort output: %+v", res)
	}
	if len(code.tasks) != 0 {
		t.Error("no code delegation should happen after failed requirements analysis")
	}
}

func TestRegisterAgentRebinds(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	first := &stubAgent{id: "requirements", result: agent.Result{Success: true, Analysis: "first"}}
	second := &stubAgent{id: "requirements", result: agent.Result{Success: true, Analysis: "second"}}

	o.RegisterAgent(first)
	o.RegisterAgent(second)

	got, ok := o.Agent("requirements")
	if !ok {
		t.Fatal("agent not registered")
	}
	if got.ProcessTask(context.Background(), agent.RawTask{Type: "x"}).Analysis != "second" {
		t.Error("re-registration must rebind to the newer agent")
	}
}

func TestHandleMessage(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	out, err := o.HandleMessage(context.Background(), "please implement story 42")
	if err != nil {
		t.Fatalf("handle message: %v", err)
	}
	if !strings.Contains(out, "Understood your request:") {
		t.Errorf("unexpected reply: %q", out)
	}
}
