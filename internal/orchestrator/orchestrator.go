// Package orchestrator routes typed tasks across registered agents and
// folds their results into one composite response.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kiryl-martsinkevich/sdlc-agents/internal/agent"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/devops"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/llm"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/store"
)

const orchestratorPrompt = `You are the coordinator of a software delivery agent team.
You analyze incoming work, decide which specialist agents to involve, and
aggregate their results. Keep analyses actionable.`

// Agent ids the orchestrator delegates to.
const (
	requirementsAgentID = "requirements"
	releaseManagerID    = "release_manager"
	codeRepoPrefix      = "code_repo_"
)

// Orchestrator owns the agent registry and the task routing rules.
// Each ProcessTask call is independent; a failing handler never leaves
// the registry in a partial state.
type Orchestrator struct {
	*agent.Kernel
	devops devops.Client // nil when work tracking is not configured

	mu       sync.RWMutex
	registry map[string]agent.Agent
}

// New builds an orchestrator with an empty registry.
func New(llmClient llm.Client, st store.Store, devopsClient devops.Client) *Orchestrator {
	return &Orchestrator{
		Kernel: agent.NewKernel("orchestrator", "Orchestrator",
			[]string{agent.CapOrchestration}, orchestratorPrompt, llmClient, st),
		devops:   devopsClient,
		registry: map[string]agent.Agent{},
	}
}

// RegisterAgent inserts or replaces the agent under its id. Re-registering
// the same id intentionally rebinds.
func (o *Orchestrator) RegisterAgent(a agent.Agent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.registry[a.ID()] = a
}

// Agent looks up a registered agent by id.
func (o *Orchestrator) Agent(id string) (agent.Agent, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	a, ok := o.registry[id]
	return a, ok
}

// AgentIDs returns the registered agent ids.
func (o *Orchestrator) AgentIDs() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	ids := make([]string, 0, len(o.registry))
	for id := range o.registry {
		ids = append(ids, id)
	}
	return ids
}

// ProcessTask routes a task to its handler. Unknown task types and
// handler errors both come back as structured failures; nothing escapes
// this boundary as a raw error.
func (o *Orchestrator) ProcessTask(ctx context.Context, task agent.Task) agent.Result {
	switch t := task.(type) {
	case agent.ImplementStoryTask:
		res, err := o.implementStory(ctx, t)
		return o.record(ctx, task, res, err)
	case agent.SplitFeatureTask:
		res, err := o.splitFeature(ctx, t)
		return o.record(ctx, task, res, err)
	case agent.CreateReleaseTask:
		res, err := o.createRelease(ctx, t)
		return o.record(ctx, task, res, err)
	default:
		return agent.UnknownTask(task)
	}
}

// record wraps Kernel.finalize; named separately so handler code reads as
// route -> handle -> record.
func (o *Orchestrator) record(ctx context.Context, task agent.Task, res agent.Result, err error) agent.Result {
	if err == nil {
		return res
	}
	if recErr := o.RecordResult(ctx,
		fmt.Sprintf("Task %s failed: %v", task.TaskType(), err),
		map[string]string{"task_type": task.TaskType()}); recErr != nil {
		slog.Error("failed to record task failure", "task_type", task.TaskType(), "error", recErr)
	}
	return agent.Failure("%v", err)
}

// implementStory produces a free-text analysis, then delegates: first to
// the requirements agent for structured analysis, then to one code agent
// per affected repository. Missing agents degrade the output instead of
// failing it.
func (o *Orchestrator) implementStory(ctx context.Context, t agent.ImplementStoryTask) (agent.Result, error) {
	extra := map[string]string{"story_id": fmt.Sprintf("%d", t.StoryID)}
	title := ""

	if o.devops != nil {
		wi, err := o.devops.GetWorkItem(ctx, t.StoryID)
		if err != nil {
			return agent.Result{}, fmt.Errorf("get work item %d: %w", t.StoryID, err)
		}
		extra["title"] = wi.Title
		extra["description"] = wi.Description
		title = wi.Title
	}

	analysis, err := o.Think(ctx,
		fmt.Sprintf("Outline how story %d should be implemented.", t.StoryID), extra, 0.4)
	if err != nil {
		return agent.Result{}, err
	}

	res := agent.Result{Success: true, Analysis: analysis.Content}

	reqAgent, ok := o.Agent(requirementsAgentID)
	if !ok {
		// Best-effort output; partial capability is not an error.
		return res, nil
	}

	reqRes := reqAgent.ProcessTask(ctx, agent.AnalyzeRequirementsTask{StoryID: t.StoryID})
	res.Delegations = map[string]agent.Result{requirementsAgentID: reqRes}
	if !reqRes.Success {
		return res, nil
	}
	res.AffectedRepos = reqRes.AffectedRepos
	res.Complexity = reqRes.Complexity

	// Sequential fan-out; aggregation order follows the analysis order.
	for _, repo := range reqRes.AffectedRepos {
		id := codeRepoPrefix + repo
		codeAgent, ok := o.Agent(id)
		if !ok {
			continue
		}
		res.Delegations[id] = codeAgent.ProcessTask(ctx, agent.ImplementTask{
			StoryID:  t.StoryID,
			Title:    title,
			Analysis: reqRes.Analysis,
		})
	}
	return res, nil
}

func (o *Orchestrator) splitFeature(ctx context.Context, t agent.SplitFeatureTask) (agent.Result, error) {
	if o.devops == nil {
		return agent.Failure("Work tracking client not available"), nil
	}
	count := t.Count
	if count <= 0 {
		count = 3
	}

	feature, err := o.devops.GetWorkItem(ctx, t.FeatureID)
	if err != nil {
		return agent.Result{}, fmt.Errorf("get work item %d: %w", t.FeatureID, err)
	}

	proposal, err := o.Think(ctx,
		fmt.Sprintf("Propose how to split feature %d into %d independently deliverable stories.", t.FeatureID, count),
		map[string]string{
			"title":       feature.Title,
			"description": feature.Description,
		}, 0.4)
	if err != nil {
		return agent.Result{}, err
	}

	children, err := o.devops.SplitIntoSubitems(ctx, t.FeatureID, count)
	if err != nil {
		return agent.Result{}, fmt.Errorf("split work item %d: %w", t.FeatureID, err)
	}

	ids := make([]int, 0, len(children))
	for _, c := range children {
		ids = append(ids, c.ID)
	}

	if err := o.RecordResult(ctx,
		fmt.Sprintf("Split feature %d into stories %v", t.FeatureID, ids),
		map[string]string{"feature_id": fmt.Sprintf("%d", t.FeatureID)}); err != nil {
		return agent.Result{}, err
	}

	return agent.Result{
		Success:  true,
		Analysis: proposal.Content,
		Details:  map[string]any{"child_ids": ids},
	}, nil
}

func (o *Orchestrator) createRelease(ctx context.Context, t agent.CreateReleaseTask) (agent.Result, error) {
	rm, ok := o.Agent(releaseManagerID)
	if !ok {
		return agent.Failure("Release manager agent not available"), nil
	}
	return rm.ProcessTask(ctx, t), nil
}

// HandleMessage is the best-effort natural-language entry point. There is
// no guarantee of structured extraction; the LLM's own explanation comes
// back when it cannot extract a task.
func (o *Orchestrator) HandleMessage(ctx context.Context, text string) (string, error) {
	resp, err := o.Think(ctx,
		"Extract the intended task from this request and restate it precisely:\n"+text,
		nil, 0.2)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Understood your request:\n%s\n\nI will process this task now.", resp.Content), nil
}
