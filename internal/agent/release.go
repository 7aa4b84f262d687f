package agent

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kiryl-martsinkevich/sdlc-agents/internal/config"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/devops"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/gitops"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/llm"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/store"
)

const releaseManagerPrompt = `You are a release manager. You plan releases across
components, verify readiness, and write release notes. Be precise about which
component goes into which release branch.`

// ReleaseManagerAgent cuts releases across configured components.
type ReleaseManagerAgent struct {
	*Kernel
	devops    devops.Client // nil when work tracking is not configured
	git       gitops.Client
	repos     *config.RepoRegistry
	workspace string
}

// NewReleaseManagerAgent builds the agent, registered as "release_manager".
func NewReleaseManagerAgent(llmClient llm.Client, st store.Store, devopsClient devops.Client,
	git gitops.Client, repos *config.RepoRegistry, workspace string) *ReleaseManagerAgent {

	return &ReleaseManagerAgent{
		Kernel: NewKernel("release_manager", "Release Manager",
			[]string{CapReleaseManagement}, releaseManagerPrompt, llmClient, st),
		devops:    devopsClient,
		git:       git,
		repos:     repos,
		workspace: workspace,
	}
}

func (a *ReleaseManagerAgent) ProcessTask(ctx context.Context, task Task) Result {
	switch t := task.(type) {
	case CreateReleaseTask:
		res, err := a.create(ctx, t)
		return a.finalize(ctx, task, res, err)
	case VerifyReleaseReadinessTask:
		res, err := a.verify(ctx, t)
		return a.finalize(ctx, task, res, err)
	case GenerateReleaseNotesTask:
		res, err := a.notes(ctx, t)
		return a.finalize(ctx, task, res, err)
	default:
		return UnknownTask(task)
	}
}

func (a *ReleaseManagerAgent) create(ctx context.Context, t CreateReleaseTask) (Result, error) {
	name := t.Name
	if name == "" {
		name = "Release-" + time.Now().Format("2006.01.02")
	}
	source := t.SourceBranch
	if source == "" {
		source = "main"
	}

	components := t.Components
	if a.repos != nil {
		components = a.repos.ResolveComponents(components)
	}
	if len(components) == 0 {
		return Failure("No components given for release %s", name), nil
	}

	plan, err := a.Think(ctx,
		fmt.Sprintf("Plan release %s from branch %s.", name, source),
		map[string]string{"components": strings.Join(components, ", ")}, 0.3)
	if err != nil {
		return Result{}, err
	}

	details := map[string]any{"release_name": name, "components": components}

	if a.devops != nil {
		wi, err := a.devops.CreateWorkItem(ctx, "Feature", "Release: "+name, plan.Content, nil)
		if err != nil {
			return Result{}, fmt.Errorf("create release work item: %w", err)
		}
		details["work_item_id"] = wi.ID
	}

	var branches []string
	for _, component := range components {
		repo, ok := a.repoFor(component)
		if !ok {
			return Failure("Unknown component %q in release %s", component, name), nil
		}

		dir := repo.LocalPath
		if dir == "" {
			dir = filepath.Join(a.workspace, repo.Name)
		}
		if _, err := a.git.EnsureRepo(ctx, repo.URL, dir); err != nil {
			return Result{}, fmt.Errorf("prepare %s: %w", component, err)
		}
		if err := a.git.Checkout(ctx, dir, source); err != nil {
			return Result{}, fmt.Errorf("checkout %s on %s: %w", source, component, err)
		}

		branch := fmt.Sprintf("release/%s/%s", name, component)
		if err := a.git.CreateBranch(ctx, dir, branch); err != nil {
			return Result{}, fmt.Errorf("branch %s: %w", branch, err)
		}
		if err := a.git.Push(ctx, dir, branch); err != nil {
			return Result{}, fmt.Errorf("push %s: %w", branch, err)
		}
		branches = append(branches, branch)
	}
	details["branches"] = branches

	if err := a.RecordResult(ctx,
		fmt.Sprintf("Created release %s across %d components", name, len(components)),
		map[string]string{"release": name}); err != nil {
		return Result{}, err
	}

	return Result{Success: true, Analysis: plan.Content, Details: details}, nil
}

func (a *ReleaseManagerAgent) repoFor(component string) (config.RepoConfig, bool) {
	if a.repos == nil {
		return config.RepoConfig{}, false
	}
	repo, ok := a.repos.Get(component)
	if !ok || !repo.IsEnabled() {
		return config.RepoConfig{}, false
	}
	return repo, true
}

func (a *ReleaseManagerAgent) verify(ctx context.Context, t VerifyReleaseReadinessTask) (Result, error) {
	components := t.Components
	if a.repos != nil {
		components = a.repos.ResolveComponents(components)
	}

	readiness := map[string]any{}
	allReady := true
	for _, component := range components {
		_, ok := a.repoFor(component)
		readiness[component] = ok
		if !ok {
			allReady = false
		}
	}

	resp, err := a.Think(ctx,
		"Summarize the release readiness of these components and flag risks.",
		map[string]string{
			"components": strings.Join(components, ", "),
			"ready":      fmt.Sprintf("%v", allReady),
		}, 0.3)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Success:  true,
		Analysis: resp.Content,
		Details:  map[string]any{"ready": allReady, "components": readiness},
	}, nil
}

func (a *ReleaseManagerAgent) notes(ctx context.Context, t GenerateReleaseNotesTask) (Result, error) {
	// Pull this agent's own recent release activity into the prompt.
	var history []string
	recent, err := a.SearchMemories(ctx, "release", 10)
	if err == nil {
		for _, m := range recent {
			history = append(history, m.Content)
		}
	}

	resp, err := a.Think(ctx,
		"Write release notes for the upcoming release of these components.",
		map[string]string{
			"components":      strings.Join(t.Components, ", "),
			"recent_activity": strings.Join(history, "\n"),
		}, 0.5)
	if err != nil {
		return Result{}, err
	}

	return Result{Success: true, Analysis: resp.Content}, nil
}
