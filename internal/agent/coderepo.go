package agent

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kiryl-martsinkevich/sdlc-agents/internal/buildexec"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/config"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/devops"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/gitops"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/llm"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/store"
)

const codeRepoPromptFmt = `You are a code implementation agent for the %q repository.
You plan and apply code changes for work items: which files to touch, what to
change, and how to keep the build green. Answer with concrete steps.`

// CodeRepoAgent implements work items in one repository. Its id is
// "code_repo_<name>" so the orchestrator can route per-repo delegations.
type CodeRepoAgent struct {
	*Kernel
	repo      config.RepoConfig
	git       gitops.Client
	devops    devops.Client // nil when work tracking is not configured
	builder   *buildexec.Runner
	workspace string
}

// NewCodeRepoAgent builds an agent for one configured repository.
func NewCodeRepoAgent(repo config.RepoConfig, llmClient llm.Client, st store.Store,
	git gitops.Client, devopsClient devops.Client, builder *buildexec.Runner, workspace string) *CodeRepoAgent {

	return &CodeRepoAgent{
		Kernel: NewKernel("code_repo_"+repo.Name, "Code Agent ("+repo.Name+")",
			[]string{CapCodeImplementation},
			fmt.Sprintf(codeRepoPromptFmt, repo.Name), llmClient, st),
		repo:      repo,
		git:       git,
		devops:    devopsClient,
		builder:   builder,
		workspace: workspace,
	}
}

func (a *CodeRepoAgent) ProcessTask(ctx context.Context, task Task) Result {
	switch t := task.(type) {
	case InitializeRepoTask:
		res, err := a.initialize(ctx)
		return a.finalize(ctx, task, res, err)
	case ImplementTask:
		res, err := a.implement(ctx, t)
		return a.finalize(ctx, task, res, err)
	case FixBuildTask:
		res, err := a.fixBuild(ctx, t)
		return a.finalize(ctx, task, res, err)
	default:
		return UnknownTask(task)
	}
}

func (a *CodeRepoAgent) repoDir() string {
	if a.repo.LocalPath != "" {
		return a.repo.LocalPath
	}
	return filepath.Join(a.workspace, a.repo.Name)
}

func (a *CodeRepoAgent) ensureRepo(ctx context.Context) (string, error) {
	dir, err := a.git.EnsureRepo(ctx, a.repo.URL, a.repoDir())
	if err != nil {
		return "", err
	}
	// A fixed local path means a developer checkout; leave it alone.
	if a.repo.LocalPath == "" {
		if err := a.git.Pull(ctx, dir); err != nil {
			return "", err
		}
	}
	return dir, nil
}

func (a *CodeRepoAgent) initialize(ctx context.Context) (Result, error) {
	dir, err := a.ensureRepo(ctx)
	if err != nil {
		return Result{}, err
	}

	if err := a.Observe(ctx,
		fmt.Sprintf("Repository %s ready at %s", a.repo.Name, dir),
		map[string]string{"repo": a.repo.Name}); err != nil {
		return Result{}, err
	}

	return Result{Success: true, Details: map[string]any{"path": dir}}, nil
}

func (a *CodeRepoAgent) implement(ctx context.Context, t ImplementTask) (Result, error) {
	dir, err := a.ensureRepo(ctx)
	if err != nil {
		return Result{}, err
	}

	branch := fmt.Sprintf("feature/%d-%s", t.StoryID, slugify(t.Title))
	if err := a.git.CreateBranch(ctx, dir, branch); err != nil {
		return Result{}, err
	}

	plan, err := a.Think(ctx,
		fmt.Sprintf("Plan the implementation of story %d in repository %s.", t.StoryID, a.repo.Name),
		map[string]string{
			"title":    t.Title,
			"analysis": t.Analysis,
			"branch":   branch,
		}, 0.4)
	if err != nil {
		return Result{}, err
	}

	build, err := a.builder.Run(ctx, dir)
	if errors.Is(err, buildexec.ErrBuildTimeout) {
		return Failure("Build timed out"), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("run build: %w", err)
	}
	if !build.Success {
		return Result{
			Success:  false,
			Error:    fmt.Sprintf("Build failed with exit code %d", build.ExitCode),
			Analysis: plan.Content,
			Details:  map[string]any{"stderr": tail(build.Stderr, 2000), "branch": branch},
		}, nil
	}

	committed, err := a.git.CommitAll(ctx, dir,
		fmt.Sprintf("Implement story %d: %s", t.StoryID, t.Title))
	if err != nil {
		return Result{}, err
	}

	details := map[string]any{"branch": branch, "committed": committed}

	if committed {
		if err := a.git.Push(ctx, dir, branch); err != nil {
			return Result{}, err
		}
		if a.devops != nil && a.repo.ADORepoID != "" {
			pr, err := a.devops.CreatePullRequest(ctx, a.repo.ADORepoID, branch, "main",
				fmt.Sprintf("Story %d: %s", t.StoryID, t.Title), plan.Content)
			if err != nil {
				return Result{}, fmt.Errorf("create pull request: %w", err)
			}
			details["pull_request_id"] = pr.ID
		}
	}

	if err := a.RecordResult(ctx,
		fmt.Sprintf("Implemented story %d on %s (branch %s)", t.StoryID, a.repo.Name, branch),
		map[string]string{"story_id": fmt.Sprintf("%d", t.StoryID)}); err != nil {
		return Result{}, err
	}

	return Result{Success: true, Analysis: plan.Content, Details: details}, nil
}

func (a *CodeRepoAgent) fixBuild(ctx context.Context, t FixBuildTask) (Result, error) {
	dir, err := a.ensureRepo(ctx)
	if err != nil {
		return Result{}, err
	}

	plan, err := a.Think(ctx,
		fmt.Sprintf("Build %d failed in repository %s. Propose a fix.", t.BuildID, a.repo.Name),
		map[string]string{"error_summary": t.ErrorSummary}, 0.3)
	if err != nil {
		return Result{}, err
	}

	build, err := a.builder.Run(ctx, dir)
	if errors.Is(err, buildexec.ErrBuildTimeout) {
		return Failure("Build timed out"), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("run build: %w", err)
	}
	if !build.Success {
		return Result{
			Success:  false,
			Error:    fmt.Sprintf("Build still failing with exit code %d", build.ExitCode),
			Analysis: plan.Content,
			Details:  map[string]any{"stderr": tail(build.Stderr, 2000)},
		}, nil
	}

	committed, err := a.git.CommitAll(ctx, dir, fmt.Sprintf("Fix build %d", t.BuildID))
	if err != nil {
		return Result{}, err
	}
	return Result{
		Success:  true,
		Analysis: plan.Content,
		Details:  map[string]any{"committed": committed},
	}, nil
}

// slugify turns a title into a branch-safe suffix.
func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "-"):
			b.WriteByte('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > 40 {
		slug = strings.Trim(slug[:40], "-")
	}
	if slug == "" {
		slug = "story"
	}
	return slug
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
