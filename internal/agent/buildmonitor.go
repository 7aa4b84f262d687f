package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/kiryl-martsinkevich/sdlc-agents/internal/devops"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/llm"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/store"
)

const buildMonitorPrompt = `You are a build monitoring agent. You watch CI builds,
classify failures as intermittent or persistent, and decide whether a retry is
worth it. Answer classification questions as JSON when asked.`

// attemptGroup tracks the retry budget for one logical build. The group
// is keyed by the original build id; every retried build maps back to
// the same group so a second failure of a retry finds the same counter.
type attemptGroup struct {
	id              string
	pullRequestID   int
	originalBuildID int
	lastBuildID     int
	retryCount      int
}

// BuildMonitorAgent watches builds and retries failed ones within a
// fixed budget.
type BuildMonitorAgent struct {
	*Kernel
	devops     devops.Client
	maxRetries int

	mu         sync.Mutex
	groups     map[string]*attemptGroup
	buildGroup map[int]string // build id -> attempt group id
}

// NewBuildMonitorAgent builds the monitor, registered as "build_monitor".
func NewBuildMonitorAgent(llmClient llm.Client, st store.Store, devopsClient devops.Client, maxRetries int) *BuildMonitorAgent {
	return &BuildMonitorAgent{
		Kernel: NewKernel("build_monitor", "Build Monitor",
			[]string{CapBuildMonitoring}, buildMonitorPrompt, llmClient, st),
		devops:     devopsClient,
		maxRetries: maxRetries,
		groups:     map[string]*attemptGroup{},
		buildGroup: map[int]string{},
	}
}

func (a *BuildMonitorAgent) ProcessTask(ctx context.Context, task Task) Result {
	switch t := task.(type) {
	case MonitorBuildTask:
		res, err := a.monitor(ctx, t)
		return a.finalize(ctx, task, res, err)
	case AnalyzeBuildFailureTask:
		res, err := a.analyze(ctx, t)
		return a.finalize(ctx, task, res, err)
	case RetryBuildTask:
		res, err := a.retry(ctx, t)
		return a.finalize(ctx, task, res, err)
	default:
		return UnknownTask(task)
	}
}

// group returns the attempt group the build belongs to, creating one for
// a build seen for the first time. Caller must hold mu.
func (a *BuildMonitorAgent) group(buildID, prID int) *attemptGroup {
	if gid, ok := a.buildGroup[buildID]; ok {
		return a.groups[gid]
	}
	g := &attemptGroup{
		id:              fmt.Sprintf("build-%d", buildID),
		pullRequestID:   prID,
		originalBuildID: buildID,
		lastBuildID:     buildID,
	}
	a.groups[g.id] = g
	a.buildGroup[buildID] = g.id
	return g
}

func (a *BuildMonitorAgent) monitor(ctx context.Context, t MonitorBuildTask) (Result, error) {
	build, err := a.devops.GetBuild(ctx, t.BuildID)
	if err != nil {
		return Result{}, fmt.Errorf("get build %d: %w", t.BuildID, err)
	}

	a.mu.Lock()
	a.group(t.BuildID, t.PullRequestID)
	a.mu.Unlock()

	if err := a.Observe(ctx,
		fmt.Sprintf("Build %d (%s) status=%s result=%s", build.ID, build.Definition, build.Status, build.Result),
		map[string]string{"build_id": fmt.Sprintf("%d", build.ID)}); err != nil {
		return Result{}, err
	}

	res := Result{
		Success: true,
		Details: map[string]any{
			"build_id": build.ID,
			"status":   build.Status,
			"result":   build.Result,
		},
	}
	if build.Status == "completed" && build.Result == "failed" {
		res.ActionNeeded = "analyze_failure"
	}
	return res, nil
}

// failureClassification is the parsed verdict on a failed build.
type failureClassification struct {
	Intermittent bool
	Category     string
	Summary      string
}

func (a *BuildMonitorAgent) analyze(ctx context.Context, t AnalyzeBuildFailureTask) (Result, error) {
	resp, err := a.Think(ctx,
		fmt.Sprintf(`Build %d failed. Classify the failure.
Respond with JSON: {"intermittent": true|false, "category": "...", "summary": "..."}`, t.BuildID),
		map[string]string{"logs": tail(t.Logs, 4000)}, 0.2)
	if err != nil {
		return Result{}, err
	}

	cls := classifyFailure(resp.Content)

	if err := a.Decide(ctx,
		fmt.Sprintf("Build %d classified as %s (intermittent=%v)", t.BuildID, cls.Category, cls.Intermittent),
		map[string]string{"build_id": fmt.Sprintf("%d", t.BuildID)}); err != nil {
		return Result{}, err
	}

	res := Result{
		Success:  true,
		Analysis: resp.Content,
		Details: map[string]any{
			"intermittent": cls.Intermittent,
			"category":     cls.Category,
		},
	}
	if cls.Intermittent {
		res.ActionNeeded = "retry_build"
	} else {
		res.ActionNeeded = "manual_fix"
	}
	return res, nil
}

var intermittentRe = regexp.MustCompile(`"intermittent"\s*:\s*(true|false)`)
var categoryRe = regexp.MustCompile(`"category"\s*:\s*"([^"]*)"`)

// classifyFailure extracts the classification from LLM output. The JSON
// path is preferred; keyword matching is the fallback, and an unparseable
// answer defaults to the conservative verdict (not intermittent).
func classifyFailure(text string) failureClassification {
	cls := failureClassification{Intermittent: false, Category: "unknown"}

	if m := intermittentRe.FindStringSubmatch(text); m != nil {
		cls.Intermittent = m[1] == "true"
		if c := categoryRe.FindStringSubmatch(text); c != nil {
			cls.Category = c[1]
		}
		return cls
	}

	lower := strings.ToLower(text)
	for _, kw := range []string{"intermittent", "flaky", "transient"} {
		if strings.Contains(lower, kw) {
			cls.Intermittent = true
			cls.Category = "intermittent"
			break
		}
	}
	return cls
}

func (a *BuildMonitorAgent) retry(ctx context.Context, t RetryBuildTask) (Result, error) {
	// The budget check and the counter update happen under one lock so
	// parallel delegation cannot retry the same logical build twice.
	a.mu.Lock()
	g := a.group(t.BuildID, 0)
	if g.retryCount >= a.maxRetries {
		a.mu.Unlock()
		return Result{
			Success:      false,
			Error:        "Max retries exceeded",
			ActionNeeded: "manual_intervention",
			Details:      map[string]any{"original_build_id": g.originalBuildID, "retries": g.retryCount},
		}, nil
	}
	g.retryCount++
	attempt := g.retryCount
	a.mu.Unlock()

	start := time.Now()

	build, err := a.devops.GetBuild(ctx, t.BuildID)
	if err == nil {
		var queued *devops.Build
		queued, err = a.devops.QueueBuild(ctx, build.Definition, build.Branch, map[string]string{
			"retry_of": fmt.Sprintf("%d", g.originalBuildID),
		})
		if err == nil {
			a.mu.Lock()
			g.lastBuildID = queued.ID
			a.buildGroup[queued.ID] = g.id
			a.mu.Unlock()

			if logErr := a.LogAction(ctx, "retry_build", fmt.Sprintf("build/%d", g.originalBuildID),
				map[string]any{"attempt": attempt},
				map[string]any{"new_build_id": queued.ID},
				true, time.Since(start)); logErr != nil {
				return Result{}, logErr
			}
			return Result{
				Success: true,
				Details: map[string]any{
					"new_build_id": queued.ID,
					"attempt":      attempt,
					"remaining":    a.maxRetries - attempt,
				},
			}, nil
		}
	}

	// The queue never happened, so the attempt did not consume budget.
	a.mu.Lock()
	g.retryCount--
	a.mu.Unlock()

	if logErr := a.LogAction(ctx, "retry_build", fmt.Sprintf("build/%d", g.originalBuildID),
		map[string]any{"attempt": attempt},
		map[string]any{"error": err.Error()},
		false, time.Since(start)); logErr != nil {
		return Result{}, logErr
	}
	return Result{}, fmt.Errorf("retry build %d: %w", t.BuildID, err)
}
