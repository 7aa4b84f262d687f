package agent

import "fmt"

// Task is a closed set of typed task variants. Every agent handles the
// variants it knows and answers a structured failure for the rest; an
// unknown variant never crosses an agent boundary as an error.
type Task interface {
	TaskType() string
}

// Orchestrator-level tasks.

// ImplementStoryTask asks for a story to be analyzed and implemented
// across the affected repositories.
type ImplementStoryTask struct {
	StoryID int
}

func (ImplementStoryTask) TaskType() string { return "implement_story" }

// SplitFeatureTask asks for a feature to be split into smaller stories.
type SplitFeatureTask struct {
	FeatureID int
	Count     int
}

func (SplitFeatureTask) TaskType() string { return "split_feature" }

// CreateReleaseTask asks for a release spanning the given components.
type CreateReleaseTask struct {
	Name         string // empty means Release-YYYY.MM.DD
	Components   []string
	SourceBranch string
}

func (CreateReleaseTask) TaskType() string { return "create_release" }

// Requirements agent tasks.

type AnalyzeRequirementsTask struct {
	StoryID int
}

func (AnalyzeRequirementsTask) TaskType() string { return "analyze_requirements" }

type ClarifyRequirementsTask struct {
	StoryID  int
	Question string
}

func (ClarifyRequirementsTask) TaskType() string { return "clarify_requirements" }

// Code repository agent tasks.

type InitializeRepoTask struct{}

func (InitializeRepoTask) TaskType() string { return "initialize_repo" }

type ImplementTask struct {
	StoryID  int
	Title    string
	Analysis string
}

func (ImplementTask) TaskType() string { return "implement" }

type FixBuildTask struct {
	BuildID      int
	ErrorSummary string
}

func (FixBuildTask) TaskType() string { return "fix_build" }

// Build monitor tasks.

type MonitorBuildTask struct {
	BuildID       int
	PullRequestID int
}

func (MonitorBuildTask) TaskType() string { return "monitor_build" }

type AnalyzeBuildFailureTask struct {
	BuildID int
	Logs    string
}

func (AnalyzeBuildFailureTask) TaskType() string { return "analyze_build_failure" }

type RetryBuildTask struct {
	BuildID int
}

func (RetryBuildTask) TaskType() string { return "retry_build" }

// Release manager tasks.

type VerifyReleaseReadinessTask struct {
	Components []string
}

func (VerifyReleaseReadinessTask) TaskType() string { return "verify_release_readiness" }

type GenerateReleaseNotesTask struct {
	Components []string
}

func (GenerateReleaseNotesTask) TaskType() string { return "generate_release_notes" }

// RawTask carries a type string that did not map to any known variant,
// e.g. from free-text parsing. Processing it always yields the
// structured unknown-task failure.
type RawTask struct {
	Type string
}

func (t RawTask) TaskType() string { return t.Type }

// Result is the structured outcome every task returns. Failures carry a
// human-readable error and enough detail for the caller to decide
// whether to retry, escalate, or give up.
type Result struct {
	Success       bool              `json:"success"`
	Error         string            `json:"error,omitempty"`
	ActionNeeded  string            `json:"action_needed,omitempty"`
	Analysis      string            `json:"analysis,omitempty"`
	AffectedRepos []string          `json:"affected_repos,omitempty"`
	Complexity    string            `json:"complexity,omitempty"`
	Delegations   map[string]Result `json:"delegations,omitempty"`
	Details       map[string]any    `json:"details,omitempty"`
}

// Failure builds a failed result.
func Failure(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// UnknownTask is the structured failure for an unrecognized variant.
func UnknownTask(task Task) Result {
	return Failure("Unknown task type: %s", task.TaskType())
}
