package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/kiryl-martsinkevich/sdlc-agents/internal/devops"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/llm"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/model"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/store"
)

const requirementsPrompt = `You are a requirements analyst for a software delivery team.
You turn work item descriptions into concrete technical analysis: what needs
to change, where, and what the risks are. Be specific and concise.`

// repoKeywords maps description keywords to repository names. Anything
// that matches nothing lands in "main".
var repoKeywords = []string{"backend", "frontend", "api", "web", "mobile", "shared"}

// complexityIndicators are words whose presence raises the complexity
// estimate.
var complexityIndicators = []string{
	"integration", "migration", "refactor", "security", "performance",
	"concurrent", "distributed", "breaking", "database", "authentication",
}

// RequirementsAgent analyzes and clarifies work items.
type RequirementsAgent struct {
	*Kernel
	devops devops.Client
}

// NewRequirementsAgent builds the requirements agent, registered as "requirements".
func NewRequirementsAgent(llmClient llm.Client, st store.Store, devopsClient devops.Client) *RequirementsAgent {
	return &RequirementsAgent{
		Kernel: NewKernel("requirements", "Requirements Analyst",
			[]string{CapRequirementsAnalysis}, requirementsPrompt, llmClient, st),
		devops: devopsClient,
	}
}

func (a *RequirementsAgent) ProcessTask(ctx context.Context, task Task) Result {
	switch t := task.(type) {
	case AnalyzeRequirementsTask:
		res, err := a.analyze(ctx, t)
		return a.finalize(ctx, task, res, err)
	case ClarifyRequirementsTask:
		res, err := a.clarify(ctx, t)
		return a.finalize(ctx, task, res, err)
	default:
		return UnknownTask(task)
	}
}

func (a *RequirementsAgent) analyze(ctx context.Context, t AnalyzeRequirementsTask) (Result, error) {
	wi, err := a.devops.GetWorkItem(ctx, t.StoryID)
	if err != nil {
		return Result{}, fmt.Errorf("get work item %d: %w", t.StoryID, err)
	}

	resp, err := a.Think(ctx,
		fmt.Sprintf("Analyze work item %d and describe the technical work needed to implement it.", t.StoryID),
		map[string]string{
			"title":       wi.Title,
			"description": wi.Description,
			"state":       wi.State,
		}, 0.3)
	if err != nil {
		return Result{}, err
	}

	text := wi.Title + " " + wi.Description
	repos := extractAffectedRepos(text)
	complexity := estimateComplexity(text)

	if err := a.Store().UpsertWorkItem(ctx, model.WorkItemRecord{
		WorkItemID:    wi.ID,
		ItemType:      wi.Type,
		Title:         wi.Title,
		Description:   wi.Description,
		State:         "Analyzed",
		AssignedAgent: a.ID(),
		Metadata: map[string]string{
			"complexity":     complexity,
			"affected_repos": strings.Join(repos, ","),
		},
	}); err != nil {
		return Result{}, err
	}

	if err := a.Decide(ctx,
		fmt.Sprintf("Work item %d affects repos %v with %s complexity", wi.ID, repos, complexity),
		map[string]string{"work_item_id": fmt.Sprintf("%d", wi.ID)},
	); err != nil {
		return Result{}, err
	}

	return Result{
		Success:       true,
		Analysis:      resp.Content,
		AffectedRepos: repos,
		Complexity:    complexity,
	}, nil
}

func (a *RequirementsAgent) clarify(ctx context.Context, t ClarifyRequirementsTask) (Result, error) {
	wi, err := a.devops.GetWorkItem(ctx, t.StoryID)
	if err != nil {
		return Result{}, fmt.Errorf("get work item %d: %w", t.StoryID, err)
	}

	question := t.Question
	if question == "" {
		question = "What is ambiguous or missing in this requirement? List clarifying questions."
	}

	resp, err := a.Think(ctx, question, map[string]string{
		"title":       wi.Title,
		"description": wi.Description,
	}, 0.4)
	if err != nil {
		return Result{}, err
	}

	return Result{Success: true, Analysis: resp.Content}, nil
}

// extractAffectedRepos matches repository keywords in the work item text.
// Anything that matches nothing falls back to "main".
func extractAffectedRepos(text string) []string {
	lower := strings.ToLower(text)
	var repos []string
	for _, kw := range repoKeywords {
		if strings.Contains(lower, kw) {
			repos = append(repos, kw)
		}
	}
	if len(repos) == 0 {
		repos = []string{"main"}
	}
	return repos
}

// estimateComplexity counts indicator words in the work item text.
func estimateComplexity(text string) string {
	lower := strings.ToLower(text)
	hits := 0
	for _, ind := range complexityIndicators {
		if strings.Contains(lower, ind) {
			hits++
		}
	}
	switch {
	case hits >= 5:
		return "Very High"
	case hits >= 3:
		return "High"
	case hits >= 1:
		return "Medium"
	default:
		return "Low"
	}
}
