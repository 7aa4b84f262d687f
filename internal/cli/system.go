package cli

import (
	"fmt"
	"os"

	"github.com/kiryl-martsinkevich/sdlc-agents/internal/agent"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/buildexec"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/config"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/devops"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/gitops"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/llm"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/orchestrator"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/store"
)

// System wires the full agent stack: event store, LLM client,
// collaborators, agents, and the orchestrator.
type System struct {
	Config       *config.Config
	Store        *store.SQLiteStore
	LLM          llm.Client
	Orchestrator *orchestrator.Orchestrator

	sweeper *store.Sweeper
}

// buildSystem assembles everything from the loaded configuration.
// Agents whose collaborators are not configured are simply not
// registered; the orchestrator degrades gracefully around them.
func buildSystem() (*System, error) {
	cfg := loadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	var dv devops.Client
	if cfg.ADOOrgURL != "" && cfg.ADOPAT != "" {
		dv, err = devops.NewAzureClient(cfg.ADOOrgURL, cfg.ADOProject, cfg.ADOPAT)
		if err != nil {
			st.Close()
			return nil, err
		}
	}

	git := gitops.NewExecClient(cfg.GitUserName, cfg.GitUserEmail)
	orch := orchestrator.New(llmClient, st, dv)

	if dv != nil {
		orch.RegisterAgent(agent.NewRequirementsAgent(llmClient, st, dv))
		orch.RegisterAgent(agent.NewBuildMonitorAgent(llmClient, st, dv, cfg.MaxRetries))
	}

	var repos *config.RepoRegistry
	if _, statErr := os.Stat(cfg.ReposFile); statErr == nil {
		repos, err = config.LoadRepos(cfg.ReposFile)
		if err != nil {
			st.Close()
			return nil, err
		}
		if err := repos.Validate(); err != nil {
			st.Close()
			return nil, fmt.Errorf("repos file: %w", err)
		}
		for _, r := range repos.Enabled() {
			builder := buildexec.NewRunner(r.BuildCommand, cfg.BuildTimeout, r.EnvironmentVars)
			orch.RegisterAgent(agent.NewCodeRepoAgent(r, llmClient, st, git, dv, builder, cfg.WorkspaceDir))
		}
	}

	orch.RegisterAgent(agent.NewReleaseManagerAgent(llmClient, st, dv, git, repos, cfg.WorkspaceDir))

	sweeper, err := store.NewSweeper(st, cfg.RetentionSweepSpec)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("retention schedule: %w", err)
	}
	sweeper.Start()

	return &System{
		Config:       cfg,
		Store:        st,
		LLM:          llmClient,
		Orchestrator: orch,
		sweeper:      sweeper,
	}, nil
}

// Close releases everything the system holds.
func (s *System) Close() {
	s.sweeper.Stop()
	s.LLM.Close()
	s.Store.Close()
}
