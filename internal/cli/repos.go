package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kiryl-martsinkevich/sdlc-agents/internal/config"
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "Inspect the managed repository registry",
}

var reposListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured repositories",
	Run: func(cmd *cobra.Command, args []string) {
		reg := mustLoadRepos()
		for _, r := range reg.Repositories {
			state := "enabled"
			if !r.IsEnabled() {
				state = "disabled"
			}
			fmt.Printf("%-20s %-8s %s\n", r.Name, state, r.URL)
		}
		if len(reg.ComponentGroups) > 0 {
			fmt.Println("\nComponent groups:")
			for group, members := range reg.ComponentGroups {
				fmt.Printf("  %-18s %v\n", group, members)
			}
		}
	},
}

var reposValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the repository registry",
	Run: func(cmd *cobra.Command, args []string) {
		reg := mustLoadRepos()
		if err := reg.Validate(); err != nil {
			exitErr("invalid registry", err)
		}
		fmt.Printf("OK: %d repositories, %d enabled, %d component groups\n",
			len(reg.Repositories), len(reg.Enabled()), len(reg.ComponentGroups))
	},
}

func mustLoadRepos() *config.RepoRegistry {
	cfg := loadConfig()
	reg, err := config.LoadRepos(cfg.ReposFile)
	if err != nil {
		exitErr("load repos file", err)
	}
	return reg
}

func init() {
	reposCmd.AddCommand(reposListCmd)
	reposCmd.AddCommand(reposValidateCmd)
	RootCmd.AddCommand(reposCmd)
}
