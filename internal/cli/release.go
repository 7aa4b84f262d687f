package cli

import (
	"github.com/spf13/cobra"

	"github.com/kiryl-martsinkevich/sdlc-agents/internal/agent"
)

var (
	releaseName   string
	releaseSource string
)

var releaseCmd = &cobra.Command{
	Use:   "release [component...]",
	Short: "Create release branches across components",
	Long:  "Creates a release spanning the named components or component groups. Without arguments all enabled repositories are included.",
	Run: func(cmd *cobra.Command, args []string) {
		sys, err := buildSystem()
		if err != nil {
			exitErr("initialize", err)
		}
		defer sys.Close()

		res := sys.Orchestrator.ProcessTask(cmd.Context(), agent.CreateReleaseTask{
			Name:         releaseName,
			Components:   args,
			SourceBranch: releaseSource,
		})
		printJSON(res)
	},
}

func init() {
	releaseCmd.Flags().StringVarP(&releaseName, "name", "n", "", "Release name (default: Release-YYYY.MM.DD)")
	releaseCmd.Flags().StringVar(&releaseSource, "source-branch", "main", "Branch to cut the release from")
	RootCmd.AddCommand(releaseCmd)
}
