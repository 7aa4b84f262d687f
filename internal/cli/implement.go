package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kiryl-martsinkevich/sdlc-agents/internal/agent"
)

var implementCmd = &cobra.Command{
	Use:   "implement <story-id>",
	Short: "Analyze and implement a user story across affected repositories",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		storyID, err := strconv.Atoi(args[0])
		if err != nil {
			exitErr("invalid story id", err)
		}

		sys, err := buildSystem()
		if err != nil {
			exitErr("initialize", err)
		}
		defer sys.Close()

		res := sys.Orchestrator.ProcessTask(cmd.Context(), agent.ImplementStoryTask{StoryID: storyID})
		printJSON(res)
	},
}

func init() {
	RootCmd.AddCommand(implementCmd)
}
