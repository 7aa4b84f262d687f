package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kiryl-martsinkevich/sdlc-agents/internal/agent"
)

var splitCount int

var splitCmd = &cobra.Command{
	Use:   "split <feature-id>",
	Short: "Split a feature into smaller user stories",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		featureID, err := strconv.Atoi(args[0])
		if err != nil {
			exitErr("invalid feature id", err)
		}

		sys, err := buildSystem()
		if err != nil {
			exitErr("initialize", err)
		}
		defer sys.Close()

		res := sys.Orchestrator.ProcessTask(cmd.Context(), agent.SplitFeatureTask{
			FeatureID: featureID,
			Count:     splitCount,
		})
		printJSON(res)
	},
}

func init() {
	splitCmd.Flags().IntVarP(&splitCount, "count", "c", 3, "Number of stories to split into")
	RootCmd.AddCommand(splitCmd)
}
