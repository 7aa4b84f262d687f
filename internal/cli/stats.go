package cli

import (
	"time"

	"github.com/spf13/cobra"
)

var statsHours int

var statsCmd = &cobra.Command{
	Use:   "stats <agent-id>",
	Short: "Show an agent's action statistics",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st, err := openStore(cfg)
		if err != nil {
			exitErr("open store", err)
		}
		defer st.Close()

		stats, err := st.AgentStatistics(cmd.Context(), args[0], time.Duration(statsHours)*time.Hour)
		if err != nil {
			exitErr("query statistics", err)
		}
		printJSON(stats)
	},
}

func init() {
	statsCmd.Flags().IntVar(&statsHours, "hours", 24, "Trailing window in hours")
	RootCmd.AddCommand(statsCmd)
}
