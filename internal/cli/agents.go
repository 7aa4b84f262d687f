package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List agents that have recorded activity",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st, err := openStore(cfg)
		if err != nil {
			exitErr("open store", err)
		}
		defer st.Close()

		stats, err := st.Stats(cmd.Context(), cfg.DBPath)
		if err != nil {
			exitErr("query stats", err)
		}

		if len(stats.Agents) == 0 {
			fmt.Println("No agent activity recorded.")
			return
		}
		for _, a := range stats.Agents {
			fmt.Printf("%-30s %6d memories  %6d actions  last active %s\n",
				a.AgentID, a.Memories, a.Actions, a.LastActive.Format("2006-01-02 15:04:05"))
		}
	},
}

func init() {
	RootCmd.AddCommand(agentsCmd)
}
