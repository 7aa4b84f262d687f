package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/kiryl-martsinkevich/sdlc-agents/internal/store"
)

var (
	memoriesLimit   int
	memoriesType    string
	memoriesSession string
	memoriesHours   int
)

var memoriesCmd = &cobra.Command{
	Use:   "memories <agent-id>",
	Short: "Show an agent's recent memory entries",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st, err := openStore(cfg)
		if err != nil {
			exitErr("open store", err)
		}
		defer st.Close()

		entries, err := st.RecentMemories(cmd.Context(), store.RecentParams{
			AgentID:    args[0],
			Limit:      memoriesLimit,
			MemoryType: memoriesType,
			SessionID:  memoriesSession,
			Within:     time.Duration(memoriesHours) * time.Hour,
		})
		if err != nil {
			exitErr("query memories", err)
		}
		printJSON(entries)
	},
}

func init() {
	memoriesCmd.Flags().IntVarP(&memoriesLimit, "limit", "l", 20, "Maximum entries to show")
	memoriesCmd.Flags().StringVarP(&memoriesType, "type", "t", "", "Filter by memory type")
	memoriesCmd.Flags().StringVarP(&memoriesSession, "session", "s", "", "Filter by session id")
	memoriesCmd.Flags().IntVar(&memoriesHours, "hours", 24, "Trailing window in hours")
	RootCmd.AddCommand(memoriesCmd)
}
