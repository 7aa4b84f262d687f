package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <agent-id> <query>...",
	Short: "Search an agent's memories by content",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st, err := openStore(cfg)
		if err != nil {
			exitErr("open store", err)
		}
		defer st.Close()

		entries, err := st.SearchMemories(cmd.Context(), args[0], strings.Join(args[1:], " "), searchLimit)
		if err != nil {
			exitErr("search memories", err)
		}
		printJSON(entries)
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 20, "Maximum entries to show")
	RootCmd.AddCommand(searchCmd)
}
