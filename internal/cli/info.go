package cli

import (
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show event store statistics",
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
		printJSON(stats)
	},
}

func init() {
	RootCmd.AddCommand(infoCmd)
}
