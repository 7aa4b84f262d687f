package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete memories and actions older than the retention window",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st, err := openStore(cfg)
		if err != nil {
			exitErr("open store", err)
		}
		defer st.Close()

		n, err := st.PurgeExpired(cmd.Context())
		if err != nil {
			exitErr("purge", err)
		}
		fmt.Printf("Purged %d expired records.\n", n)
	},
}

func init() {
	RootCmd.AddCommand(purgeCmd)
}
