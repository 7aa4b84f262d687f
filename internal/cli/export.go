package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export [agent-id]",
	Short: "Export memories as JSONL",
	Long:  "Writes memory entries as one JSON object per line, oldest first. Without an agent id all agents are exported.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st, err := openStore(cfg)
		if err != nil {
			exitErr("open store", err)
		}
		defer st.Close()

		agentID := ""
		if len(args) > 0 {
			agentID = args[0]
		}

		entries, err := st.ExportMemories(cmd.Context(), agentID)
		if err != nil {
			exitErr("export memories", err)
		}

		out := os.Stdout
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				exitErr("create output file", err)
			}
			defer f.Close()
			out = f
		}

		enc := json.NewEncoder(out)
		for _, e := range entries {
			if err := enc.Encode(e); err != nil {
				exitErr("write entry", err)
			}
		}
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
	RootCmd.AddCommand(exportCmd)
}
