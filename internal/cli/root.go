// Package cli implements the sdlc-agents CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kiryl-martsinkevich/sdlc-agents/internal/config"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/store"
)

var dbPath string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "sdlc-agents",
	Short: "Multi-agent automation for software delivery",
	Long:  "LLM-driven agents for requirement analysis, implementation, build monitoring, and releases, with a shared SQLite-backed event store.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Event store path (default: $SDLC_AGENTS_DB or ~/.sdlc-agents/events.db)")
}

func loadConfig() *config.Config {
	cfg := config.Load()
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg
}

func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.DBPath, cfg.Retention())
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		exitErr("encode output", err)
	}
	fmt.Println(string(out))
}
