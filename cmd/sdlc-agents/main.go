package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/kiryl-martsinkevich/sdlc-agents/internal/cli"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/logging"
)

func main() {
	godotenv.Load()
	logging.Init()

	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
