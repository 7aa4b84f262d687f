// Package logging configures the process-wide slog logger.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithAgent returns a logger with agent identity fields attached.
// Use this for all logging inside an agent's task handling.
func WithAgent(agentID, sessionID string) *slog.Logger {
	return slog.With(
		"agent_id", agentID,
		"session_id", sessionID,
	)
}

// WithTask returns a logger scoped to one task execution.
func WithTask(logger *slog.Logger, taskType string) *slog.Logger {
	return logger.With("task_type", taskType)
}
