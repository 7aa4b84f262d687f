package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kiryl-martsinkevich/sdlc-agents/internal/llm"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/logging"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/model"
	"github.com/kiryl-martsinkevich/sdlc-agents/internal/store"
)

const (
	contextWindow     = 24 * time.Hour
	contextCandidates = 10  // recent memories fetched for context
	contextInjected   = 5   // most recent ones actually injected
	contextPreviewLen = 200 // chars of each injected memory
)

// Kernel provides the shared agent primitives: LLM calls with automatic
// context injection and memory capture, plus direct memory writes.
// Concrete agents hold a Kernel and add their own task handling.
type Kernel struct {
	agentID      string
	name         string
	capabilities []string
	systemPrompt string
	llm          llm.Client
	store        store.Store
	sessionID    string
	log          *slog.Logger
}

// NewKernel builds a kernel. The session id is minted here, once, and
// owned by this kernel for its whole lifetime.
func NewKernel(agentID, name string, capabilities []string, systemPrompt string, llmClient llm.Client, st store.Store) *Kernel {
	sessionID := uuid.NewString()
	return &Kernel{
		agentID:      agentID,
		name:         name,
		capabilities: capabilities,
		systemPrompt: systemPrompt,
		llm:          llmClient,
		store:        st,
		sessionID:    sessionID,
		log:          logging.WithAgent(agentID, sessionID),
	}
}

func (k *Kernel) ID() string             { return k.agentID }
func (k *Kernel) Name() string           { return k.name }
func (k *Kernel) Capabilities() []string { return k.capabilities }
func (k *Kernel) SessionID() string      { return k.sessionID }
func (k *Kernel) Store() store.Store     { return k.store }

// Think runs one LLM call with automatic context injection and memory
// capture. On success the exchange is stored as a conversation memory and
// a successful action record. On failure exactly one failed action record
// is written and the original error is returned unchanged in meaning;
// an LLM failure is never converted into a degraded success.
func (k *Kernel) Think(ctx context.Context, userMessage string, extra map[string]string, temperature float64) (*llm.Response, error) {
	start := time.Now()

	messages := []llm.Message{{Role: llm.RoleSystem, Content: k.systemPrompt}}

	if recall := k.recallContext(ctx); recall != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: recall})
	}
	if len(extra) > 0 {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: renderContext(extra)})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})

	resp, err := k.llm.Generate(ctx, messages, llm.GenerateOptions{Temperature: temperature})
	duration := time.Since(start).Milliseconds()

	if err != nil {
		logErr := k.store.LogAction(ctx, model.ActionLogRecord{
			AgentID:    k.agentID,
			ActionType: "think",
			Target:     "llm",
			Parameters: map[string]any{"message_chars": len(userMessage)},
			Result:     map[string]any{"error": err.Error()},
			Success:    false,
			DurationMS: duration,
			SessionID:  k.sessionID,
		})
		if logErr != nil {
			k.log.Error("failed to log think failure", "error", logErr)
		}
		return nil, err
	}

	memErr := k.store.AppendMemory(ctx, model.MemoryEntry{
		AgentID:    k.agentID,
		MemoryType: model.MemoryConversation,
		Content:    fmt.Sprintf("User: %s\nAssistant: %s", userMessage, resp.Content),
		Metadata: map[string]string{
			"model":       resp.Model,
			"tokens_used": fmt.Sprintf("%d", resp.TokensUsed),
		},
		SessionID: k.sessionID,
	})
	if memErr != nil {
		return nil, memErr
	}

	logErr := k.store.LogAction(ctx, model.ActionLogRecord{
		AgentID:    k.agentID,
		ActionType: "think",
		Target:     "llm",
		Parameters: map[string]any{"message_chars": len(userMessage)},
		Result:     map[string]any{"tokens_used": resp.TokensUsed},
		Success:    true,
		DurationMS: duration,
		SessionID:  k.sessionID,
	})
	if logErr != nil {
		return nil, logErr
	}

	return resp, nil
}

// recallContext renders the most recent session memories as one system
// message. A context fetch failure skips injection rather than blocking
// the call; the store error surfaces on the write path if it persists.
func (k *Kernel) recallContext(ctx context.Context) string {
	recent, err := k.store.RecentMemories(ctx, store.RecentParams{
		AgentID:   k.agentID,
		Limit:     contextCandidates,
		SessionID: k.sessionID,
		Within:    contextWindow,
	})
	if err != nil {
		k.log.Warn("context recall failed", "error", err)
		return ""
	}
	if len(recent) == 0 {
		return ""
	}
	if len(recent) > contextInjected {
		recent = recent[:contextInjected]
	}

	var b strings.Builder
	b.WriteString("Recent context from your memory:\n")
	for _, m := range recent {
		preview := m.Content
		if len(preview) > contextPreviewLen {
			preview = preview[:contextPreviewLen] + "..."
		}
		fmt.Fprintf(&b, "- [%s] %s\n", m.MemoryType, preview)
	}
	return b.String()
}

func renderContext(extra map[string]string) string {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Additional context:\n")
	for _, key := range keys {
		fmt.Fprintf(&b, "%s: %s\n", key, extra[key])
	}
	return b.String()
}

func (k *Kernel) appendMemory(ctx context.Context, memType, content string, metadata map[string]string) error {
	return k.store.AppendMemory(ctx, model.MemoryEntry{
		AgentID:    k.agentID,
		MemoryType: memType,
		Content:    content,
		Metadata:   metadata,
		SessionID:  k.sessionID,
	})
}

// Observe records something the agent perceived.
func (k *Kernel) Observe(ctx context.Context, content string, metadata map[string]string) error {
	return k.appendMemory(ctx, model.MemoryObservation, content, metadata)
}

// Decide records a decision the agent made.
func (k *Kernel) Decide(ctx context.Context, content string, metadata map[string]string) error {
	return k.appendMemory(ctx, model.MemoryDecision, content, metadata)
}

// RecordAction records an operation the agent is about to do or did.
func (k *Kernel) RecordAction(ctx context.Context, content string, metadata map[string]string) error {
	return k.appendMemory(ctx, model.MemoryAction, content, metadata)
}

// RecordResult records an outcome.
func (k *Kernel) RecordResult(ctx context.Context, content string, metadata map[string]string) error {
	return k.appendMemory(ctx, model.MemoryResult, content, metadata)
}

// LogAction writes a structured action record scoped to this agent's
// identity and session.
func (k *Kernel) LogAction(ctx context.Context, actionType, target string, params, result map[string]any, success bool, duration time.Duration) error {
	return k.store.LogAction(ctx, model.ActionLogRecord{
		AgentID:    k.agentID,
		ActionType: actionType,
		Target:     target,
		Parameters: params,
		Result:     result,
		Success:    success,
		DurationMS: duration.Milliseconds(),
		SessionID:  k.sessionID,
	})
}

// Statistics returns this agent's action statistics in the window.
func (k *Kernel) Statistics(ctx context.Context, within time.Duration) (map[string]model.ActionStats, error) {
	return k.store.AgentStatistics(ctx, k.agentID, within)
}

// SearchMemories searches this agent's memory content.
func (k *Kernel) SearchMemories(ctx context.Context, query string, limit int) ([]model.MemoryEntry, error) {
	return k.store.SearchMemories(ctx, k.agentID, query, limit)
}

// finalize folds a handler error into the structured failure shape and
// records it as a result memory. Handler errors never escape as raw
// errors across an agent boundary.
func (k *Kernel) finalize(ctx context.Context, task Task, res Result, err error) Result {
	if err == nil {
		return res
	}

	k.log.Error("task failed", "task_type", task.TaskType(), "error", err)
	if recErr := k.RecordResult(ctx,
		fmt.Sprintf("Task %s failed: %v", task.TaskType(), err),
		map[string]string{"task_type": task.TaskType()},
	); recErr != nil {
		k.log.Error("failed to record task failure", "error", recErr)
	}
	return Failure("%v", err)
}
