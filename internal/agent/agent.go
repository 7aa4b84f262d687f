// Package agent implements the agent runtime: the shared memory-backed
// kernel and the concrete SDLC agents built on it.
package agent

import "context"

// Capability tags agents register under.
const (
	CapRequirementsAnalysis = "requirements_analysis"
	CapCodeImplementation   = "code_implementation"
	CapBuildMonitoring      = "build_monitoring"
	CapReleaseManagement    = "release_management"
	CapOrchestration        = "orchestration"
)

// Agent is one autonomous unit: it owns a system prompt, a capability
// set, and a session identity, and processes typed tasks.
type Agent interface {
	ID() string
	Name() string
	Capabilities() []string
	ProcessTask(ctx context.Context, task Task) Result
}
