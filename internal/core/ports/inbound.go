package ports

import (
	"context"

	"github.com/meducate/labs-orchestrator/internal/core/domain"
)

// InterpretationOrchestrator is the inbound contract for the job lifecycle.
// Presentation layers send Start/Cancel intents and read state snapshots;
// they never mutate state directly.
type InterpretationOrchestrator interface {
	Start(ctx context.Context, req domain.InterpretationRequest) (domain.AttemptState, error)
	Cancel(ctx context.Context) error
	Snapshot() domain.AttemptState
	Close()
}
