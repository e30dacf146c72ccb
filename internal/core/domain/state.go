package domain

// Phase is the client-side view of one submission attempt. It mirrors the
// server's job statuses plus the two states that exist before a job does.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
	PhasePending    Phase = "pending"
	PhaseProcessing Phase = "processing"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
	PhaseCancelled  Phase = "cancelled"
)

// InFlight reports whether a job exists and polling is warranted.
func (p Phase) InFlight() bool {
	return p == PhasePending || p == PhaseProcessing
}

// Terminal reports whether only a fresh Start can leave this phase.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseCompleted, PhaseFailed, PhaseCancelled:
		return true
	default:
		return false
	}
}

// PhaseForStatus maps a server-reported job status onto the client phase.
func PhaseForStatus(status JobStatus) Phase {
	switch status {
	case StatusPending:
		return PhasePending
	case StatusProcessing:
		return PhaseProcessing
	case StatusCompleted:
		return PhaseCompleted
	case StatusFailed:
		return PhaseFailed
	case StatusCancelled:
		return PhaseCancelled
	default:
		return PhasePending
	}
}

// AttemptState is the orchestrator-owned state of one submission attempt.
// The presentation layer only ever reads copies of it.
type AttemptState struct {
	AttemptID           string                 `json:"attempt_id,omitempty"`
	Phase               Phase                  `json:"phase"`
	JobID               string                 `json:"job_id,omitempty"`
	Progress            int                    `json:"progress"`
	EstimatedCompletion string                 `json:"estimated_completion,omitempty"`
	Result              *InterpretationResult  `json:"result,omitempty"`
	UserError           string                 `json:"error,omitempty"`
	SubscriptionError   *SubscriptionLimitInfo `json:"subscription_error,omitempty"`
}

// NewAttemptState is the pre-submission state.
func NewAttemptState() AttemptState {
	return AttemptState{Phase: PhaseIdle}
}
