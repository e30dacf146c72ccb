package usecase

import (
	"github.com/meducate/labs-orchestrator/internal/core/domain"
)

// Event is one observed fact applied to an attempt's state. Events carry the
// job id they were observed for so the reducer can reject stale ones.
type Event interface{ isEvent() }

// SubmitAccepted: the start call succeeded and the server minted a job.
type SubmitAccepted struct {
	JobID               string
	Status              domain.JobStatus
	EstimatedCompletion string
}

// SubmitRejected: the start call failed before any job existed.
type SubmitRejected struct {
	Message      string
	Subscription *domain.SubscriptionLimitInfo
}

// PollObserved: one status snapshot came back for JobID.
type PollObserved struct {
	JobID    string
	Snapshot domain.JobSnapshot
}

// CancelRequested: the user asked to stop the active job.
type CancelRequested struct{}

func (SubmitAccepted) isEvent()  {}
func (SubmitRejected) isEvent()  {}
func (PollObserved) isEvent()    {}
func (CancelRequested) isEvent() {}

// Reduce is the pure transition function of the attempt state machine. It
// never performs I/O; the orchestrator owns timers and network calls and
// feeds their outcomes in as events. Events that do not apply to the current
// phase, or that reference a job other than the current one, leave the state
// untouched.
func Reduce(state domain.AttemptState, ev Event) domain.AttemptState {
	switch e := ev.(type) {
	case SubmitAccepted:
		if state.Phase != domain.PhaseSubmitting {
			return state
		}
		state.JobID = e.JobID
		state.EstimatedCompletion = e.EstimatedCompletion
		phase := domain.PhaseForStatus(e.Status)
		if !phase.InFlight() {
			phase = domain.PhasePending
		}
		state.Phase = phase
		state.Progress = 0
		return state

	case SubmitRejected:
		if state.Phase != domain.PhaseSubmitting {
			return state
		}
		return domain.AttemptState{
			AttemptID:         state.AttemptID,
			Phase:             domain.PhaseIdle,
			UserError:         e.Message,
			SubscriptionError: e.Subscription,
		}

	case PollObserved:
		// Stale-response guard: the snapshot must belong to the job we are
		// still in flight for.
		if !state.Phase.InFlight() || state.JobID == "" || state.JobID != e.JobID {
			return state
		}
		return applySnapshot(state, e.Snapshot)

	case CancelRequested:
		if !state.Phase.InFlight() {
			return state
		}
		state.Phase = domain.PhaseCancelled
		state.UserError = MessageCancelledByUser
		return state
	}
	return state
}

func applySnapshot(state domain.AttemptState, snap domain.JobSnapshot) domain.AttemptState {
	switch snap.Status {
	case domain.StatusPending:
		state.Phase = domain.PhasePending
		state.Progress = 0
	case domain.StatusProcessing:
		state.Phase = domain.PhaseProcessing
		state.Progress = clampProgress(snap.Progress)
	case domain.StatusCompleted:
		state.Phase = domain.PhaseCompleted
		state.Progress = 100
		if snap.Result != nil {
			state.Result = snap.Result
		}
	case domain.StatusFailed:
		state.Phase = domain.PhaseFailed
		if snap.Error != "" {
			state.UserError = snap.Error
		} else {
			state.UserError = MessageJobFailed
		}
	case domain.StatusCancelled:
		state.Phase = domain.PhaseCancelled
		state.UserError = MessageJobCancelled
	}
	return state
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
