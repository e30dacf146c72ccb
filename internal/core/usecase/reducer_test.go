package usecase

import (
	"testing"

	"github.com/meducate/labs-orchestrator/internal/core/domain"
)

func submittingState() domain.AttemptState {
	return domain.AttemptState{AttemptID: "a-1", Phase: domain.PhaseSubmitting}
}

func inFlightState(jobID string) domain.AttemptState {
	return domain.AttemptState{AttemptID: "a-1", Phase: domain.PhaseProcessing, JobID: jobID, Progress: 40}
}

func TestReduceSubmitAccepted(t *testing.T) {
	state := Reduce(submittingState(), SubmitAccepted{
		JobID:               "job-1",
		Status:              domain.StatusPending,
		EstimatedCompletion: "2-3 minutes",
	})
	if state.Phase != domain.PhasePending {
		t.Fatalf("phase = %s, want pending", state.Phase)
	}
	if state.JobID != "job-1" || state.EstimatedCompletion != "2-3 minutes" {
		t.Fatalf("ack fields not recorded: %+v", state)
	}
}

func TestReduceSubmitRejectedReturnsToIdle(t *testing.T) {
	info := &domain.SubscriptionLimitInfo{Tier: "free"}
	state := Reduce(submittingState(), SubmitRejected{
		Message:      MessageSubscriptionLimit,
		Subscription: info,
	})
	if state.Phase != domain.PhaseIdle {
		t.Fatalf("phase = %s, want idle", state.Phase)
	}
	if state.JobID != "" {
		t.Fatalf("no job id may exist after rejection, got %q", state.JobID)
	}
	if state.SubscriptionError == nil || state.SubscriptionError.Tier != "free" {
		t.Fatalf("subscription payload lost: %+v", state)
	}
	if state.UserError != MessageSubscriptionLimit {
		t.Fatalf("user message = %q", state.UserError)
	}
}

func TestReducePollProgression(t *testing.T) {
	state := Reduce(submittingState(), SubmitAccepted{JobID: "job-1", Status: domain.StatusPending})

	steps := []struct {
		snap         domain.JobSnapshot
		wantPhase    domain.Phase
		wantProgress int
	}{
		{domain.JobSnapshot{Status: domain.StatusPending, Progress: 0}, domain.PhasePending, 0},
		{domain.JobSnapshot{Status: domain.StatusProcessing, Progress: 40}, domain.PhaseProcessing, 40},
		{domain.JobSnapshot{Status: domain.StatusProcessing, Progress: 90}, domain.PhaseProcessing, 90},
	}
	for i, step := range steps {
		state = Reduce(state, PollObserved{JobID: "job-1", Snapshot: step.snap})
		if state.Phase != step.wantPhase || state.Progress != step.wantProgress {
			t.Fatalf("step %d: got %s/%d, want %s/%d",
				i, state.Phase, state.Progress, step.wantPhase, step.wantProgress)
		}
	}

	result := &domain.InterpretationResult{Summary: "all clear"}
	state = Reduce(state, PollObserved{JobID: "job-1", Snapshot: domain.JobSnapshot{
		Status: domain.StatusCompleted,
		Result: result,
	}})
	if state.Phase != domain.PhaseCompleted || state.Result != result || state.Progress != 100 {
		t.Fatalf("completion not applied: %+v", state)
	}
}

func TestReduceRejectsStaleJobID(t *testing.T) {
	state := inFlightState("job-2")
	got := Reduce(state, PollObserved{JobID: "job-1", Snapshot: domain.JobSnapshot{
		Status: domain.StatusCompleted,
		Result: &domain.InterpretationResult{Summary: "stale"},
	}})
	if got != state {
		t.Fatalf("stale snapshot mutated state: %+v", got)
	}
}

func TestReduceIgnoresPollAfterTerminal(t *testing.T) {
	state := inFlightState("job-1")
	state = Reduce(state, CancelRequested{})
	if state.Phase != domain.PhaseCancelled || state.UserError != MessageCancelledByUser {
		t.Fatalf("cancel not applied: %+v", state)
	}

	got := Reduce(state, PollObserved{JobID: "job-1", Snapshot: domain.JobSnapshot{
		Status:   domain.StatusProcessing,
		Progress: 95,
	}})
	if got != state {
		t.Fatalf("late snapshot overwrote terminal state: %+v", got)
	}
}

func TestReduceFailedJobUsesServerError(t *testing.T) {
	state := Reduce(inFlightState("job-1"), PollObserved{JobID: "job-1", Snapshot: domain.JobSnapshot{
		Status: domain.StatusFailed,
		Error:  "document could not be parsed",
	}})
	if state.Phase != domain.PhaseFailed || state.UserError != "document could not be parsed" {
		t.Fatalf("server error not surfaced: %+v", state)
	}

	state = Reduce(inFlightState("job-1"), PollObserved{JobID: "job-1", Snapshot: domain.JobSnapshot{
		Status: domain.StatusFailed,
	}})
	if state.UserError != MessageJobFailed {
		t.Fatalf("fallback message missing: %+v", state)
	}
}

func TestReduceCancelOutsideInFlightIsNoOp(t *testing.T) {
	state := domain.NewAttemptState()
	if got := Reduce(state, CancelRequested{}); got != state {
		t.Fatalf("cancel from idle mutated state: %+v", got)
	}
}

func TestReduceClampsProgress(t *testing.T) {
	state := Reduce(inFlightState("job-1"), PollObserved{JobID: "job-1", Snapshot: domain.JobSnapshot{
		Status:   domain.StatusProcessing,
		Progress: 250,
	}})
	if state.Progress != 100 {
		t.Fatalf("progress = %d, want clamped to 100", state.Progress)
	}
}
