package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/meducate/labs-orchestrator/internal/core/domain"
)

type statusReply struct {
	snap domain.JobSnapshot
	err  error
	// gate, when set, blocks the reply until the channel is closed. Used to
	// simulate a response that is still on the wire when cancel happens.
	gate chan struct{}
}

type fakeGateway struct {
	mu          sync.Mutex
	ack         domain.SubmissionAck
	startErr    error
	startCalls  int
	replies     []statusReply
	next        int
	statusCalls int
	started     chan string
	cancelCalls []string
	cancelErr   error
}

func (g *fakeGateway) StartInterpretation(context.Context, domain.InterpretationRequest) (domain.SubmissionAck, error) {
	g.mu.Lock()
	g.startCalls++
	g.mu.Unlock()
	if g.startErr != nil {
		return domain.SubmissionAck{}, g.startErr
	}
	return g.ack, nil
}

func (g *fakeGateway) JobStatus(_ context.Context, jobID string) (domain.JobSnapshot, error) {
	g.mu.Lock()
	g.statusCalls++
	idx := g.next
	if idx >= len(g.replies) {
		idx = len(g.replies) - 1
	} else {
		g.next++
	}
	reply := g.replies[idx]
	g.mu.Unlock()

	if g.started != nil {
		g.started <- jobID
	}
	if reply.gate != nil {
		<-reply.gate
	}
	if reply.err != nil {
		return domain.JobSnapshot{}, reply.err
	}
	snap := reply.snap
	snap.JobID = jobID
	return snap, nil
}

func (g *fakeGateway) CancelJob(_ context.Context, jobID string) error {
	g.mu.Lock()
	g.cancelCalls = append(g.cancelCalls, jobID)
	g.mu.Unlock()
	return g.cancelErr
}

func (g *fakeGateway) ListJobs(context.Context, int) (domain.JobHistory, error) {
	return domain.JobHistory{}, nil
}

func (g *fakeGateway) JobStats(context.Context) (domain.JobStats, error) {
	return domain.JobStats{}, nil
}

func (g *fakeGateway) SubscriptionUsage(context.Context) (domain.SubscriptionLimitInfo, error) {
	return domain.SubscriptionLimitInfo{}, nil
}

func (g *fakeGateway) statusCallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.statusCalls
}

func pendingReply() statusReply {
	return statusReply{snap: domain.JobSnapshot{Status: domain.StatusPending}}
}

func processingReply(progress int) statusReply {
	return statusReply{snap: domain.JobSnapshot{Status: domain.StatusProcessing, Progress: progress}}
}

func completedReply(result *domain.InterpretationResult) statusReply {
	return statusReply{snap: domain.JobSnapshot{Status: domain.StatusCompleted, Result: result}}
}

func newTestOrchestrator(t *testing.T, gw *fakeGateway, options Options) (*Orchestrator, chan domain.AttemptState) {
	t.Helper()
	states := make(chan domain.AttemptState, 64)
	options.Config = Config{
		PollInterval:    5 * time.Millisecond,
		FirstProbeDelay: 2 * time.Millisecond,
		StatusTimeout:   time.Second,
	}
	options.OnChange = func(s domain.AttemptState) { states <- s }
	orch := NewWithOptions(gw, slog.New(slog.DiscardHandler), options)
	t.Cleanup(orch.Close)
	return orch, states
}

func waitForPhase(t *testing.T, states <-chan domain.AttemptState, phase domain.Phase) domain.AttemptState {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case state := <-states:
			if state.Phase == phase {
				return state
			}
		case <-deadline:
			t.Fatalf("timed out waiting for phase %s", phase)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestStartValidationGateNeverCallsGateway(t *testing.T) {
	gw := &fakeGateway{}
	orch, _ := newTestOrchestrator(t, gw, Options{})

	_, err := orch.Start(context.Background(), domain.InterpretationRequest{})
	if !domain.IsKind(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if gw.startCalls != 0 {
		t.Fatalf("gateway contacted %d times for an invalid request", gw.startCalls)
	}
	if got := orch.Snapshot().Phase; got != domain.PhaseIdle {
		t.Fatalf("phase = %s, want idle", got)
	}
}

func TestTerminalConvergence(t *testing.T) {
	result := &domain.InterpretationResult{Summary: "everything in range"}
	gw := &fakeGateway{
		ack: domain.SubmissionAck{JobID: "job-1", Status: domain.StatusPending, EstimatedCompletion: "2-3 minutes"},
		replies: []statusReply{
			pendingReply(),
			processingReply(40),
			processingReply(90),
			completedReply(result),
		},
	}
	orch, states := newTestOrchestrator(t, gw, Options{})

	state, err := orch.Start(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if state.Phase != domain.PhasePending || state.JobID != "job-1" {
		t.Fatalf("post-submit state = %+v", state)
	}
	if state.EstimatedCompletion != "2-3 minutes" {
		t.Fatalf("eta not recorded: %+v", state)
	}

	final := waitForPhase(t, states, domain.PhaseCompleted)
	if final.Result != result {
		t.Fatalf("result not stored: %+v", final)
	}

	// The loop must be torn down: no further status calls after terminal.
	time.Sleep(40 * time.Millisecond)
	if got := gw.statusCallCount(); got != len(gw.replies) {
		t.Fatalf("status calls = %d, want exactly %d (one per scheduled tick)", got, len(gw.replies))
	}
}

func TestPollTransportErrorsKeepInFlightState(t *testing.T) {
	netErr := domain.WrapError(domain.ErrNetwork, "job status", errors.New("connection reset"))
	gw := &fakeGateway{
		ack: domain.SubmissionAck{JobID: "job-1", Status: domain.StatusPending},
		replies: []statusReply{
			{err: netErr},
			{err: netErr},
			{err: netErr},
			processingReply(40),
		},
	}
	orch, states := newTestOrchestrator(t, gw, Options{})

	if _, err := orch.Start(context.Background(), validRequest()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Three consecutive transport failures must not surface as a job
	// failure; the fourth tick still runs and applies normally.
	state := waitForPhase(t, states, domain.PhaseProcessing)
	if state.Progress != 40 {
		t.Fatalf("progress = %d, want 40", state.Progress)
	}
	if state.UserError != "" {
		t.Fatalf("transport errors leaked into user error: %q", state.UserError)
	}
}

func TestSubscriptionLimitIsNotAFailure(t *testing.T) {
	limit := &domain.SubscriptionLimitError{Info: domain.SubscriptionLimitInfo{
		Tier:            "free",
		Limits:          domain.SubscriptionLimits{MonthlyJobs: 10},
		Usage:           domain.SubscriptionUsage{JobsThisPeriod: 10},
		ResetDate:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		UpgradeRequired: true,
	}}
	gw := &fakeGateway{startErr: domain.WrapError(domain.ErrSubscriptionLimit, "start job", limit)}
	orch, _ := newTestOrchestrator(t, gw, Options{})

	state, err := orch.Start(context.Background(), validRequest())
	if !domain.IsKind(err, domain.ErrSubscriptionLimit) {
		t.Fatalf("expected subscription limit kind, got %v", err)
	}
	if state.Phase != domain.PhaseIdle {
		t.Fatalf("phase = %s, want idle (not failed)", state.Phase)
	}
	if state.JobID != "" {
		t.Fatalf("no job id may be minted on 402, got %q", state.JobID)
	}
	if state.SubscriptionError == nil || state.SubscriptionError.Tier != "free" {
		t.Fatalf("subscription payload missing: %+v", state)
	}
	if state.UserError != MessageSubscriptionLimit {
		t.Fatalf("user message = %q", state.UserError)
	}
}

func TestSubmitFailureReturnsToIdleAndIsRetryable(t *testing.T) {
	gw := &fakeGateway{startErr: domain.WrapError(domain.ErrServiceUnavailable, "start job", errors.New("503"))}
	orch, _ := newTestOrchestrator(t, gw, Options{})

	state, err := orch.Start(context.Background(), validRequest())
	if !domain.IsKind(err, domain.ErrServiceUnavailable) {
		t.Fatalf("expected service unavailable kind, got %v", err)
	}
	if state.Phase != domain.PhaseIdle || state.UserError != MessageServiceUnavailable {
		t.Fatalf("state = %+v", state)
	}

	// Immediately retryable: the next Start goes through.
	gw.startErr = nil
	gw.ack = domain.SubmissionAck{JobID: "job-2", Status: domain.StatusPending}
	gw.replies = []statusReply{pendingReply()}
	state, err = orch.Start(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("retry Start() error = %v", err)
	}
	if state.JobID != "job-2" {
		t.Fatalf("retry state = %+v", state)
	}
}

func TestStartWhileInFlightRejected(t *testing.T) {
	gw := &fakeGateway{
		ack:     domain.SubmissionAck{JobID: "job-1", Status: domain.StatusPending},
		replies: []statusReply{pendingReply()},
	}
	orch, _ := newTestOrchestrator(t, gw, Options{})

	if _, err := orch.Start(context.Background(), validRequest()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := orch.Start(context.Background(), validRequest()); !errors.Is(err, ErrJobAlreadyRunning) {
		t.Fatalf("expected ErrJobAlreadyRunning, got %v", err)
	}
	if gw.startCalls != 1 {
		t.Fatalf("start calls = %d, want 1", gw.startCalls)
	}
}

func TestCancelDuringProcessingIgnoresLateResponse(t *testing.T) {
	gate := make(chan struct{})
	gw := &fakeGateway{
		ack:     domain.SubmissionAck{JobID: "job-1", Status: domain.StatusPending},
		started: make(chan string, 16),
		replies: []statusReply{
			processingReply(40),
			{snap: domain.JobSnapshot{Status: domain.StatusCompleted, Result: &domain.InterpretationResult{Summary: "late"}}, gate: gate},
		},
	}
	orch, states := newTestOrchestrator(t, gw, Options{})

	if _, err := orch.Start(context.Background(), validRequest()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	<-gw.started
	waitForPhase(t, states, domain.PhaseProcessing)

	// The second status call is now blocked on the wire.
	<-gw.started
	if err := orch.Cancel(context.Background()); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	close(gate)

	state := orch.Snapshot()
	if state.Phase != domain.PhaseCancelled || state.UserError != MessageCancelledByUser {
		t.Fatalf("state after cancel = %+v", state)
	}

	gw.mu.Lock()
	cancelCalls := append([]string(nil), gw.cancelCalls...)
	gw.mu.Unlock()
	if len(cancelCalls) != 1 || cancelCalls[0] != "job-1" {
		t.Fatalf("cancel calls = %v", cancelCalls)
	}

	// The late completed response must not resurrect the attempt.
	time.Sleep(30 * time.Millisecond)
	state = orch.Snapshot()
	if state.Phase != domain.PhaseCancelled || state.Result != nil {
		t.Fatalf("late response overwrote cancelled state: %+v", state)
	}
}

func TestCancelFailureStillCancelsLocally(t *testing.T) {
	gw := &fakeGateway{
		ack:       domain.SubmissionAck{JobID: "job-1", Status: domain.StatusPending},
		replies:   []statusReply{pendingReply()},
		cancelErr: errors.New("server did not acknowledge"),
	}
	orch, states := newTestOrchestrator(t, gw, Options{})

	if _, err := orch.Start(context.Background(), validRequest()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForPhase(t, states, domain.PhasePending)

	if err := orch.Cancel(context.Background()); err != nil {
		t.Fatalf("Cancel() must swallow remote failures, got %v", err)
	}
	state := orch.Snapshot()
	if state.Phase != domain.PhaseCancelled || state.UserError != MessageCancelledByUser {
		t.Fatalf("state = %+v", state)
	}
}

func TestCancelIsNoOpOutsideInFlight(t *testing.T) {
	gw := &fakeGateway{}
	orch, _ := newTestOrchestrator(t, gw, Options{})

	if err := orch.Cancel(context.Background()); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if len(gw.cancelCalls) != 0 {
		t.Fatalf("cancel reached the gateway from idle: %v", gw.cancelCalls)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	gw := &fakeGateway{
		ack:     domain.SubmissionAck{JobID: "job-1", Status: domain.StatusPending},
		replies: []statusReply{pendingReply()},
	}
	orch, states := newTestOrchestrator(t, gw, Options{})

	if _, err := orch.Start(context.Background(), validRequest()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForPhase(t, states, domain.PhasePending)

	orch.Close()
	orch.Close()

	calls := gw.statusCallCount()
	time.Sleep(40 * time.Millisecond)
	if got := gw.statusCallCount(); got != calls {
		t.Fatalf("polling survived Close: %d -> %d calls", calls, got)
	}
}

type historyFake struct {
	mu          sync.Mutex
	submissions []domain.JobSummary
	outcomes    []domain.JobSummary
}

func (h *historyFake) RecordSubmission(_ context.Context, rec domain.JobSummary) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.submissions = append(h.submissions, rec)
	return nil
}

func (h *historyFake) UpdateOutcome(_ context.Context, jobID string, status domain.JobStatus, progress int, errMessage string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outcomes = append(h.outcomes, domain.JobSummary{
		JobID: jobID, Status: status, Progress: progress, Error: errMessage,
	})
	return nil
}

func (h *historyFake) ListRecent(context.Context, int) ([]domain.JobSummary, error) {
	return nil, nil
}

type publisherFake struct {
	mu     sync.Mutex
	events []domain.JobEvent
}

func (p *publisherFake) PublishJobEvent(_ context.Context, event domain.JobEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func TestHooksRecordLifecycle(t *testing.T) {
	history := &historyFake{}
	publisher := &publisherFake{}
	gw := &fakeGateway{
		ack: domain.SubmissionAck{JobID: "job-1", Status: domain.StatusPending},
		replies: []statusReply{
			processingReply(50),
			completedReply(&domain.InterpretationResult{Summary: "done"}),
		},
	}
	orch, states := newTestOrchestrator(t, gw, Options{History: history, Events: publisher})

	if _, err := orch.Start(context.Background(), validRequest()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForPhase(t, states, domain.PhaseCompleted)

	waitFor(t, func() bool {
		history.mu.Lock()
		defer history.mu.Unlock()
		return len(history.submissions) == 1 && len(history.outcomes) == 1
	})

	history.mu.Lock()
	sub, out := history.submissions[0], history.outcomes[0]
	history.mu.Unlock()
	if sub.JobID != "job-1" || sub.Parameters == nil || sub.Parameters.TotalFiles != 1 {
		t.Fatalf("submission record = %+v", sub)
	}
	if out.Status != domain.StatusCompleted || out.Progress != 100 {
		t.Fatalf("outcome record = %+v", out)
	}

	waitFor(t, func() bool {
		publisher.mu.Lock()
		defer publisher.mu.Unlock()
		if len(publisher.events) == 0 {
			return false
		}
		return publisher.events[len(publisher.events)-1].Status == domain.StatusCompleted
	})
}

func validRequest() domain.InterpretationRequest {
	return domain.InterpretationRequest{
		Files: []domain.Attachment{
			{Filename: "labs.pdf", MediaType: "application/pdf", Content: []byte("%PDF-1.4")},
		},
		Language:       domain.LanguageEnglish,
		EducationLevel: domain.EducationCollege,
		TechnicalLevel: domain.TechnicalNonScience,
	}
}
