package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meducate/labs-orchestrator/internal/core/domain"
	"github.com/meducate/labs-orchestrator/internal/core/ports"
)

// ErrJobAlreadyRunning is returned when Start is called while a submission is
// still in flight. Finish or cancel the active job first.
var ErrJobAlreadyRunning = errors.New("an interpretation job is already running")

const (
	DefaultPollInterval    = 3 * time.Second
	DefaultFirstProbeDelay = 2 * time.Second
	defaultStatusTimeout   = 10 * time.Second
	hookTimeout            = 5 * time.Second
)

type Config struct {
	// PollInterval is the fixed tick between status reads. No backoff:
	// job duration is open-ended and backoff would only delay completion
	// detection.
	PollInterval time.Duration
	// FirstProbeDelay schedules one early status read so fast jobs are
	// noticed before the first regular tick.
	FirstProbeDelay time.Duration
	// StatusTimeout bounds a single status call.
	StatusTimeout time.Duration
}

func (c Config) normalize() Config {
	out := c
	if out.PollInterval <= 0 {
		out.PollInterval = DefaultPollInterval
	}
	if out.FirstProbeDelay <= 0 {
		out.FirstProbeDelay = DefaultFirstProbeDelay
	}
	if out.StatusTimeout <= 0 {
		out.StatusTimeout = defaultStatusTimeout
	}
	return out
}

type Options struct {
	Config  Config
	History ports.JobHistoryStore
	Events  ports.JobEventPublisher
	// OnChange is invoked with a state copy after every transition, outside
	// the orchestrator lock.
	OnChange func(domain.AttemptState)
}

// Orchestrator owns one submission attempt at a time: submission, the polling
// loop, cancellation and teardown. All state transitions go through the pure
// Reduce function; this type only sequences I/O and guards against stale
// responses.
type Orchestrator struct {
	gateway ports.InterpretationGateway
	history ports.JobHistoryStore
	events  ports.JobEventPublisher
	logger  *slog.Logger
	cfg     Config

	onChange func(domain.AttemptState)

	mu         sync.Mutex
	state      domain.AttemptState
	generation uint64
	cancelPoll context.CancelFunc
}

func New(gateway ports.InterpretationGateway, logger *slog.Logger) *Orchestrator {
	return NewWithOptions(gateway, logger, Options{})
}

func NewWithOptions(gateway ports.InterpretationGateway, logger *slog.Logger, options Options) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		gateway:  gateway,
		history:  options.History,
		events:   options.Events,
		logger:   logger,
		cfg:      options.Config.normalize(),
		onChange: options.OnChange,
		state:    domain.NewAttemptState(),
	}
}

// Snapshot returns a copy of the current attempt state.
func (o *Orchestrator) Snapshot() domain.AttemptState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Start validates the request, submits it, and begins polling on success.
// From idle or any terminal phase it performs a full state reset; while a
// submission is in flight it returns ErrJobAlreadyRunning.
func (o *Orchestrator) Start(ctx context.Context, req domain.InterpretationRequest) (domain.AttemptState, error) {
	if err := req.Validate(); err != nil {
		// The gateway is never contacted for an invalid request, and the
		// active attempt (if any) is left untouched.
		return o.Snapshot(), err
	}

	o.mu.Lock()
	if o.state.Phase == domain.PhaseSubmitting || o.state.Phase.InFlight() {
		o.mu.Unlock()
		return o.Snapshot(), ErrJobAlreadyRunning
	}
	o.teardownLocked()
	o.generation++
	gen := o.generation
	o.state = domain.AttemptState{
		AttemptID: uuid.NewString(),
		Phase:     domain.PhaseSubmitting,
	}
	state := o.state
	o.mu.Unlock()
	o.notify(state)

	ack, err := o.gateway.StartInterpretation(ctx, req)
	if err != nil {
		state = o.apply(gen, SubmitRejected{
			Message:      UserMessage(err),
			Subscription: domain.SubscriptionInfo(err),
		})
		return state, err
	}

	o.mu.Lock()
	if o.generation != gen {
		// A newer Start or Close superseded this attempt while the
		// submission was on the wire.
		state = o.state
		o.mu.Unlock()
		return state, nil
	}
	o.state = Reduce(o.state, SubmitAccepted{
		JobID:               ack.JobID,
		Status:              ack.Status,
		EstimatedCompletion: ack.EstimatedCompletion,
	})
	pollCtx, cancel := context.WithCancel(context.Background())
	o.cancelPoll = cancel
	state = o.state
	o.mu.Unlock()
	o.notify(state)

	o.recordSubmission(req, ack, state)
	go o.pollLoop(pollCtx, gen, ack.JobID)

	return state, nil
}

// Cancel stops the active job from the client's perspective. It is a no-op
// outside the pending/processing phases. The remote cancel is best-effort:
// its failure is logged, never surfaced, and never delays local teardown.
func (o *Orchestrator) Cancel(ctx context.Context) error {
	o.mu.Lock()
	if !o.state.Phase.InFlight() {
		o.mu.Unlock()
		return nil
	}
	jobID := o.state.JobID
	o.generation++
	o.teardownLocked()
	o.state = Reduce(o.state, CancelRequested{})
	state := o.state
	o.mu.Unlock()
	o.notify(state)

	if err := o.gateway.CancelJob(ctx, jobID); err != nil {
		o.logger.Warn("cancel_request_failed", "job_id", jobID, "error", err)
	}
	o.recordOutcome(state)
	return nil
}

// Close tears down the polling loop. Safe to call any number of times; a
// live timer referencing a disposed owner is the leak this guards against.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.generation++
	o.teardownLocked()
	o.mu.Unlock()
}

func (o *Orchestrator) teardownLocked() {
	if o.cancelPoll != nil {
		o.cancelPoll()
	}
}

func (o *Orchestrator) pollLoop(ctx context.Context, gen uint64, jobID string) {
	probe := time.NewTimer(o.cfg.FirstProbeDelay)
	defer probe.Stop()
	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-probe.C:
		case <-ticker.C:
		}
		if done := o.pollOnce(ctx, gen, jobID); done {
			return
		}
	}
}

// pollOnce issues a single status read and applies it. It reports true when
// polling should stop: terminal state reached or this loop is stale. At most
// one status call is ever in flight; ticks that fire while a response is
// pending coalesce into the next loop iteration.
func (o *Orchestrator) pollOnce(ctx context.Context, gen uint64, jobID string) bool {
	statusCtx, cancel := context.WithTimeout(ctx, o.cfg.StatusTimeout)
	snap, err := o.gateway.JobStatus(statusCtx, jobID)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		// Transport errors on a poll are not job failures. The dominant
		// failure mode is a flaky connection; the job is most likely fine.
		// Keep state and retry on the next tick.
		o.logger.Debug("poll_failed", "job_id", jobID, "error", err)
		return false
	}

	state, applied := o.applyPoll(gen, jobID, snap)
	if !applied {
		return true
	}
	if state.Phase.Terminal() {
		o.recordOutcome(state)
		return true
	}
	return false
}

// applyPoll runs the snapshot through the reducer unless the loop has been
// superseded by a cancel, a newer Start, or Close.
func (o *Orchestrator) applyPoll(gen uint64, jobID string, snap domain.JobSnapshot) (domain.AttemptState, bool) {
	o.mu.Lock()
	if o.generation != gen {
		state := o.state
		o.mu.Unlock()
		return state, false
	}
	before := o.state
	o.state = Reduce(o.state, PollObserved{JobID: jobID, Snapshot: snap})
	if o.state.Phase.Terminal() {
		o.teardownLocked()
	}
	state := o.state
	o.mu.Unlock()
	if state != before {
		o.notify(state)
	}
	return state, true
}

func (o *Orchestrator) apply(gen uint64, ev Event) domain.AttemptState {
	o.mu.Lock()
	if o.generation != gen {
		state := o.state
		o.mu.Unlock()
		return state
	}
	o.state = Reduce(o.state, ev)
	state := o.state
	o.mu.Unlock()
	o.notify(state)
	return state
}

func (o *Orchestrator) notify(state domain.AttemptState) {
	if o.onChange != nil {
		o.onChange(state)
	}
	o.publishEvent(state)
}

func (o *Orchestrator) publishEvent(state domain.AttemptState) {
	if o.events == nil || state.JobID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), hookTimeout)
	defer cancel()
	event := domain.JobEvent{
		JobID:      state.JobID,
		AttemptID:  state.AttemptID,
		Status:     statusForPhase(state.Phase),
		Progress:   state.Progress,
		OccurredAt: time.Now().UTC(),
	}
	if state.Phase == domain.PhaseFailed {
		event.Error = state.UserError
	}
	if err := o.events.PublishJobEvent(ctx, event); err != nil {
		o.logger.Warn("publish_job_event_failed", "job_id", state.JobID, "error", err)
	}
}

func (o *Orchestrator) recordSubmission(req domain.InterpretationRequest, ack domain.SubmissionAck, state domain.AttemptState) {
	if o.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), hookTimeout)
	defer cancel()
	now := time.Now().UTC()
	rec := domain.JobSummary{
		JobID:     ack.JobID,
		Status:    statusForPhase(state.Phase),
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
		Parameters: &domain.JobParameters{
			Language:       req.Language,
			EducationLevel: req.EducationLevel,
			TechnicalLevel: req.TechnicalLevel,
			TotalFiles:     len(req.Files),
		},
	}
	if err := o.history.RecordSubmission(ctx, rec); err != nil {
		o.logger.Warn("record_submission_failed", "job_id", ack.JobID, "error", err)
	}
}

func (o *Orchestrator) recordOutcome(state domain.AttemptState) {
	if o.history == nil || state.JobID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), hookTimeout)
	defer cancel()
	errMessage := ""
	if state.Phase == domain.PhaseFailed {
		errMessage = state.UserError
	}
	err := o.history.UpdateOutcome(ctx, state.JobID, statusForPhase(state.Phase), state.Progress, errMessage)
	if err != nil {
		o.logger.Warn("record_outcome_failed", "job_id", state.JobID, "error", err)
	}
}

func statusForPhase(p domain.Phase) domain.JobStatus {
	switch p {
	case domain.PhaseProcessing:
		return domain.StatusProcessing
	case domain.PhaseCompleted:
		return domain.StatusCompleted
	case domain.PhaseFailed:
		return domain.StatusFailed
	case domain.PhaseCancelled:
		return domain.StatusCancelled
	default:
		return domain.StatusPending
	}
}
