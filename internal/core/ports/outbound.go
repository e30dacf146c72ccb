package ports

import (
	"context"

	"github.com/meducate/labs-orchestrator/internal/core/domain"
)

// InterpretationGateway is the typed surface of the remote interpretation
// service.
type InterpretationGateway interface {
	StartInterpretation(ctx context.Context, req domain.InterpretationRequest) (domain.SubmissionAck, error)
	JobStatus(ctx context.Context, jobID string) (domain.JobSnapshot, error)
	ListJobs(ctx context.Context, limit int) (domain.JobHistory, error)
	CancelJob(ctx context.Context, jobID string) error
	JobStats(ctx context.Context) (domain.JobStats, error)
	SubscriptionUsage(ctx context.Context) (domain.SubscriptionLimitInfo, error)
}

// TokenSource supplies the bearer credential attached to every gateway call.
// Refresh is the collaborator's concern, not ours.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// JobHistoryStore caches this service's own submissions locally.
type JobHistoryStore interface {
	RecordSubmission(ctx context.Context, rec domain.JobSummary) error
	UpdateOutcome(ctx context.Context, jobID string, status domain.JobStatus, progress int, errMessage string) error
	ListRecent(ctx context.Context, limit int) ([]domain.JobSummary, error)
}

// JobEventPublisher emits lifecycle events for downstream consumers
// (notification mailers, analytics). Publishing is best-effort.
type JobEventPublisher interface {
	PublishJobEvent(ctx context.Context, event domain.JobEvent) error
}
