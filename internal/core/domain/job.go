package domain

import "time"

type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the server will never mutate the job again.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// SubmissionAck is the server's answer to a successful job start.
type SubmissionAck struct {
	Message             string        `json:"message"`
	JobID               string        `json:"job_id"`
	Status              JobStatus     `json:"status"`
	EstimatedCompletion string        `json:"estimated_completion"`
	FilesCount          int           `json:"files_count"`
	Notification        *Notification `json:"notification,omitempty"`
}

type Notification struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

// JobSnapshot is one polled read of a server-owned job. The client never
// writes any of these fields back.
type JobSnapshot struct {
	JobID      string                `json:"job_id"`
	Status     JobStatus             `json:"status"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
	Progress   int                   `json:"progress"`
	FilesInfo  []FileInfo            `json:"files_info,omitempty"`
	Parameters *JobParameters        `json:"parameters,omitempty"`
	Result     *InterpretationResult `json:"result,omitempty"`
	Message    string                `json:"message,omitempty"`
	Error      string                `json:"error,omitempty"`
}

type FileInfo struct {
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	MediaType string `json:"media_type"`
}

type JobParameters struct {
	Language       Language       `json:"language"`
	EducationLevel EducationLevel `json:"education_level"`
	TechnicalLevel TechnicalLevel `json:"technical_level"`
	TotalFiles     int            `json:"total_files"`
}

// JobSummary is one entry of the job history listing.
type JobSummary struct {
	JobID      string         `json:"job_id"`
	Status     JobStatus      `json:"status"`
	Progress   int            `json:"progress"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Parameters *JobParameters `json:"parameters,omitempty"`
	Summary    string         `json:"summary,omitempty"`
	Error      string         `json:"error,omitempty"`
}

type JobHistory struct {
	TotalJobs int          `json:"total_jobs"`
	Jobs      []JobSummary `json:"jobs"`
}

// JobStats are aggregate usage statistics for the billing view.
type JobStats struct {
	TotalJobs     int     `json:"total_jobs"`
	CompletedJobs int     `json:"completed_jobs"`
	FailedJobs    int     `json:"failed_jobs"`
	CancelledJobs int     `json:"cancelled_jobs"`
	PendingJobs   int     `json:"pending_jobs"`
	SuccessRate   float64 `json:"success_rate"`
}

// JobEvent is published on every observable lifecycle change of a job this
// service submitted.
type JobEvent struct {
	JobID      string    `json:"job_id"`
	AttemptID  string    `json:"attempt_id"`
	Status     JobStatus `json:"status"`
	Progress   int       `json:"progress"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
