package asynclabs

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/meducate/labs-orchestrator/internal/core/domain"
	"github.com/meducate/labs-orchestrator/internal/core/ports"
	"github.com/meducate/labs-orchestrator/internal/infrastructure/resilience"
)

const (
	interpretPath = "/async-labs/interpret"
	jobsPath      = "/async-labs/jobs"
	statsPath     = "/async-labs/jobs/status"
	usagePath     = "/subscription/usage"
)

// Client is the typed wrapper around the remote interpretation service.
type Client struct {
	baseURL    string
	tokens     ports.TokenSource
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	HTTPClient *http.Client
	// Executor wraps only the read-side calls (listing, stats, usage).
	// Submission, polling and cancellation keep their contractual
	// no-auto-retry semantics and bypass it.
	Executor *resilience.Executor
}

func New(baseURL string, tokens ports.TokenSource) *Client {
	return NewWithOptions(baseURL, tokens, Options{})
}

func NewWithOptions(baseURL string, tokens ports.TokenSource, options Options) *Client {
	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: httpClient,
		executor:   options.Executor,
	}
}

// StartInterpretation submits the documents and context as multipart form
// data and returns the minted job handle.
func (c *Client) StartInterpretation(ctx context.Context, req domain.InterpretationRequest) (domain.SubmissionAck, error) {
	const operation = "start interpretation"

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, file := range req.Files {
		part, err := writer.CreatePart(fileHeader(file))
		if err != nil {
			return domain.SubmissionAck{}, fmt.Errorf("build %s form: %w", operation, err)
		}
		if _, err := part.Write(file.Content); err != nil {
			return domain.SubmissionAck{}, fmt.Errorf("build %s form: %w", operation, err)
		}
	}
	fields := map[string]string{
		"language":        string(req.Language),
		"education_level": string(req.EducationLevel),
		"technical_level": string(req.TechnicalLevel),
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return domain.SubmissionAck{}, fmt.Errorf("build %s form: %w", operation, err)
		}
	}
	if err := writer.Close(); err != nil {
		return domain.SubmissionAck{}, fmt.Errorf("build %s form: %w", operation, err)
	}

	var ack domain.SubmissionAck
	err := c.call(ctx, http.MethodPost, interpretPath, body, writer.FormDataContentType(), &ack, operation)
	if err != nil {
		return domain.SubmissionAck{}, err
	}
	return ack, nil
}

// JobStatus reads one snapshot of a job. Callers decide what a transport
// error means; this method only classifies it.
func (c *Client) JobStatus(ctx context.Context, jobID string) (domain.JobSnapshot, error) {
	var snap domain.JobSnapshot
	path := interpretPath + "/" + url.PathEscape(jobID)
	if err := c.call(ctx, http.MethodGet, path, nil, "", &snap, "job status"); err != nil {
		return domain.JobSnapshot{}, err
	}
	return snap, nil
}

// CancelJob requests a best-effort server-side cancellation.
func (c *Client) CancelJob(ctx context.Context, jobID string) error {
	path := interpretPath + "/" + url.PathEscape(jobID)
	return c.call(ctx, http.MethodDelete, path, nil, "", nil, "cancel job")
}

// ListJobs returns the recent job history.
func (c *Client) ListJobs(ctx context.Context, limit int) (domain.JobHistory, error) {
	const operation = "list jobs"
	path := jobsPath
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var history domain.JobHistory
	err := c.readSide(ctx, "asynclabs.list_jobs", func(ctx context.Context) error {
		return c.call(ctx, http.MethodGet, path, nil, "", &history, operation)
	})
	if err != nil {
		return domain.JobHistory{}, err
	}
	return history, nil
}

// JobStats returns aggregate usage statistics.
func (c *Client) JobStats(ctx context.Context) (domain.JobStats, error) {
	var payload struct {
		Statistics domain.JobStats `json:"statistics"`
	}
	err := c.readSide(ctx, "asynclabs.job_stats", func(ctx context.Context) error {
		return c.call(ctx, http.MethodGet, statsPath, nil, "", &payload, "job stats")
	})
	if err != nil {
		return domain.JobStats{}, err
	}
	return payload.Statistics, nil
}

// SubscriptionUsage returns the current plan tier and usage counters.
func (c *Client) SubscriptionUsage(ctx context.Context) (domain.SubscriptionLimitInfo, error) {
	var info domain.SubscriptionLimitInfo
	err := c.readSide(ctx, "asynclabs.subscription_usage", func(ctx context.Context) error {
		return c.call(ctx, http.MethodGet, usagePath, nil, "", &info, "subscription usage")
	})
	if err != nil {
		return domain.SubscriptionLimitInfo{}, err
	}
	return info, nil
}

func (c *Client) readSide(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, operation, fn, classifyForRetry)
}

func fileHeader(file domain.Attachment) textproto.MIMEHeader {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="files"; filename="%s"`, escapeQuotes(file.Filename)))
	mediaType := file.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	header.Set("Content-Type", mediaType)
	return header
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
