package domain

import (
	"errors"
	"fmt"
)

// Error kinds classify every outcome the presentation layer must distinguish.
// Transport/HTTP classification happens at the gateway; the orchestrator only
// ever inspects kinds.
var (
	// ErrValidation: local gate failed, the server was never contacted.
	ErrValidation = errors.New("invalid request")
	// ErrPayloadTooLarge: HTTP 413, or a 400 whose detail mentions size.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrBadRequest: HTTP 400 with a non-size detail.
	ErrBadRequest = errors.New("bad request")
	// ErrUnauthorized: HTTP 401, session expired.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrSubscriptionLimit: HTTP 402 on job start. Carried by
	// SubscriptionLimitError so the structured payload survives wrapping.
	ErrSubscriptionLimit = errors.New("subscription limit reached")
	// ErrRateLimited: HTTP 429.
	ErrRateLimited = errors.New("rate limited")
	// ErrServiceUnavailable: HTTP 503.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrNetwork: transport-level failure, no HTTP response was received.
	ErrNetwork = errors.New("network error")
	// ErrJobFailed: the request succeeded and a job existed, but the job
	// itself errored during processing.
	ErrJobFailed = errors.New("job failed")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// SubscriptionLimitError carries the structured 402 payload alongside the
// ErrSubscriptionLimit kind.
type SubscriptionLimitError struct {
	Info SubscriptionLimitInfo
}

func (e *SubscriptionLimitError) Error() string {
	if e.Info.Message != "" {
		return fmt.Sprintf("subscription limit reached: %s", e.Info.Message)
	}
	return fmt.Sprintf("subscription limit reached: tier %q", e.Info.Tier)
}

func (e *SubscriptionLimitError) Is(target error) bool {
	return target == ErrSubscriptionLimit
}

// SubscriptionInfo extracts the 402 payload from an error chain, if present.
func SubscriptionInfo(err error) *SubscriptionLimitInfo {
	var limitErr *SubscriptionLimitError
	if errors.As(err, &limitErr) {
		info := limitErr.Info
		return &info
	}
	return nil
}
