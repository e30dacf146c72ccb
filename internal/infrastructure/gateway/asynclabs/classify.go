package asynclabs

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/meducate/labs-orchestrator/internal/core/domain"
	"github.com/meducate/labs-orchestrator/internal/infrastructure/resilience"
)

type errorEnvelope struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func (e errorEnvelope) message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Error
}

// classifyResponse maps a non-2xx reply onto the domain error taxonomy.
// A 400 whose detail talks about file size is treated as a payload limit,
// matching servers that reject oversized uploads before routing.
func classifyResponse(status int, body []byte, operation string) error {
	var envelope errorEnvelope
	_ = json.Unmarshal(body, &envelope)
	detail := envelope.message()
	if detail == "" {
		detail = strings.TrimSpace(string(body))
	}
	if detail == "" {
		detail = http.StatusText(status)
	}
	cause := fmt.Errorf("status %d: %s", status, detail)

	switch status {
	case http.StatusPaymentRequired:
		var info domain.SubscriptionLimitInfo
		_ = json.Unmarshal(body, &info)
		if info.Message == "" {
			info.Message = detail
		}
		return &domain.SubscriptionLimitError{Info: info}
	case http.StatusRequestEntityTooLarge:
		return domain.WrapError(domain.ErrPayloadTooLarge, operation, cause)
	case http.StatusBadRequest:
		if mentionsSize(detail) {
			return domain.WrapError(domain.ErrPayloadTooLarge, operation, cause)
		}
		return domain.WrapError(domain.ErrBadRequest, operation, cause)
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.WrapError(domain.ErrUnauthorized, operation, cause)
	case http.StatusTooManyRequests:
		return domain.WrapError(domain.ErrRateLimited, operation, cause)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return domain.WrapError(domain.ErrServiceUnavailable, operation, cause)
	default:
		if status >= 500 {
			return domain.WrapError(domain.ErrServiceUnavailable, operation, cause)
		}
		return domain.WrapError(domain.ErrBadRequest, operation, cause)
	}
}

func mentionsSize(detail string) bool {
	lower := strings.ToLower(detail)
	return strings.Contains(lower, "too large") ||
		strings.Contains(lower, "file size") ||
		strings.Contains(lower, "exceeds")
}

// classifyForRetry decides whether the read-side executor may retry.
func classifyForRetry(err error) resilience.ErrorClassification {
	switch {
	case errors.Is(err, domain.ErrNetwork),
		errors.Is(err, domain.ErrServiceUnavailable),
		errors.Is(err, domain.ErrRateLimited):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
}
