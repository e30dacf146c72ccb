package usecase

import "github.com/meducate/labs-orchestrator/internal/core/domain"

// Patient-facing messages for every classified outcome. The backend's own
// wording is never shown directly except a failed job's error field.
const (
	MessageValidation         = "Please attach your documents and complete all selections before submitting."
	MessagePayloadTooLarge    = "Files are too large. Please reduce file size and try again."
	MessageBadRequest         = "Invalid file format or request. Please check your files and try again."
	MessageUnauthorized       = "Session expired. Please sign in again."
	MessageSubscriptionLimit  = "You have reached your plan's interpretation limit. Upgrade your plan to continue."
	MessageRateLimited        = "Too many requests. Please wait a moment and try again."
	MessageServiceUnavailable = "Service temporarily unavailable. Please try again in a few minutes."
	MessageNetwork            = "Network error. Please check your connection and try again."
	MessageJobFailed          = "Interpretation job failed. Please try again."
	MessageJobCancelled       = "Job was cancelled."
	MessageCancelledByUser    = "Job cancelled by user."
	MessageGenericFailure     = "An error occurred while processing your request. Please try again."
)

// UserMessage maps a classified error onto its user-facing message. Pure and
// deterministic: no orchestrator state, no timers, no network.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case domain.IsKind(err, domain.ErrValidation):
		return MessageValidation
	case domain.IsKind(err, domain.ErrPayloadTooLarge):
		return MessagePayloadTooLarge
	case domain.IsKind(err, domain.ErrBadRequest):
		return MessageBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return MessageUnauthorized
	case domain.IsKind(err, domain.ErrSubscriptionLimit):
		return MessageSubscriptionLimit
	case domain.IsKind(err, domain.ErrRateLimited):
		return MessageRateLimited
	case domain.IsKind(err, domain.ErrServiceUnavailable):
		return MessageServiceUnavailable
	case domain.IsKind(err, domain.ErrNetwork):
		return MessageNetwork
	case domain.IsKind(err, domain.ErrJobFailed):
		return MessageJobFailed
	default:
		return MessageGenericFailure
	}
}
