package httpadapter

import (
	"errors"
	"net/http"

	"github.com/meducate/labs-orchestrator/internal/core/domain"
	"github.com/meducate/labs-orchestrator/internal/core/usecase"
)

// mapError renders domain errors as HTTP status and body. A subscription
// limit keeps its structured payload so clients can show tier and usage.
func mapError(err error) (int, any) {
	if info := domain.SubscriptionInfo(err); info != nil {
		return http.StatusPaymentRequired, info
	}
	if errors.Is(err, usecase.ErrJobAlreadyRunning) {
		return http.StatusConflict, map[string]string{"error": usecase.ErrJobAlreadyRunning.Error()}
	}

	message := usecase.UserMessage(err)
	switch {
	case domain.IsKind(err, domain.ErrValidation):
		return http.StatusBadRequest, map[string]string{"error": message}
	case domain.IsKind(err, domain.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, map[string]string{"error": message}
	case domain.IsKind(err, domain.ErrBadRequest):
		return http.StatusBadRequest, map[string]string{"error": message}
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, map[string]string{"error": message}
	case domain.IsKind(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, map[string]string{"error": message}
	case domain.IsKind(err, domain.ErrServiceUnavailable),
		domain.IsKind(err, domain.ErrNetwork):
		return http.StatusServiceUnavailable, map[string]string{"error": message}
	default:
		return http.StatusInternalServerError, map[string]string{"error": message}
	}
}
