package usecase

import (
	"errors"
	"testing"

	"github.com/meducate/labs-orchestrator/internal/core/domain"
)

func TestUserMessageCoversTaxonomy(t *testing.T) {
	cases := []struct {
		kind error
		want string
	}{
		{domain.ErrValidation, MessageValidation},
		{domain.ErrPayloadTooLarge, MessagePayloadTooLarge},
		{domain.ErrBadRequest, MessageBadRequest},
		{domain.ErrUnauthorized, MessageUnauthorized},
		{domain.ErrSubscriptionLimit, MessageSubscriptionLimit},
		{domain.ErrRateLimited, MessageRateLimited},
		{domain.ErrServiceUnavailable, MessageServiceUnavailable},
		{domain.ErrNetwork, MessageNetwork},
		{domain.ErrJobFailed, MessageJobFailed},
	}
	for _, tc := range cases {
		err := domain.WrapError(tc.kind, "start job", errors.New("detail"))
		if got := UserMessage(err); got != tc.want {
			t.Fatalf("UserMessage(%v) = %q, want %q", tc.kind, got, tc.want)
		}
	}
}

func TestUserMessageFallback(t *testing.T) {
	if got := UserMessage(errors.New("unexpected")); got != MessageGenericFailure {
		t.Fatalf("UserMessage() = %q", got)
	}
	if got := UserMessage(nil); got != "" {
		t.Fatalf("UserMessage(nil) = %q", got)
	}
}
