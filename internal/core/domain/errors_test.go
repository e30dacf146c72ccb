package domain

import (
	"errors"
	"testing"
	"time"
)

func TestWrapErrorKeepsKind(t *testing.T) {
	err := WrapError(ErrUnauthorized, "start job", errors.New("401"))
	if !IsKind(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized kind, got %v", err)
	}
	if IsKind(err, ErrNetwork) {
		t.Fatalf("kind leaked: %v", err)
	}
}

func TestSubscriptionLimitErrorMatchesKind(t *testing.T) {
	limitErr := &SubscriptionLimitError{Info: SubscriptionLimitInfo{
		Tier:      "free",
		ResetDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}}
	wrapped := WrapError(ErrSubscriptionLimit, "start job", limitErr)

	if !IsKind(wrapped, ErrSubscriptionLimit) {
		t.Fatalf("expected subscription limit kind, got %v", wrapped)
	}
	info := SubscriptionInfo(wrapped)
	if info == nil || info.Tier != "free" {
		t.Fatalf("expected payload to survive wrapping, got %+v", info)
	}
}

func TestSubscriptionInfoNilForOtherErrors(t *testing.T) {
	if info := SubscriptionInfo(errors.New("boom")); info != nil {
		t.Fatalf("expected nil, got %+v", info)
	}
}
