package casework

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{ErrEmptyLocation, KindInvalidInput},
		{ErrTaskNotFound, KindNotFound},
		{fmt.Errorf("claim: %w", ErrAlreadyClaimed), KindAlreadyClaimed},
		{ErrActiveCaseConflict, KindActiveCaseConflict},
		{ErrWrongOwner, KindWrongOwner},
		{ErrInvalidState, KindInvalidState},
		{ErrForbiddenRole, KindForbiddenRole},
		{ErrActorExists, KindDuplicate},
		{ErrActiveCaseDiverged, KindIntegrity},
		{errors.New("boom"), KindInternal},
		{nil, ""},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestStoreFailure(t *testing.T) {
	timeout := StoreFailure("get task", fmt.Errorf("query: %w", context.DeadlineExceeded))
	if !errors.Is(timeout, ErrStoreTimeout) || !IsTransient(timeout) {
		t.Errorf("expected transient timeout, got %v", timeout)
	}

	down := StoreFailure("get task", errors.New("connection refused"))
	if !errors.Is(down, ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", down)
	}

	if got := StoreFailure("get task", ErrTaskNotFound); got != ErrTaskNotFound {
		t.Errorf("typed errors should pass through, got %v", got)
	}
}

func TestErrorBodyRoundTrip(t *testing.T) {
	original := fmt.Errorf("claim task 7: %w", ErrAlreadyClaimed)

	body := NewErrorBody(original)
	back := body.Err()

	if !errors.Is(back, ErrAlreadyClaimed) {
		t.Errorf("round trip lost sentinel: %v", back)
	}
	if back.Error() != original.Error() {
		t.Errorf("message = %q, want %q", back.Error(), original.Error())
	}
	if !IsConflict(back) {
		t.Error("expected conflict classification to survive")
	}

	var nilBody *ErrorBody
	if nilBody.Err() != nil {
		t.Error("nil body should convert to nil error")
	}
}
