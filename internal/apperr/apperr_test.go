package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesKindAndCode(t *testing.T) {
	err := fmt.Errorf("place order: %w", ErrExpired.With("access code %q expired", "SPRING"))

	if !errors.Is(err, ErrExpired) {
		t.Error("expected errors.Is to match the specific error")
	}
	if !errors.Is(err, KindExpiredOrExhausted) {
		t.Error("expected errors.Is to match the kind")
	}
	if errors.Is(err, ErrUsageLimitReached) {
		t.Error("did not expect a match against a different code of the same kind")
	}
	if errors.Is(err, KindNotFound) {
		t.Error("did not expect a match against a different kind")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"not found", ErrNotFound, KindNotFound},
		{"wrapped validation", fmt.Errorf("x: %w", ErrInvalidCoupon), KindValidation},
		{"already rejected", ErrAlreadyRejected, KindInvalidState},
		{"duplicate order", ErrDuplicateOrder, KindConflict},
		{"exam closed", ErrExamClosed, KindExpiredOrExhausted},
		{"infrastructure", errors.New("disk full"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("unique constraint")
	err := ErrConflict.Wrap(cause)
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}
	if CodeOf(err) != "Conflict" {
		t.Errorf("CodeOf() = %q, want Conflict", CodeOf(err))
	}
	if IsDomain(cause) {
		t.Error("plain error should not be a domain error")
	}
}
