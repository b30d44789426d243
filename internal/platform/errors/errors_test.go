package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestError_Is(t *testing.T) {
	err := New(CodeSessionFull, "room is full")

	if !stderrors.Is(err, New(CodeSessionFull, "different message")) {
		t.Error("errors with the same code should match")
	}
	if stderrors.Is(err, New(CodeUnauthorized, "room is full")) {
		t.Error("errors with different codes should not match")
	}
}

func TestWrap_Unwrap(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Wrap(CodeConnectionLost, "peer dropped", cause)

	if !stderrors.Is(err, cause) {
		t.Error("wrapped cause should be reachable through errors.Is")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"domain error", New(CodeInvalidJoinCode, "bad code"), CodeInvalidJoinCode},
		{"wrapped domain error", fmt.Errorf("outer: %w", New(CodeSessionNotFound, "missing")), CodeSessionNotFound},
		{"plain error", stderrors.New("boom"), CodeUnknown},
		{"nil", nil, CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCode_Retryable(t *testing.T) {
	if CodeValidationFailed.Retryable() {
		t.Error("validation failures are final")
	}
	if !CodeHandoverInProgress.Retryable() {
		t.Error("handover is a transient condition")
	}
}
