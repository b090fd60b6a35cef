package services_test

import (
	"errors"
	"fmt"
	"testing"

	"scribed/internal/services"
)

func TestWrapPreservesMarkerAndCause(t *testing.T) {
	cause := errors.New("model weights exceed device memory")
	err := services.Wrap(services.ErrResourceExhausted, "executor", "acquire engine", "model load failed", cause)
	if !errors.Is(err, services.ErrResourceExhausted) {
		t.Fatalf("expected marker to survive wrapping: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to survive wrapping: %v", err)
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "executor", "persist", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient default, got %v", err)
	}
}

func TestFailureKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{services.Wrap(services.ErrResourceExhausted, "executor", "acquire", "", nil), "resource_exhausted"},
		{services.Wrap(services.ErrEngine, "whisper", "transcribe", "", nil), "engine_error"},
		{services.Wrap(services.ErrValidation, "server", "parse", "", nil), "validation_error"},
		{fmt.Errorf("plain: %w", errors.New("boom")), "internal_error"},
	}
	for _, tc := range cases {
		if got := services.FailureKind(tc.err); got != tc.want {
			t.Fatalf("FailureKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
