package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"ErrServiceRequired", ErrServiceRequired, "catalogsync: sync service is required"},
		{"ErrHandlerRequired", ErrHandlerRequired, "catalogsync: handler function is required"},
		{"ErrConsumeQueueRequired", ErrConsumeQueueRequired, "catalogsync: consume topic is required"},
		{"ErrHandlerNameRequired", ErrHandlerNameRequired, "catalogsync: handler name is required"},
		{"ErrPublisherRequired", ErrPublisherRequired, "catalogsync: publisher is required"},
		{"ErrTopicRequired", ErrTopicRequired, "catalogsync: topic is required"},
		{"ErrConfigRequired", ErrConfigRequired, "catalogsync: configuration is required"},
		{"ErrLoggerRequired", ErrLoggerRequired, "catalogsync: logger is required"},
		{"ErrStoreRequired", ErrStoreRequired, "catalogsync: store is required"},
		{"ErrEventPayloadRequired", ErrEventPayloadRequired, "catalogsync: event payload is required"},
		{"ErrEmitterClosed", ErrEmitterClosed, "catalogsync: emitter is closed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestNonRetryableError(t *testing.T) {
	inner := errors.New("bad json")
	err := MarkNonRetryable("decode envelope", inner)

	if !IsNonRetryable(err) {
		t.Fatal("expected error to be non-retryable")
	}
	if !errors.Is(err, inner) {
		t.Fatal("expected wrapped cause to be reachable")
	}
	if got := err.Error(); got != "catalogsync: non-retryable: decode envelope: bad json" {
		t.Fatalf("unexpected message %q", got)
	}

	wrapped := fmt.Errorf("handler: %w", err)
	if !IsNonRetryable(wrapped) {
		t.Fatal("expected classification to survive wrapping")
	}
}

func TestNonRetryableErrorWithoutCause(t *testing.T) {
	err := &NonRetryableError{Reason: "missing header"}
	if got := err.Error(); got != "catalogsync: non-retryable: missing header" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestTransientError(t *testing.T) {
	if MarkTransient(nil) != nil {
		t.Fatal("expected nil to stay nil")
	}

	inner := errors.New("connection reset")
	err := MarkTransient(inner)
	if !IsTransient(err) {
		t.Fatal("expected error to be transient")
	}
	if !errors.Is(err, inner) {
		t.Fatal("expected wrapped cause to be reachable")
	}
	if IsTransient(inner) {
		t.Fatal("plain errors are not transient")
	}
}

func TestNonRetryableWinsOverTransient(t *testing.T) {
	err := MarkTransient(MarkNonRetryable("bad header", nil))
	if IsTransient(err) {
		t.Fatal("non-retryable classification must short-circuit transient")
	}
}
