package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	ErrServiceRequired      = sterrors.New("catalogsync: sync service is required")
	ErrHandlerRequired      = sterrors.New("catalogsync: handler function is required")
	ErrConsumeQueueRequired = sterrors.New("catalogsync: consume topic is required")
	ErrHandlerNameRequired  = sterrors.New("catalogsync: handler name is required")
	ErrPublisherRequired    = sterrors.New("catalogsync: publisher is required")
	ErrTopicRequired        = sterrors.New("catalogsync: topic is required")
	ErrConfigRequired       = sterrors.New("catalogsync: configuration is required")
	ErrLoggerRequired       = sterrors.New("catalogsync: logger is required")
	ErrStoreRequired        = sterrors.New("catalogsync: store is required")
	ErrEventPayloadRequired = sterrors.New("catalogsync: event payload is required")
	ErrEmitterClosed        = sterrors.New("catalogsync: emitter is closed")
)

// NonRetryableError marks a failure that will never succeed on redelivery,
// such as a payload that cannot be decoded or a message with broken headers.
type NonRetryableError struct {
	Reason string
	Err    error
}

func (e *NonRetryableError) Error() string {
	if e.Err == nil {
		return "catalogsync: non-retryable: " + e.Reason
	}
	return fmt.Sprintf("catalogsync: non-retryable: %s: %v", e.Reason, e.Err)
}

func (e *NonRetryableError) Unwrap() error { return e.Err }

// TransientError marks a transport-level fault that may succeed when retried.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "catalogsync: transient: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error { return e.Err }

// MarkNonRetryable wraps err so that the retry middleware skips it.
func MarkNonRetryable(reason string, err error) error {
	return &NonRetryableError{Reason: reason, Err: err}
}

// MarkTransient wraps err so that the retry middleware retries it. A nil
// error stays nil.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsNonRetryable reports whether err (or anything it wraps) is a NonRetryableError.
func IsNonRetryable(err error) bool {
	var target *NonRetryableError
	return sterrors.As(err, &target)
}

// IsTransient reports whether err is a TransientError that is not also
// classified as non-retryable.
func IsTransient(err error) bool {
	if IsNonRetryable(err) {
		return false
	}
	var target *TransientError
	return sterrors.As(err, &target)
}
