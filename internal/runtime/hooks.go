package runtime

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	loggingpkg "github.com/drblury/catalogsync/internal/runtime/logging"
	metadatapkg "github.com/drblury/catalogsync/internal/runtime/metadata"
)

// JobContext describes one handler execution to hooks.
type JobContext struct {
	// HandlerName is the router handler processing the message.
	HandlerName string
	// Topic the message was consumed from.
	Topic string
	// MessageUUID is the unique identifier of the message.
	MessageUUID string
	// Key is the partition key (the product id).
	Key string
	// EventKind mirrors the envelope kind header.
	EventKind string
	// Metadata contains the message metadata.
	Metadata message.Metadata
	// Context is the context associated with the message.
	Context context.Context
	// StartedAt is when the handler started.
	StartedAt time.Time
	// Duration is only set for OnJobDone and OnJobError.
	Duration time.Duration
}

func (c JobContext) fields() loggingpkg.LogFields {
	return loggingpkg.LogFields{
		"handler":      c.HandlerName,
		"topic":        c.Topic,
		"message_uuid": c.MessageUUID,
		"key":          c.Key,
		"event_kind":   c.EventKind,
	}
}

// JobHooks defines callbacks for handler lifecycle events. Nil hooks are skipped.
type JobHooks struct {
	OnJobStart func(ctx JobContext)
	OnJobDone  func(ctx JobContext)
	OnJobError func(ctx JobContext, err error)
}

// Merge returns hooks calling h first, then other.
func (h JobHooks) Merge(other JobHooks) JobHooks {
	return JobHooks{
		OnJobStart: chainHooks(h.OnJobStart, other.OnJobStart),
		OnJobDone:  chainHooks(h.OnJobDone, other.OnJobDone),
		OnJobError: chainErrorHooks(h.OnJobError, other.OnJobError),
	}
}

func chainHooks(a, b func(JobContext)) func(JobContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx JobContext) {
		a(ctx)
		b(ctx)
	}
}

func chainErrorHooks(a, b func(JobContext, error)) func(JobContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx JobContext, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}

// JobHooksMiddleware registers hooks as router middleware.
func JobHooksMiddleware(hooks JobHooks) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name:       "job_hooks",
		Middleware: jobHooksMiddleware(hooks),
	}
}

func jobHooksMiddleware(hooks JobHooks) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			ctx := msg.Context()
			jobCtx := JobContext{
				HandlerName: message.HandlerNameFromCtx(ctx),
				Topic:       message.SubscribeTopicFromCtx(ctx),
				MessageUUID: msg.UUID,
				Key:         msg.Metadata.Get(metadatapkg.KeyPartition),
				EventKind:   msg.Metadata.Get(metadatapkg.KeyEventKind),
				Metadata:    msg.Metadata,
				Context:     ctx,
				StartedAt:   time.Now(),
			}

			if hooks.OnJobStart != nil {
				hooks.OnJobStart(jobCtx)
			}

			msgs, err := h(msg)
			jobCtx.Duration = time.Since(jobCtx.StartedAt)

			if err != nil {
				if hooks.OnJobError != nil {
					hooks.OnJobError(jobCtx, err)
				}
			} else if hooks.OnJobDone != nil {
				hooks.OnJobDone(jobCtx)
			}

			return msgs, err
		}
	}
}

// LoggingHooks audits handler executions: start at debug, completion at
// info and failures at error.
func LoggingHooks(logger loggingpkg.ServiceLogger) JobHooks {
	return JobHooks{
		OnJobStart: func(ctx JobContext) {
			logger.Debug("Job started", ctx.fields())
		},
		OnJobDone: func(ctx JobContext) {
			fields := ctx.fields()
			fields["duration_ms"] = ctx.Duration.Milliseconds()
			logger.Info("Job completed", fields)
		},
		OnJobError: func(ctx JobContext, err error) {
			fields := ctx.fields()
			fields["duration_ms"] = ctx.Duration.Milliseconds()
			logger.Error("Job failed", err, fields)
		},
	}
}

// TimingHooks warns when a handler runs longer than threshold.
func TimingHooks(logger loggingpkg.ServiceLogger, threshold time.Duration) JobHooks {
	check := func(ctx JobContext) {
		if threshold <= 0 || ctx.Duration < threshold {
			return
		}
		fields := ctx.fields()
		fields["duration_ms"] = ctx.Duration.Milliseconds()
		fields["threshold_ms"] = threshold.Milliseconds()
		logger.Warn("Slow job", fields)
	}
	return JobHooks{
		OnJobDone:  check,
		OnJobError: func(ctx JobContext, _ error) { check(ctx) },
	}
}
