// Package reconciler applies product change events to the local replica.
//
// Each message goes through decode, kind check, dispatch by kind and apply.
// Upserts and deletes are idempotent so redelivered messages converge to the
// same replica state. Ordering per product relies on the transport delivering
// one partition to one handler at a time.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/drblury/catalogsync/internal/envelope"
	"github.com/drblury/catalogsync/internal/replica"
	runtimepkg "github.com/drblury/catalogsync/internal/runtime"
	errspkg "github.com/drblury/catalogsync/internal/runtime/errors"
	"github.com/drblury/catalogsync/internal/runtime/handlers"
	loggingpkg "github.com/drblury/catalogsync/internal/runtime/logging"
	metricspkg "github.com/drblury/catalogsync/internal/runtime/metrics"
)

// HandlerName is the router handler name used by Register.
const HandlerName = "replica-reconciler"

// Outcome is the terminal state of one envelope.
type Outcome string

const (
	OutcomeApplied     Outcome = "applied"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeRejected    Outcome = "rejected"
	OutcomeUnknownKind Outcome = "unknown_kind"
)

// Stats counts outcomes since the reconciler was created.
type Stats struct {
	Applied     uint64 `json:"applied"`
	Skipped     uint64 `json:"skipped"`
	Rejected    uint64 `json:"rejected"`
	UnknownKind uint64 `json:"unknownKind"`
	Failed      uint64 `json:"failed"`
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithCreateMissing makes upserts against an absent replica row insert it
// instead of logging and skipping.
func WithCreateMissing(enabled bool) Option {
	return func(r *Reconciler) { r.createMissing = enabled }
}

// WithRegisterer registers the reconciler metrics.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(r *Reconciler) { r.registerer = reg }
}

// Reconciler is the only writer of the replica store.
type Reconciler struct {
	store         replica.Store
	logger        loggingpkg.ServiceLogger
	createMissing bool
	registerer    prometheus.Registerer

	handler  message.NoPublishHandlerFunc
	outcomes *prometheus.CounterVec
	latency  *prometheus.HistogramVec

	applied, skipped, rejected, unknownKind, failed atomic.Uint64
}

func New(store replica.Store, logger loggingpkg.ServiceLogger, opts ...Option) (*Reconciler, error) {
	if store == nil {
		return nil, errspkg.ErrStoreRequired
	}
	if logger == nil {
		return nil, errspkg.ErrLoggerRequired
	}

	r := &Reconciler{
		store:  store,
		logger: logger.With(loggingpkg.LogFields{"component": "reconciler"}),
	}
	for _, opt := range opts {
		opt(r)
	}

	var err error
	r.outcomes, err = metricspkg.Register(r.registerer, metricspkg.NewCounterVec(
		"reconciler", "envelopes_total", "Consumed envelopes by kind and outcome.", "kind", "outcome"))
	if err != nil {
		return nil, fmt.Errorf("register reconciler metrics: %w", err)
	}
	r.latency, err = metricspkg.Register(r.registerer, metricspkg.NewHistogramVec(
		"reconciler", "apply_seconds", "Time spent applying an envelope to the replica.", metricspkg.DurationBuckets, "kind"))
	if err != nil {
		return nil, fmt.Errorf("register reconciler metrics: %w", err)
	}

	r.handler, err = handlers.BuildConsumer[envelope.Envelope](envelope.Decode, r.consume, r.logger)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Register attaches the reconciler to the product topic of svc.
func (r *Reconciler) Register(svc *runtimepkg.Service) error {
	if svc == nil {
		return errspkg.ErrServiceRequired
	}
	return runtimepkg.RegisterConsumer(svc, runtimepkg.ConsumerRegistration{
		Name:         HandlerName,
		ConsumeQueue: svc.Conf.ProductTopic,
		Handler:      r.Handle,
	})
}

// Handle is the Watermill handler. Malformed payloads and envelopes failing
// validation come back as non-retryable errors and transient store faults as
// transient errors; every other apply failure is logged and the message is
// consumed.
func (r *Reconciler) Handle(msg *message.Message) error {
	return r.handler(msg)
}

func (r *Reconciler) consume(ctx context.Context, mc handlers.MessageContext[envelope.Envelope]) error {
	env := mc.Payload
	_, err := r.Apply(ctx, env)
	if err == nil || errspkg.IsTransient(err) || errspkg.IsNonRetryable(err) {
		return err
	}

	r.failed.Add(1)
	r.outcomes.WithLabelValues(env.Kind.String(), "failed").Inc()
	r.logger.Error("Apply failed, message consumed", err, loggingpkg.LogFields{
		"product_id":     env.ID,
		"event_kind":     env.Kind.String(),
		"message_uuid":   mc.UUID,
		"correlation_id": mc.CorrelationID(),
	})
	return nil
}

// Apply runs the kind specific mutation for env.
func (r *Reconciler) Apply(ctx context.Context, env envelope.Envelope) (Outcome, error) {
	fields := loggingpkg.LogFields{"product_id": env.ID, "event_kind": env.Kind.String()}

	if !env.Kind.Valid() {
		r.logger.Warn("Unknown event kind, message consumed", fields)
		return r.record(env.Kind, OutcomeUnknownKind, 0), nil
	}
	if err := env.Validate(); err != nil {
		return r.record(env.Kind, OutcomeRejected, 0), errspkg.MarkNonRetryable("validate envelope", err)
	}

	started := time.Now()
	var (
		outcome Outcome
		err     error
	)
	if env.Kind == envelope.KindDeleted {
		outcome, err = r.applyDelete(ctx, env, fields)
	} else {
		outcome, err = r.applyUpsert(ctx, env, fields)
	}
	if err != nil {
		return "", err
	}
	return r.record(env.Kind, outcome, time.Since(started)), nil
}

func (r *Reconciler) applyUpsert(ctx context.Context, env envelope.Envelope, fields loggingpkg.LogFields) (Outcome, error) {
	if env.Stock == nil {
		r.logger.Warn("Envelope carries no stock, nothing to apply", fields)
		return OutcomeSkipped, nil
	}
	stock := *env.Stock
	fields["stock"] = stock

	current, found, err := r.store.Get(ctx, env.ID)
	if err != nil {
		return "", err
	}

	if !found {
		if !r.createMissing {
			r.logger.Warn("Replica record missing, skipping", fields)
			return OutcomeSkipped, nil
		}
		err := r.store.Create(ctx, replica.Record{ID: env.ID, Stock: stock})
		if err == nil {
			r.logger.Info("Replica record created", fields)
			return OutcomeApplied, nil
		}
		if !errors.Is(err, replica.ErrExists) {
			return "", err
		}
	} else if current.Stock == stock {
		fields["unchanged"] = true
		r.logger.Info("Replica record already up to date", fields)
		return OutcomeApplied, nil
	}

	if err := r.store.UpsertStock(ctx, env.ID, stock); err != nil {
		return "", err
	}
	if found {
		fields["previous_stock"] = current.Stock
	}
	r.logger.Info("Replica record updated", fields)
	return OutcomeApplied, nil
}

func (r *Reconciler) applyDelete(ctx context.Context, env envelope.Envelope, fields loggingpkg.LogFields) (Outcome, error) {
	_, found, err := r.store.Get(ctx, env.ID)
	if err != nil {
		return "", err
	}
	if !found {
		r.logger.Warn("Replica record already absent, skipping delete", fields)
		return OutcomeSkipped, nil
	}
	if err := r.store.Delete(ctx, env.ID); err != nil {
		return "", err
	}
	r.logger.Info("Replica record deleted", fields)
	return OutcomeApplied, nil
}

func (r *Reconciler) record(kind envelope.EventKind, outcome Outcome, took time.Duration) Outcome {
	switch outcome {
	case OutcomeApplied:
		r.applied.Add(1)
	case OutcomeSkipped:
		r.skipped.Add(1)
	case OutcomeRejected:
		r.rejected.Add(1)
	case OutcomeUnknownKind:
		r.unknownKind.Add(1)
	}
	label := kind.String()
	if outcome == OutcomeUnknownKind {
		label = "unknown"
	}
	r.outcomes.WithLabelValues(label, string(outcome)).Inc()
	if took > 0 {
		r.latency.WithLabelValues(label).Observe(took.Seconds())
	}
	return outcome
}

// Stats returns a snapshot of the outcome counters.
func (r *Reconciler) Stats() Stats {
	return Stats{
		Applied:     r.applied.Load(),
		Skipped:     r.skipped.Load(),
		Rejected:    r.rejected.Load(),
		UnknownKind: r.unknownKind.Load(),
		Failed:      r.failed.Load(),
	}
}
