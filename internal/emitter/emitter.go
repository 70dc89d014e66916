// Package emitter publishes product change envelopes to the bus.
package emitter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/drblury/catalogsync/internal/catalog"
	"github.com/drblury/catalogsync/internal/envelope"
	runtimepkg "github.com/drblury/catalogsync/internal/runtime"
	errspkg "github.com/drblury/catalogsync/internal/runtime/errors"
	loggingpkg "github.com/drblury/catalogsync/internal/runtime/logging"
	metadatapkg "github.com/drblury/catalogsync/internal/runtime/metadata"
	metricspkg "github.com/drblury/catalogsync/internal/runtime/metrics"
)

// TracerName names the OpenTelemetry tracer of publish spans.
const TracerName = "github.com/drblury/catalogsync/emitter"

// Delivery is the outcome of one publish.
type Delivery struct {
	Envelope    envelope.Envelope
	Topic       string
	Key         string
	MessageUUID string
	Duration    time.Duration
	// Err is nil when the broker accepted the message.
	Err error
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithDeliveryCallback is called once per publish after the outcome is known.
// It runs on the delivery goroutine for Publish and inline for PublishBulk.
func WithDeliveryCallback(fn func(Delivery)) Option {
	return func(e *Emitter) { e.onDelivery = fn }
}

// WithClock replaces time.Now for envelope timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Emitter) { e.now = now }
}

// WithBulkLimiter paces PublishBulk.
func WithBulkLimiter(l *rate.Limiter) Option {
	return func(e *Emitter) { e.limiter = l }
}

// WithBulkRate paces PublishBulk to perSecond envelopes. Zero or less is unlimited.
func WithBulkRate(perSecond float64) Option {
	return func(e *Emitter) {
		if perSecond > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithQueueSize bounds the number of envelopes waiting for delivery. Publish
// blocks while the queue is full.
func WithQueueSize(n int) Option {
	return func(e *Emitter) {
		if n > 0 {
			e.queueSize = n
		}
	}
}

// WithRegisterer registers the emitter counters.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(e *Emitter) { e.registerer = reg }
}

// Emitter turns envelopes into keyed messages. Publish is fire and forget:
// delivery failures are logged and counted but never returned, because the
// authoritative write they describe has already committed.
type Emitter struct {
	publisher message.Publisher
	topic     string
	logger    loggingpkg.ServiceLogger

	now        func() time.Time
	limiter    *rate.Limiter
	onDelivery func(Delivery)
	registerer prometheus.Registerer

	published *prometheus.CounterVec
	latency   *prometheus.HistogramVec

	queueSize int
	queue     chan pending
	done      chan struct{}

	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
}

type pending struct {
	ctx context.Context
	env envelope.Envelope
	msg *message.Message
}

// DefaultQueueSize is the delivery queue capacity unless WithQueueSize is set.
const DefaultQueueSize = 256

func New(publisher message.Publisher, topic string, logger loggingpkg.ServiceLogger, opts ...Option) (*Emitter, error) {
	if publisher == nil {
		return nil, errspkg.ErrPublisherRequired
	}
	if topic == "" {
		return nil, errspkg.ErrTopicRequired
	}
	if logger == nil {
		return nil, errspkg.ErrLoggerRequired
	}

	e := &Emitter{
		publisher: publisher,
		topic:     topic,
		logger:    logger.With(loggingpkg.LogFields{"component": "emitter", "topic": topic}),
		now:       time.Now,
		queueSize: DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(e)
	}

	var err error
	e.published, err = metricspkg.Register(e.registerer, metricspkg.NewCounterVec(
		"emitter", "published_total", "Envelopes handed to the broker by kind and outcome.", "kind", "outcome"))
	if err != nil {
		return nil, fmt.Errorf("register emitter metrics: %w", err)
	}
	e.latency, err = metricspkg.Register(e.registerer, metricspkg.NewHistogramVec(
		"emitter", "publish_seconds", "Time until the broker acknowledged a publish.", metricspkg.DurationBuckets, "kind"))
	if err != nil {
		return nil, fmt.Errorf("register emitter metrics: %w", err)
	}

	e.queue = make(chan pending, e.queueSize)
	e.done = make(chan struct{})
	go e.run()
	return e, nil
}

// run delivers queued envelopes one at a time so the broker sees them in the
// order Publish accepted them.
func (e *Emitter) run() {
	defer close(e.done)
	for p := range e.queue {
		e.deliver(p.ctx, p.env, p.msg)
		e.inflight.Done()
	}
}

// Topic returns the topic envelopes are published to.
func (e *Emitter) Topic() string { return e.topic }

// Now returns the emitter clock.
func (e *Emitter) Now() time.Time { return e.now() }

// Publish validates and encodes env, then queues it for the delivery
// goroutine. Envelopes are delivered in the order they were accepted. Only
// construction errors are returned.
func (e *Emitter) Publish(ctx context.Context, env envelope.Envelope) error {
	msg, err := e.build(env)
	if err != nil {
		return err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return errspkg.ErrEmitterClosed
	}

	e.inflight.Add(1)
	e.queue <- pending{ctx: context.WithoutCancel(ctx), env: env, msg: msg}
	return nil
}

// BulkResult counts the envelopes of one PublishBulk call.
type BulkResult struct {
	// Emitted is how many envelopes were handed to the broker.
	Emitted int
	// Failed is how many of those the broker did not accept.
	Failed int
}

// Delivered is how many envelopes the broker accepted.
func (r BulkResult) Delivered() int { return r.Emitted - r.Failed }

// PublishBulk emits one INITIAL_LOAD envelope per product, one at a time and
// paced by the bulk limiter. Delivery failures are logged and counted in the
// result; encode errors and cancellation stop the stream and are returned
// together with the counts so far.
func (e *Emitter) PublishBulk(ctx context.Context, products []catalog.Product) (BulkResult, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return BulkResult{}, errspkg.ErrEmitterClosed
	}

	started := time.Now()
	var res BulkResult
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return res, err
			}
		}

		env, err := envelope.FromProduct(p, envelope.KindInitialLoad, e.now())
		if err != nil {
			return res, fmt.Errorf("build initial load for product %d: %w", p.ID, err)
		}
		msg, err := e.build(env)
		if err != nil {
			return res, err
		}

		if d := e.deliver(ctx, env, msg); d.Err != nil {
			res.Failed++
		}
		res.Emitted++
	}

	e.logger.Info("Bulk publish finished", loggingpkg.LogFields{
		"emitted":     res.Emitted,
		"failed":      res.Failed,
		"duration_ms": time.Since(started).Milliseconds(),
	})
	return res, nil
}

// Wait blocks until every queued publish has been delivered.
func (e *Emitter) Wait() {
	e.inflight.Wait()
}

// Close rejects further publishes and waits for queued ones to be delivered.
func (e *Emitter) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()
	<-e.done
	return nil
}

func (e *Emitter) build(env envelope.Envelope) (*message.Message, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	payload, err := env.Encode()
	if err != nil {
		return nil, err
	}
	return runtimepkg.NewMessage(payload, metadatapkg.New(
		metadatapkg.KeyPartition, env.Key(),
		metadatapkg.KeyProductID, env.Key(),
		metadatapkg.KeyEventKind, env.Kind.String(),
	))
}

func (e *Emitter) deliver(ctx context.Context, env envelope.Envelope, msg *message.Message) Delivery {
	ctx, span := otel.Tracer(TracerName).Start(ctx, "catalogsync.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.destination.name", e.topic),
			attribute.String("messaging.message.id", msg.UUID),
			attribute.String("catalogsync.partition_key", env.Key()),
			attribute.String("catalogsync.event_kind", env.Kind.String()),
		),
	)
	defer span.End()

	started := time.Now()
	err := runtimepkg.Publish(ctx, e.publisher, e.topic, msg)
	d := Delivery{
		Envelope:    env,
		Topic:       e.topic,
		Key:         env.Key(),
		MessageUUID: msg.UUID,
		Duration:    time.Since(started),
		Err:         err,
	}

	fields := loggingpkg.LogFields{
		"key":          d.Key,
		"event_kind":   env.Kind.String(),
		"message_uuid": d.MessageUUID,
		"duration_ms":  d.Duration.Milliseconds(),
	}
	outcome := "delivered"
	if err != nil {
		outcome = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error("Product event delivery failed", err, fields)
	} else {
		e.logger.Info("Product event delivered", fields)
	}

	e.published.WithLabelValues(env.Kind.String(), outcome).Inc()
	e.latency.WithLabelValues(env.Kind.String()).Observe(d.Duration.Seconds())
	if e.onDelivery != nil {
		e.onDelivery(d)
	}
	return d
}
