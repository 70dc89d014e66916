// Package dispatcher turns committed catalog writes into product change
// events and runs full catalog resyncs.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/drblury/catalogsync/internal/catalog"
	"github.com/drblury/catalogsync/internal/emitter"
	"github.com/drblury/catalogsync/internal/envelope"
	errspkg "github.com/drblury/catalogsync/internal/runtime/errors"
	loggingpkg "github.com/drblury/catalogsync/internal/runtime/logging"
	metricspkg "github.com/drblury/catalogsync/internal/runtime/metrics"
)

// Publisher is the emitter side used by the dispatcher.
type Publisher interface {
	Publish(ctx context.Context, env envelope.Envelope) error
	PublishBulk(ctx context.Context, products []catalog.Product) (emitter.BulkResult, error)
}

// Notifier is the full dispatcher surface. Decorate wraps any Notifier.
type Notifier interface {
	catalog.ChangeNotifier
	OnStartup(ctx context.Context) error
	OnForceResync(ctx context.Context) (ResyncResult, error)
}

// ResyncResult reports a completed resync. Count is how many envelopes the
// broker accepted and Failed how many it rejected.
type ResyncResult struct {
	Count   int    `json:"count"`
	Failed  int    `json:"failed,omitempty"`
	Message string `json:"message"`
}

// ResyncError is returned by OnForceResync when the catalog could not be read
// or the stream stopped early. Count is how many envelopes went out before
// the failure.
type ResyncError struct {
	Stage string
	Count int
	Err   error
}

func (e *ResyncError) Error() string {
	return fmt.Sprintf("resync failed during %s after %d records: %v", e.Stage, e.Count, e.Err)
}

func (e *ResyncError) Unwrap() error { return e.Err }

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock replaces time.Now for envelope timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithRegisterer registers the resync counters.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(d *Dispatcher) { d.registerer = reg }
}

// Dispatcher is called after every committed catalog write.
type Dispatcher struct {
	store   catalog.Reader
	emitter Publisher
	logger  loggingpkg.ServiceLogger

	now        func() time.Time
	registerer prometheus.Registerer
	resyncs    *prometheus.CounterVec

	startup  sync.Once
	resyncMu sync.Mutex
}

var _ Notifier = (*Dispatcher)(nil)

func New(store catalog.Reader, emitter Publisher, logger loggingpkg.ServiceLogger, opts ...Option) (*Dispatcher, error) {
	if store == nil {
		return nil, errspkg.ErrStoreRequired
	}
	if emitter == nil {
		return nil, errspkg.ErrPublisherRequired
	}
	if logger == nil {
		return nil, errspkg.ErrLoggerRequired
	}

	d := &Dispatcher{
		store:   store,
		emitter: emitter,
		logger:  logger.With(loggingpkg.LogFields{"component": "dispatcher"}),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	var err error
	d.resyncs, err = metricspkg.Register(d.registerer, metricspkg.NewCounterVec(
		"dispatcher", "resyncs_total", "Full catalog resyncs by trigger and outcome.", "trigger", "outcome"))
	if err != nil {
		return nil, fmt.Errorf("register dispatcher metrics: %w", err)
	}
	return d, nil
}

func (d *Dispatcher) OnCreated(ctx context.Context, p catalog.Product) error {
	return d.emitSnapshot(ctx, p, envelope.KindCreated)
}

func (d *Dispatcher) OnUpdated(ctx context.Context, p catalog.Product) error {
	return d.emitSnapshot(ctx, p, envelope.KindUpdated)
}

func (d *Dispatcher) OnDeleted(ctx context.Context, id int64) error {
	env, err := envelope.Deleted(id, d.now())
	if err != nil {
		return err
	}
	return d.emitter.Publish(ctx, env)
}

func (d *Dispatcher) emitSnapshot(ctx context.Context, p catalog.Product, kind envelope.EventKind) error {
	env, err := envelope.FromProduct(p, kind, d.now())
	if err != nil {
		return err
	}
	return d.emitter.Publish(ctx, env)
}

// OnStartup republishes the catalog the first time it is called and returns
// the outcome of that run; later calls return nil. Failures are logged at warn
// level so callers can ignore the error and keep booting.
func (d *Dispatcher) OnStartup(ctx context.Context) error {
	var err error
	d.startup.Do(func() {
		if _, err = d.resync(ctx, "startup"); err != nil {
			d.logger.Warn("Startup resync skipped", loggingpkg.LogFields{"error": err.Error()})
		}
	})
	return err
}

// OnForceResync republishes the whole catalog. Running it again simply
// re-emits the current state.
func (d *Dispatcher) OnForceResync(ctx context.Context) (ResyncResult, error) {
	return d.resync(ctx, "manual")
}

func (d *Dispatcher) resync(ctx context.Context, trigger string) (ResyncResult, error) {
	d.resyncMu.Lock()
	defer d.resyncMu.Unlock()

	fields := loggingpkg.LogFields{"trigger": trigger}
	products, err := d.store.ListAll(ctx)
	if err != nil {
		d.resyncs.WithLabelValues(trigger, "failed").Inc()
		d.logger.Error("Resync could not read the catalog", err, fields)
		return ResyncResult{}, &ResyncError{Stage: "fetch", Err: err}
	}

	if len(products) == 0 {
		d.resyncs.WithLabelValues(trigger, "empty").Inc()
		d.logger.Info("Resync found no products", fields)
		return ResyncResult{Count: 0, Message: "0 records"}, nil
	}

	bulk, err := d.emitter.PublishBulk(ctx, products)
	fields["emitted"] = bulk.Emitted
	fields["failed"] = bulk.Failed
	res := ResyncResult{Count: bulk.Delivered(), Failed: bulk.Failed}
	if err != nil {
		d.resyncs.WithLabelValues(trigger, "failed").Inc()
		d.logger.Error("Resync stopped early", err, fields)
		return res, &ResyncError{Stage: "publish", Count: res.Count, Err: err}
	}

	if res.Failed > 0 {
		d.resyncs.WithLabelValues(trigger, "partial").Inc()
		d.logger.Warn("Resync completed with delivery failures", fields)
		res.Message = fmt.Sprintf("%d records republished, %d failed", res.Count, res.Failed)
		return res, nil
	}

	d.resyncs.WithLabelValues(trigger, "completed").Inc()
	d.logger.Info("Resync completed", fields)
	res.Message = fmt.Sprintf("%d records republished", res.Count)
	return res, nil
}
