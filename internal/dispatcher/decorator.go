package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/drblury/catalogsync/internal/catalog"
	configpkg "github.com/drblury/catalogsync/internal/runtime/config"
	loggingpkg "github.com/drblury/catalogsync/internal/runtime/logging"
)

// Operation describes one call into a Notifier.
type Operation struct {
	Name      string
	ProductID int64
	// Product is set for OnCreated and OnUpdated.
	Product *catalog.Product
}

func (op Operation) fields() loggingpkg.LogFields {
	f := loggingpkg.LogFields{"operation": op.Name}
	if op.ProductID != 0 {
		f["product_id"] = op.ProductID
	}
	return f
}

// OperationFunc runs an Operation.
type OperationFunc func(ctx context.Context, op Operation) error

// Middleware wraps an OperationFunc.
type Middleware func(next OperationFunc) OperationFunc

// DecoratorOptions selects the middlewares installed by Decorate.
type DecoratorOptions struct {
	Audit               bool
	AuditLogParameters  bool
	Timing              bool
	TimingWarnThreshold time.Duration
	Validation          bool
}

// DecoratorOptionsFromConfig reads the decorator switches from conf.
func DecoratorOptionsFromConfig(conf *configpkg.Config) DecoratorOptions {
	return DecoratorOptions{
		Audit:               conf.AuditEnabled,
		AuditLogParameters:  conf.AuditLogParameters,
		Timing:              conf.TimingEnabled,
		TimingWarnThreshold: conf.TimingWarnThreshold,
		Validation:          conf.ValidationEnabled,
	}
}

// Middlewares returns the configured chain, outermost first: audit, timing,
// validation.
func (o DecoratorOptions) Middlewares(logger loggingpkg.ServiceLogger) []Middleware {
	var mws []Middleware
	if o.Audit {
		mws = append(mws, AuditMiddleware(logger, o.AuditLogParameters))
	}
	if o.Timing {
		mws = append(mws, TimingMiddleware(logger, o.TimingWarnThreshold))
	}
	if o.Validation {
		mws = append(mws, ValidationMiddleware())
	}
	return mws
}

// Decorate wraps n with the middlewares selected by opts. With nothing
// enabled n is returned unchanged.
func Decorate(n Notifier, opts DecoratorOptions, logger loggingpkg.ServiceLogger) Notifier {
	return Wrap(n, opts.Middlewares(logger)...)
}

// Wrap wraps n with mws, the first being outermost.
func Wrap(n Notifier, mws ...Middleware) Notifier {
	if len(mws) == 0 {
		return n
	}
	return &decorated{next: n, mws: mws}
}

type decorated struct {
	next Notifier
	mws  []Middleware
}

func (d *decorated) run(ctx context.Context, op Operation, call OperationFunc) error {
	h := call
	for i := len(d.mws) - 1; i >= 0; i-- {
		h = d.mws[i](h)
	}
	return h(ctx, op)
}

func (d *decorated) OnCreated(ctx context.Context, p catalog.Product) error {
	return d.run(ctx, Operation{Name: "OnCreated", ProductID: p.ID, Product: &p}, func(ctx context.Context, _ Operation) error {
		return d.next.OnCreated(ctx, p)
	})
}

func (d *decorated) OnUpdated(ctx context.Context, p catalog.Product) error {
	return d.run(ctx, Operation{Name: "OnUpdated", ProductID: p.ID, Product: &p}, func(ctx context.Context, _ Operation) error {
		return d.next.OnUpdated(ctx, p)
	})
}

func (d *decorated) OnDeleted(ctx context.Context, id int64) error {
	return d.run(ctx, Operation{Name: "OnDeleted", ProductID: id}, func(ctx context.Context, _ Operation) error {
		return d.next.OnDeleted(ctx, id)
	})
}

func (d *decorated) OnStartup(ctx context.Context) error {
	return d.run(ctx, Operation{Name: "OnStartup"}, func(ctx context.Context, _ Operation) error {
		return d.next.OnStartup(ctx)
	})
}

func (d *decorated) OnForceResync(ctx context.Context) (ResyncResult, error) {
	var res ResyncResult
	err := d.run(ctx, Operation{Name: "OnForceResync"}, func(ctx context.Context, _ Operation) error {
		var err error
		res, err = d.next.OnForceResync(ctx)
		return err
	})
	return res, err
}

// AuditMiddleware logs every operation with its outcome. Product fields are
// included when logParameters is set.
func AuditMiddleware(logger loggingpkg.ServiceLogger, logParameters bool) Middleware {
	return func(next OperationFunc) OperationFunc {
		return func(ctx context.Context, op Operation) error {
			started := time.Now()
			err := next(ctx, op)

			fields := op.fields()
			fields["duration_ms"] = time.Since(started).Milliseconds()
			if logParameters && op.Product != nil {
				fields["name"] = op.Product.Name
				fields["price"] = op.Product.Price
				fields["category"] = op.Product.Category
				fields["stock"] = op.Product.Stock
			}
			if err != nil {
				logger.Error("Audit: operation failed", err, fields)
			} else {
				logger.Info("Audit: operation succeeded", fields)
			}
			return err
		}
	}
}

// TimingMiddleware logs the duration of each operation, at warn level once it
// exceeds threshold.
func TimingMiddleware(logger loggingpkg.ServiceLogger, threshold time.Duration) Middleware {
	return func(next OperationFunc) OperationFunc {
		return func(ctx context.Context, op Operation) error {
			started := time.Now()
			err := next(ctx, op)
			elapsed := time.Since(started)

			fields := op.fields()
			fields["duration_ms"] = elapsed.Milliseconds()
			if threshold > 0 && elapsed >= threshold {
				fields["threshold_ms"] = threshold.Milliseconds()
				logger.Warn("Slow dispatcher operation", fields)
			} else {
				logger.Debug("Dispatcher operation timed", fields)
			}
			return err
		}
	}
}

// ValidationMiddleware rejects invalid products and non-positive ids before
// anything is emitted.
func ValidationMiddleware() Middleware {
	return func(next OperationFunc) OperationFunc {
		return func(ctx context.Context, op Operation) error {
			if op.Product != nil {
				if err := catalog.Validate(*op.Product); err != nil {
					return fmt.Errorf("%s: %w", op.Name, err)
				}
			}
			if op.Name == "OnDeleted" && op.ProductID <= 0 {
				return fmt.Errorf("%s: id must be positive, got %d", op.Name, op.ProductID)
			}
			return next(ctx, op)
		}
	}
}
