package runtime

import (
	"errors"
	"time"

	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	errspkg "github.com/drblury/catalogsync/internal/runtime/errors"
	idspkg "github.com/drblury/catalogsync/internal/runtime/ids"
	loggingpkg "github.com/drblury/catalogsync/internal/runtime/logging"
	metadatapkg "github.com/drblury/catalogsync/internal/runtime/metadata"
)

// TracerName names the OpenTelemetry tracer used for consumed messages.
const TracerName = "github.com/drblury/catalogsync/consumer"

// MetricsRegisterer is where router metrics are registered.
var MetricsRegisterer prometheus.Registerer = prometheus.DefaultRegisterer

// MiddlewareBuilder constructs a handler middleware using the provided service instance.
type MiddlewareBuilder func(*Service) (message.HandlerMiddleware, error)

// MiddlewareRegistration captures how a middleware should be registered on a Service router.
type MiddlewareRegistration struct {
	Name       string
	Middleware message.HandlerMiddleware
	Builder    MiddlewareBuilder
}

// RetryMiddlewareConfig tunes the fixed-backoff retry. Zero values fall back
// to the service config.
type RetryMiddlewareConfig struct {
	MaxRetries int
	Interval   time.Duration
	RetryIf    func(error) bool
}

func (cfg RetryMiddlewareConfig) withDefaults(conf RetryMiddlewareConfig) RetryMiddlewareConfig {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = conf.MaxRetries
	}
	if cfg.Interval <= 0 {
		cfg.Interval = conf.Interval
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = errspkg.IsTransient
	}
	return cfg
}

// DefaultMiddlewares returns the chain installed by NewService. The first
// entry is the outermost: retries happen inside the drop and poison layers,
// so only exhausted or non-retryable failures reach them.
func DefaultMiddlewares() []MiddlewareRegistration {
	return []MiddlewareRegistration{
		CorrelationIDMiddleware(),
		LogMessagesMiddleware(nil),
		DropFailedMiddleware(),
		PoisonQueueMiddleware(nil),
		TracerMiddleware(),
		MetricsMiddleware(),
		RetryMiddleware(RetryMiddlewareConfig{}),
		RecovererMiddleware(),
	}
}

// MetricsMiddleware adds Prometheus router metrics and exposes /metrics.
func MetricsMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "metrics",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			if !s.Conf.MetricsEnabled {
				return nil, nil
			}

			metricsBuilder := metrics.NewPrometheusMetricsBuilder(
				MetricsRegisterer,
				"catalogsync",
				s.Conf.PubSubSystem,
			)
			metricsBuilder.AddPrometheusRouterMetrics(s.router)

			if s.Conf.MetricsPort > 0 {
				s.RegisterHTTPHandler(s.Conf.MetricsPort, "/metrics", promhttp.Handler())
			}

			return metricsBuilder.NewRouterMiddleware().Middleware, nil
		},
	}
}

// CorrelationIDMiddleware ensures each processed message carries a correlation identifier.
func CorrelationIDMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name:       "correlation_id",
		Middleware: correlationIDMiddleware,
	}
}

// LogMessagesMiddleware logs every consumed message at debug level.
func LogMessagesMiddleware(logger loggingpkg.ServiceLogger) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "log_messages",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			l := logger
			if l == nil {
				l = s.Logger
			}
			if l == nil {
				return nil, errors.New("log messages middleware requires a logger")
			}
			return logMessagesMiddleware(l), nil
		},
	}
}

// DropFailedMiddleware is the last stop for a failed message: the error is
// logged and the message acknowledged so the partition keeps moving.
func DropFailedMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "drop_failed",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			return dropFailedMiddleware(s.Logger), nil
		},
	}
}

// PoisonQueueMiddleware forwards messages whose error matches filter to the
// configured poison queue. Without a configured queue nothing is installed.
// The default filter selects non-retryable errors.
func PoisonQueueMiddleware(filter func(error) bool) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "poison_queue",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			if s.Conf.PoisonQueue == "" {
				return nil, nil
			}
			if s.publisher == nil {
				return nil, errspkg.ErrPublisherRequired
			}
			f := filter
			if f == nil {
				f = errspkg.IsNonRetryable
			}
			return middleware.PoisonQueueWithFilter(s.publisher, s.Conf.PoisonQueue, f)
		},
	}
}

// TracerMiddleware wraps handler execution in an OpenTelemetry consumer span.
func TracerMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name:       "tracer",
		Middleware: tracerMiddleware,
	}
}

// RetryMiddleware retries transient failures with a fixed backoff.
func RetryMiddleware(cfg RetryMiddlewareConfig) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "retry",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			normalized := cfg.withDefaults(RetryMiddlewareConfig{
				MaxRetries: s.Conf.RetryMaxRetries,
				Interval:   s.Conf.RetryInterval,
			})
			return retryMiddleware(normalized, s.Logger), nil
		},
	}
}

// RecovererMiddleware converts panics into handler errors.
func RecovererMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name:       "recoverer",
		Middleware: middleware.Recoverer,
	}
}

// RegisterMiddleware attaches the supplied middleware to the router.
func (s *Service) RegisterMiddleware(cfg MiddlewareRegistration) error {
	if s.router == nil {
		return errors.New("router is not initialised")
	}

	var mw message.HandlerMiddleware
	switch {
	case cfg.Middleware != nil:
		mw = cfg.Middleware
	case cfg.Builder != nil:
		var err error
		mw, err = cfg.Builder(s)
		if err != nil {
			return err
		}
	default:
		return errors.New("middleware registration requires Middleware or Builder")
	}

	if mw == nil {
		return nil
	}

	s.router.AddMiddleware(mw)
	return nil
}

func correlationIDMiddleware(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		if msg.Metadata.Get(metadatapkg.KeyCorrelationID) == "" {
			msg.Metadata.Set(metadatapkg.KeyCorrelationID, idspkg.CreateULID())
		}
		return h(msg)
	}
}

func logMessagesMiddleware(logger loggingpkg.ServiceLogger) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			logger.Debug("Processing message", loggingpkg.LogFields{
				"message_uuid":   msg.UUID,
				"key":            msg.Metadata.Get(metadatapkg.KeyPartition),
				"event_kind":     msg.Metadata.Get(metadatapkg.KeyEventKind),
				"correlation_id": msg.Metadata.Get(metadatapkg.KeyCorrelationID),
				"payload":        string(msg.Payload),
			})
			return h(msg)
		}
	}
}

func dropFailedMiddleware(logger loggingpkg.ServiceLogger) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			produced, err := h(msg)
			if err == nil {
				return produced, nil
			}
			logger.Error("Dropping message after failed processing", err, loggingpkg.LogFields{
				"message_uuid":   msg.UUID,
				"key":            msg.Metadata.Get(metadatapkg.KeyPartition),
				"event_kind":     msg.Metadata.Get(metadatapkg.KeyEventKind),
				"correlation_id": msg.Metadata.Get(metadatapkg.KeyCorrelationID),
				"non_retryable":  errspkg.IsNonRetryable(err),
			})
			return nil, nil
		}
	}
}

func retryMiddleware(cfg RetryMiddlewareConfig, logger loggingpkg.ServiceLogger) message.HandlerMiddleware {
	return middleware.Retry{
		MaxRetries:          cfg.MaxRetries,
		InitialInterval:     cfg.Interval,
		MaxInterval:         cfg.Interval,
		Multiplier:          1,
		RandomizationFactor: 0,
		ShouldRetry: func(params middleware.RetryParams) bool {
			return cfg.RetryIf(params.Err)
		},
		Logger: loggingpkg.NewWatermillAdapter(logger),
	}.Middleware
}

func tracerMiddleware(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		ctx, span := otel.Tracer(TracerName).Start(
			msg.Context(),
			"catalogsync.consume",
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				attribute.String("messaging.message.id", msg.UUID),
				attribute.String("catalogsync.partition_key", msg.Metadata.Get(metadatapkg.KeyPartition)),
				attribute.String("catalogsync.event_kind", msg.Metadata.Get(metadatapkg.KeyEventKind)),
			),
		)
		defer span.End()
		msg.SetContext(ctx)

		produced, err := h(msg)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return produced, err
	}
}
