/*
Package runtime hosts the consumer side of the product sync pipeline on top of
Watermill.

The Service owns the broker publisher and subscriber, the router and the
middleware chain. Handlers are registered with RegisterConsumer and never
publish back; the replica reconciler is the only consumer in production.

# Middleware

DefaultMiddlewares installs, outermost first:

  - correlation_id: assigns a correlation id when the producer did not
  - log_messages: debug log of every consumed payload
  - drop_failed: logs and acks whatever still fails so the partition moves on
  - poison_queue: forwards non-retryable failures when a poison topic is set
  - tracer: OpenTelemetry consumer span per message
  - metrics: Prometheus router metrics, only when enabled
  - retry: fixed backoff, transient errors only
  - recoverer: turns handler panics into errors

JobHooks add audit and slow-handler logging around handlers.

# Sub-packages

  - config/: service configuration with validation and env loading
  - errors/: sentinel errors and retry classification
  - handlers/: typed consumers over decoded payloads
  - ids/: ULID generation for message ids
  - jsoncodec/: JSON marshaling
  - logging/: logger interface, slog and Watermill adapters
  - metadata/: reserved header keys
  - transport/: resolves the configured broker
*/
package runtime
