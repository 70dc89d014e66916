// Package catalogsync keeps a read replica of a product catalog in step with
// the authoritative store by publishing a change event for every committed
// write and applying those events on the replica side.
//
// The producer half is made of Dispatcher and Emitter. The catalog Service
// calls the Dispatcher after each committed create, update or delete; the
// Dispatcher builds an Envelope and the Emitter publishes it keyed by product
// id, so that one partition carries every event of a product in order. A full
// resync (at startup or through the admin endpoint) republishes the whole
// catalog as INITIAL_LOAD events.
//
// The consumer half is the Reconciler, registered on the Watermill router of
// a Service. It decodes each Envelope and applies it to a ReplicaStore. Every
// operation is idempotent, so redelivered messages converge to the same
// replica state.
//
// # Transports
//
// The broker is chosen by Config.PubSubSystem:
//   - channel: in-process Go channels for tests and local runs
//   - kafka: partitioned by product id, the production setup
//   - rabbitmq: durable AMQP queue per consumer group
//   - nats: queue group per consumer group
//
// # Middleware
//
// The default consumer chain adds correlation IDs, structured logging,
// OpenTelemetry tracing, optional Prometheus metrics, fixed-interval retries
// for transient faults, optional poison queue forwarding for malformed
// messages, and panic recovery. Job hooks (LoggingHooks, TimingHooks) can be
// appended through ServiceDependencies.Middlewares.
package catalogsync
