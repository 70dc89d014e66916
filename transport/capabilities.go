package transport

// Capabilities describes what a broker guarantees. The sync pipeline cares
// mostly about ordering: events of one product must be consumed in publish
// order.
type Capabilities struct {
	// Name is the registered transport name.
	Name string

	// SupportsOrdering indicates messages within a partition or stream are
	// delivered in publish order.
	SupportsOrdering bool

	// SupportsPartitioning indicates the publish key selects a partition, so
	// messages sharing a key share an ordered stream.
	SupportsPartitioning bool

	// SupportsAck indicates the transport supports explicit acknowledgment.
	SupportsAck bool

	// SupportsNack indicates the transport redelivers negatively acknowledged messages.
	SupportsNack bool

	// SupportsNativeDLQ indicates the broker can dead-letter on its own.
	SupportsNativeDLQ bool

	// MaxMessageSize in bytes, 0 when unknown.
	MaxMessageSize int64
}

// PreservesKeyOrder reports whether two events published with the same key
// are consumed in the order they were published.
func (c Capabilities) PreservesKeyOrder() bool {
	return c.SupportsOrdering
}

// SupportsReliableDelivery reports at-least-once semantics (ack + nack).
func (c Capabilities) SupportsReliableDelivery() bool {
	return c.SupportsAck && c.SupportsNack
}

// Predefined capability sets for the built-in transports.
var (
	// ChannelCapabilities for the in-process transport used in tests.
	ChannelCapabilities = Capabilities{
		Name:             "channel",
		SupportsOrdering: true,
		SupportsAck:      true,
		SupportsNack:     true,
	}

	// KafkaCapabilities for Apache Kafka. Offsets are committed, never nacked.
	KafkaCapabilities = Capabilities{
		Name:                 "kafka",
		SupportsOrdering:     true,
		SupportsPartitioning: true,
		SupportsAck:          true,
		MaxMessageSize:       1048576,
	}

	// RabbitMQCapabilities for RabbitMQ with one durable queue per consumer
	// group and prefetch 1.
	RabbitMQCapabilities = Capabilities{
		Name:              "rabbitmq",
		SupportsOrdering:  true,
		SupportsAck:       true,
		SupportsNack:      true,
		SupportsNativeDLQ: true,
	}

	// NATSCapabilities for NATS Core. No persistence and no redelivery.
	NATSCapabilities = Capabilities{
		Name:           "nats",
		MaxMessageSize: 1048576,
	}
)

// GetCapabilities returns the capabilities registered for a transport name.
func GetCapabilities(transportName string) Capabilities {
	return DefaultRegistry.GetCapabilities(transportName)
}
