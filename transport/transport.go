// Package transport defines the broker abstraction used to carry product
// change events. Each broker lives in its own sub-package and registers a
// Builder with the registry from an init function.
package transport

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Transport combines a publisher and subscriber pair produced by a builder.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Close closes the publisher and subscriber, returning the first error.
func (t Transport) Close() error {
	var firstErr error
	if t.Publisher != nil {
		if err := t.Publisher.Close(); err != nil {
			firstErr = err
		}
	}
	if t.Subscriber != nil {
		if err := t.Subscriber.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Builder creates a transport from config.
type Builder func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error)

// Config exposes the settings brokers need without importing the full
// service configuration.
type Config interface {
	GetPubSubSystem() string

	GetKafkaBrokers() []string
	GetKafkaClientID() string
	GetKafkaConsumerGroup() string

	GetRabbitMQURL() string

	GetNATSURL() string

	// Consumer group liveness and offset commit cadence.
	GetAutoCommitInterval() time.Duration
	GetSessionTimeout() time.Duration
	GetHeartbeatInterval() time.Duration
}

// CapabilitiesProvider is implemented by transports that can report their capabilities.
type CapabilitiesProvider interface {
	Capabilities() Capabilities
}

// StaticConfig is a plain Config value for programmatic setups and tests.
type StaticConfig struct {
	PubSubSystem       string
	KafkaBrokers       []string
	KafkaClientID      string
	KafkaConsumerGroup string
	RabbitMQURL        string
	NATSURL            string
	AutoCommitInterval time.Duration
	SessionTimeout     time.Duration
	HeartbeatInterval  time.Duration
}

func (s StaticConfig) GetPubSubSystem() string              { return s.PubSubSystem }
func (s StaticConfig) GetKafkaBrokers() []string            { return s.KafkaBrokers }
func (s StaticConfig) GetKafkaClientID() string             { return s.KafkaClientID }
func (s StaticConfig) GetKafkaConsumerGroup() string        { return s.KafkaConsumerGroup }
func (s StaticConfig) GetRabbitMQURL() string               { return s.RabbitMQURL }
func (s StaticConfig) GetNATSURL() string                   { return s.NATSURL }
func (s StaticConfig) GetAutoCommitInterval() time.Duration { return s.AutoCommitInterval }
func (s StaticConfig) GetSessionTimeout() time.Duration     { return s.SessionTimeout }
func (s StaticConfig) GetHeartbeatInterval() time.Duration  { return s.HeartbeatInterval }
