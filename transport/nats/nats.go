// Package nats provides the NATS Core transport. A single subscriber per
// queue group reads the subject, which keeps a single publisher's order but
// offers no redelivery; prefer kafka in production.
package nats

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsio "github.com/nats-io/nats.go"

	"github.com/drblury/catalogsync/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "nats"

// ConnectionName identifies this service to the NATS server when no client
// id is configured.
const ConnectionName = "catalogsync"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return nats.NewPublisher(cfg, logger)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg nats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return nats.NewSubscriber(cfg, logger)
}

func init() {
	Register()
}

// Register registers the NATS transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.NATSCapabilities)
}

func connectionOptions(cfg transport.Config) []natsio.Option {
	name := cfg.GetKafkaClientID()
	if name == "" {
		name = ConnectionName
	}
	return []natsio.Option{
		natsio.Name(name),
		natsio.RetryOnFailedConnect(true),
		natsio.MaxReconnects(-1),
	}
}

// Build creates a new NATS transport.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	url := cfg.GetNATSURL()
	marshaler := &nats.NATSMarshaler{}
	opts := connectionOptions(cfg)

	publisher, err := PublisherFactory(
		nats.PublisherConfig{
			URL:         url,
			NatsOptions: opts,
			Marshaler:   marshaler,
			JetStream:   nats.JetStreamConfig{Disabled: true},
		},
		logger,
	)
	if err != nil {
		return transport.Transport{}, err
	}

	subscriber, err := SubscriberFactory(
		nats.SubscriberConfig{
			URL:              url,
			NatsOptions:      opts,
			Unmarshaler:      marshaler,
			QueueGroupPrefix: cfg.GetKafkaConsumerGroup(),
			SubscribersCount: 1,
			JetStream:        nats.JetStreamConfig{Disabled: true},
		},
		logger,
	)
	if err != nil {
		_ = publisher.Close()
		return transport.Transport{}, err
	}

	return transport.Transport{
		Publisher:  publisher,
		Subscriber: subscriber,
	}, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.NATSCapabilities
}
