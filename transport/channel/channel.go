// Package channel provides an in-process Go channel transport. Publishing
// blocks until the subscriber acks, which keeps per-key order the same way a
// single Kafka partition does. Used by tests and local runs.
package channel

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/drblury/catalogsync/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "channel"

// Alias accepted for PubSubSystem.
const AliasName = "gochannel"

// Factory allows overriding the channel creation for testing.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
	pubSub := gochannel.NewGoChannel(cfg, logger)
	return pubSub, pubSub
}

func init() {
	Register()
}

// Register registers the channel transport and its alias.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.ChannelCapabilities)
	transport.DefaultRegistry.Alias(AliasName, TransportName)
}

// PubSubConfig is the GoChannel configuration used by Build.
func PubSubConfig() gochannel.Config {
	return gochannel.Config{
		OutputChannelBuffer:            0,
		BlockPublishUntilSubscriberAck: true,
	}
}

// Build creates a new Go channel transport.
func Build(_ context.Context, _ transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	pub, sub := Factory(PubSubConfig(), logger)
	return transport.Transport{
		Publisher:  pub,
		Subscriber: sub,
	}, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.ChannelCapabilities
}
