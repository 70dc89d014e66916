// Package transport resolves the configured broker for the sync service.
// Broker implementations live in github.com/drblury/catalogsync/transport/*.
package transport

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/catalogsync/internal/runtime/config"
	brokers "github.com/drblury/catalogsync/transport"

	_ "github.com/drblury/catalogsync/transport/transports"
)

// Capabilities is an alias for the broker capabilities.
type Capabilities = brokers.Capabilities

// Transport combines a publisher and subscriber pair with the broker's
// capabilities.
type Transport struct {
	Publisher    message.Publisher
	Subscriber   message.Subscriber
	Capabilities Capabilities
}

// Factory abstracts how the service initialises its broker.
type Factory interface {
	Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error)
}

// DefaultFactory returns the factory backed by the broker registry.
func DefaultFactory() Factory {
	return registryFactory{registry: brokers.DefaultRegistry}
}

// RegistryFactory returns a factory backed by a custom registry.
func RegistryFactory(registry *brokers.Registry) Factory {
	return registryFactory{registry: registry}
}

type registryFactory struct {
	registry *brokers.Registry
}

func (f registryFactory) Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error) {
	if conf == nil {
		return Transport{}, errors.New("catalogsync: config is required")
	}

	t, err := f.registry.Build(ctx, conf, logger)
	if err != nil {
		return Transport{}, err
	}

	caps := f.registry.GetCapabilities(conf.PubSubSystem)
	if !caps.PreservesKeyOrder() && logger != nil {
		logger.Info("transport does not guarantee per-key ordering, replica may observe reordered events", watermill.LogFields{
			"transport": caps.Name,
			"level":     "warn",
		})
	}

	return Transport{
		Publisher:    t.Publisher,
		Subscriber:   t.Subscriber,
		Capabilities: caps,
	}, nil
}
