package runtime

import (
	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/drblury/catalogsync/internal/runtime/errors"
)

// ConsumerRegistration wires a handler that consumes a topic without
// publishing anything back.
type ConsumerRegistration struct {
	Name         string
	ConsumeQueue string
	Handler      message.NoPublishHandlerFunc
	Subscriber   message.Subscriber
}

// RegisterConsumer attaches the handler to the service router. The router
// runs one goroutine per subscription and waits for each message to be acked
// before taking the next, which keeps the partition ordered.
func RegisterConsumer(svc *Service, cfg ConsumerRegistration) error {
	if svc == nil {
		return errspkg.ErrServiceRequired
	}
	return svc.registerConsumer(cfg)
}

func (s *Service) registerConsumer(cfg ConsumerRegistration) error {
	if cfg.Handler == nil {
		return errspkg.ErrHandlerRequired
	}
	if cfg.ConsumeQueue == "" {
		return errspkg.ErrConsumeQueueRequired
	}
	if cfg.Name == "" {
		return errspkg.ErrHandlerNameRequired
	}
	if cfg.Subscriber == nil {
		cfg.Subscriber = s.subscriber
	}

	s.handlersMu.Lock()
	s.handlers = append(s.handlers, cfg.Name)
	s.handlersMu.Unlock()

	s.router.AddNoPublisherHandler(
		cfg.Name,
		cfg.ConsumeQueue,
		cfg.Subscriber,
		cfg.Handler,
	)
	return nil
}
