package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	configpkg "github.com/drblury/catalogsync/internal/runtime/config"
	errspkg "github.com/drblury/catalogsync/internal/runtime/errors"
	loggingpkg "github.com/drblury/catalogsync/internal/runtime/logging"
	transportpkg "github.com/drblury/catalogsync/internal/runtime/transport"
)

var routerRun = func(router *message.Router, ctx context.Context) error {
	return router.Run(ctx)
}

const httpShutdownTimeout = 5 * time.Second

// ServiceDependencies holds the optional collaborators of a Service.
type ServiceDependencies struct {
	Middlewares               []MiddlewareRegistration // Appended after the default middleware chain.
	DisableDefaultMiddlewares bool                     // Skips the default middleware chain when true.
	TransportFactory          transportpkg.Factory
}

// Service wires the Watermill router, the broker publisher and subscriber,
// the middleware chain and the auxiliary HTTP servers (metrics, admin).
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	publisher    message.Publisher
	subscriber   message.Subscriber
	capabilities transportpkg.Capabilities
	router       *message.Router

	handlers   []string
	handlersMu sync.RWMutex

	httpServers   map[int]*http.ServeMux
	httpServersMu sync.Mutex
}

// NewService builds the broker for conf and prepares the router. Register
// handlers on the returned Service before calling Start.
func NewService(ctx context.Context, conf *configpkg.Config, log loggingpkg.ServiceLogger, deps ServiceDependencies) (*Service, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}

	wmLogger := loggingpkg.NewWatermillAdapter(log)
	log.Info("Creating sync service", loggingpkg.LogFields{
		"pubsub_system": conf.PubSubSystem,
		"topic":         conf.ProductTopic,
		"config":        conf.String(),
	})

	factory := deps.TransportFactory
	if factory == nil {
		factory = transportpkg.DefaultFactory()
	}
	transport, err := factory.Build(ctx, conf, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("build transport %q: %w", conf.PubSubSystem, err)
	}

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}

	s := &Service{
		Conf:         conf,
		Logger:       log,
		publisher:    transport.Publisher,
		subscriber:   transport.Subscriber,
		capabilities: transport.Capabilities,
		router:       router,
	}

	if err := s.registerConfiguredMiddlewares(deps); err != nil {
		return nil, err
	}
	return s, nil
}

// Publisher returns the broker publisher used by the emitter.
func (s *Service) Publisher() message.Publisher { return s.publisher }

// Subscriber returns the broker subscriber used by the reconciler.
func (s *Service) Subscriber() message.Subscriber { return s.subscriber }

// Capabilities reports what the configured broker guarantees.
func (s *Service) Capabilities() transportpkg.Capabilities { return s.capabilities }

// Running is closed once the router has started all handlers.
func (s *Service) Running() chan struct{} { return s.router.Running() }

// Handlers returns the names of the registered handlers.
func (s *Service) Handlers() []string {
	s.handlersMu.RLock()
	defer s.handlersMu.RUnlock()
	out := make([]string, len(s.handlers))
	copy(out, s.handlers)
	return out
}

// Start runs the router and the HTTP servers until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	stop := s.startHTTPServers(ctx)
	defer stop()
	return routerRun(s.router, ctx)
}

// Close stops the router and releases the broker connections.
func (s *Service) Close() error {
	var errs []error
	if err := s.router.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.subscriber != nil && any(s.subscriber) != any(s.publisher) {
		if err := s.subscriber.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) registerConfiguredMiddlewares(deps ServiceDependencies) error {
	var defaults []MiddlewareRegistration
	if !deps.DisableDefaultMiddlewares {
		defaults = DefaultMiddlewares()
	}
	registrations := make([]MiddlewareRegistration, 0, len(defaults)+len(deps.Middlewares))
	registrations = append(registrations, defaults...)
	registrations = append(registrations, deps.Middlewares...)

	for _, reg := range registrations {
		if err := s.RegisterMiddleware(reg); err != nil {
			name := reg.Name
			if name == "" {
				name = "anonymous_middleware"
			}
			return fmt.Errorf("register middleware %s: %w", name, err)
		}
	}
	return nil
}

// RegisterHTTPHandler mounts handler on the server listening on port. Servers
// start with the service.
func (s *Service) RegisterHTTPHandler(port int, pattern string, handler http.Handler) {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	if s.httpServers == nil {
		s.httpServers = make(map[int]*http.ServeMux)
	}

	mux, ok := s.httpServers[port]
	if !ok {
		mux = http.NewServeMux()
		s.httpServers[port] = mux
	}

	mux.Handle(pattern, handler)
}

func (s *Service) startHTTPServers(ctx context.Context) func() {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	servers := make([]*http.Server, 0, len(s.httpServers))
	for port, mux := range s.httpServers {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		servers = append(servers, srv)
		s.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": srv.Addr})
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.Logger.Error("HTTP server failed", err, loggingpkg.LogFields{"address": srv.Addr})
			}
		}()
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), httpShutdownTimeout)
		defer cancel()
		for _, srv := range servers {
			_ = srv.Shutdown(shutdownCtx)
		}
	}
}
