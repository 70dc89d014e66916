// Command catalogsync runs the product catalog sync service: the catalog
// side publishes change events, the replica side applies them, and the admin
// endpoints trigger full resyncs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/drblury/catalogsync/internal/admin"
	"github.com/drblury/catalogsync/internal/catalog"
	"github.com/drblury/catalogsync/internal/dispatcher"
	"github.com/drblury/catalogsync/internal/emitter"
	"github.com/drblury/catalogsync/internal/reconciler"
	"github.com/drblury/catalogsync/internal/replica"
	runtimepkg "github.com/drblury/catalogsync/internal/runtime"
	configpkg "github.com/drblury/catalogsync/internal/runtime/config"
	loggingpkg "github.com/drblury/catalogsync/internal/runtime/logging"
)

func main() {
	configPath := flag.String("config", os.Getenv("CATALOGSYNC_CONFIG"), "path to an optional YAML config file")
	flag.Parse()

	logger := loggingpkg.NewSlogServiceLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, logger); err != nil {
		logger.Error("Sync service stopped with error", err, nil)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, logger loggingpkg.ServiceLogger) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Could not read .env file", loggingpkg.LogFields{"error": err.Error()})
	}

	conf, err := configpkg.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var registerer prometheus.Registerer
	if conf.MetricsEnabled {
		registerer = runtimepkg.MetricsRegisterer
	}

	products, closeCatalog, err := openCatalog(ctx, &conf, logger)
	if err != nil {
		return err
	}
	defer closeCatalog()

	replicas, err := openReplica(ctx, &conf)
	if err != nil {
		return err
	}
	if c, ok := replicas.(io.Closer); ok {
		defer c.Close()
	}

	svc, err := runtimepkg.NewService(ctx, &conf, logger, runtimepkg.ServiceDependencies{
		Middlewares: consumerHooks(&conf, logger),
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	rec, err := reconciler.New(replicas, logger,
		reconciler.WithCreateMissing(conf.CreateMissingReplicas),
		reconciler.WithRegisterer(registerer),
	)
	if err != nil {
		return err
	}
	if err := rec.Register(svc); err != nil {
		return fmt.Errorf("register reconciler: %w", err)
	}

	em, err := emitter.New(svc.Publisher(), conf.ProductTopic, logger,
		emitter.WithBulkRate(conf.BulkPublishRate),
		emitter.WithRegisterer(registerer),
	)
	if err != nil {
		return err
	}
	defer em.Close()

	disp, err := dispatcher.New(products, em, logger, dispatcher.WithRegisterer(registerer))
	if err != nil {
		return err
	}
	notifier := dispatcher.Decorate(disp, dispatcher.DecoratorOptionsFromConfig(&conf), logger)
	// The catalog service is the entry point for product writes; every
	// committed write is forwarded to notifier.
	catalogService := catalog.NewService(products, notifier, logger)

	adminHandler, err := admin.NewHandler(admin.Options{
		Secret: conf.AdminJWTSecret,
		Role:   conf.AdminRole,
		Topic:  conf.ProductTopic,
	}, admin.Dependencies{
		Resyncer:   notifier,
		Catalog:    catalogService,
		Replica:    replicas,
		Reconciler: rec,
		Handlers:   svc.Handlers,
	}, logger)
	if err != nil {
		return err
	}
	adminHandler.Mount(conf.AdminPort, svc.RegisterHTTPHandler)
	if conf.AdminJWTSecret == "" {
		logger.Warn("Admin JWT secret is empty, admin endpoints reject every request", nil)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Start(ctx) }()

	select {
	case <-svc.Running():
	case err := <-errCh:
		return err
	}

	if conf.ShouldResyncOnStartup() {
		// Failures are already logged; the service keeps running.
		_ = notifier.OnStartup(ctx)
	}
	logger.Info("Sync service running", loggingpkg.LogFields{
		"topic":      conf.ProductTopic,
		"admin_port": conf.AdminPort,
	})

	err = <-errCh
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	em.Wait()
	return err
}

func openCatalog(ctx context.Context, conf *configpkg.Config, logger loggingpkg.ServiceLogger) (catalog.Repository, func(), error) {
	if conf.CatalogPostgresURL == "" {
		logger.Warn("No catalog database configured, using an in-memory catalog", nil)
		return catalog.NewMemoryStore(), func() {}, nil
	}

	db, err := catalog.OpenPostgres(ctx, conf.CatalogPostgresURL)
	if err != nil {
		return nil, nil, err
	}
	store := catalog.NewPostgresStore(db)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, func() { _ = db.Close() }, nil
}

func openReplica(ctx context.Context, conf *configpkg.Config) (replica.Store, error) {
	switch conf.ReplicaBackend {
	case configpkg.ReplicaPostgres:
		return replica.OpenPostgres(ctx, conf.ReplicaPostgresURL)
	case configpkg.ReplicaSQLite:
		return replica.OpenSQLite(ctx, conf.ReplicaSQLiteFile)
	case configpkg.ReplicaMemory:
		return replica.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown replica backend %q", conf.ReplicaBackend)
	}
}

func consumerHooks(conf *configpkg.Config, logger loggingpkg.ServiceLogger) []runtimepkg.MiddlewareRegistration {
	var hooks runtimepkg.JobHooks
	if conf.AuditEnabled {
		hooks = hooks.Merge(runtimepkg.LoggingHooks(logger))
	}
	if conf.TimingEnabled {
		hooks = hooks.Merge(runtimepkg.TimingHooks(logger, conf.TimingWarnThreshold))
	}
	if !conf.AuditEnabled && !conf.TimingEnabled {
		return nil
	}
	return []runtimepkg.MiddlewareRegistration{runtimepkg.JobHooksMiddleware(hooks)}
}
