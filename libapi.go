package catalogsync

import (
	"github.com/drblury/catalogsync/internal/admin"
	"github.com/drblury/catalogsync/internal/catalog"
	"github.com/drblury/catalogsync/internal/dispatcher"
	"github.com/drblury/catalogsync/internal/emitter"
	"github.com/drblury/catalogsync/internal/envelope"
	"github.com/drblury/catalogsync/internal/reconciler"
	"github.com/drblury/catalogsync/internal/replica"
	runtimepkg "github.com/drblury/catalogsync/internal/runtime"
	configpkg "github.com/drblury/catalogsync/internal/runtime/config"
	errspkg "github.com/drblury/catalogsync/internal/runtime/errors"
	idspkg "github.com/drblury/catalogsync/internal/runtime/ids"
	jsoncodec "github.com/drblury/catalogsync/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/catalogsync/internal/runtime/logging"
	metadatapkg "github.com/drblury/catalogsync/internal/runtime/metadata"
	transportpkg "github.com/drblury/catalogsync/internal/runtime/transport"
	brokers "github.com/drblury/catalogsync/transport"
)

type (
	Config              = configpkg.Config
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies
	Transport           = transportpkg.Transport
	TransportFactory    = transportpkg.Factory

	ConsumerRegistration   = runtimepkg.ConsumerRegistration
	MiddlewareBuilder      = runtimepkg.MiddlewareBuilder
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration
	RetryMiddlewareConfig  = runtimepkg.RetryMiddlewareConfig

	// Job lifecycle hooks
	JobContext = runtimepkg.JobContext
	JobHooks   = runtimepkg.JobHooks

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	NonRetryableError = errspkg.NonRetryableError
	TransientError    = errspkg.TransientError

	// Catalog
	Product         = catalog.Product
	ProductDetails  = catalog.Details
	CatalogStore    = catalog.Repository
	CatalogService  = catalog.Service
	ChangeNotifier  = catalog.ChangeNotifier
	ValidationError = catalog.ValidationError

	// Events
	Envelope  = envelope.Envelope
	EventKind = envelope.EventKind

	// Producer side
	Emitter        = emitter.Emitter
	EmitterOption  = emitter.Option
	Delivery       = emitter.Delivery
	Dispatcher     = dispatcher.Dispatcher
	Notifier       = dispatcher.Notifier
	ResyncResult   = dispatcher.ResyncResult
	ResyncError    = dispatcher.ResyncError
	DecoratorSetup = dispatcher.DecoratorOptions

	// Consumer side
	Reconciler       = reconciler.Reconciler
	ReconcilerOption = reconciler.Option
	ReconcilerStats  = reconciler.Stats
	Outcome          = reconciler.Outcome
	ReplicaStore     = replica.Store
	ReplicaRecord    = replica.Record

	AdminHandler = admin.Handler
	AdminOptions = admin.Options

	// Transport capabilities
	Capabilities      = brokers.Capabilities
	TransportBuilder  = brokers.Builder
	TransportConfig   = brokers.Config
	TransportRegistry = brokers.Registry
)

const (
	KindCreated     = envelope.KindCreated
	KindUpdated     = envelope.KindUpdated
	KindDeleted     = envelope.KindDeleted
	KindInitialLoad = envelope.KindInitialLoad

	OutcomeApplied     = reconciler.OutcomeApplied
	OutcomeSkipped     = reconciler.OutcomeSkipped
	OutcomeRejected    = reconciler.OutcomeRejected
	OutcomeUnknownKind = reconciler.OutcomeUnknownKind
)

var (
	NewService       = runtimepkg.NewService
	LoadConfig       = configpkg.Load
	RegisterConsumer = runtimepkg.RegisterConsumer
	NewMessage       = runtimepkg.NewMessage
	Publish          = runtimepkg.Publish

	DefaultMiddlewares      = runtimepkg.DefaultMiddlewares
	CorrelationIDMiddleware = runtimepkg.CorrelationIDMiddleware
	LogMessagesMiddleware   = runtimepkg.LogMessagesMiddleware
	DropFailedMiddleware    = runtimepkg.DropFailedMiddleware
	TracerMiddleware        = runtimepkg.TracerMiddleware
	MetricsMiddleware       = runtimepkg.MetricsMiddleware
	RetryMiddleware         = runtimepkg.RetryMiddleware
	PoisonQueueMiddleware   = runtimepkg.PoisonQueueMiddleware
	RecovererMiddleware     = runtimepkg.RecovererMiddleware

	// Job lifecycle hooks
	JobHooksMiddleware = runtimepkg.JobHooksMiddleware
	LoggingHooks       = runtimepkg.LoggingHooks
	TimingHooks        = runtimepkg.TimingHooks

	NewCatalogService  = catalog.NewService
	NewMemoryCatalog   = catalog.NewMemoryStore
	NewPostgresCatalog = catalog.NewPostgresStore
	ValidateProduct    = catalog.Validate

	FromProduct     = envelope.FromProduct
	DeletedEnvelope = envelope.Deleted
	DecodeEnvelope  = envelope.Decode
	ParseKind       = envelope.ParseKind

	NewEmitter         = emitter.New
	WithBulkRate       = emitter.WithBulkRate
	WithQueueSize      = emitter.WithQueueSize
	WithDeliveryReport = emitter.WithDeliveryCallback

	NewDispatcher = dispatcher.New
	Decorate      = dispatcher.Decorate

	NewReconciler     = reconciler.New
	WithCreateMissing = reconciler.WithCreateMissing

	NewMemoryReplica    = replica.NewMemoryStore
	NewPostgresReplica  = replica.NewPostgresStore
	NewSQLiteReplica    = replica.NewSQLiteStore
	OpenPostgresReplica = replica.OpenPostgres
	OpenSQLiteReplica   = replica.OpenSQLite

	NewAdminHandler = admin.NewHandler

	// Transport registry
	DefaultTransportRegistry = brokers.DefaultRegistry
	RegisterTransport        = brokers.Register
	BuildTransport           = brokers.Build
	GetCapabilities          = brokers.GetCapabilities

	Marshal   = jsoncodec.Marshal
	Unmarshal = jsoncodec.Unmarshal
	Encode    = jsoncodec.Encode
	Decode    = jsoncodec.Decode

	MarkNonRetryable = errspkg.MarkNonRetryable
	MarkTransient    = errspkg.MarkTransient
	IsNonRetryable   = errspkg.IsNonRetryable
	IsTransient      = errspkg.IsTransient

	ErrServiceRequired      = errspkg.ErrServiceRequired
	ErrHandlerRequired      = errspkg.ErrHandlerRequired
	ErrConsumeQueueRequired = errspkg.ErrConsumeQueueRequired
	ErrHandlerNameRequired  = errspkg.ErrHandlerNameRequired
	ErrPublisherRequired    = errspkg.ErrPublisherRequired
	ErrTopicRequired        = errspkg.ErrTopicRequired
	ErrConfigRequired       = errspkg.ErrConfigRequired
	ErrLoggerRequired       = errspkg.ErrLoggerRequired
	ErrStoreRequired        = errspkg.ErrStoreRequired
	ErrEventPayloadRequired = errspkg.ErrEventPayloadRequired
	ErrEmitterClosed        = errspkg.ErrEmitterClosed
	ErrProductNotFound      = catalog.ErrNotFound
	ErrInvalidProduct       = catalog.ErrInvalidProduct
	ErrReplicaExists        = replica.ErrExists

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger
	NewMetadata          = metadatapkg.New
	CreateULID           = idspkg.CreateULID
)

// Metadata keys set on every published product event.
const (
	MetadataKeyCorrelationID = metadatapkg.KeyCorrelationID
	MetadataKeyPartition     = metadatapkg.KeyPartition
	MetadataKeyEventKind     = metadatapkg.KeyEventKind
	MetadataKeyProductID     = metadatapkg.KeyProductID
)
