// Package admin serves the operator endpoints of the sync service: a forced
// full resync and a status summary. Both sit behind a bearer token carrying
// the configured role.
package admin

import (
	"context"
	"errors"
	"net/http"

	"github.com/drblury/catalogsync/internal/catalog"
	"github.com/drblury/catalogsync/internal/dispatcher"
	"github.com/drblury/catalogsync/internal/reconciler"
	errspkg "github.com/drblury/catalogsync/internal/runtime/errors"
	jsoncodec "github.com/drblury/catalogsync/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/catalogsync/internal/runtime/logging"
)

// Routes served by Handler.
const (
	ForceResyncPath = "/admin/sync/force-full-sync"
	StatusPath      = "/admin/sync/status"
)

// Response is the body of every admin reply.
type Response struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ResyncFailure is the data of a failed resync reply.
type ResyncFailure struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
	Error string `json:"error"`
}

// Status is the data of the status reply. ReplicaCount and Reconciler are
// omitted when no replica is attached to this process.
type Status struct {
	Topic        string            `json:"topic"`
	Categories   []string          `json:"categories"`
	ProductCount int64             `json:"productCount"`
	ReplicaCount *int64            `json:"replicaCount,omitempty"`
	Reconciler   *reconciler.Stats `json:"reconciler,omitempty"`
	Handlers     []string          `json:"handlers,omitempty"`
}

// Resyncer runs a full catalog republish.
type Resyncer interface {
	OnForceResync(ctx context.Context) (dispatcher.ResyncResult, error)
}

// Counter reports how many records a store holds.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Dependencies are the collaborators of Handler. Resyncer and Catalog are
// required.
type Dependencies struct {
	Resyncer   Resyncer
	Catalog    Counter
	Replica    Counter
	Reconciler interface{ Stats() reconciler.Stats }
	Handlers   func() []string
}

// Options configure authentication and the reported topic.
type Options struct {
	Secret string
	Role   string
	Topic  string
}

// Handler serves the admin routes.
type Handler struct {
	deps   Dependencies
	opts   Options
	auth   *TokenValidator
	logger loggingpkg.ServiceLogger
	mux    *http.ServeMux
}

func NewHandler(opts Options, deps Dependencies, logger loggingpkg.ServiceLogger) (*Handler, error) {
	if deps.Resyncer == nil || deps.Catalog == nil {
		return nil, errspkg.ErrStoreRequired
	}
	if logger == nil {
		return nil, errspkg.ErrLoggerRequired
	}

	h := &Handler{
		deps:   deps,
		opts:   opts,
		auth:   NewTokenValidator(opts.Secret),
		logger: logger.With(loggingpkg.LogFields{"component": "admin"}),
		mux:    http.NewServeMux(),
	}
	h.mux.Handle("POST "+ForceResyncPath, RequireRole(h.auth, opts.Role, http.HandlerFunc(h.handleForceResync)))
	h.mux.Handle("GET "+StatusPath, RequireRole(h.auth, opts.Role, http.HandlerFunc(h.handleStatus)))
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Mount registers the admin routes on a port-keyed HTTP registry such as
// runtime.Service.
func (h *Handler) Mount(port int, register func(port int, pattern string, handler http.Handler)) {
	register(port, ForceResyncPath, h)
	register(port, StatusPath, h)
}

func (h *Handler) handleForceResync(w http.ResponseWriter, r *http.Request) {
	result, err := h.deps.Resyncer.OnForceResync(r.Context())
	if err != nil {
		failure := ResyncFailure{Stage: "unknown", Count: result.Count, Error: err.Error()}
		var rerr *dispatcher.ResyncError
		if errors.As(err, &rerr) {
			failure.Stage = rerr.Stage
			failure.Count = rerr.Count
		}
		h.logger.Error("Forced resync failed", err, loggingpkg.LogFields{"stage": failure.Stage, "count": failure.Count})
		writeJSON(w, http.StatusInternalServerError, Response{Message: "Full sync failed", Data: failure})
		return
	}

	h.logger.Info("Forced resync completed", loggingpkg.LogFields{"count": result.Count, "failed": result.Failed})
	writeJSON(w, http.StatusOK, Response{Message: result.Message, Data: result})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := Status{Topic: h.opts.Topic, Categories: catalog.Categories()}

	n, err := h.deps.Catalog.Count(ctx)
	if err != nil {
		h.logger.Error("Status could not count products", err, nil)
		writeJSON(w, http.StatusInternalServerError, Response{Message: "Product count unavailable"})
		return
	}
	status.ProductCount = n

	if h.deps.Replica != nil {
		n, err := h.deps.Replica.Count(ctx)
		if err != nil {
			h.logger.Error("Status could not count replica records", err, nil)
			writeJSON(w, http.StatusInternalServerError, Response{Message: "Replica count unavailable"})
			return
		}
		status.ReplicaCount = &n
	}
	if h.deps.Reconciler != nil {
		stats := h.deps.Reconciler.Stats()
		status.Reconciler = &stats
	}
	if h.deps.Handlers != nil {
		status.Handlers = h.deps.Handlers()
	}

	writeJSON(w, http.StatusOK, Response{Message: "Sync status", Data: status})
}

func writeJSON(w http.ResponseWriter, code int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = jsoncodec.Encode(w, body)
}
