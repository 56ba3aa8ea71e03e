package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"archiplane/internal/apply"
	"archiplane/internal/metrics"
	"archiplane/internal/modelactor"
	"archiplane/internal/opqueue"
	"archiplane/internal/tracing"
	"archiplane/internal/undo"
)

const maxBodyBytes = 1 << 20 // spec.md §6: "≤1 MB body"

// Server holds every dependency a handler needs and is the receiver for
// every endpoint method.
type Server struct {
	Actor          *modelactor.Actor
	Engine         *apply.Engine
	Ops            *opqueue.Notifier
	UndoLog        *undo.Log
	Logger         *zap.Logger
	Metrics        *metrics.Collector
	Tracer         *tracing.Provider
	RequestTimeout time.Duration
	started        time.Time
}

const defaultRequestTimeout = 30 * time.Second

// NewServer constructs a Server. logger/metrics/tracer may be nil; a nil
// logger is replaced by a no-op logger, while a nil metrics collector or
// tracer is kept and handlers skip that instrumentation.
func NewServer(actor *modelactor.Actor, engine *apply.Engine, ops *opqueue.Notifier, undoLog *undo.Log, logger *zap.Logger, m *metrics.Collector, tr *tracing.Provider) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Actor: actor, Engine: engine, Ops: ops, UndoLog: undoLog, Logger: logger, Metrics: m, Tracer: tr, RequestTimeout: defaultRequestTimeout, started: time.Now()}
}

// Router builds the chi handler serving every endpoint spec.md §6 names.
// Grounded on the teacher's interfaces/http/rest/router.go Setup(): the
// same global-middleware-then-versioned-route-group shape, narrowed to
// archiplane's one unversioned surface (spec.md §6 names no /v1 prefix).
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(Logger(s.Logger))
	r.Use(MaxBodyBytes(maxBodyBytes))
	r.Use(RequestTimeout(func() time.Duration { return s.RequestTimeout }))
	r.Use(RateLimit(200)) // spec.md §6: "default rate limit 200 req/min"
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(CircuitBreaker(s.Logger, DefaultCircuitBreakerConfig("model-actor")))

	if s.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Metrics.Registry(), promhttp.HandlerOpts{}))
	}

	r.Get("/health", s.handleHealth)

	r.Post("/model/query", s.handleModelQuery)
	r.Post("/model/search", s.handleModelSearch)
	r.Post("/model/plan", s.handleModelPlan)
	r.Post("/model/apply", s.handleModelApply)
	r.Get("/model/element/{id}", s.handleModelElement)
	r.Get("/model/stats", s.handleModelStats)
	r.Get("/model/diagnostics", s.handleModelDiagnostics)
	r.Post("/model/save", s.handleModelSave)

	r.Get("/views", s.handleViewsList)
	r.Post("/views", s.handleViewsCreate)
	r.Get("/views/{id}", s.handleViewsGet)
	r.Delete("/views/{id}", s.handleViewsDelete)
	r.Post("/views/{id}/layout", s.handleViewLayout)
	r.Post("/views/{id}/export", s.handleViewExport)
	r.Put("/views/{id}/router", s.handleViewRouter)

	r.Get("/ops/status", s.handleOpsStatus)
	r.Get("/ops/list", s.handleOpsList)
	r.Get("/ops/wait", s.handleOpsWait)

	return r
}
