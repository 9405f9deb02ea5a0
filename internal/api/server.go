package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/rpattn/fieldgate/internal/auth"
	"github.com/rpattn/fieldgate/internal/export"
	"github.com/rpattn/fieldgate/internal/gate"
	"github.com/rpattn/fieldgate/internal/loader"
	"github.com/rpattn/fieldgate/internal/middleware"
	"github.com/rpattn/fieldgate/internal/repository"
	"github.com/rpattn/fieldgate/internal/workflow"
)

// Dependencies groups everything the HTTP surface needs.
type Dependencies struct {
	Gate        *gate.Gate
	Workflows   *workflow.Service
	Schemas     repository.DocumentSchemaRepository
	Definitions repository.WorkflowDefinitionRepository
	ChangeLogs  repository.ChangeLogRepository
	Exporter    *export.Exporter
}

// Server exposes the host hooks, definition management and the change log.
type Server struct {
	deps Dependencies
}

func NewServer(deps Dependencies) *Server {
	if deps.Exporter == nil {
		deps.Exporter = export.NewExporter(deps.ChangeLogs)
	}
	return &Server{deps: deps}
}

// Handler builds the router. Requests from allowedOrigins get CORS headers.
func (s *Server) Handler(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.LoggingMiddleware)
	r.Use(auth.ActorMiddleware)
	r.Use(middleware.DataLoaderMiddleware(s.deps.Schemas, s.deps.Definitions))

	r.Route("/hooks", func(r chi.Router) {
		r.Post("/evaluate", s.handleEvaluate)
		r.Post("/transition", s.handleTransition)
	})

	r.Route("/workflows", func(r chi.Router) {
		r.Get("/", s.handleListWorkflows)
		r.Post("/validate", s.handleValidateWorkflow)
		r.Get("/active/{documentType}", s.handleActiveWorkflow)
		r.Put("/{name}", s.handleSaveWorkflow)
	})

	r.Route("/schemas", func(r chi.Router) {
		r.Get("/", s.handleListSchemas)
		r.Get("/{name}", s.handleGetSchema)
		r.Put("/{name}", s.handlePutSchema)
	})

	r.Route("/change-logs", func(r chi.Router) {
		r.Get("/", s.handleListChangeLogs)
		r.Get("/export.xlsx", s.handleExportChangeLogs)
		r.Get("/{id}", s.handleGetChangeLog)
		r.Patch("/{id}", s.handleUpdateChangeLog)
		r.Put("/{id}", s.handleUpdateChangeLog)
		r.Delete("/{id}", s.handleDeleteChangeLog)
	})

	r.Handle("/metrics", promhttp.Handler())

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})
	return corsHandler.Handler(r)
}

// operation builds the request-scoped gate state from the loaders the
// middleware attached.
func (s *Server) operation(r *http.Request) *gate.Operation {
	loaders := middleware.LoadersFromContext(r.Context())
	if loaders == nil {
		loaders = loader.New(s.deps.Schemas, s.deps.Definitions)
	}
	return gate.NewOperation(loaders)
}
