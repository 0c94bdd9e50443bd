// Package api exposes the HTTP surface: event creation, guest uploads, the
// admin gallery, archive export and local media retrieval.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/EventDrop/internal/auth"
	"github.com/dharsanguruparan/EventDrop/internal/config"
	"github.com/dharsanguruparan/EventDrop/internal/events"
	"github.com/dharsanguruparan/EventDrop/internal/export"
	"github.com/dharsanguruparan/EventDrop/internal/ingest"
	"github.com/dharsanguruparan/EventDrop/internal/metrics"
	"github.com/dharsanguruparan/EventDrop/internal/repository"
	"github.com/dharsanguruparan/EventDrop/internal/storage"
)

// Deps are the collaborators the HTTP layer needs. Media is only set when the
// local backend is in use; the /media route is not mounted otherwise.
type Deps struct {
	Config   *config.Config
	Store    repository.Store
	Backend  storage.Backend
	Issuer   storage.Issuer
	Media    *storage.LocalIssuer
	Ingest   *ingest.Service
	Exporter *export.Exporter
	Events   *events.Service
	Auth     *auth.Authenticator
	Logger   *zap.Logger
}

// Server holds HTTP handlers for EventDrop.
type Server struct {
	cfg      *config.Config
	store    repository.Store
	backend  storage.Backend
	issuer   storage.Issuer
	media    *storage.LocalIssuer
	ingest   *ingest.Service
	exporter *export.Exporter
	events   *events.Service
	auth     *auth.Authenticator
	log      *zap.Logger
}

// New constructs a Server.
func New(d Deps) *Server {
	return &Server{
		cfg:      d.Config,
		store:    d.Store,
		backend:  d.Backend,
		issuer:   d.Issuer,
		media:    d.Media,
		ingest:   d.Ingest,
		exporter: d.Exporter,
		events:   d.Events,
		auth:     d.Auth,
		log:      d.Logger.Named("api"),
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", auth.SecretHeader},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1/events", func(r chi.Router) {
		r.Post("/", s.handleCreateEvent)
		r.Route("/{eventID}", func(r chi.Router) {
			r.Get("/", s.handleGetEvent)
			r.Post("/uploads", s.handleUpload)
			r.Post("/admin/session", s.handleAdminSession)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/uploads", s.handleGallery)
				r.Get("/export", s.handleExport)
			})
		})
	})

	if s.media != nil {
		r.Get(storage.MediaPathPrefix+"{eventID}/{name}", s.handleMedia)
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
