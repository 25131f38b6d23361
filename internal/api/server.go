// Package api serves the dashboard over HTTP.
package api

import (
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"stockdash/internal/market"
	"stockdash/internal/metrics"
	"stockdash/internal/search"
	"stockdash/internal/session"
)

// Config tunes the HTTP surface.
type Config struct {
	RequestTimeout time.Duration
	CORSOrigins    []string
	MaxBodyBytes   int64
	NewsCount      int
}

// Server wires the dashboard services to HTTP routes.
type Server struct {
	cfg      Config
	market   *market.Service
	search   *search.Resolver
	sessions *session.Manager
	log      *zap.Logger
	router   chi.Router
}

// NewServer creates a Server with all routes and middleware.
func NewServer(cfg Config, m *market.Service, r *search.Resolver, sessions *session.Manager, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.NewsCount <= 0 {
		cfg.NewsCount = 3
	}
	s := &Server{
		cfg:      cfg,
		market:   m,
		search:   r,
		sessions: sessions,
		log:      log,
	}
	s.router = s.buildRouter()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(s.recoverPanic)
	r.Use(withGzip)
	r.Use(limitBody(s.cfg.MaxBodyBytes))

	// Credentials are only allowed for an explicit origin list.
	origins := []string{"*"}
	if len(s.cfg.CORSOrigins) > 0 {
		origins = s.cfg.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))

		r.Get("/indices", s.handleIndices)
		r.Get("/search", s.handleSearch)

		r.Get("/stocks/{symbol}", s.handleStock)
		r.Get("/stocks/{symbol}/history.csv", s.handleHistoryExport(formatCSV))
		r.Get("/stocks/{symbol}/history.xlsx", s.handleHistoryExport(formatXLSX))
		r.Get("/stocks/{symbol}/metrics.csv", s.handleMetricsExport)
		r.Get("/stocks/{symbol}/news", s.handleNews)

		r.Get("/watchlist", s.handleWatchlist)
		r.Post("/watchlist", s.handleAddToWatchlist)
		r.Delete("/watchlist/{symbol}", s.handleRemoveFromWatchlist)

		r.Get("/penny-stocks", s.handlePennyStocks)
		r.Get("/session", s.handleSession)
	})
	return r
}
