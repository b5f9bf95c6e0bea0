package server

import (
	"context"
	"net/http"
	"time"

	"github.com/cloo-solutions/vaidya/internal/api"
	"github.com/cloo-solutions/vaidya/internal/api/handlers"
	"github.com/cloo-solutions/vaidya/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

const (
	queryBodyBytes    int64 = 64 * 1024
	documentBodyBytes int64 = 5 * 1024 * 1024
	healthTimeout           = 2 * time.Second
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	MedicalHandler  *handlers.MedicalHandler
	DocumentHandler *handlers.DocumentHandler
	AdminToken      string
	// Database is checked by /health when set.
	Database Pinger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)

	r.Get("/health", healthHandler(cfg.Database))

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.MaxBodyBytes(queryBodyBytes))

			r.Post("/answer", cfg.MedicalHandler.Answer)
			r.Post("/symptoms/analyze", cfg.MedicalHandler.AnalyzeSymptoms)

			r.Post("/documents/search", cfg.DocumentHandler.Search)
			r.Get("/index/stats", cfg.DocumentHandler.Stats)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminToken(cfg.AdminToken))
			r.Use(middleware.MaxBodyBytes(documentBodyBytes))

			r.Post("/documents", cfg.DocumentHandler.Create)
			r.Post("/documents/{id}/reprocess", cfg.DocumentHandler.Reprocess)
			r.Delete("/documents/{id}/vectors", cfg.DocumentHandler.DeleteVectors)
		})
	})

	return r
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				api.JSON(w, http.StatusServiceUnavailable, api.SuccessResponse{
					Data: map[string]string{"status": "degraded", "database": "unreachable"},
				})
				return
			}
		}
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
