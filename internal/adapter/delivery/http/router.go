// Package http provides the HTTP delivery layer for the URL shortener service.
// This package contains the HTTP handlers and related types used for processing
// incoming requests, validating input, and formatting responses.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/nowisf/url-shortner/docs"
	"github.com/nowisf/url-shortner/pkg/middleware/recoverer"
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterConfig holds the settings of the router that come from the service configuration.
type RouterConfig struct {
	// BaseURL is the public origin used to build short URLs. When empty the
	// origin of each request is used.
	BaseURL        string
	AllowedOrigins []string
	// EnableListing exposes GET /api/v1/urls.
	EnableListing bool
}

// NewRouter initializes and returns a new Chi router configured with middleware and routes for the URL shortener API.
func NewRouter(logger *httplog.Logger, shortener urlShortener, redirector urlRedirector, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer.New(logger.Logger))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, docs.FS, docs.SwaggerFile)
	})

	h := newURLHandler(shortener, redirector, validator.New(), cfg.BaseURL)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", handlePing)

		if cfg.EnableListing {
			r.Get("/urls", h.listURLs)
		}
	})

	r.Post("/shortner", h.shortenURL)
	r.Get("/stats/{shortCode}", h.getURLStats)
	r.Get("/{shortCode}", h.resolveShortCode)

	return r
}
