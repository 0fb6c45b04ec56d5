/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request, attached to handler error logs
  4. CORS:       Cross-origin requests for the dashboard frontend

ROUTE GROUPS:
  /api/dashboard, /api/vendedores, /api/global,
  /api/agregados/*, /api/serie, /api/qualidade   Read-only projections
  /api/metas/*                                   Quota maintenance
  /api/contratos/*                               Import and lookup
  /api/sync/*                                    Source sync
  /api/cenarios/*                                Demo scenarios
  /*                                             Static files, when configured

SECURITY NOTE:
  No authentication middleware. Deploy behind an authenticating proxy.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/incentive/server.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures the parts of the router that vary per deployment.
type RouterOptions struct {
	AllowedOrigins []string
	// StaticDir holds a built frontend. Empty or missing disables static serving.
	StaticDir string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Dashboard projections
		r.Get("/dashboard", h.GetDashboard)
		r.Get("/vendedores", h.ListSellers)
		r.Get("/global", h.GetGlobal)
		r.Get("/agregados/{dimensao}", h.GetDimension)
		r.Get("/serie", h.GetSeries)
		r.Get("/qualidade", h.GetQuality)

		// Quota routes
		r.Route("/metas", func(r chi.Router) {
			r.Get("/{mes}", h.GetQuotas)
			r.Put("/{mes}", h.PutQuotas)
		})

		// Contract routes
		r.Route("/contratos", func(r chi.Router) {
			r.Post("/import", h.ImportContracts)
			r.Get("/{id}", h.GetContract)
		})

		// Sync routes
		r.Route("/sync", func(r chi.Router) {
			r.Post("/", h.TriggerSync)
			r.Get("/runs", h.ListSyncRuns)
		})

		// Scenario routes
		r.Route("/cenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	if opts.StaticDir != "" {
		if _, err := os.Stat(opts.StaticDir); err == nil {
			r.Get("/*", spaHandler(opts.StaticDir))
		}
	}

	return r
}

// spaHandler serves files from dir and falls back to index.html so client-side
// routes resolve.
func spaHandler(dir string) http.HandlerFunc {
	fileServer := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		fullPath := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if _, err := os.Stat(fullPath); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fileServer.ServeHTTP(w, r)
	}
}
