// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/terrasense/agriops/internal/activity"
	"github.com/terrasense/agriops/internal/catalog"
	"github.com/terrasense/agriops/internal/dependency"
	"github.com/terrasense/agriops/internal/handler"
	"github.com/terrasense/agriops/internal/wire"
)

// Config holds server configuration.
type Config struct {
	Port     int
	Repo     catalog.Repository
	Bus      handler.Publisher
	Hub      *wire.Hub
	Activity activity.Store
}

// Run starts the HTTP server with all routes registered. It blocks until
// the context is cancelled.
func Run(ctx context.Context, cfg Config) error {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	checker := dependency.NewChecker(cfg.Repo)
	eh := handler.NewEntityHandler(cfg.Repo, checker, cfg.Bus)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/entities", eh.ListEntities)
		r.Get("/entities/counts", eh.GetCounts)
		r.Get("/entities/tree", eh.GetTree)
		r.Patch("/entities/{id}/parent", eh.Reparent)
		r.Post("/entities/deletions/check", eh.CheckDeletion)
		r.Post("/entities/deletions", eh.Delete)
		if cfg.Activity != nil {
			ah := handler.NewActivityHandler(cfg.Activity)
			r.Get("/entities/{id}/activity", ah.GetEntityActivity)
		}
		if cfg.Hub != nil {
			r.Get("/events", cfg.Hub.ServeHTTP)
		}
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("starting server on %s", addr)

	server := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	return server.ListenAndServe()
}
