// Package server assembles the chi router, applies CORS and owns the
// lifecycle of the underlying http.Server.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/handlers"

	"github.com/svharshitha92-max/CRUD/internal/config"
	"github.com/svharshitha92-max/CRUD/internal/http/handlers/status"
	"github.com/svharshitha92-max/CRUD/internal/http/handlers/student"
	"github.com/svharshitha92-max/CRUD/internal/storage"
	"github.com/svharshitha92-max/CRUD/web"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
}

// NewRouter registers every route on a fresh chi router:
//
//	GET    /api/connection-status  → which backend is active
//	GET    /api/students           → list (filters: name, usn, sem)
//	POST   /api/students           → create
//	GET    /api/students/{id}      → get one
//	PUT    /api/students/{id}      → update
//	DELETE /api/students/{id}      → delete
//	GET    /*                      → browser client
func NewRouter(store storage.Storage, reporter status.Reporter) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	router.Get("/api/connection-status", status.ConnectionStatus(reporter))
	router.Route("/api/students", func(r chi.Router) {
		r.Get("/", student.GetList(store))
		r.Post("/", student.New(store))
		r.Get("/{id}", student.GetByID(store))
		r.Put("/{id}", student.Update(store))
		r.Delete("/{id}", student.Delete(store))
	})
	router.Handle("/*", http.FileServer(http.FS(web.Static())))

	return router
}

// New constructs a Server listening on cfg.Addr().
func New(cfg *config.Config, store storage.Storage, reporter status.Reporter) *Server {
	router := NewRouter(store, reporter)

	cors := handlers.CORS(
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      cors(router),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
	}
}

// Router exposes the chi router.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr is the address the server listens on.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server. It returns http.ErrServerClosed after
// Shutdown.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
