// Package web exposes the reconciled dataset over a read-only HTTP API:
// city hierarchy, per-entity bounding boxes, property statistics and join
// diagnostics. All user-facing formatting belongs to the frontend; this
// surface only serializes core output.
package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/config"
	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/loader"
	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/web/middleware"
)

// Server serves one loaded dataset snapshot. A changed underlying dataset
// requires restarting with a fresh load; nothing is patched in place.
type Server struct {
	log        *zap.Logger
	httpServer *http.Server
	router     *mux.Router
}

// NewServer builds the router around the dataset.
func NewServer(cfg config.ServerConfig, dataset *loader.Dataset, log *zap.Logger) *Server {
	s := &Server{log: log}
	s.setupRoutes(dataset)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes(dataset *loader.Dataset) {
	s.router = mux.NewRouter()
	h := &Handlers{Dataset: dataset}

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/cities", h.ListCities).Methods("GET")
	api.HandleFunc("/cities/{key}", h.GetCity).Methods("GET")
	api.HandleFunc("/neighborhoods/{id}", h.GetNeighborhood).Methods("GET")
	api.HandleFunc("/neighborhoods/{id}/bbox", h.GetNeighborhoodBBox).Methods("GET")
	api.HandleFunc("/stats", h.GetStats).Methods("GET")
	api.HandleFunc("/diagnostics", h.GetDiagnostics).Methods("GET")

	s.router.Use(middleware.CORS())
	s.router.Use(middleware.RequestLogging(s.log))
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		s.log.Info("server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("server error", zap.Error(err))
		}
	}()

	<-stop
	s.log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
