package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vibeboard/vibeboard-engine/internal/bake"
	"github.com/vibeboard/vibeboard-engine/internal/editor"
	"github.com/vibeboard/vibeboard-engine/internal/media"
	"github.com/vibeboard/vibeboard-engine/internal/metrics"
	"github.com/vibeboard/vibeboard-engine/internal/overlay"
	"github.com/vibeboard/vibeboard-engine/internal/player"
	"github.com/vibeboard/vibeboard-engine/internal/recovery"
	"github.com/vibeboard/vibeboard-engine/internal/studio"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port      int
	Logger    *slog.Logger
	StartTime time.Time
	EngineID  string
	PageType  string
	ProjectID string
	FrameRate float64

	Player   *player.Synchronizer
	Keymap   player.Keymap
	Editor   *editor.Manager
	Overlays *overlay.Layer
	Recovery *recovery.Manager
	Bakes    *bake.Orchestrator
	Media    *media.Store
	Prober   media.Prober
	Studio   studio.Client
	Metrics  *metrics.Collector
	Hub      *Hub
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
