// Package server exposes the assistant over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xaenox/bni-assistant/internal/models"
	"go.uber.org/zap"
)

// Assistant answers questions and manages per-user memory.
type Assistant interface {
	Ask(ctx context.Context, req models.QuestionRequest) (*models.Answer, error)
	ResetMemory(ctx context.Context, userID int64) error
}

// Directory is the member name cache that can be rebuilt on demand.
type Directory interface {
	Load(ctx context.Context) (int, error)
}

type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	assistant Assistant
	directory Directory
	logger    *zap.Logger
	engine    *gin.Engine
	http      *http.Server
}

func New(cfg Config, assistant Assistant, directory Directory, logger *zap.Logger) *Server {
	s := &Server{
		assistant: assistant,
		directory: directory,
		logger:    logger,
	}
	s.engine = s.routes()
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(s.logger))
	r.Use(CORS())

	r.GET("/healthz", s.handleHealth)
	r.POST("/ask", s.handleAsk)
	r.POST("/reset_memory/:user_id", s.handleResetMemory)
	r.POST("/directory/reload", s.handleReload)
	return r
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("Shutting down HTTP server")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
