package inference

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type Server struct {
	server *http.Server
	logger *zap.Logger
}

type Config struct {
	Port      int
	Timeout   time.Duration
	CacheSize int
}

func DefaultConfig() Config {
	return Config{
		Port:      8090,
		Timeout:   10 * time.Second,
		CacheSize: 1024,
	}
}

// NewServer builds the inference service around an already-loaded model.
// The model is treated as immutable for the lifetime of the server; there
// is no hot reload.
func NewServer(config Config, model SpecClassifier, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	h, err := newHandler(model, config.CacheSize, logger)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	h.register(mux)

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      mux,
			ReadTimeout:  config.Timeout,
			WriteTimeout: config.Timeout,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}, nil
}

func (s *Server) Start() error {
	s.logger.Info("starting inference service", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down inference service")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func (s *Server) Addr() string {
	return s.server.Addr
}
