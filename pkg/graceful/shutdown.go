// Package graceful coordinates ordered shutdown of the HTTP facade and
// background components on SIGINT/SIGTERM.
package graceful

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Shutdowner is implemented by components that need ordered teardown
type Shutdowner interface {
	Shutdown(timeout time.Duration) error
}

// ShutdownManager coordinates graceful shutdown
type ShutdownManager struct {
	server      *http.Server
	shutdowners []Shutdowner
	logger      *zap.Logger
}

// NewShutdownManager creates a shutdown manager for the given server
func NewShutdownManager(server *http.Server, logger *zap.Logger) *ShutdownManager {
	return &ShutdownManager{
		server:      server,
		shutdowners: make([]Shutdowner, 0),
		logger:      logger,
	}
}

// Register adds a component to shut down before the server.
// Components are shut down in registration order.
func (sm *ShutdownManager) Register(s Shutdowner) {
	sm.shutdowners = append(sm.shutdowners, s)
}

// WaitForShutdown blocks until a termination signal arrives, then tears
// everything down
func (sm *ShutdownManager) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sm.logger.Info("Shutting down gracefully...")

	timeout := 30 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, s := range sm.shutdowners {
		if err := s.Shutdown(timeout); err != nil {
			sm.logger.Warn("Component shutdown error", zap.Error(err))
		}
	}

	if sm.server != nil {
		if err := sm.server.Shutdown(ctx); err != nil {
			sm.logger.Error("Server forced shutdown", zap.Error(err))
		}
	}

	sm.logger.Info("Shutdown complete")
}
