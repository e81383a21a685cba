package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vk/dagview/internal/ctxlog"
)

// shutdownTimeout bounds graceful web-server shutdown on context cancel.
const shutdownTimeout = 5 * time.Second

// Run starts the state poller and serves the web UI until the context is
// cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.poller != nil {
		go a.poller.Run(ctx)
		a.logger.Info("State polling started.", "backend", a.settings.BackendURL, "interval", a.settings.PollInterval)
	} else {
		a.logger.Warn("No backend_url configured, state polling disabled.")
	}

	addr := fmt.Sprintf(":%d", a.settings.ListenPort)
	a.httpServer = &http.Server{Addr: addr, Handler: a.Handler()}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Web server starting.", "address", fmt.Sprintf("http://localhost%s/graph", addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down web server...")
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.httpServer.Shutdown(shutCtx); err != nil {
			return fmt.Errorf("web server shutdown failed: %w", err)
		}
		a.logger.Debug("Web server shut down gracefully.")
		return nil
	case err := <-errCh:
		return fmt.Errorf("web server failed: %w", err)
	}
}
