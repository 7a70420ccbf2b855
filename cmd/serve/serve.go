// Package serve implements the HTTP server command. It exposes the queue API
// and, when enabled, runs the periodic batch scheduler in-process.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/formreach/formreach/cmd/common"
	"github.com/formreach/formreach/internal/api"
	"github.com/formreach/formreach/internal/logger"
	"github.com/formreach/formreach/internal/schedule"
)

const (
	signalChannelBufferSize = 1
	errorChannelBufferSize  = 1
	defaultShutdownTimeout  = 30 * time.Second
)

// Command returns the serve command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Starts the HTTP server exposing batch triggering, queue statistics, and
campaign activity. With scheduling enabled in config, batches also run
periodically in-process until the server shuts down.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
}

func run(ctx context.Context) error {
	deps, err := common.NewDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	coordinator := schedule.NewCoordinator(schedule.Config{
		Enabled:    deps.Config.Schedule.Enabled,
		Interval:   deps.Config.Schedule.Interval,
		StaleAfter: deps.Config.Schedule.StaleAfter,
	}, deps.Processor, deps.Tasks, deps.Logger)

	if deps.Redis != nil {
		coordinator.UseBatchLock(schedule.NewBatchLock(deps.Redis, "formreach:schedule:batch", schedule.DefaultLockTTL))
	}

	if startErr := coordinator.Start(ctx); startErr != nil {
		return fmt.Errorf("failed to start scheduler: %w", startErr)
	}
	defer coordinator.Stop()

	handler := api.NewQueueHandler(deps.Processor, deps.Tasks, deps.Submissions, coordinator, deps.Logger)
	router := api.SetupRouter(deps.Logger, handler)

	server := &http.Server{
		Addr:         deps.Config.Server.Address,
		Handler:      router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	errCh := make(chan error, errorChannelBufferSize)
	go func() {
		deps.Logger.Info("http server listening", logger.String("address", server.Addr))
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	sigCh := make(chan os.Signal, signalChannelBufferSize)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case serveErr := <-errCh:
		return fmt.Errorf("http server failed: %w", serveErr)
	case sig := <-sigCh:
		deps.Logger.Info("shutting down", logger.String("signal", sig.String()))
	case <-ctx.Done():
		deps.Logger.Info("shutting down", logger.String("reason", "context canceled"))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		return fmt.Errorf("http server shutdown failed: %w", shutdownErr)
	}

	return nil
}
