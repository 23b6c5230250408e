package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/knowledgesync/internal/api"
	"github.com/JakeFAU/knowledgesync/internal/schedule"
)

const shutdownTimeout = 30 * time.Second

type serveFlags struct {
	noSchedule bool
}

func newServeCmd() *cobra.Command {
	flags := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves the HTTP API and runs syncs on the cron schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeCommand(cmd.Context(), flags)
		},
	}
	cmd.Flags().BoolVar(&flags.noSchedule, "no-schedule", false, "only serve the API; never trigger runs from cron")
	return cmd
}

func runServeCommand(ctx context.Context, flags *serveFlags) error {
	appInstance, err := resolveApp(ctx)
	if err != nil {
		return err
	}
	cfg := appInstance.Config()
	logger := appInstance.Logger()
	runner := appInstance.Runner()

	var sched *schedule.Scheduler
	if !flags.noSchedule && cfg.Schedule.Cron != "" {
		sched, err = schedule.NewScheduler(cfg.Schedule.Cron, runner, logger.Named("scheduler"))
		if err != nil {
			return err
		}
		sched.Start()
	}

	var startup sync.WaitGroup
	if cfg.Schedule.RunOnStart {
		startup.Add(1)
		go func() {
			defer startup.Done()
			rep, err := runner.Run(ctx)
			if err != nil {
				logger.Warn("startup run skipped", zap.Error(err))
				return
			}
			logger.Info("startup run finished", zap.String("run_id", rep.RunID), zap.String("state", string(rep.State)))
		}()
	}

	apiServer := api.NewServer(runner, logger.Named("api"),
		api.WithAPIKey(cfg.Server.APIKey),
		api.WithReadiness(appInstance.Ready),
	)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			logger.Warn("scheduler did not stop cleanly", zap.Error(err))
		}
	}
	if err := waitGroup(shutdownCtx, &startup); err != nil {
		logger.Warn("startup run still in flight at shutdown", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return runErr
}

// waitGroup waits for wg or until ctx is done.
func waitGroup(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
