// Package cmd defines and implements the CLI commands for the knowledgesync executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/knowledgesync/internal/app"
	"github.com/JakeFAU/knowledgesync/internal/config"
	"github.com/JakeFAU/knowledgesync/internal/logging"
	"github.com/JakeFAU/knowledgesync/internal/schedule"
)

type appKeyType string

const appKey appKeyType = "app"

// App defines the services commands use, so tests can inject a fake.
type App interface {
	Config() config.Config
	Logger() *zap.Logger
	Runner() *schedule.Runner
	Ready(ctx context.Context) error
	Close() error
}

// newApp is the application factory, replaced in tests.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	return app.New(ctx, cfg, logger)
}

type rootFlags struct {
	configFile string
	envFile    string
}

// session tracks the App built for one invocation so it is closed even when
// the command fails.
type session struct {
	app App
}

func (s *session) close() {
	if s.app == nil {
		return
	}
	logger := s.app.Logger()
	if err := s.app.Close(); err != nil {
		logger.Warn("close services failed", zap.Error(err))
	}
	_ = logger.Sync()
	s.app = nil
}

func newRootCmd(sess *session) *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:   "knowledgesync",
		Short: "Syncs Working Knowledge articles into a spreadsheet.",
		Long: `knowledgesync pages through the HBS Working Knowledge search API,
normalizes each article into a fixed row, and appends the articles whose
Object ID is not yet stored to a Google Sheet (or Postgres table).`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(flags.envFile); err != nil {
				return err
			}
			cfg, err := config.Load(flags.configFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			sess.app = appInstance
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "config file (YAML, TOML or JSON)")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before configuration, if present")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newServeCmd())
	return cmd
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess := &session{}
	defer sess.close()
	if err := newRootCmd(sess).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "knowledgesync:", err)
		return 1
	}
	return 0
}
