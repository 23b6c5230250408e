// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/knowledgesync/internal/archive"
	"github.com/JakeFAU/knowledgesync/internal/archive/gcs"
	"github.com/JakeFAU/knowledgesync/internal/archive/local"
	"github.com/JakeFAU/knowledgesync/internal/article"
	"github.com/JakeFAU/knowledgesync/internal/config"
	"github.com/JakeFAU/knowledgesync/internal/notify/pubsub"
	"github.com/JakeFAU/knowledgesync/internal/pipeline"
	"github.com/JakeFAU/knowledgesync/internal/policy/ratelimit"
	"github.com/JakeFAU/knowledgesync/internal/runlock"
	"github.com/JakeFAU/knowledgesync/internal/schedule"
	"github.com/JakeFAU/knowledgesync/internal/search"
	"github.com/JakeFAU/knowledgesync/internal/store"
	"github.com/JakeFAU/knowledgesync/internal/store/memory"
	"github.com/JakeFAU/knowledgesync/internal/store/postgres"
	"github.com/JakeFAU/knowledgesync/internal/store/sheets"
)

// Option customizes how New builds services.
type Option func(*options)

type options struct {
	httpClient *http.Client
	publisher  pipeline.Publisher
	connector  store.Connector
}

// WithHTTPClient sets the client used against the search API.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithPublisher overrides the configured notify backend.
func WithPublisher(p pipeline.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithConnector overrides the configured store backend.
func WithConnector(c store.Connector) Option {
	return func(o *options) { o.connector = c }
}

// App holds all the shared, long-lived services for the application.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	runner  *schedule.Runner
	closers []func() error
}

// New builds every service named by cfg. It fails fast on any
// misconfigured backend and releases whatever was already opened.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	a := &App{cfg: cfg, logger: logger}

	runCfg, err := cfg.PipelineRun()
	if err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}

	connector := o.connector
	if connector == nil {
		connector, err = a.buildConnector(ctx, runCfg.Schema)
		if err != nil {
			return nil, err
		}
	}

	limiter := ratelimit.New(ratelimit.Config{
		RPS:   cfg.Search.RequestsPerSecond,
		Burst: cfg.Search.Burst,
	})
	fetcher, err := search.New(cfg.SearchClient(), o.httpClient, search.WithLimiter(limiter))
	if err != nil {
		return nil, fmt.Errorf("search client: %w", err)
	}

	pipeOpts := []pipeline.Option{
		pipeline.WithLogger(logger.Named("pipeline")),
		pipeline.WithIDGenerator(runIDs{}),
	}

	archiver, err := a.buildArchiver(ctx)
	if err != nil {
		a.closeQuietly()
		return nil, err
	}
	if archiver != nil {
		pipeOpts = append(pipeOpts, pipeline.WithArchiver(archiver))
	}

	publisher := o.publisher
	if publisher == nil {
		publisher, err = a.buildPublisher(ctx)
		if err != nil {
			a.closeQuietly()
			return nil, err
		}
	}
	if publisher != nil {
		pipeOpts = append(pipeOpts, pipeline.WithPublisher(publisher))
	}

	orch, err := pipeline.New(runCfg, connector, fetcher, pipeOpts...)
	if err != nil {
		a.closeQuietly()
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	a.runner = schedule.NewRunner(orch, runlock.New(cfg.Lock.Path), logger.Named("runner"))

	logger.Info("application services initialized",
		zap.String("store", cfg.Store.Backend),
		zap.String("archive", cfg.Archive.Backend),
		zap.String("notify", cfg.Notify.Backend),
	)
	return a, nil
}

func (a *App) buildConnector(ctx context.Context, schema article.Schema) (store.Connector, error) {
	switch a.cfg.Store.Backend {
	case config.BackendSheets:
		creds, err := a.cfg.SheetCredentials()
		if err != nil {
			return nil, err
		}
		a.logger.Info("using google sheets store",
			zap.String("spreadsheet_id", a.cfg.Sheets.SpreadsheetID),
			zap.String("sheet", a.cfg.Sheets.SheetName),
		)
		return sheets.NewConnector(ctx, sheets.Config{
			SpreadsheetID: a.cfg.Sheets.SpreadsheetID,
			SheetName:     a.cfg.Sheets.SheetName,
		}, schema, creds)
	case config.BackendPostgres:
		a.logger.Info("using postgres store", zap.String("table", a.cfg.Postgres.Table))
		return postgres.NewConnector(postgres.Config{
			DSN:      a.cfg.Postgres.DSN,
			Table:    a.cfg.Postgres.Table,
			MaxConns: a.cfg.Postgres.MaxConns,
		}, schema)
	case config.BackendMemory:
		a.logger.Warn("using in-memory store; rows are lost on exit")
		return memory.NewTable(schema), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", a.cfg.Store.Backend)
	}
}

func (a *App) buildArchiver(ctx context.Context) (*archive.Archiver, error) {
	var blobs archive.BlobStore
	switch a.cfg.Archive.Backend {
	case "", config.BackendNone:
		return nil, nil
	case config.BackendGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		bs, err := gcs.New(client, gcs.Config{
			Bucket:       a.cfg.Archive.Bucket,
			CacheControl: "no-cache",
			Metadata:     map[string]string{"source": "knowledgesync"},
		})
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("gcs archive: %w", err)
		}
		a.closers = append(a.closers, bs.Close)
		blobs = bs
	case config.BackendLocal:
		bs, err := local.New(local.Config{BaseDir: a.cfg.Archive.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local archive: %w", err)
		}
		blobs = bs
	default:
		return nil, fmt.Errorf("unknown archive backend: %s", a.cfg.Archive.Backend)
	}
	return archive.New(blobs, a.cfg.Archive.Prefix)
}

func (a *App) buildPublisher(ctx context.Context) (pipeline.Publisher, error) {
	switch a.cfg.Notify.Backend {
	case "", config.BackendNone:
		return nil, nil
	case config.BackendPubSub:
		p, err := pubsub.Dial(ctx, a.cfg.Notify.ProjectID, a.cfg.Notify.Topic)
		if err != nil {
			return nil, fmt.Errorf("pubsub notify: %w", err)
		}
		a.closers = append(a.closers, p.Close)
		return p, nil
	default:
		return nil, fmt.Errorf("unknown notify backend: %s", a.cfg.Notify.Backend)
	}
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Config returns the configuration the services were built from.
func (a *App) Config() config.Config {
	return a.cfg
}

// Runner returns the serialized run trigger.
func (a *App) Runner() *schedule.Runner {
	return a.runner
}

// Ready fails while the most recent run could not reach the store.
func (a *App) Ready(context.Context) error {
	rep, ok := a.runner.Last()
	if ok && rep.Failed() && rep.FailedIn == pipeline.StateConnecting {
		return fmt.Errorf("store unreachable in run %s: %w", rep.RunID, rep.Err)
	}
	return nil
}

// Close releases clients opened by New.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) closeQuietly() {
	if err := a.Close(); err != nil {
		a.logger.Warn("close partially built services", zap.Error(err))
	}
}

// runIDs issues UUIDv7 run IDs, which sort by start time.
type runIDs struct{}

func (runIDs) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return id.String(), nil
}
