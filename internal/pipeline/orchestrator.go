// Package pipeline runs the fetch, normalize, dedupe and append cycle.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/knowledgesync/internal/article"
	"github.com/JakeFAU/knowledgesync/internal/metrics"
	"github.com/JakeFAU/knowledgesync/internal/search"
	"github.com/JakeFAU/knowledgesync/internal/store"
)

// Default paging budget.
const (
	DefaultPageSize   = 10
	DefaultMaxRecords = 50
)

// Config is the immutable run configuration.
type Config struct {
	PageSize   int
	MaxRecords int
	WriteMode  store.WriteMode
	Schema     article.Schema
	Categories []string
}

// DefaultConfig returns the production run configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:   DefaultPageSize,
		MaxRecords: DefaultMaxRecords,
		WriteMode:  store.WriteModeRaw,
		Schema:     article.DefaultSchema(),
		Categories: append([]string(nil), article.DefaultAllowedCategories...),
	}
}

// Validate checks the paging budget.
func (c Config) Validate() error {
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be > 0")
	}
	if c.MaxRecords <= 0 {
		return fmt.Errorf("max records must be > 0")
	}
	return nil
}

// Fetcher returns one page of search hits.
type Fetcher interface {
	Fetch(ctx context.Context, offset, size int) (search.Page, error)
}

// Archiver stores raw pages.
type Archiver interface {
	ArchivePage(ctx context.Context, runID string, page search.Page) (string, error)
}

// Publisher sends the run summary downstream.
type Publisher interface {
	Publish(ctx context.Context, payload any) (string, error)
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock sets the clock used for row timestamps and run times.
func WithClock(clock article.Clock) Option {
	return func(o *Orchestrator) { o.clock = clock }
}

// WithIDGenerator sets the run ID source.
func WithIDGenerator(ids IDGenerator) Option {
	return func(o *Orchestrator) { o.ids = ids }
}

// WithArchiver stores every fetched page.
func WithArchiver(a Archiver) Option {
	return func(o *Orchestrator) { o.archiver = a }
}

// WithPublisher publishes the summary of every run.
func WithPublisher(p Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

// Orchestrator runs one sync pass per Run call.
type Orchestrator struct {
	cfg       Config
	connector store.Connector
	fetcher   Fetcher
	mapper    *article.Mapper
	clock     article.Clock
	ids       IDGenerator
	archiver  Archiver
	publisher Publisher
	logger    *zap.Logger
}

// New constructs an Orchestrator.
func New(cfg Config, connector store.Connector, fetcher Fetcher, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if connector == nil {
		return nil, errors.New("store connector is required")
	}
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if cfg.WriteMode == "" {
		cfg.WriteMode = store.WriteModeRaw
	}
	o := &Orchestrator{
		cfg:       cfg,
		connector: connector,
		fetcher:   fetcher,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.clock == nil {
		o.clock = article.UTCClock{}
	}
	o.mapper = article.NewMapper(article.NewCategories(cfg.Categories), o.clock)
	metrics.Init()
	return o, nil
}

// Run executes one pass and reports how it ended. Only connection, index and
// upload failures end in FAILED; a failed page fetch just stops paging.
func (o *Orchestrator) Run(ctx context.Context) (rep Report) {
	rep = Report{
		RunID:     o.newRunID(),
		State:     StateInit,
		StartedAt: o.clock.Now(),
	}
	logger := o.logger.With(zap.String("run_id", rep.RunID))
	logger.Info("sync run started",
		zap.Int("page_size", o.cfg.PageSize),
		zap.Int("max_records", o.cfg.MaxRecords),
	)
	defer o.finish(ctx, &rep, logger)

	rep.State = StateConnecting
	table, err := o.connector.Connect(ctx)
	if err != nil {
		o.fail(&rep, logger, fmt.Errorf("connect store: %w", err))
		return rep
	}
	if c, ok := table.(interface{ Close() }); ok {
		defer c.Close()
	}
	logger.Info("connected to store")

	rep.State = StateIndexing
	index, err := LoadIndex(ctx, table, o.cfg.Schema)
	if err != nil {
		o.fail(&rep, logger, err)
		return rep
	}
	logger.Info("loaded existing object ids", zap.Int("count", index.Len()))

	rep.State = StatePaging
	batch := o.collect(ctx, index, &rep, logger)

	if len(batch) == 0 {
		logger.Info("no new articles to upload")
		rep.State = StateDone
		return rep
	}

	rep.State = StateUploading
	if err := table.AppendRows(ctx, batch, o.cfg.WriteMode); err != nil {
		o.fail(&rep, logger, fmt.Errorf("upload batch: %w", err))
		return rep
	}
	rep.Appended = len(batch)
	logger.Info("uploaded new articles", zap.Int("rows", rep.Appended))
	rep.State = StateDone
	return rep
}

// collect pages through the API and maps every hit whose Object ID is not yet
// known. Queued IDs join the index so a hit repeated across pages is appended once.
func (o *Orchestrator) collect(ctx context.Context, index Index, rep *Report, logger *zap.Logger) []article.Row {
	var batch []article.Row
	for offset := 0; offset < o.cfg.MaxRecords; offset += o.cfg.PageSize {
		pageLog := logger.With(zap.Int("offset", offset), zap.Int("page", offset/o.cfg.PageSize+1))
		pageLog.Info("fetching page")

		page, err := o.fetcher.Fetch(ctx, offset, o.cfg.PageSize)
		if err != nil {
			metrics.ObservePageFetchError()
			pageLog.Error("page fetch failed; stopping", zap.Error(err))
			rep.FetchErr = err
			break
		}
		metrics.ObservePageFetched()
		rep.Pages++
		o.archive(ctx, rep.RunID, page, pageLog)

		if len(page.Hits) == 0 {
			pageLog.Info("no more articles found")
			break
		}

		skipped := 0
		for _, hit := range page.Hits {
			if hit.ID == "" {
				pageLog.Warn("skipping hit without id", zap.String("url", hit.URL))
				continue
			}
			if index.Has(hit.ID) {
				skipped++
				continue
			}
			mapped := o.mapper.Map(hit)
			if mapped.DateErr != nil && !errors.Is(mapped.DateErr, article.ErrNoDate) {
				pageLog.Debug("publication date left empty", zap.String("object_id", hit.ID), zap.Error(mapped.DateErr))
			}
			batch = append(batch, mapped.Row)
			index.Add(hit.ID)
			rep.Checked++
		}
		rep.SkippedKnown += skipped
		metrics.ObserveHitsSkipped(skipped)

		if rep.Checked >= o.cfg.MaxRecords {
			pageLog.Info("checked max articles", zap.Int("max_records", o.cfg.MaxRecords))
			break
		}
	}
	return batch
}

func (o *Orchestrator) archive(ctx context.Context, runID string, page search.Page, logger *zap.Logger) {
	if o.archiver == nil {
		return
	}
	uri, err := o.archiver.ArchivePage(ctx, runID, page)
	if err != nil {
		logger.Warn("archive page failed", zap.Error(err))
		return
	}
	logger.Debug("archived page", zap.String("uri", uri))
}

func (o *Orchestrator) fail(rep *Report, logger *zap.Logger, err error) {
	rep.FailedIn = rep.State
	rep.State = StateFailed
	rep.Err = err
	logger.Error("sync run failed", zap.String("phase", string(rep.FailedIn)), zap.Error(err))
}

func (o *Orchestrator) finish(ctx context.Context, rep *Report, logger *zap.Logger) {
	rep.FinishedAt = o.clock.Now()
	metrics.ObserveRun(string(rep.State), rep.Duration())
	metrics.ObserveRowsAppended(rep.Appended)
	logger.Info("sync run finished",
		zap.String("state", string(rep.State)),
		zap.Int("checked", rep.Checked),
		zap.Int("appended", rep.Appended),
		zap.Int("skipped_known", rep.SkippedKnown),
		zap.Int("pages", rep.Pages),
		zap.Duration("duration", rep.Duration()),
	)
	if o.publisher == nil {
		return
	}
	if _, err := o.publisher.Publish(ctx, rep.Summary()); err != nil {
		logger.Warn("publish run summary failed", zap.Error(err))
	}
}

func (o *Orchestrator) newRunID() string {
	if o.ids == nil {
		return "run-" + o.clock.Now().Format("20060102T150405.000000000")
	}
	id, err := o.ids.NewID()
	if err != nil {
		o.logger.Warn("run id generation failed; using timestamp", zap.Error(err))
		return "run-" + o.clock.Now().Format("20060102T150405.000000000")
	}
	return id
}
