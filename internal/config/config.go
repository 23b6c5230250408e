// Package config loads and validates knowledgesync configuration via Viper.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/JakeFAU/knowledgesync/internal/article"
	"github.com/JakeFAU/knowledgesync/internal/pipeline"
	"github.com/JakeFAU/knowledgesync/internal/search"
	"github.com/JakeFAU/knowledgesync/internal/store"
)

// EnvPrefix prefixes every environment override, e.g. KSYNC_SEARCH_PAGE_SIZE.
const EnvPrefix = "KSYNC"

// CredentialsEnv is the conventional variable holding the service-account descriptor.
const CredentialsEnv = "GOOGLE_SHEET_SERVICE_ACCOUNT_JSON"

// DefaultSpreadsheetID is the Working Knowledge tracking sheet.
const DefaultSpreadsheetID = "1bg0uvjRTU1ZA6kMNXTomCSqjj_1JOhotinEkcc8hlyw"

// Store backends.
const (
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendNone     = "none"
	BackendGCS      = "gcs"
	BackendLocal    = "local"
	BackendPubSub   = "pubsub"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Search   SearchConfig   `mapstructure:"search"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Store    StoreConfig    `mapstructure:"store"`
	Sheets   SheetsConfig   `mapstructure:"sheets"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Server   ServerConfig   `mapstructure:"server"`
	Lock     LockConfig     `mapstructure:"lock"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// SearchConfig describes the article search endpoint and paging budget.
// RequestsPerSecond paces page requests; zero or less disables pacing.
type SearchConfig struct {
	BaseURL           string            `mapstructure:"base_url"`
	PageSize          int               `mapstructure:"page_size"`
	MaxRecords        int               `mapstructure:"max_records"`
	Timeout           time.Duration     `mapstructure:"timeout"`
	UserAgent         string            `mapstructure:"user_agent"`
	Query             map[string]string `mapstructure:"query"`
	RequestsPerSecond float64           `mapstructure:"requests_per_second"`
	Burst             int               `mapstructure:"burst"`
}

// PipelineConfig controls row normalization and the append mode.
type PipelineConfig struct {
	AllowedCategories []string `mapstructure:"allowed_categories"`
	Columns           []string `mapstructure:"columns"`
	WriteMode         string   `mapstructure:"write_mode"`
}

// StoreConfig selects the table backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

// SheetsConfig identifies the worksheet and its credentials.
type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	SheetName       string `mapstructure:"sheet_name"`
	CredentialsJSON string `mapstructure:"credentials_json"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// PostgresConfig controls access to the relational store.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// ArchiveConfig sets where raw search pages are kept.
type ArchiveConfig struct {
	Backend string `mapstructure:"backend"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
	BaseDir string `mapstructure:"base_dir"`
}

// NotifyConfig holds metadata for run summary notifications.
type NotifyConfig struct {
	Backend   string `mapstructure:"backend"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ScheduleConfig drives the serve command's periodic runs.
type ScheduleConfig struct {
	Cron       string `mapstructure:"cron"`
	RunOnStart bool   `mapstructure:"run_on_start"`
}

// ServerConfig controls HTTP server behavior. A non-empty APIKey is
// required on /v1 routes.
type ServerConfig struct {
	Port   int    `mapstructure:"port"`
	APIKey string `mapstructure:"api_key"`
}

// LockConfig names the cross-process run lock file. Empty disables it.
type LockConfig struct {
	Path string `mapstructure:"path"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("sheets.credentials_json", EnvPrefix+"_SHEETS_CREDENTIALS_JSON", CredentialsEnv); err != nil {
		return Config{}, fmt.Errorf("bind credentials env: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("search.base_url", search.DefaultBaseURL)
	v.SetDefault("search.page_size", pipeline.DefaultPageSize)
	v.SetDefault("search.max_records", pipeline.DefaultMaxRecords)
	v.SetDefault("search.timeout", "30s")
	v.SetDefault("search.user_agent", "knowledgesync/1.0")
	v.SetDefault("search.query", search.DefaultQuery())
	v.SetDefault("search.requests_per_second", 5.0)
	v.SetDefault("search.burst", 1)
	v.SetDefault("pipeline.allowed_categories", article.DefaultAllowedCategories)
	v.SetDefault("pipeline.write_mode", string(store.WriteModeRaw))
	v.SetDefault("store.backend", BackendSheets)
	v.SetDefault("sheets.spreadsheet_id", DefaultSpreadsheetID)
	v.SetDefault("sheets.sheet_name", "HBS")
	v.SetDefault("sheets.credentials_file", "")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.table", "articles")
	v.SetDefault("postgres.max_conns", 4)
	v.SetDefault("archive.backend", BackendNone)
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("archive.base_dir", "")
	v.SetDefault("notify.backend", BackendNone)
	v.SetDefault("notify.project_id", "")
	v.SetDefault("notify.topic", "")
	v.SetDefault("schedule.cron", "0 */6 * * *")
	v.SetDefault("schedule.run_on_start", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.api_key", "")
	v.SetDefault("lock.path", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if strings.TrimSpace(c.Search.BaseURL) == "" {
		return fmt.Errorf("search.base_url is required")
	}
	if c.Search.PageSize <= 0 {
		return fmt.Errorf("search.page_size must be > 0")
	}
	if c.Search.MaxRecords <= 0 {
		return fmt.Errorf("search.max_records must be > 0")
	}
	if c.Search.Timeout <= 0 {
		return fmt.Errorf("search.timeout must be > 0")
	}
	if _, err := store.ParseWriteMode(c.Pipeline.WriteMode); err != nil {
		return fmt.Errorf("pipeline.write_mode: %w", err)
	}
	if _, err := c.Schema(); err != nil {
		return fmt.Errorf("pipeline.columns: %w", err)
	}

	switch c.Store.Backend {
	case BackendSheets:
		if c.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("sheets.spreadsheet_id is required for the sheets backend")
		}
		if c.Sheets.SheetName == "" {
			return fmt.Errorf("sheets.sheet_name is required for the sheets backend")
		}
		if c.Sheets.CredentialsJSON == "" && c.Sheets.CredentialsFile == "" {
			return fmt.Errorf("sheets.credentials_json or sheets.credentials_file must be set (or %s)", CredentialsEnv)
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required for the postgres backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("store.backend %q is not supported", c.Store.Backend)
	}

	switch c.Archive.Backend {
	case "", BackendNone:
	case BackendGCS:
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket is required for the gcs archive")
		}
	case BackendLocal:
		if c.Archive.BaseDir == "" {
			return fmt.Errorf("archive.base_dir is required for the local archive")
		}
	default:
		return fmt.Errorf("archive.backend %q is not supported", c.Archive.Backend)
	}

	switch c.Notify.Backend {
	case "", BackendNone:
	case BackendPubSub:
		if c.Notify.ProjectID == "" || c.Notify.Topic == "" {
			return fmt.Errorf("notify.project_id and notify.topic are required for pubsub")
		}
	default:
		return fmt.Errorf("notify.backend %q is not supported", c.Notify.Backend)
	}

	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return fmt.Errorf("schedule.cron: %w", err)
		}
	}
	return nil
}

// Schema returns the configured column schema, or the default when none is set.
func (c Config) Schema() (article.Schema, error) {
	if len(c.Pipeline.Columns) == 0 {
		return article.DefaultSchema(), nil
	}
	return article.NewSchema(c.Pipeline.Columns)
}

// PipelineRun converts the config into the orchestrator's run configuration.
func (c Config) PipelineRun() (pipeline.Config, error) {
	schema, err := c.Schema()
	if err != nil {
		return pipeline.Config{}, err
	}
	mode, err := store.ParseWriteMode(c.Pipeline.WriteMode)
	if err != nil {
		return pipeline.Config{}, err
	}
	categories := c.Pipeline.AllowedCategories
	if len(categories) == 0 {
		categories = article.DefaultAllowedCategories
	}
	return pipeline.Config{
		PageSize:   c.Search.PageSize,
		MaxRecords: c.Search.MaxRecords,
		WriteMode:  mode,
		Schema:     schema,
		Categories: append([]string(nil), categories...),
	}, nil
}

// SearchClient converts the config into the search client configuration.
func (c Config) SearchClient() search.Config {
	query := make(map[string]string, len(c.Search.Query))
	for k, v := range c.Search.Query {
		query[k] = v
	}
	return search.Config{
		BaseURL:   c.Search.BaseURL,
		Query:     query,
		UserAgent: c.Search.UserAgent,
		Timeout:   c.Search.Timeout,
	}
}

// SheetCredentials returns the service-account descriptor, reading
// CredentialsFile when no inline JSON was supplied.
func (c Config) SheetCredentials() ([]byte, error) {
	if c.Sheets.CredentialsJSON != "" {
		return []byte(c.Sheets.CredentialsJSON), nil
	}
	if c.Sheets.CredentialsFile == "" {
		return nil, fmt.Errorf("no service account credentials configured")
	}
	data, err := os.ReadFile(c.Sheets.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	return data, nil
}
