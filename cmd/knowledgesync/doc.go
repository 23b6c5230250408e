// Package main hosts the knowledgesync entrypoint.
//
// Architecture overview:
//   - Pipeline: internal/pipeline.Orchestrator connects to the table store, loads every known Object ID, pages
//     through the search API (internal/search) and maps each unseen hit into a fixed 11-column row
//     (internal/article). New rows are appended in one batch per run.
//   - Stores: Google Sheets (internal/store/sheets) is the production backend; Postgres (internal/store/postgres)
//     and an in-memory table are alternatives selected by store.backend.
//   - Side channels: raw pages can be archived to GCS or the local filesystem, and each run summary can be
//     published to Pub/Sub. Neither affects the outcome of a run.
//   - Serialization: internal/schedule.Runner lets one run proceed at a time per process, and a gofrs/flock file
//     lock (lock.path) extends that across processes sharing a host.
//   - Configuration & plumbing: Viper populates config from a file and KSYNC_* env vars (a .env file is loaded
//     first); zap provides structured logging; Prometheus metrics are exported at /metrics.
//
// Commands:
//   - knowledgesync run: one pass, JSON summary on stdout, non-zero exit when the run fails.
//   - knowledgesync serve: HTTP API (/healthz, /readyz, /metrics, POST /v1/runs, GET /v1/runs/last) plus the
//     cron schedule in schedule.cron.
//
// Quick checklist:
//   - Set GOOGLE_SHEET_SERVICE_ACCOUNT_JSON (or sheets.credentials_file); KSYNC_SHEETS_SPREADSHEET_ID overrides the default sheet.
//   - Run locally: go run ./cmd/knowledgesync run --config config.yaml
package main
