package pipeline

import (
	"time"
)

// State is a phase of a sync run.
type State string

// Run states. DONE and FAILED are terminal.
const (
	StateInit       State = "init"
	StateConnecting State = "connecting"
	StateIndexing   State = "indexing"
	StatePaging     State = "paging"
	StateUploading  State = "uploading"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Report describes one finished run.
type Report struct {
	RunID string
	State State
	// FailedIn is the phase that moved the run to FAILED.
	FailedIn State
	Pages    int
	// Checked counts hits that were not in the index and were queued for upload.
	Checked      int
	SkippedKnown int
	Appended     int
	// FetchErr is the page fetch failure that ended paging early, if any.
	// It does not fail the run.
	FetchErr   error
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Failed reports whether the run ended in FAILED.
func (r Report) Failed() bool {
	return r.State == StateFailed
}

// Duration is the wall time between start and finish.
func (r Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary is the JSON form of a Report published to notifiers.
type Summary struct {
	RunID        string    `json:"run_id"`
	State        string    `json:"state"`
	FailedIn     string    `json:"failed_in,omitempty"`
	Pages        int       `json:"pages"`
	Checked      int       `json:"checked"`
	SkippedKnown int       `json:"skipped_known"`
	Appended     int       `json:"appended"`
	FetchError   string    `json:"fetch_error,omitempty"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// MessageAttributes exposes the run ID and outcome as message attributes.
func (s Summary) MessageAttributes() map[string]string {
	return map[string]string{"run_id": s.RunID, "state": s.State, "failed_in": s.FailedIn}
}

// Summary converts r for publishing.
func (r Report) Summary() Summary {
	s := Summary{
		RunID:        r.RunID,
		State:        string(r.State),
		FailedIn:     string(r.FailedIn),
		Pages:        r.Pages,
		Checked:      r.Checked,
		SkippedKnown: r.SkippedKnown,
		Appended:     r.Appended,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
	}
	if r.FetchErr != nil {
		s.FetchError = r.FetchErr.Error()
	}
	if r.Err != nil {
		s.Error = r.Err.Error()
	}
	return s
}
