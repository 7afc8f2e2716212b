package models

import (
	"errors"
	"time"
)

// ErrMonitorNotFound is returned when a monitor is not found
var ErrMonitorNotFound = errors.New("monitor not found")

// Monitor is a user's standing configuration: which organizations to watch,
// which areas of interest to search for, and how far back results may reach.
type Monitor struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	OwnerEmail    string     `json:"owner_email"`
	Organizations []string   `json:"organizations"`
	Areas         []string   `json:"areas_of_interest"`
	RecencyDays   int        `json:"recency_days"`
	Schedule      string     `json:"schedule,omitempty"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// SearchResult is one candidate hit returned by a search provider. It lives
// only for the duration of a single pipeline run.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Query   string `json:"query"`
}

// Source is a successfully fetched search result carrying its citation index.
// Index is 1-based, assigned in fetch-completion order, and stable for the
// rest of the run.
type Source struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
}

// ReportSource is the persisted slice of a Source: array position i carries
// citation index i+1.
type ReportSource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Report is the immutable output of one pipeline run.
type Report struct {
	ID        int64          `json:"id"`
	MonitorID int64          `json:"monitor_id"`
	Summary   string         `json:"summary"`
	Sources   []ReportSource `json:"sources"`
	CreatedAt time.Time      `json:"created_at"`
}

// SummaryResult is what the summarizer hands back: the generated text plus
// the source indices it actually cited (advisory, never gating).
type SummaryResult struct {
	Text         string `json:"text"`
	CitedIndices []int  `json:"cited_indices"`
}

// RunOutcome is the terminal state of one pipeline run.
type RunOutcome string

const (
	RunDone           RunOutcome = "done"
	RunSkipped        RunOutcome = "skipped"
	RunFailed         RunOutcome = "failed"
	RunAlreadyRunning RunOutcome = "already_running"
)
