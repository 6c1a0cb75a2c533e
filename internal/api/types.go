package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a queue entry in a transport-friendly format.
type QueueItem struct {
	ID                 string `json:"id"`
	VideoPath          string `json:"videoPath"`
	Subtitle           string `json:"subtitle,omitempty"`
	TranslatedSubtitle string `json:"translatedSubtitle,omitempty"`
	Status             string `json:"status"`
}

// QueueListResponse wraps the queue items with per-status counts.
type QueueListResponse struct {
	Items  []QueueItem    `json:"items"`
	Counts map[string]int `json:"counts"`
}

// PairRequest pairs subtitle file names with item IDs.
type PairRequest struct {
	Pairs map[string]string `json:"pairs" binding:"required"`
}

// PairResponse reports how many pairings were applied.
type PairResponse struct {
	Applied int `json:"applied"`
}

// RunResult describes one finished item of a run.
type RunResult struct {
	ItemID     string   `json:"itemId"`
	Status     string   `json:"status"`
	Message    string   `json:"message,omitempty"`
	Error      string   `json:"error,omitempty"`
	ErrorKind  string   `json:"errorKind,omitempty"`
	Outputs    []string `json:"outputs,omitempty"`
	DurationMS int64    `json:"durationMs"`
}

// RunSummary counts results by outcome.
type RunSummary struct {
	Total       int `json:"total"`
	Completed   int `json:"completed"`
	Errors      int `json:"errors"`
	NoSubtitles int `json:"noSubtitles"`
}

// RunStatus reports the active run, or the last one when idle.
type RunStatus struct {
	Running    bool        `json:"running"`
	RunID      string      `json:"runId,omitempty"`
	Operation  string      `json:"operation,omitempty"`
	Percent    float64     `json:"percent"`
	Message    string      `json:"message,omitempty"`
	StartedAt  string      `json:"startedAt,omitempty"`
	FinishedAt string      `json:"finishedAt,omitempty"`
	Stopped    bool        `json:"stopped"`
	Error      string      `json:"error,omitempty"`
	Results    []RunResult `json:"results"`
	Summary    *RunSummary `json:"summary,omitempty"`
}

// StopResponse lists the items that were in flight when the stop arrived.
type StopResponse struct {
	Stopped []string `json:"stopped"`
}

// ResetResponse reports how many items went back to Pending.
type ResetResponse struct {
	Reverted int `json:"reverted"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
