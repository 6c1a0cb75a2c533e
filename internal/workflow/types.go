package workflow

import (
	"fmt"
	"strings"
	"time"

	"subtrans/internal/queue"
)

// Operation names a batch operation.
type Operation string

const (
	OpExtract   Operation = "extract"
	OpTranslate Operation = "translate"
	OpMerge     Operation = "merge"
	OpProcess   Operation = "process"
)

var allOperations = []Operation{OpExtract, OpTranslate, OpMerge, OpProcess}

// Operations returns every supported operation.
func Operations() []Operation {
	out := make([]Operation, len(allOperations))
	copy(out, allOperations)
	return out
}

// ParseOperation converts a name into an Operation.
func ParseOperation(value string) (Operation, error) {
	normalized := Operation(strings.ToLower(strings.TrimSpace(value)))
	for _, op := range allOperations {
		if op == normalized {
			return op, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownOperation, value)
}

func (o Operation) needsTranslator() bool {
	return o == OpTranslate || o == OpProcess
}

func (o Operation) needsEncoder() bool {
	return o == OpExtract || o == OpMerge || o == OpProcess
}

func (o Operation) needsSubtitle() bool {
	return o == OpTranslate || o == OpMerge
}

// eligible reports whether the operation picks up item.
func (o Operation) eligible(item queue.WorkItem) bool {
	if item.Status.IsTerminal() {
		return false
	}
	if o.needsSubtitle() && !item.HasSubtitle() {
		return false
	}
	return true
}

// ResultRecord describes the outcome of one item.
type ResultRecord struct {
	ItemID             string        `json:"item_id"`
	Operation          Operation     `json:"operation"`
	Status             queue.Status  `json:"status"`
	Message            string        `json:"message,omitempty"`
	Error              string        `json:"error,omitempty"`
	ErrorKind          string        `json:"error_kind,omitempty"`
	Outputs            []string      `json:"outputs,omitempty"`
	Subtitle           string        `json:"subtitle,omitempty"`
	TranslatedSubtitle string        `json:"translated_subtitle,omitempty"`
	TracksExtracted    int           `json:"tracks_extracted,omitempty"`
	Units              int           `json:"units,omitempty"`
	Fallbacks          int           `json:"fallbacks,omitempty"`
	Duration           time.Duration `json:"duration"`
}

// Summary counts result records by outcome.
type Summary struct {
	Total       int `json:"total"`
	Completed   int `json:"completed"`
	Errors      int `json:"errors"`
	NoSubtitles int `json:"no_subtitles"`
}

// Report is the outcome of one Run.
type Report struct {
	RunID      string         `json:"run_id"`
	Operation  Operation      `json:"operation"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Stopped    bool           `json:"stopped"`
	Results    []ResultRecord `json:"results"`
	Summary    Summary        `json:"summary"`
}

// Finalize normalizes timestamps to UTC and recomputes the summary from the
// results. Results keep processing order.
func (r *Report) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	s := Summary{Total: len(r.Results)}
	for _, res := range r.Results {
		switch res.Status {
		case queue.StatusCompleted:
			s.Completed++
		case queue.StatusError:
			s.Errors++
		case queue.StatusNoSubtitles:
			s.NoSubtitles++
		}
	}
	r.Summary = s
}

// Duration returns the wall time of the run.
func (r Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Observer receives run events. Calls happen on the run goroutine, in order.
type Observer interface {
	OnProgress(message string, percent float64)
	OnItemStatus(itemID string, status queue.Status)
}

// ResultObserver is an optional Observer extension that receives each
// record as soon as its item finishes.
type ResultObserver interface {
	OnResult(record ResultRecord)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OnProgress(string, float64)        {}
func (NopObserver) OnItemStatus(string, queue.Status) {}

// MultiObserver fans events out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) OnProgress(message string, percent float64) {
	for _, o := range m {
		if o != nil {
			o.OnProgress(message, percent)
		}
	}
}

func (m MultiObserver) OnItemStatus(itemID string, status queue.Status) {
	for _, o := range m {
		if o != nil {
			o.OnItemStatus(itemID, status)
		}
	}
}

func (m MultiObserver) OnResult(record ResultRecord) {
	for _, o := range m {
		if ro, ok := o.(ResultObserver); ok {
			ro.OnResult(record)
		}
	}
}
