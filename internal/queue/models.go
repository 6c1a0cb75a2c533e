package queue

import "strings"

// Status represents the lifecycle of a work item.
type Status string

const (
	StatusPending     Status = "Pending"
	StatusProcessing  Status = "Processing"
	StatusTranslating Status = "Translating"
	StatusTranslated  Status = "Translated"
	StatusCompleted   Status = "Completed"
	StatusError       Status = "Error"
	StatusNoSubtitles Status = "No Subtitles"
	StatusStopped     Status = "Stopped"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusTranslating,
	StatusTranslated,
	StatusCompleted,
	StatusError,
	StatusNoSubtitles,
	StatusStopped,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a string into a Status. Matching ignores case and
// treats spaces, underscores and dashes alike ("no_subtitles" works).
func ParseStatus(value string) (Status, bool) {
	key := statusKey(value)
	for _, status := range allStatuses {
		if statusKey(string(status)) == key {
			return status, true
		}
	}
	return "", false
}

func statusKey(value string) string {
	replacer := strings.NewReplacer(" ", "", "_", "", "-", "")
	return strings.ToLower(replacer.Replace(strings.TrimSpace(value)))
}

// inFlightStatuses are statuses an item holds while a worker is on it.
var inFlightStatuses = map[Status]struct{}{
	StatusProcessing:  {},
	StatusTranslating: {},
}

// transitions lists the allowed targets per source status. Completed and
// Error have no entry: only a re-scan leaves them.
var transitions = map[Status][]Status{
	StatusPending:     {StatusProcessing, StatusTranslating},
	StatusProcessing:  {StatusCompleted, StatusError, StatusNoSubtitles, StatusTranslating, StatusStopped, StatusPending},
	StatusTranslating: {StatusTranslated, StatusCompleted, StatusError, StatusNoSubtitles, StatusStopped, StatusPending},
	StatusTranslated:  {StatusProcessing, StatusTranslating},
	StatusNoSubtitles: {StatusProcessing, StatusTranslating},
	// An item stopped while its external call was running may still finish.
	StatusStopped: {StatusPending, StatusCompleted, StatusError, StatusNoSubtitles, StatusTranslated},
}

// CanTransition reports whether from -> to is allowed. Setting the current
// status again is always allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status can only be left by a re-scan.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// IsInFlight reports whether a worker currently owns the item.
func (s Status) IsInFlight() bool {
	_, ok := inFlightStatuses[s]
	return ok
}

// WorkItem is one video's processing record.
type WorkItem struct {
	ID                 string `json:"id"`
	VideoPath          string `json:"video_path"`
	Subtitle           string `json:"subtitle,omitempty"`
	TranslatedSubtitle string `json:"translated_subtitle,omitempty"`
	Status             Status `json:"status"`
}

// HasSubtitle reports whether a subtitle file is paired with the item.
func (w WorkItem) HasSubtitle() bool {
	return w.Subtitle != ""
}

// Summary counts items per status.
type Summary struct {
	Total    int            `json:"total"`
	ByStatus map[Status]int `json:"by_status"`
}
