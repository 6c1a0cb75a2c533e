package api

import (
	"subtrans/internal/queue"
	"subtrans/internal/workflow"
)

// FromWorkItem converts a queue item into its API representation.
func FromWorkItem(item queue.WorkItem) QueueItem {
	return QueueItem{
		ID:                 item.ID,
		VideoPath:          item.VideoPath,
		Subtitle:           item.Subtitle,
		TranslatedSubtitle: item.TranslatedSubtitle,
		Status:             string(item.Status),
	}
}

// FromWorkItems converts a slice of queue items.
func FromWorkItems(items []queue.WorkItem) []QueueItem {
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		out = append(out, FromWorkItem(item))
	}
	return out
}

// QueueCounts returns a count for every status, zero included, so clients
// can render a stable set of columns.
func QueueCounts(summary queue.Summary) map[string]int {
	counts := make(map[string]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		counts[string(status)] = summary.ByStatus[status]
	}
	return counts
}

// FromResult converts a workflow record.
func FromResult(record workflow.ResultRecord) RunResult {
	return RunResult{
		ItemID:     record.ItemID,
		Status:     string(record.Status),
		Message:    record.Message,
		Error:      record.Error,
		ErrorKind:  record.ErrorKind,
		Outputs:    append([]string(nil), record.Outputs...),
		DurationMS: record.Duration.Milliseconds(),
	}
}

// FromSummary converts a report summary.
func FromSummary(summary workflow.Summary) *RunSummary {
	return &RunSummary{
		Total:       summary.Total,
		Completed:   summary.Completed,
		Errors:      summary.Errors,
		NoSubtitles: summary.NoSubtitles,
	}
}
