package queue

import (
	"fmt"
	"sync"
)

// Queue is the lock-guarded collection of work items for one workspace.
// The zero value is not usable; call New.
type Queue struct {
	mu    sync.Mutex
	items []WorkItem
	index map[string]int
	stop  bool
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{index: map[string]int{}}
}

// Replace discards the current items and installs a fresh set, all Pending.
// The stop flag is cleared.
func (q *Queue) Replace(items []WorkItem) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = make([]WorkItem, 0, len(items))
	q.index = make(map[string]int, len(items))
	for _, item := range items {
		if _, dup := q.index[item.ID]; dup {
			continue
		}
		item.Status = StatusPending
		q.index[item.ID] = len(q.items)
		q.items = append(q.items, item)
	}
	q.stop = false
}

// Clear removes every item.
func (q *Queue) Clear() {
	q.Replace(nil)
}

// Len returns the number of items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Items returns a copy of all items in queue order.
func (q *Queue) Items() []WorkItem {
	return q.Filter(nil)
}

// Filter returns copies of the items accepted by keep, in queue order. A nil
// keep accepts everything.
func (q *Queue) Filter(keep func(WorkItem) bool) []WorkItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]WorkItem, 0, len(q.items))
	for _, item := range q.items {
		if keep == nil || keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// WithSubtitles returns the items that have a paired subtitle.
func (q *Queue) WithSubtitles() []WorkItem {
	return q.Filter(WorkItem.HasSubtitle)
}

// Get returns a copy of one item.
func (q *Queue) Get(id string) (WorkItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	idx, ok := q.index[id]
	if !ok {
		return WorkItem{}, false
	}
	return q.items[idx], true
}

// SetStatus moves an item to status if the lifecycle allows it.
func (q *Queue) SetStatus(id string, status Status) error {
	if _, ok := statusSet[status]; !ok {
		return fmt.Errorf("set status %q: unknown status", status)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	item, err := q.lookupLocked(id)
	if err != nil {
		return err
	}
	if !CanTransition(item.Status, status) {
		return &TransitionError{ItemID: id, From: item.Status, To: status}
	}
	item.Status = status
	return nil
}

// Advance moves an item into the next phase of an operation. An item that
// was stopped while a worker owned it keeps the Stopped status when the
// worker moves on to another in-flight phase, so it can still finish late.
// The resulting status is returned.
func (q *Queue) Advance(id string, status Status) (Status, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, err := q.lookupLocked(id)
	if err != nil {
		return "", err
	}
	if item.Status == StatusStopped && status.IsInFlight() {
		return StatusStopped, nil
	}
	if !CanTransition(item.Status, status) {
		return item.Status, &TransitionError{ItemID: id, From: item.Status, To: status}
	}
	item.Status = status
	return status, nil
}

// SetSubtitle pairs a subtitle file name with an item. An empty name clears
// the pairing and any translated subtitle derived from it.
func (q *Queue) SetSubtitle(id, name string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, err := q.lookupLocked(id)
	if err != nil {
		return err
	}
	if item.Subtitle != name {
		item.TranslatedSubtitle = ""
	}
	item.Subtitle = name
	return nil
}

// SetTranslated records the translated subtitle file name for an item.
func (q *Queue) SetTranslated(id, name string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, err := q.lookupLocked(id)
	if err != nil {
		return err
	}
	item.TranslatedSubtitle = name
	return nil
}

// SelectSubtitles applies several pairings at once under one lock. Unknown
// item IDs are skipped; the number of applied pairings is returned.
func (q *Queue) SelectSubtitles(pairs map[string]string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	applied := 0
	for id, name := range pairs {
		item, err := q.lookupLocked(id)
		if err != nil {
			continue
		}
		if item.Subtitle != name {
			item.TranslatedSubtitle = ""
		}
		item.Subtitle = name
		applied++
	}
	return applied
}

// RequestStop raises the stop flag and marks every in-flight item Stopped.
// It returns the IDs that were stopped.
func (q *Queue) RequestStop() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stop = true
	var stopped []string
	for i := range q.items {
		if q.items[i].Status.IsInFlight() {
			q.items[i].Status = StatusStopped
			stopped = append(stopped, q.items[i].ID)
		}
	}
	return stopped
}

// StopRequested reports whether a stop has been requested since the last
// reset or scan.
func (q *Queue) StopRequested() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stop
}

// Reset clears the stop flag and returns in-flight and stopped items to
// Pending. It returns the number of items reverted.
func (q *Queue) Reset() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stop = false
	reverted := 0
	for i := range q.items {
		status := q.items[i].Status
		if status.IsInFlight() || status == StatusStopped {
			q.items[i].Status = StatusPending
			reverted++
		}
	}
	return reverted
}

// Summary counts items per status.
func (q *Queue) Summary() Summary {
	q.mu.Lock()
	defer q.mu.Unlock()
	summary := Summary{Total: len(q.items), ByStatus: make(map[Status]int, len(allStatuses))}
	for _, item := range q.items {
		summary.ByStatus[item.Status]++
	}
	return summary
}

func (q *Queue) lookupLocked(id string) (*WorkItem, error) {
	idx, ok := q.index[id]
	if !ok {
		return nil, fmt.Errorf("item %q: %w", id, ErrNotFound)
	}
	return &q.items[idx], nil
}
