package queue

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestQueue(t *testing.T, ids ...string) *Queue {
	t.Helper()
	q := New()
	items := make([]WorkItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, WorkItem{ID: id, VideoPath: "/in/" + id, Subtitle: id + ".srt"})
	}
	q.Replace(items)
	return q
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusTranslating, true},
		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusError, false},
		{StatusPending, StatusNoSubtitles, false},
		{StatusProcessing, StatusCompleted, true},
		{StatusTranslating, StatusTranslated, true},
		{StatusTranslated, StatusProcessing, true},
		{StatusCompleted, StatusPending, false},
		{StatusError, StatusProcessing, false},
		{StatusStopped, StatusCompleted, true},
		{StatusStopped, StatusPending, true},
		{StatusCompleted, StatusCompleted, true},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Fatalf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	tests := map[string]Status{
		"pending":      StatusPending,
		"No Subtitles": StatusNoSubtitles,
		"no_subtitles": StatusNoSubtitles,
		" COMPLETED ":  StatusCompleted,
	}
	for input, want := range tests {
		got, ok := ParseStatus(input)
		if !ok || got != want {
			t.Fatalf("ParseStatus(%q) = %q, %v; want %q", input, got, ok, want)
		}
	}
	if _, ok := ParseStatus("bogus"); ok {
		t.Fatal("expected bogus status to be rejected")
	}
}

func TestSetStatusRejectsInvalidTransition(t *testing.T) {
	q := newTestQueue(t, "a.mkv")
	err := q.SetStatus("a.mkv", StatusCompleted)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if Kind(err) != "state" {
		t.Fatalf("unexpected kind %q", Kind(err))
	}
	if err := q.SetStatus("a.mkv", StatusProcessing); err != nil {
		t.Fatalf("SetStatus processing: %v", err)
	}
	if err := q.SetStatus("a.mkv", StatusCompleted); err != nil {
		t.Fatalf("SetStatus completed: %v", err)
	}
	if err := q.SetStatus("a.mkv", StatusPending); err == nil {
		t.Fatal("expected completed item to reject pending")
	}
}

func TestSetStatusUnknownItem(t *testing.T) {
	q := New()
	err := q.SetStatus("missing.mkv", StatusProcessing)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if Kind(err) != "not_found" {
		t.Fatalf("unexpected kind %q", Kind(err))
	}
}

func TestRequestStopLeavesNothingInFlight(t *testing.T) {
	q := newTestQueue(t, "a.mkv", "b.mkv", "c.mkv")
	if err := q.SetStatus("a.mkv", StatusProcessing); err != nil {
		t.Fatal(err)
	}
	if err := q.SetStatus("b.mkv", StatusTranslating); err != nil {
		t.Fatal(err)
	}

	stopped := q.RequestStop()
	if len(stopped) != 2 {
		t.Fatalf("expected 2 stopped items, got %v", stopped)
	}
	if !q.StopRequested() {
		t.Fatal("expected stop flag to be set")
	}
	for _, item := range q.Items() {
		if item.Status.IsInFlight() {
			t.Fatalf("item %s still in flight after stop", item.ID)
		}
	}
	if item, _ := q.Get("c.mkv"); item.Status != StatusPending {
		t.Fatalf("pending item changed to %q", item.Status)
	}

	// A worker finishing after the stop may still record its outcome.
	if err := q.SetStatus("a.mkv", StatusCompleted); err != nil {
		t.Fatalf("late completion rejected: %v", err)
	}
}

func TestResetRevertsStoppedItems(t *testing.T) {
	q := newTestQueue(t, "a.mkv", "b.mkv", "c.mkv")
	_ = q.SetStatus("a.mkv", StatusProcessing)
	_ = q.SetStatus("b.mkv", StatusProcessing)
	_ = q.SetStatus("b.mkv", StatusCompleted)
	q.RequestStop()

	if got := q.Reset(); got != 1 {
		t.Fatalf("Reset reverted %d items, want 1", got)
	}
	if q.StopRequested() {
		t.Fatal("expected stop flag cleared")
	}
	if item, _ := q.Get("a.mkv"); item.Status != StatusPending {
		t.Fatalf("a.mkv status = %q, want Pending", item.Status)
	}
	if item, _ := q.Get("b.mkv"); item.Status != StatusCompleted {
		t.Fatalf("b.mkv status = %q, want Completed", item.Status)
	}
}

func TestSelectSubtitlesClearsStaleTranslation(t *testing.T) {
	q := newTestQueue(t, "a.mkv", "b.mkv")
	_ = q.SetTranslated("a.mkv", "a_fr.srt")
	applied := q.SelectSubtitles(map[string]string{"a.mkv": "other.srt", "zzz.mkv": "x.srt"})
	if applied != 1 {
		t.Fatalf("applied = %d, want 1", applied)
	}
	item, _ := q.Get("a.mkv")
	if item.Subtitle != "other.srt" || item.TranslatedSubtitle != "" {
		t.Fatalf("unexpected item after selection: %+v", item)
	}
}

func TestSummaryCountsStatuses(t *testing.T) {
	q := newTestQueue(t, "a.mkv", "b.mkv")
	_ = q.SetStatus("a.mkv", StatusProcessing)
	summary := q.Summary()
	if summary.Total != 2 || summary.ByStatus[StatusProcessing] != 1 || summary.ByStatus[StatusPending] != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

var testFormats = Formats{
	Video:    []string{".mkv", ".mp4"},
	Subtitle: []string{".srt"},
}

func TestScanPairsSubtitlesByPrefix(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "in")
	subs := filepath.Join(root, "subs")
	writeFiles(t, input, "movie.mkv", "other.mp4", "notes.txt")
	writeFiles(t, subs, "movie_subtitle_0.srt", "movie_subtitle_0_fr.srt", "unrelated.srt")

	q := New()
	items, err := q.Scan(FolderPair{InputDir: input, SubtitlesDir: subs}, testFormats)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %+v", items)
	}
	if items[0].ID != "movie.mkv" || items[0].Subtitle != "movie_subtitle_0.srt" {
		t.Fatalf("unexpected first item %+v", items[0])
	}
	if items[0].Status != StatusPending {
		t.Fatalf("expected Pending, got %q", items[0].Status)
	}
	if items[1].ID != "other.mp4" || items[1].HasSubtitle() {
		t.Fatalf("unexpected second item %+v", items[1])
	}
	with := q.WithSubtitles()
	if len(with) != 1 || with[0].ID != "movie.mkv" {
		t.Fatalf("WithSubtitles = %+v", with)
	}
}

func TestScanMissingFolders(t *testing.T) {
	root := t.TempDir()
	q := New()
	if _, err := q.Scan(FolderPair{InputDir: filepath.Join(root, "missing")}, testFormats); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	input := filepath.Join(root, "in")
	writeFiles(t, input, "a.mkv")
	items, err := q.Scan(FolderPair{InputDir: input, SubtitlesDir: filepath.Join(root, "nosubs")}, testFormats)
	if err != nil {
		t.Fatalf("Scan without subtitles folder: %v", err)
	}
	if len(items) != 1 || items[0].HasSubtitle() {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestScanReplacesQueueAndClearsStop(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "in")
	writeFiles(t, input, "a.mkv")
	q := newTestQueue(t, "old.mkv")
	_ = q.SetStatus("old.mkv", StatusProcessing)
	q.RequestStop()

	if _, err := q.Scan(FolderPair{InputDir: input}, testFormats); err != nil {
		t.Fatal(err)
	}
	if q.StopRequested() {
		t.Fatal("expected scan to clear the stop flag")
	}
	if _, ok := q.Get("old.mkv"); ok {
		t.Fatal("expected previous items to be dropped")
	}
}

func TestMatchSubtitle(t *testing.T) {
	subs := []string{"movie 2_subtitle_0.srt", "movie_subtitle_0.srt"}
	if got := MatchSubtitle("movie", subs); got != "movie 2_subtitle_0.srt" {
		t.Fatalf("MatchSubtitle = %q", got)
	}
	if got := MatchSubtitle("show", subs); got != "" {
		t.Fatalf("expected no match, got %q", got)
	}
	if got := MatchSubtitle("", subs); got != "" {
		t.Fatalf("expected empty stem to match nothing, got %q", got)
	}
}

func TestAdvanceKeepsStoppedItemsStopped(t *testing.T) {
	q := newTestQueue(t, "a.mkv")
	if got, err := q.Advance("a.mkv", StatusProcessing); err != nil || got != StatusProcessing {
		t.Fatalf("Advance = %q, %v", got, err)
	}
	q.RequestStop()
	got, err := q.Advance("a.mkv", StatusTranslating)
	if err != nil || got != StatusStopped {
		t.Fatalf("Advance after stop = %q, %v", got, err)
	}
	if got, err := q.Advance("a.mkv", StatusCompleted); err != nil || got != StatusCompleted {
		t.Fatalf("late completion = %q, %v", got, err)
	}
	if _, err := q.Advance("a.mkv", StatusProcessing); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected completed item to reject processing, got %v", err)
	}
}
