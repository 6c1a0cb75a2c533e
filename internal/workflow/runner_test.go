package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"subtrans/internal/ffmpeg"
	"subtrans/internal/fileutil"
	"subtrans/internal/queue"
	"subtrans/internal/translate"
)

const sampleSRT = "1\n00:00:01,000 --> 00:00:02,000\nHello\n\n2\n00:00:03,000 --> 00:00:04,000\nWorld\n"

type prefixTranslator struct {
	prefix string
	panics map[string]bool
	calls  int
}

func (p *prefixTranslator) TranslateUnits(_ context.Context, units []string, _, _ string, onChunk translate.ChunkFunc) ([]string, translate.Stats) {
	p.calls++
	out := make([]string, len(units))
	for i, unit := range units {
		if p.panics[unit] {
			panic("translator exploded")
		}
		out[i] = p.prefix + unit
	}
	if onChunk != nil {
		onChunk(len(units), len(units))
	}
	return out, translate.Stats{Units: len(units), Translated: len(units), Chunks: 1}
}

type fakeEncoder struct {
	mu        sync.Mutex
	tracks    map[string]int
	failStrip bool
	calls     []string
}

func (f *fakeEncoder) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeEncoder) ExtractAll(_ context.Context, video, dir string) (ffmpeg.Extraction, error) {
	f.record("extract " + filepath.Base(video))
	var result ffmpeg.Extraction
	for i := 0; i < f.tracks[filepath.Base(video)]; i++ {
		index := i + 2
		path := filepath.Join(dir, fmt.Sprintf("%s_subtitle_%d.srt", fileutil.Stem(video), index))
		if err := os.WriteFile(path, []byte(sampleSRT), 0o644); err != nil {
			return result, err
		}
		result.Tracks = append(result.Tracks, ffmpeg.Track{Index: index, Ordinal: i, Codec: "subrip"})
		result.Files = append(result.Files, path)
	}
	return result, nil
}

func (f *fakeEncoder) StripSubtitles(_ context.Context, video, output string) error {
	f.record("strip " + filepath.Base(output))
	if f.failStrip {
		return errors.New("ffmpeg exited with status 1")
	}
	return os.WriteFile(output, []byte("video"), 0o644)
}

func (f *fakeEncoder) MuxSubtitle(_ context.Context, _, subtitle, lang, output string) error {
	f.record(fmt.Sprintf("mux %s %s %s", filepath.Base(subtitle), lang, filepath.Base(output)))
	return os.WriteFile(output, []byte("video"), 0o644)
}

func (f *fakeEncoder) BurnSubtitle(_ context.Context, _, subtitle, output string) error {
	f.record(fmt.Sprintf("burn %s %s", filepath.Base(subtitle), filepath.Base(output)))
	return os.WriteFile(output, []byte("video"), 0o644)
}

type progressEvent struct {
	message string
	percent float64
}

type recordingObserver struct {
	progress []progressEvent
	statuses []string
	results  []ResultRecord
	onStatus func(id string, status queue.Status)
}

func (o *recordingObserver) OnProgress(message string, percent float64) {
	o.progress = append(o.progress, progressEvent{message: message, percent: percent})
}

func (o *recordingObserver) OnItemStatus(id string, status queue.Status) {
	o.statuses = append(o.statuses, id+"="+string(status))
	if o.onStatus != nil {
		o.onStatus(id, status)
	}
}

func (o *recordingObserver) OnResult(record ResultRecord) {
	o.results = append(o.results, record)
}

type workspace struct {
	input     string
	subtitles string
	output    string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	root := t.TempDir()
	ws := workspace{
		input:     filepath.Join(root, "input"),
		subtitles: filepath.Join(root, "subtitles"),
		output:    filepath.Join(root, "output"),
	}
	for _, dir := range []string{ws.input, ws.subtitles, ws.output} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	return ws
}

func (ws workspace) settings() Settings {
	return Settings{
		SubtitlesDir:   ws.subtitles,
		OutputDir:      ws.output,
		SourceLanguage: "en",
		TargetLanguage: "fr",
	}
}

func (ws workspace) writeVideo(t *testing.T, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(ws.input, name), []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
}

func (ws workspace) writeSubtitle(t *testing.T, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(ws.subtitles, name), []byte(sampleSRT), 0o644); err != nil {
		t.Fatalf("write subtitle: %v", err)
	}
}

func (ws workspace) scan(t *testing.T) *queue.Queue {
	t.Helper()
	q := queue.New()
	formats := queue.Formats{Video: []string{".mkv", ".mp4"}, Subtitle: []string{".srt"}}
	if _, err := q.Scan(queue.FolderPair{InputDir: ws.input, SubtitlesDir: ws.subtitles}, formats); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return q
}

func itemStatus(t *testing.T, q *queue.Queue, id string) queue.Status {
	t.Helper()
	item, ok := q.Get(id)
	if !ok {
		t.Fatalf("item %s missing", id)
	}
	return item.Status
}

func TestRunTranslateIsolatesItemFailures(t *testing.T) {
	ws := newWorkspace(t)
	for _, name := range []string{"a.mkv", "b.mkv", "c.mkv"} {
		ws.writeVideo(t, name)
	}
	ws.writeSubtitle(t, "a.srt")
	ws.writeSubtitle(t, "b.srt")
	ws.writeSubtitle(t, "c.srt")
	q := ws.scan(t)
	if err := os.Remove(filepath.Join(ws.subtitles, "b.srt")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	observer := &recordingObserver{}
	runner := NewRunner(q, ws.settings(), WithTranslator(&prefixTranslator{prefix: "fr:"}), WithObserver(observer))
	report, err := runner.Run(context.Background(), OpTranslate)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.RunID == "" {
		t.Fatal("expected a run ID")
	}
	if report.Stopped {
		t.Fatal("run should not be stopped")
	}
	want := Summary{Total: 3, Completed: 2, Errors: 1}
	if report.Summary != want {
		t.Fatalf("summary = %+v, want %+v", report.Summary, want)
	}
	if got := report.Results[1]; got.Status != queue.StatusError || got.ErrorKind != "not_found" || got.Error == "" {
		t.Fatalf("middle record = %+v", got)
	}

	for id, status := range map[string]queue.Status{
		"a.mkv": queue.StatusTranslated,
		"b.mkv": queue.StatusError,
		"c.mkv": queue.StatusTranslated,
	} {
		if got := itemStatus(t, q, id); got != status {
			t.Fatalf("%s status = %s, want %s", id, got, status)
		}
	}

	data, err := os.ReadFile(filepath.Join(ws.subtitles, "c_fr.srt"))
	if err != nil {
		t.Fatalf("read translated: %v", err)
	}
	if !strings.Contains(string(data), "fr:Hello") || !strings.Contains(string(data), "00:00:03,000 --> 00:00:04,000") {
		t.Fatalf("unexpected translated file:\n%s", data)
	}
	if item, _ := q.Get("a.mkv"); item.TranslatedSubtitle != "a_fr.srt" {
		t.Fatalf("translated subtitle = %q", item.TranslatedSubtitle)
	}

	wantProgress := []progressEvent{
		{"Processing a.mkv (1/3)", 0},
		{"Processing b.mkv (2/3)", 100.0 / 3},
		{"Processing c.mkv (3/3)", 200.0 / 3},
		{"translate finished: 2 completed, 1 errors", 100},
	}
	if len(observer.progress) != len(wantProgress) {
		t.Fatalf("progress events = %+v", observer.progress)
	}
	for i, ev := range wantProgress {
		got := observer.progress[i]
		if got.message != ev.message || got.percent-ev.percent > 1e-9 || ev.percent-got.percent > 1e-9 {
			t.Fatalf("progress[%d] = %+v, want %+v", i, got, ev)
		}
	}
	if len(observer.results) != 3 {
		t.Fatalf("expected 3 result callbacks, got %d", len(observer.results))
	}
}

func TestRunSetupErrors(t *testing.T) {
	ws := newWorkspace(t)
	ws.writeVideo(t, "a.mkv")

	tests := []struct {
		name   string
		queue  func() *queue.Queue
		op     Operation
		opts   []Option
		assert func(t *testing.T, err error)
	}{
		{
			name:  "empty queue",
			queue: queue.New,
			op:    OpExtract,
			opts:  []Option{WithEncoder(&fakeEncoder{})},
			assert: func(t *testing.T, err error) {
				if !errors.Is(err, ErrQueueEmpty) {
					t.Fatalf("err = %v, want ErrQueueEmpty", err)
				}
			},
		},
		{
			name:  "translate without translator",
			queue: func() *queue.Queue { return ws.scan(t) },
			op:    OpTranslate,
			assert: func(t *testing.T, err error) {
				var cfgErr *ConfigurationError
				if !errors.As(err, &cfgErr) || Kind(err) != "configuration" {
					t.Fatalf("err = %v, want ConfigurationError", err)
				}
			},
		},
		{
			name:  "merge without subtitles",
			queue: func() *queue.Queue { return ws.scan(t) },
			op:    OpMerge,
			opts:  []Option{WithEncoder(&fakeEncoder{})},
			assert: func(t *testing.T, err error) {
				if !errors.Is(err, ErrNothingToProcess) {
					t.Fatalf("err = %v, want ErrNothingToProcess", err)
				}
			},
		},
		{
			name:  "extract without encoder",
			queue: func() *queue.Queue { return ws.scan(t) },
			op:    OpExtract,
			assert: func(t *testing.T, err error) {
				var cfgErr *ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("err = %v, want ConfigurationError", err)
				}
			},
		},
		{
			name:  "unknown operation",
			queue: func() *queue.Queue { return ws.scan(t) },
			op:    Operation("transcode"),
			assert: func(t *testing.T, err error) {
				if !errors.Is(err, ErrUnknownOperation) {
					t.Fatalf("err = %v, want ErrUnknownOperation", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.queue()
			_, err := NewRunner(q, ws.settings(), tt.opts...).Run(context.Background(), tt.op)
			tt.assert(t, err)
			for _, item := range q.Items() {
				if item.Status != queue.StatusPending {
					t.Fatalf("setup failure changed %s to %s", item.ID, item.Status)
				}
			}
		})
	}
}

func TestRunStopLeavesRemainingItemsUntouched(t *testing.T) {
	ws := newWorkspace(t)
	for _, name := range []string{"a.mkv", "b.mkv", "c.mkv"} {
		ws.writeVideo(t, name)
		ws.writeSubtitle(t, fileutil.Stem(name)+".srt")
	}
	q := ws.scan(t)

	observer := &recordingObserver{}
	observer.onStatus = func(id string, status queue.Status) {
		if id == "a.mkv" && status == queue.StatusTranslating {
			q.RequestStop()
		}
	}
	runner := NewRunner(q, ws.settings(), WithTranslator(&prefixTranslator{prefix: "fr:"}), WithObserver(observer))
	report, err := runner.Run(context.Background(), OpTranslate)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Stopped {
		t.Fatal("expected report to be marked stopped")
	}
	if len(report.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(report.Results))
	}
	// The in-flight item still finishes.
	if got := itemStatus(t, q, "a.mkv"); got != queue.StatusTranslated {
		t.Fatalf("a.mkv status = %s", got)
	}
	for _, id := range []string{"b.mkv", "c.mkv"} {
		if got := itemStatus(t, q, id); got != queue.StatusPending {
			t.Fatalf("%s status = %s, want Pending", id, got)
		}
	}

	// Resetting the queue clears the stop flag so the remaining items run.
	q.Reset()
	report, err = NewRunner(q, ws.settings(), WithTranslator(&prefixTranslator{prefix: "fr:"})).Run(context.Background(), OpTranslate)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if report.Stopped || report.Summary.Completed != 3 {
		t.Fatalf("second report = %+v", report.Summary)
	}
}

func TestRunCanceledContextStops(t *testing.T) {
	ws := newWorkspace(t)
	ws.writeVideo(t, "a.mkv")
	ws.writeSubtitle(t, "a.srt")
	q := ws.scan(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := NewRunner(q, ws.settings(), WithTranslator(&prefixTranslator{})).Run(ctx, OpTranslate)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Stopped || len(report.Results) != 0 {
		t.Fatalf("report = %+v", report)
	}
}

func TestRunHonorsStopRequestedBeforeRun(t *testing.T) {
	ws := newWorkspace(t)
	for _, name := range []string{"a.mkv", "b.mkv", "c.mkv"} {
		ws.writeVideo(t, name)
		ws.writeSubtitle(t, fileutil.Stem(name)+".srt")
	}
	q := ws.scan(t)
	q.RequestStop()

	translator := &prefixTranslator{prefix: "fr:"}
	report, err := NewRunner(q, ws.settings(), WithTranslator(translator)).Run(context.Background(), OpTranslate)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Stopped || len(report.Results) != 0 {
		t.Fatalf("report = %+v, want stopped with no results", report)
	}
	if translator.calls != 0 {
		t.Fatalf("translator called %d times", translator.calls)
	}
	for _, id := range []string{"a.mkv", "b.mkv", "c.mkv"} {
		if got := itemStatus(t, q, id); got != queue.StatusPending {
			t.Fatalf("%s status = %s, want Pending", id, got)
		}
	}
}

// cancelingTranslator cancels the run mid-item and echoes the source text,
// which is what the batcher returns once its requests fail.
type cancelingTranslator struct {
	cancel context.CancelFunc
}

func (c *cancelingTranslator) TranslateUnits(_ context.Context, units []string, _, _ string, _ translate.ChunkFunc) ([]string, translate.Stats) {
	c.cancel()
	out := append([]string(nil), units...)
	return out, translate.Stats{Units: len(units), Fallbacks: len(units)}
}

func TestRunTranslateCanceledMidItemFails(t *testing.T) {
	ws := newWorkspace(t)
	ws.writeVideo(t, "a.mkv")
	ws.writeSubtitle(t, "a.srt")
	q := ws.scan(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := NewRunner(q, ws.settings(), WithTranslator(&cancelingTranslator{cancel: cancel}))
	report, err := runner.Run(ctx, OpTranslate)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(report.Results))
	}
	record := report.Results[0]
	if record.Status != queue.StatusError || record.ErrorKind != "canceled" || record.TranslatedSubtitle != "" {
		t.Fatalf("record = %+v", record)
	}
	item, _ := q.Get("a.mkv")
	if item.Status != queue.StatusError || item.TranslatedSubtitle != "" {
		t.Fatalf("item = %+v", item)
	}
	if _, err := os.Stat(filepath.Join(ws.subtitles, "a_fr.srt")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("translated file should not exist, stat err = %v", err)
	}
}

func TestRunRecoversFromPanics(t *testing.T) {
	ws := newWorkspace(t)
	ws.writeVideo(t, "a.mkv")
	ws.writeVideo(t, "b.mkv")
	ws.writeSubtitle(t, "a.srt")
	if err := os.WriteFile(filepath.Join(ws.subtitles, "b.srt"), []byte("1\n00:00:01,000 --> 00:00:02,000\nBoom\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	q := ws.scan(t)

	translator := &prefixTranslator{prefix: "fr:", panics: map[string]bool{"Boom": true}}
	report, err := NewRunner(q, ws.settings(), WithTranslator(translator)).Run(context.Background(), OpTranslate)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Summary.Completed != 1 || report.Summary.Errors != 1 {
		t.Fatalf("summary = %+v", report.Summary)
	}
	if got := report.Results[1]; got.ErrorKind != "internal" || !strings.Contains(got.Error, "translator exploded") {
		t.Fatalf("panic record = %+v", got)
	}
	if got := itemStatus(t, q, "b.mkv"); got != queue.StatusError {
		t.Fatalf("b.mkv status = %s", got)
	}
}

func TestRunExtract(t *testing.T) {
	ws := newWorkspace(t)
	ws.writeVideo(t, "movie.mkv")
	ws.writeVideo(t, "silent.mkv")
	q := ws.scan(t)

	encoder := &fakeEncoder{tracks: map[string]int{"movie.mkv": 2}}
	report, err := NewRunner(q, ws.settings(), WithEncoder(encoder)).Run(context.Background(), OpExtract)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := Summary{Total: 2, Completed: 1, NoSubtitles: 1}
	if report.Summary != want {
		t.Fatalf("summary = %+v, want %+v", report.Summary, want)
	}

	movie, _ := q.Get("movie.mkv")
	if movie.Status != queue.StatusCompleted || movie.Subtitle != "movie_subtitle_2.srt" {
		t.Fatalf("movie item = %+v", movie)
	}
	if report.Results[0].TracksExtracted != 2 {
		t.Fatalf("tracks extracted = %d", report.Results[0].TracksExtracted)
	}
	if !fileutil.NonEmptyFile(filepath.Join(ws.output, "movie_no_subtitles.mkv")) {
		t.Fatal("expected stripped video in output folder")
	}
	if got := itemStatus(t, q, "silent.mkv"); got != queue.StatusNoSubtitles {
		t.Fatalf("silent.mkv status = %s", got)
	}
}

func TestRunExtractEncoderFailure(t *testing.T) {
	ws := newWorkspace(t)
	ws.writeVideo(t, "movie.mkv")
	q := ws.scan(t)

	encoder := &fakeEncoder{tracks: map[string]int{"movie.mkv": 1}, failStrip: true}
	report, err := NewRunner(q, ws.settings(), WithEncoder(encoder)).Run(context.Background(), OpExtract)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := report.Results[0]; got.Status != queue.StatusError || got.ErrorKind != "collaborator" {
		t.Fatalf("record = %+v", got)
	}
}

func TestRunMerge(t *testing.T) {
	tests := []struct {
		name       string
		burnIn     bool
		translated bool
		wantCall   string
		wantOutput string
	}{
		{"original subtitle", false, false, "mux a.srt en a_with_subtitles.mkv", "a_with_subtitles.mkv"},
		{"translated subtitle", false, true, "mux a_fr.srt fr a_with_subtitles.mkv", "a_with_subtitles.mkv"},
		{"burn in", true, true, "burn a_fr.srt a_hardcoded.mkv", "a_hardcoded.mkv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := newWorkspace(t)
			ws.writeVideo(t, "a.mkv")
			ws.writeSubtitle(t, "a.srt")
			q := ws.scan(t)
			if tt.translated {
				ws.writeSubtitle(t, "a_fr.srt")
				if err := q.SetTranslated("a.mkv", "a_fr.srt"); err != nil {
					t.Fatalf("SetTranslated: %v", err)
				}
			}
			settings := ws.settings()
			settings.BurnIn = tt.burnIn
			encoder := &fakeEncoder{}

			report, err := NewRunner(q, settings, WithEncoder(encoder)).Run(context.Background(), OpMerge)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if report.Summary.Completed != 1 {
				t.Fatalf("summary = %+v (%+v)", report.Summary, report.Results)
			}
			if len(encoder.calls) != 1 || encoder.calls[0] != tt.wantCall {
				t.Fatalf("encoder calls = %v, want %q", encoder.calls, tt.wantCall)
			}
			if !fileutil.NonEmptyFile(filepath.Join(ws.output, tt.wantOutput)) {
				t.Fatalf("expected %s", tt.wantOutput)
			}
		})
	}
}

func TestRunProcessFullPipeline(t *testing.T) {
	ws := newWorkspace(t)
	ws.writeVideo(t, "film.mkv")
	ws.writeVideo(t, "silent.mkv")
	q := ws.scan(t)

	encoder := &fakeEncoder{tracks: map[string]int{"film.mkv": 1}}
	observer := &recordingObserver{}
	runner := NewRunner(q, ws.settings(),
		WithEncoder(encoder),
		WithTranslator(&prefixTranslator{prefix: "fr:"}),
		WithObserver(observer),
		WithClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600)) }),
	)
	report, err := runner.Run(context.Background(), OpProcess)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := Summary{Total: 2, Completed: 1, NoSubtitles: 1}
	if report.Summary != want {
		t.Fatalf("summary = %+v, want %+v", report.Summary, want)
	}
	if report.StartedAt.Location() != time.UTC {
		t.Fatal("expected UTC timestamps")
	}

	film, _ := q.Get("film.mkv")
	if film.Status != queue.StatusCompleted || film.TranslatedSubtitle != "film_subtitle_2_fr.srt" {
		t.Fatalf("film item = %+v", film)
	}
	wantCalls := []string{
		"extract film.mkv",
		"mux film_subtitle_2_fr.srt fr film_with_subtitles.mkv",
		"extract silent.mkv",
	}
	if strings.Join(encoder.calls, "|") != strings.Join(wantCalls, "|") {
		t.Fatalf("encoder calls = %v", encoder.calls)
	}
	wantStatuses := []string{
		"film.mkv=Processing",
		"film.mkv=Translating",
		"film.mkv=Translated",
		"film.mkv=Processing",
		"film.mkv=Completed",
		"silent.mkv=Processing",
		"silent.mkv=No Subtitles",
	}
	if strings.Join(observer.statuses, "|") != strings.Join(wantStatuses, "|") {
		t.Fatalf("statuses = %v", observer.statuses)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&NotFoundError{What: "subtitle", Path: "x"}, "not_found"},
		{&FormatError{Path: "x", Reason: "empty"}, "format"},
		{fmt.Errorf("wrap: %w", &CollaboratorError{Collaborator: "encoder", Err: errors.New("boom")}), "collaborator"},
		{&ConfigurationError{Reason: "missing"}, "configuration"},
		{fmt.Errorf("open: %w", os.ErrNotExist), "not_found"},
		{fmt.Errorf("translate a.srt: %w", context.Canceled), "canceled"},
		{errors.New("plain"), "unknown"},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Fatalf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
