package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"subtrans/internal/queue"
	"subtrans/internal/translate"
	"subtrans/internal/workflow"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type upperTranslator struct {
	started chan struct{}
	release chan struct{}
}

func (u *upperTranslator) TranslateUnits(_ context.Context, units []string, _, _ string, _ translate.ChunkFunc) ([]string, translate.Stats) {
	if u.started != nil {
		u.started <- struct{}{}
		<-u.release
	}
	out := make([]string, len(units))
	for i, unit := range units {
		out[i] = strings.ToUpper(unit)
	}
	return out, translate.Stats{Units: len(units), Translated: len(units)}
}

type fixture struct {
	server    *Server
	router    http.Handler
	queue     *queue.Queue
	subtitles string
}

func newFixture(t *testing.T, translator workflow.UnitTranslator) fixture {
	t.Helper()
	root := t.TempDir()
	input := filepath.Join(root, "input")
	subtitles := filepath.Join(root, "subtitles")
	for _, dir := range []string{input, subtitles} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	for _, name := range []string{"a.mkv", "b.mkv"} {
		if err := os.WriteFile(filepath.Join(input, name), []byte("video"), 0o644); err != nil {
			t.Fatalf("write video: %v", err)
		}
	}
	srt := "1\n00:00:01,000 --> 00:00:02,000\nhello\n"
	if err := os.WriteFile(filepath.Join(subtitles, "a.en.srt"), []byte(srt), 0o644); err != nil {
		t.Fatalf("write subtitle: %v", err)
	}

	q := queue.New()
	settings := workflow.Settings{SubtitlesDir: subtitles, OutputDir: root, SourceLanguage: "en", TargetLanguage: "fr"}
	factory := func(observer workflow.Observer) *workflow.Runner {
		return workflow.NewRunner(q, settings, workflow.WithTranslator(translator), workflow.WithObserver(observer))
	}
	scan := ScanSettings{
		Folders: queue.FolderPair{InputDir: input, SubtitlesDir: subtitles},
		Formats: queue.Formats{Video: []string{".mkv"}, Subtitle: []string{".srt"}},
	}
	srv := NewServer(q, scan, factory, nil)
	t.Cleanup(srv.Close)
	return fixture{server: srv, router: srv.Router(), queue: q, subtitles: subtitles}
}

func (f fixture) do(t *testing.T, method, path, body string, out any) int {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec.Code
}

func TestHealth(t *testing.T) {
	f := newFixture(t, &upperTranslator{})
	var body map[string]any
	if code := f.do(t, http.MethodGet, "/api/health", "", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestScanAndQueue(t *testing.T) {
	f := newFixture(t, &upperTranslator{})

	var scanned QueueListResponse
	if code := f.do(t, http.MethodPost, "/api/scan", "", &scanned); code != http.StatusOK {
		t.Fatalf("scan status = %d", code)
	}
	if len(scanned.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(scanned.Items))
	}
	if scanned.Items[0].Subtitle != "a.en.srt" || scanned.Items[1].Subtitle != "" {
		t.Fatalf("unexpected pairing: %+v", scanned.Items)
	}
	if scanned.Counts["Pending"] != 2 || scanned.Counts["Completed"] != 0 {
		t.Fatalf("counts = %v", scanned.Counts)
	}

	var listed QueueListResponse
	if code := f.do(t, http.MethodGet, "/api/queue", "", &listed); code != http.StatusOK {
		t.Fatalf("queue status = %d", code)
	}
	if len(listed.Items) != 2 || listed.Items[0].ID != "a.mkv" {
		t.Fatalf("listed = %+v", listed.Items)
	}
}

func TestPair(t *testing.T) {
	f := newFixture(t, &upperTranslator{})
	f.do(t, http.MethodPost, "/api/scan", "", nil)

	var resp PairResponse
	code := f.do(t, http.MethodPost, "/api/queue/pair", `{"pairs":{"b.mkv":"a.en.srt","zzz.mkv":"x.srt"}}`, &resp)
	if code != http.StatusOK || resp.Applied != 1 {
		t.Fatalf("code = %d, resp = %+v", code, resp)
	}
	if item, _ := f.queue.Get("b.mkv"); item.Subtitle != "a.en.srt" {
		t.Fatalf("b.mkv subtitle = %q", item.Subtitle)
	}
	if code := f.do(t, http.MethodPost, "/api/queue/pair", `{}`, nil); code != http.StatusBadRequest {
		t.Fatalf("empty body status = %d", code)
	}
}

func TestStartRunTranslate(t *testing.T) {
	f := newFixture(t, &upperTranslator{})
	f.do(t, http.MethodPost, "/api/scan", "", nil)

	if code := f.do(t, http.MethodPost, "/api/runs/translate", "", nil); code != http.StatusAccepted {
		t.Fatalf("start status = %d", code)
	}
	f.server.Wait()

	var status RunStatus
	if code := f.do(t, http.MethodGet, "/api/runs/current", "", &status); code != http.StatusOK {
		t.Fatalf("current status = %d", code)
	}
	if status.Running || status.RunID == "" || status.Operation != "translate" {
		t.Fatalf("status = %+v", status)
	}
	if status.Summary == nil || status.Summary.Completed != 1 || status.Percent != 100 {
		t.Fatalf("summary = %+v percent = %v", status.Summary, status.Percent)
	}
	if len(status.Results) != 1 || status.Results[0].ItemID != "a.mkv" {
		t.Fatalf("results = %+v", status.Results)
	}
	data, err := os.ReadFile(filepath.Join(f.subtitles, "a.en_fr.srt"))
	if err != nil {
		t.Fatalf("read translated: %v", err)
	}
	if !strings.Contains(string(data), "HELLO") {
		t.Fatalf("translated file = %q", data)
	}
}

func TestStartRunErrors(t *testing.T) {
	f := newFixture(t, &upperTranslator{})

	var body ErrorResponse
	if code := f.do(t, http.MethodPost, "/api/runs/translate", "", &body); code != http.StatusUnprocessableEntity {
		t.Fatalf("empty queue status = %d (%+v)", code, body)
	}
	f.do(t, http.MethodPost, "/api/scan", "", nil)
	if code := f.do(t, http.MethodPost, "/api/runs/transcode", "", nil); code != http.StatusNotFound {
		t.Fatalf("unknown operation status = %d", code)
	}
	if code := f.do(t, http.MethodPost, "/api/runs/extract", "", &body); code != http.StatusServiceUnavailable || body.Kind != "configuration" {
		t.Fatalf("extract without encoder = %d (%+v)", code, body)
	}
}

func TestBusyRunConflictsAndStop(t *testing.T) {
	translator := &upperTranslator{started: make(chan struct{}), release: make(chan struct{})}
	f := newFixture(t, translator)
	f.do(t, http.MethodPost, "/api/scan", "", nil)
	f.queue.SelectSubtitles(map[string]string{"b.mkv": "a.en.srt"})

	if code := f.do(t, http.MethodPost, "/api/runs/translate", "", nil); code != http.StatusAccepted {
		t.Fatalf("start status = %d", code)
	}
	<-translator.started

	if code := f.do(t, http.MethodPost, "/api/runs/translate", "", nil); code != http.StatusConflict {
		t.Fatalf("second start status = %d", code)
	}
	if code := f.do(t, http.MethodPost, "/api/scan", "", nil); code != http.StatusConflict {
		t.Fatalf("scan while busy status = %d", code)
	}
	if code := f.do(t, http.MethodPost, "/api/queue/pair", `{"pairs":{"a.mkv":""}}`, nil); code != http.StatusConflict {
		t.Fatalf("pair while busy status = %d", code)
	}
	if code := f.do(t, http.MethodPost, "/api/reset", "", nil); code != http.StatusConflict {
		t.Fatalf("reset while busy status = %d", code)
	}

	var stop StopResponse
	if code := f.do(t, http.MethodPost, "/api/stop", "", &stop); code != http.StatusAccepted {
		t.Fatalf("stop status = %d", code)
	}
	if len(stop.Stopped) != 1 || stop.Stopped[0] != "a.mkv" {
		t.Fatalf("stopped = %v", stop.Stopped)
	}
	close(translator.release)
	f.server.Wait()

	status := f.server.Status()
	if !status.Stopped || len(status.Results) != 1 {
		t.Fatalf("status = %+v", status)
	}
	if item, _ := f.queue.Get("b.mkv"); item.Status != queue.StatusPending {
		t.Fatalf("b.mkv status = %s", item.Status)
	}

	var reset ResetResponse
	if code := f.do(t, http.MethodPost, "/api/reset", "", &reset); code != http.StatusOK {
		t.Fatalf("reset status = %d", code)
	}
	if f.queue.StopRequested() {
		t.Fatal("reset should clear the stop flag")
	}
}

func TestStopRightAfterStartIsHonored(t *testing.T) {
	translator := &upperTranslator{started: make(chan struct{}, 2), release: make(chan struct{})}
	f := newFixture(t, translator)
	f.do(t, http.MethodPost, "/api/scan", "", nil)
	f.queue.SelectSubtitles(map[string]string{"b.mkv": "a.en.srt"})

	if code := f.do(t, http.MethodPost, "/api/runs/translate", "", nil); code != http.StatusAccepted {
		t.Fatalf("start status = %d", code)
	}
	if code := f.do(t, http.MethodPost, "/api/stop", "", nil); code != http.StatusAccepted {
		t.Fatalf("stop status = %d", code)
	}
	close(translator.release)
	f.server.Wait()

	status := f.server.Status()
	if !status.Stopped || len(status.Results) > 1 {
		t.Fatalf("status = %+v", status)
	}
	if item, _ := f.queue.Get("b.mkv"); item.Status != queue.StatusPending {
		t.Fatalf("b.mkv status = %s, want Pending", item.Status)
	}
}

func TestStartClearsEarlierStop(t *testing.T) {
	f := newFixture(t, &upperTranslator{})
	f.do(t, http.MethodPost, "/api/scan", "", nil)
	f.queue.RequestStop()

	if code := f.do(t, http.MethodPost, "/api/runs/translate", "", nil); code != http.StatusAccepted {
		t.Fatalf("start status = %d", code)
	}
	f.server.Wait()
	status := f.server.Status()
	if status.Stopped || status.Summary == nil || status.Summary.Completed != 1 {
		t.Fatalf("status = %+v", status)
	}
}
