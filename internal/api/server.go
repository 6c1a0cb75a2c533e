package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"subtrans/internal/logging"
	"subtrans/internal/queue"
	"subtrans/internal/workflow"
)

// RunnerFactory builds a runner for one run that reports to observer.
type RunnerFactory func(observer workflow.Observer) *workflow.Runner

// ScanSettings names the folders and extensions used by POST /api/scan.
type ScanSettings struct {
	Folders queue.FolderPair
	Formats queue.Formats
}

// ErrRunInProgress is returned when a run is requested while one is active.
var ErrRunInProgress = errors.New("a run is already in progress")

// Server serves the HTTP control surface.
type Server struct {
	queue     *queue.Queue
	scan      ScanSettings
	newRunner RunnerFactory
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	state *runState
}

// runState tracks one run. Fields are guarded by Server.mu.
type runState struct {
	running   bool
	operation workflow.Operation
	percent   float64
	message   string
	started   time.Time
	results   []workflow.ResultRecord
	report    *workflow.Report
	err       error
}

// NewServer constructs a server around q.
func NewServer(q *queue.Queue, scan ScanSettings, factory RunnerFactory, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		queue:     q,
		scan:      scan,
		newRunner: factory,
		logger:    logging.NewComponentLogger(logger, "api"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Router returns a gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/queue", s.handleQueue)
	r.POST("/api/scan", s.handleScan)
	r.POST("/api/queue/pair", s.handlePair)

	runs := r.Group("/api/runs")
	runs.POST("/:operation", s.handleStartRun)
	runs.GET("/current", s.handleCurrentRun)

	r.POST("/api/stop", s.handleStop)
	r.POST("/api/reset", s.handleReset)
	return r
}

// Serve listens on addr until ctx is canceled, then stops any active run
// and shuts the listener down.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("http api listening", logging.String("addr", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// Start launches op in the background. It fails fast when a run is active
// or when the runner rejects the operation during validation.
func (s *Server) Start(op workflow.Operation) error {
	if s.newRunner == nil {
		return &workflow.ConfigurationError{Reason: "runner not configured"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busyLocked() {
		return ErrRunInProgress
	}
	// A stop posted after this point, even before the goroutine starts, is
	// honored by the run.
	s.queue.Reset()
	state := &runState{running: true, operation: op, started: time.Now()}
	runner := s.newRunner(&runObserver{server: s, state: state})
	if err := runner.Validate(op); err != nil {
		return err
	}
	s.state = state

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		report, err := runner.Run(s.ctx, op)
		s.mu.Lock()
		defer s.mu.Unlock()
		state.running = false
		if err != nil {
			state.err = err
			logging.WarnWithContext(s.logger, "background run failed", "run_failed",
				logging.String(logging.FieldOperation, string(op)),
				logging.Error(err),
			)
			return
		}
		state.report = &report
		state.percent = 100
	}()
	return nil
}

// Wait blocks until the background run, if any, has returned.
func (s *Server) Wait() {
	s.wg.Wait()
}

// Close requests a stop, cancels the active run and waits for it.
func (s *Server) Close() {
	s.queue.RequestStop()
	s.cancel()
	s.wg.Wait()
}

// Busy reports whether a run is active.
func (s *Server) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busyLocked()
}

func (s *Server) busyLocked() bool {
	return s.state != nil && s.state.running
}

// Scan rebuilds the queue from the configured folders unless a run is active.
func (s *Server) Scan() ([]queue.WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busyLocked() {
		return nil, ErrRunInProgress
	}
	return s.queue.Scan(s.scan.Folders, s.scan.Formats)
}

// Pair applies manual video to subtitle selections unless a run is active.
func (s *Server) Pair(pairs map[string]string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busyLocked() {
		return 0, ErrRunInProgress
	}
	return s.queue.SelectSubtitles(pairs), nil
}

// ResetQueue reverts interrupted items to Pending unless a run is active.
func (s *Server) ResetQueue() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busyLocked() {
		return 0, ErrRunInProgress
	}
	return s.queue.Reset(), nil
}

// Status snapshots the active or last run.
func (s *Server) Status() RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := RunStatus{Results: []RunResult{}}
	st := s.state
	if st == nil {
		return status
	}
	status.Running = st.running
	status.Operation = string(st.operation)
	status.Percent = st.percent
	status.Message = st.message
	status.StartedAt = st.started.UTC().Format(dateTimeFormat)
	for _, record := range st.results {
		status.Results = append(status.Results, FromResult(record))
	}
	if st.err != nil {
		status.Error = st.err.Error()
	}
	if st.report != nil {
		status.RunID = st.report.RunID
		status.Stopped = st.report.Stopped
		status.FinishedAt = st.report.FinishedAt.Format(dateTimeFormat)
		status.Summary = FromSummary(st.report.Summary)
	}
	return status
}

// runObserver feeds run events into the server state.
type runObserver struct {
	server *Server
	state  *runState
}

func (o *runObserver) OnProgress(message string, percent float64) {
	o.server.mu.Lock()
	defer o.server.mu.Unlock()
	o.state.message = message
	o.state.percent = percent
}

func (o *runObserver) OnItemStatus(string, queue.Status) {}

func (o *runObserver) OnResult(record workflow.ResultRecord) {
	o.server.mu.Lock()
	defer o.server.mu.Unlock()
	o.state.results = append(o.state.results, record)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			logging.String("method", c.Request.Method),
			logging.String("path", c.FullPath()),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("elapsed", time.Since(start)),
		)
	}
}
