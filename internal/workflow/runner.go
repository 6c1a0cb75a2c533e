package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"subtrans/internal/config"
	"subtrans/internal/ffmpeg"
	"subtrans/internal/logging"
	"subtrans/internal/queue"
	"subtrans/internal/translate"
)

// Encoder is the subset of the ffmpeg encoder the runner drives.
type Encoder interface {
	ExtractAll(ctx context.Context, video, dir string) (ffmpeg.Extraction, error)
	StripSubtitles(ctx context.Context, video, output string) error
	MuxSubtitle(ctx context.Context, video, subtitle, lang, output string) error
	BurnSubtitle(ctx context.Context, video, subtitle, output string) error
}

// UnitTranslator translates ordered text units without failing as a whole.
type UnitTranslator interface {
	TranslateUnits(ctx context.Context, units []string, source, target string, onChunk translate.ChunkFunc) ([]string, translate.Stats)
}

// Settings carries the folders and languages a run works with.
type Settings struct {
	SubtitlesDir   string
	OutputDir      string
	SourceLanguage string
	TargetLanguage string
	BurnIn         bool
}

// SettingsFromConfig extracts run settings from the loaded configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		SubtitlesDir:   cfg.Paths.SubtitlesDir,
		OutputDir:      cfg.Paths.OutputDir,
		SourceLanguage: cfg.Translation.SourceLanguage,
		TargetLanguage: cfg.Translation.TargetLanguage,
		BurnIn:         cfg.FFmpeg.BurnIn,
	}
}

// Runner executes batch operations against a queue.
type Runner struct {
	queue      *queue.Queue
	settings   Settings
	encoder    Encoder
	translator UnitTranslator
	observer   Observer
	logger     *slog.Logger
	now        func() time.Time
	newRunID   func() string
}

// Option customizes a Runner.
type Option func(*Runner)

// WithEncoder sets the encoder collaborator.
func WithEncoder(encoder Encoder) Option {
	return func(r *Runner) {
		r.encoder = encoder
	}
}

// WithTranslator sets the translation collaborator. Without one, translate
// and process runs fail at setup.
func WithTranslator(translator UnitTranslator) Option {
	return func(r *Runner) {
		r.translator = translator
	}
}

// WithObserver sets the event observer.
func WithObserver(observer Observer) Option {
	return func(r *Runner) {
		if observer != nil {
			r.observer = observer
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner constructs a Runner over q.
func NewRunner(q *queue.Queue, settings Settings, opts ...Option) *Runner {
	r := &Runner{
		queue:    q,
		settings: settings,
		observer: NopObserver{},
		logger:   logging.NewNop(),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "runner")
	return r
}

// Run executes op over every eligible item. Setup failures are returned as
// errors before any item changes; per-item failures become records.
//
// Run leaves the stop flag alone: callers reset the queue before they expose
// the run, so a stop requested in between is honored and yields a stopped
// report with no results.
func (r *Runner) Run(ctx context.Context, op Operation) (Report, error) {
	items, err := r.setup(op)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		RunID:     r.newRunID(),
		Operation: op,
		StartedAt: r.now(),
		Results:   make([]ResultRecord, 0, len(items)),
	}
	logger := r.logger.With(
		logging.String(logging.FieldRunID, report.RunID),
		logging.String(logging.FieldOperation, string(op)),
	)
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("items", len(items)),
	)
	sampler := logging.NewProgressSampler(25)

	total := len(items)
	for i, item := range items {
		if r.queue.StopRequested() || ctx.Err() != nil {
			report.Stopped = true
			break
		}
		percent := float64(i) / float64(total) * 100
		message := fmt.Sprintf("Processing %s (%d/%d)", item.ID, i+1, total)
		r.observer.OnProgress(message, percent)
		if sampler.ShouldLog(percent, "") {
			logger.Info("run progress", logging.String("message", message), logging.Float64("percent", percent))
		}

		record := r.runItem(ctx, logger, op, item)
		report.Results = append(report.Results, record)
		if ro, ok := r.observer.(ResultObserver); ok {
			ro.OnResult(record)
		}
	}
	if r.queue.StopRequested() {
		report.Stopped = true
	}

	report.FinishedAt = r.now()
	report.Finalize()
	r.observer.OnProgress(
		fmt.Sprintf("%s finished: %d completed, %d errors", op, report.Summary.Completed, report.Summary.Errors),
		100,
	)
	logger.Info("run finished",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("completed", report.Summary.Completed),
		logging.Int("errors", report.Summary.Errors),
		logging.Int("no_subtitles", report.Summary.NoSubtitles),
		logging.Bool("stopped", report.Stopped),
		logging.Duration("elapsed", report.Duration()),
	)
	return report, nil
}

// Validate reports whether op could run now without touching the queue. It
// returns the same errors Run returns during setup.
func (r *Runner) Validate(op Operation) error {
	if _, err := ParseOperation(string(op)); err != nil {
		return err
	}
	if r.queue == nil || r.queue.Len() == 0 {
		return ErrQueueEmpty
	}
	if op.needsTranslator() && r.translator == nil {
		return &ConfigurationError{Reason: "translation service not configured (set LARA access credentials)"}
	}
	if op.needsEncoder() && r.encoder == nil {
		return &ConfigurationError{Reason: "encoder not configured"}
	}
	_, err := r.subset(op)
	return err
}

func (r *Runner) setup(op Operation) ([]queue.WorkItem, error) {
	if err := r.Validate(op); err != nil {
		return nil, err
	}
	return r.subset(op)
}

func (r *Runner) subset(op Operation) ([]queue.WorkItem, error) {
	items := r.queue.Filter(op.eligible)
	if len(items) == 0 {
		if op.needsSubtitle() {
			return nil, fmt.Errorf("%s: %w: no item has a subtitle", op, ErrNothingToProcess)
		}
		return nil, fmt.Errorf("%s: %w", op, ErrNothingToProcess)
	}
	return items, nil
}

// runItem processes one item and always returns a record. Panics are
// converted into an Error record.
func (r *Runner) runItem(ctx context.Context, logger *slog.Logger, op Operation, item queue.WorkItem) (record ResultRecord) {
	started := r.now()
	record = ResultRecord{ItemID: item.ID, Operation: op, Subtitle: item.Subtitle}
	itemLogger := logger.With(logging.String(logging.FieldItemID, item.ID))

	defer func() {
		if p := recover(); p != nil {
			r.fail(itemLogger, &record, &panicError{value: p})
		}
		record.Duration = r.now().Sub(started)
	}()

	var err error
	switch op {
	case OpExtract:
		err = r.runExtract(ctx, itemLogger, item, &record)
	case OpTranslate:
		err = r.runTranslate(ctx, itemLogger, item, &record)
	case OpMerge:
		err = r.runMerge(ctx, itemLogger, item, &record)
	case OpProcess:
		err = r.runProcess(ctx, itemLogger, item, &record)
	}
	if err != nil {
		r.fail(itemLogger, &record, err)
		return record
	}
	itemLogger.Info("item finished",
		logging.String(logging.FieldEventType, "item_complete"),
		logging.String("status", string(record.Status)),
		logging.String("message", record.Message),
	)
	return record
}

// advance moves the item to status and notifies the observer.
func (r *Runner) advance(id string, status queue.Status) error {
	got, err := r.queue.Advance(id, status)
	if err != nil {
		return err
	}
	r.observer.OnItemStatus(id, got)
	return nil
}

// finish records the final status of a successful item.
func (r *Runner) finish(id string, record *ResultRecord, status queue.Status) error {
	if err := r.advance(id, status); err != nil {
		return err
	}
	record.Status = status
	return nil
}

func (r *Runner) fail(logger *slog.Logger, record *ResultRecord, cause error) {
	record.Status = queue.StatusError
	record.Error = cause.Error()
	record.ErrorKind = Kind(cause)
	if _, err := r.queue.Advance(record.ItemID, queue.StatusError); err != nil {
		// The item never left its idle status; pass through Processing.
		if _, perr := r.queue.Advance(record.ItemID, queue.StatusProcessing); perr == nil {
			_, err = r.queue.Advance(record.ItemID, queue.StatusError)
		}
		if err != nil {
			logger.Debug("could not record error status", logging.Error(err))
		}
	}
	r.observer.OnItemStatus(record.ItemID, queue.StatusError)
	logging.WarnWithContext(logger, "item failed", "item_failed",
		logging.Error(cause),
		logging.String("error_kind", record.ErrorKind),
		logging.String(logging.FieldImpact, "item marked Error; batch continues"),
		logging.String(logging.FieldErrorHint, hintFor(cause)),
	)
}

func hintFor(err error) string {
	var cfgErr *ConfigurationError
	var notFound *NotFoundError
	var formatErr *FormatError
	switch {
	case errors.As(err, &cfgErr):
		return "check the configuration with `subtrans config show`"
	case errors.As(err, &notFound):
		return "re-scan the folders or pair another subtitle"
	case errors.As(err, &formatErr):
		return "inspect the subtitle file; only SubRip text is translated"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "run was interrupted; start it again to redo this item"
	default:
		return "see the log for encoder or service output"
	}
}
