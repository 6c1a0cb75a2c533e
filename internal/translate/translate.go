package translate

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"subtrans/internal/logging"
)

const (
	// DefaultChunkSize is the number of units sent per chunk.
	DefaultChunkSize = 20
	// DefaultChunkPause is the delay between consecutive chunks.
	DefaultChunkPause = 100 * time.Millisecond
)

// Translator translates one text from source to target language.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// BatchTranslator is implemented by collaborators that accept many texts per
// call. The result must have one element per input.
type BatchTranslator interface {
	TranslateBatch(ctx context.Context, texts []string, source, target string) ([]string, error)
}

// Cache is a translation memory consulted before calling the collaborator.
type Cache interface {
	Lookup(ctx context.Context, source, target, text string) (string, bool, error)
	Put(ctx context.Context, source, target, text, translated string) error
}

// Stats summarizes one call to TranslateUnits or TranslateMany.
type Stats struct {
	Units      int `json:"units"`
	Translated int `json:"translated"`
	Fallbacks  int `json:"fallbacks"`
	CacheHits  int `json:"cache_hits"`
	Chunks     int `json:"chunks"`
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Units += other.Units
	s.Translated += other.Translated
	s.Fallbacks += other.Fallbacks
	s.CacheHits += other.CacheHits
	s.Chunks += other.Chunks
}

// ChunkFunc is called after each chunk with the number of units done so far.
type ChunkFunc func(done, total int)

// Batcher drives a Translator over ordered units.
type Batcher struct {
	translator Translator
	chunkSize  int
	pause      time.Duration
	sleeper    func(time.Duration)
	repairer   *Repairer
	cache      Cache
	logger     *slog.Logger
}

// Option customizes a Batcher.
type Option func(*Batcher)

// WithChunkSize overrides the number of units per chunk (defaults to 20).
func WithChunkSize(size int) Option {
	return func(b *Batcher) {
		if size > 0 {
			b.chunkSize = size
		}
	}
}

// WithChunkPause overrides the pause between chunks. Zero disables it.
func WithChunkPause(pause time.Duration) Option {
	return func(b *Batcher) {
		if pause >= 0 {
			b.pause = pause
		}
	}
}

// WithSleeper overrides how chunk pauses are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(b *Batcher) {
		b.sleeper = sleeper
	}
}

// WithRepairer applies encoding repair to every translated unit.
func WithRepairer(repairer *Repairer) Option {
	return func(b *Batcher) {
		b.repairer = repairer
	}
}

// WithCache enables a translation memory.
func WithCache(cache Cache) Option {
	return func(b *Batcher) {
		b.cache = cache
	}
}

// WithLogger sets the logger used for per-unit fallbacks.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Batcher) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBatcher constructs a Batcher around translator.
func NewBatcher(translator Translator, opts ...Option) *Batcher {
	b := &Batcher{
		translator: translator,
		chunkSize:  DefaultChunkSize,
		pause:      DefaultChunkPause,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.NewComponentLogger(b.logger, "translate")
	return b
}

// ChunkSize returns the configured chunk size.
func (b *Batcher) ChunkSize() int {
	return b.chunkSize
}

// TranslateUnits translates units chunk by chunk, in order. It never returns
// an error: failed units keep their original text. onChunk may be nil.
func (b *Batcher) TranslateUnits(ctx context.Context, units []string, source, target string, onChunk ChunkFunc) ([]string, Stats) {
	out := make([]string, len(units))
	stats := Stats{Units: len(units)}
	if len(units) == 0 {
		return out, stats
	}
	for start := 0; start < len(units); start += b.chunkSize {
		end := min(start+b.chunkSize, len(units))
		if start > 0 {
			b.wait(ctx)
		}
		stats.Chunks++
		for i := start; i < end; i++ {
			out[i] = b.translateOne(ctx, units[i], source, target, &stats)
		}
		if onChunk != nil {
			onChunk(end, len(units))
		}
	}
	return out, stats
}

// TranslateMany tries a single batch call when the collaborator supports it
// and falls back to TranslateUnits when the batch call fails or returns the
// wrong number of results.
func (b *Batcher) TranslateMany(ctx context.Context, texts []string, source, target string) ([]string, Stats) {
	batcher, ok := b.translator.(BatchTranslator)
	if !ok || len(texts) == 0 {
		return b.TranslateUnits(ctx, texts, source, target, nil)
	}
	results, err := batcher.TranslateBatch(ctx, texts, source, target)
	if err != nil || len(results) != len(texts) {
		attrs := []logging.Attr{
			logging.Int("texts", len(texts)),
			logging.Int("results", len(results)),
			logging.String(logging.FieldImpact, "falling back to per-unit translation"),
		}
		if err != nil {
			attrs = append(attrs, logging.Error(err))
		}
		logging.WarnWithContext(b.logger, "batch translation unusable", "translate_batch_fallback", attrs...)
		return b.TranslateUnits(ctx, texts, source, target, nil)
	}
	out := make([]string, len(texts))
	stats := Stats{Units: len(texts), Chunks: 1}
	for i, text := range texts {
		candidate := b.repair(target, strings.TrimSpace(results[i]))
		if candidate == "" {
			out[i] = text
			if strings.TrimSpace(text) != "" {
				stats.Fallbacks++
			}
			continue
		}
		out[i] = candidate
		if candidate != text {
			stats.Translated++
		}
	}
	return out, stats
}

func (b *Batcher) translateOne(ctx context.Context, unit, source, target string, stats *Stats) string {
	if strings.TrimSpace(unit) == "" {
		return unit
	}
	if b.cache != nil {
		if cached, ok, err := b.cache.Lookup(ctx, source, target, unit); err != nil {
			b.logger.Debug("translation cache lookup failed", logging.Error(err))
		} else if ok {
			stats.CacheHits++
			stats.Translated++
			return cached
		}
	}
	if b.translator == nil || ctx.Err() != nil {
		stats.Fallbacks++
		return unit
	}
	translated, err := b.translator.Translate(ctx, unit, source, target)
	if err != nil {
		stats.Fallbacks++
		b.logger.Debug("unit translation failed; keeping original",
			logging.Error(err),
			logging.Int("length", len(unit)),
		)
		return unit
	}
	translated = b.repair(target, strings.TrimSpace(translated))
	if translated == "" || translated == unit {
		stats.Fallbacks++
		return unit
	}
	stats.Translated++
	if b.cache != nil {
		if err := b.cache.Put(ctx, source, target, unit, translated); err != nil {
			b.logger.Debug("translation cache write failed", logging.Error(err))
		}
	}
	return translated
}

func (b *Batcher) repair(target, text string) string {
	if b.repairer == nil || text == "" {
		return text
	}
	return b.repairer.Repair(target, text)
}

func (b *Batcher) wait(ctx context.Context) {
	if b.pause <= 0 || ctx.Err() != nil {
		return
	}
	if b.sleeper != nil {
		b.sleeper(b.pause)
		return
	}
	timer := time.NewTimer(b.pause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
