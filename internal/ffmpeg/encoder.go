package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"subtrans/internal/fileutil"
	"subtrans/internal/language"
	"subtrans/internal/logging"
)

const (
	defaultFFmpegBinary  = "ffmpeg"
	defaultFFprobeBinary = "ffprobe"
	defaultCRF           = 23
	defaultPreset        = "medium"
)

// ErrNoOutput reports an ffmpeg run that exited cleanly but produced no file
// or an empty one.
var ErrNoOutput = errors.New("encoder produced no output")

// Error wraps an encoder failure with the operation and input path.
type Error struct {
	Op     string
	Path   string
	Err    error
	Output string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("ffmpeg %s %s: %v", e.Op, filepath.Base(e.Path), e.Err)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind classifies the error for result records.
func (e *Error) ErrorKind() string { return "collaborator" }

// CommandRunner executes a binary and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Options configures an Encoder.
type Options struct {
	FFmpegBinary  string
	FFprobeBinary string
	// Timeout bounds each ffmpeg invocation. Zero means no limit beyond ctx.
	Timeout time.Duration
	CRF     int
	Preset  string
}

// Encoder runs ffmpeg/ffprobe commands.
type Encoder struct {
	ffmpeg  string
	ffprobe string
	timeout time.Duration
	crf     int
	preset  string
	logger  *slog.Logger
	run     CommandRunner
}

// New constructs an Encoder.
func New(opts Options, logger *slog.Logger) *Encoder {
	e := &Encoder{
		ffmpeg:  strings.TrimSpace(opts.FFmpegBinary),
		ffprobe: strings.TrimSpace(opts.FFprobeBinary),
		timeout: opts.Timeout,
		crf:     opts.CRF,
		preset:  strings.TrimSpace(opts.Preset),
		logger:  logging.NewComponentLogger(logger, "encoder"),
		run:     defaultCommandRunner,
	}
	if e.ffmpeg == "" {
		e.ffmpeg = defaultFFmpegBinary
	}
	if e.ffprobe == "" {
		e.ffprobe = defaultFFprobeBinary
	}
	if e.crf <= 0 {
		e.crf = defaultCRF
	}
	if e.preset == "" {
		e.preset = defaultPreset
	}
	return e
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (e *Encoder) WithCommandRunner(r CommandRunner) {
	if e != nil && r != nil {
		e.run = r
	}
}

// ExtractTrack writes one subtitle track of video to output as SRT. When the
// absolute stream mapping fails, the subtitle-relative mapping is tried.
func (e *Encoder) ExtractTrack(ctx context.Context, video string, track Track, output string) error {
	err := e.render(ctx, "extract", video, output, func(tmp string) []string {
		return extractArgs(video, streamMapping(track), tmp)
	})
	if err == nil || ctx.Err() != nil {
		return err
	}
	e.logger.Debug("retrying extraction with subtitle-relative mapping",
		logging.String("video", filepath.Base(video)),
		logging.Int("stream_index", track.Index),
		logging.Int("subtitle_ordinal", track.Ordinal),
		logging.Error(err),
	)
	return e.render(ctx, "extract", video, output, func(tmp string) []string {
		return extractArgs(video, relativeMapping(track), tmp)
	})
}

// Extraction is the outcome of ExtractAll.
type Extraction struct {
	Tracks []Track
	Files  []string
	Failed []Track
}

// ExtractAll probes video and extracts every subtitle track into dir as
// <stem>_subtitle_<index>.srt. Tracks that fail to extract are reported in
// Failed; only a probe failure is returned as an error.
func (e *Encoder) ExtractAll(ctx context.Context, video, dir string) (Extraction, error) {
	tracks, err := e.SubtitleTracks(ctx, video)
	if err != nil {
		return Extraction{}, err
	}
	result := Extraction{Tracks: tracks}
	if len(tracks) == 0 {
		return result, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return result, fmt.Errorf("create subtitles dir: %w", err)
	}
	stem := fileutil.Stem(video)
	for _, track := range tracks {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		output := filepath.Join(dir, fmt.Sprintf("%s_subtitle_%d.srt", stem, track.Index))
		if err := e.ExtractTrack(ctx, video, track, output); err != nil {
			logging.WarnWithContext(e.logger, "subtitle track extraction failed", "subtitle_extract_failed",
				logging.String("video", filepath.Base(video)),
				logging.Int("stream_index", track.Index),
				logging.String("codec", track.Codec),
				logging.Error(err),
				logging.String(logging.FieldImpact, "track skipped"),
				logging.String(logging.FieldErrorHint, "bitmap subtitles (PGS, VobSub) cannot be converted to SRT"),
			)
			result.Failed = append(result.Failed, track)
			continue
		}
		result.Files = append(result.Files, output)
	}
	return result, nil
}

// StripSubtitles copies the video and audio streams of video into output,
// dropping every subtitle stream.
func (e *Encoder) StripSubtitles(ctx context.Context, video, output string) error {
	return e.render(ctx, "strip", video, output, func(tmp string) []string {
		return stripArgs(video, tmp)
	})
}

// MuxSubtitle stream-copies video and adds subtitle as a track tagged with
// the ISO 639-2 form of lang.
func (e *Encoder) MuxSubtitle(ctx context.Context, video, subtitle, lang, output string) error {
	if _, err := os.Stat(subtitle); err != nil {
		return &Error{Op: "mux", Path: subtitle, Err: err}
	}
	iso3 := language.ToISO3(lang)
	return e.render(ctx, "mux", video, output, func(tmp string) []string {
		return muxArgs(video, subtitle, iso3, tmp)
	})
}

// BurnSubtitle re-encodes video with subtitle rendered into the picture.
func (e *Encoder) BurnSubtitle(ctx context.Context, video, subtitle, output string) error {
	if _, err := os.Stat(subtitle); err != nil {
		return &Error{Op: "burn", Path: subtitle, Err: err}
	}
	return e.render(ctx, "burn", video, output, func(tmp string) []string {
		return burnArgs(video, subtitle, e.crf, e.preset, tmp)
	})
}

// render runs ffmpeg into a temporary sibling of output and renames it into
// place once the file exists and is non-empty.
func (e *Encoder) render(ctx context.Context, op, input, output string, build func(tmp string) []string) error {
	if strings.TrimSpace(input) == "" || strings.TrimSpace(output) == "" {
		return &Error{Op: op, Path: input, Err: errors.New("input and output paths are required")}
	}
	if _, err := os.Stat(input); err != nil {
		return &Error{Op: op, Path: input, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return &Error{Op: op, Path: output, Err: err}
	}
	tmp := fileutil.TempSibling(output)
	args := build(tmp)

	e.logger.Debug("executing ffmpeg",
		logging.String("op", op),
		logging.String("input", filepath.Base(input)),
		logging.String("output", filepath.Base(output)),
	)
	started := time.Now()
	out, err := e.exec(ctx, e.ffmpeg, args)
	if err != nil {
		_ = os.Remove(tmp)
		return &Error{Op: op, Path: input, Err: err, Output: tail(out)}
	}
	if !fileutil.NonEmptyFile(tmp) {
		_ = os.Remove(tmp)
		return &Error{Op: op, Path: input, Err: ErrNoOutput, Output: tail(out)}
	}
	if err := os.Rename(tmp, output); err != nil {
		_ = os.Remove(tmp)
		return &Error{Op: op, Path: output, Err: fmt.Errorf("rename output: %w", err)}
	}
	e.logger.Debug("ffmpeg finished",
		logging.String("op", op),
		logging.String("output", filepath.Base(output)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func (e *Encoder) exec(ctx context.Context, binary string, args []string) ([]byte, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return e.run(ctx, binary, args...)
}

// tail keeps the last few lines of ffmpeg output for error messages.
func tail(output []byte) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	const keep = 3
	if len(lines) > keep {
		lines = lines[len(lines)-keep:]
	}
	return strings.TrimSpace(strings.Join(lines, " | "))
}

// defaultCommandRunner executes commands with exec.CommandContext.
func defaultCommandRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s: %w", name, err)
	}
	return output, nil
}
