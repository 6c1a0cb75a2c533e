package workflow

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"subtrans/internal/fileutil"
	"subtrans/internal/logging"
	"subtrans/internal/queue"
	"subtrans/internal/srt"
)

func (r *Runner) runExtract(ctx context.Context, logger *slog.Logger, item queue.WorkItem, record *ResultRecord) error {
	if err := r.advance(item.ID, queue.StatusProcessing); err != nil {
		return err
	}
	files, err := r.extractTracks(ctx, logger, item, record)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		record.Message = "no subtitle tracks found"
		return r.finish(item.ID, record, queue.StatusNoSubtitles)
	}

	stripped := filepath.Join(r.settings.OutputDir, fileutil.Stem(item.VideoPath)+"_no_subtitles.mkv")
	if err := r.encoder.StripSubtitles(ctx, item.VideoPath, stripped); err != nil {
		return &CollaboratorError{Collaborator: "encoder", Err: err}
	}
	record.Outputs = append(record.Outputs, stripped)
	record.Message = fmt.Sprintf("extracted %d subtitle track(s)", len(files))
	return r.finish(item.ID, record, queue.StatusCompleted)
}

// extractTracks pulls every subtitle track out of the item's video and pairs
// the first extracted file with the item.
func (r *Runner) extractTracks(ctx context.Context, logger *slog.Logger, item queue.WorkItem, record *ResultRecord) ([]string, error) {
	extraction, err := r.encoder.ExtractAll(ctx, item.VideoPath, r.settings.SubtitlesDir)
	if err != nil {
		return nil, &CollaboratorError{Collaborator: "encoder", Err: err}
	}
	record.TracksExtracted = len(extraction.Files)
	record.Outputs = append(record.Outputs, extraction.Files...)
	if len(extraction.Failed) > 0 {
		logger.Info("some subtitle tracks were skipped",
			logging.Int("tracks", len(extraction.Tracks)),
			logging.Int("failed", len(extraction.Failed)),
		)
	}
	if len(extraction.Files) == 0 {
		return nil, nil
	}
	name := filepath.Base(extraction.Files[0])
	if err := r.queue.SetSubtitle(item.ID, name); err != nil {
		return nil, err
	}
	record.Subtitle = name
	return extraction.Files, nil
}

func (r *Runner) runTranslate(ctx context.Context, logger *slog.Logger, item queue.WorkItem, record *ResultRecord) error {
	if err := r.advance(item.ID, queue.StatusTranslating); err != nil {
		return err
	}
	output, err := r.translateSubtitle(ctx, logger, item, record)
	if err != nil {
		return err
	}
	record.Outputs = append(record.Outputs, output)
	if err := r.advance(item.ID, queue.StatusTranslated); err != nil {
		return err
	}
	record.Status = queue.StatusCompleted
	record.Message = fmt.Sprintf("translated %d unit(s), %d kept in the source language", record.Units, record.Fallbacks)
	return nil
}

// translateSubtitle translates the item's paired subtitle into the target
// language and returns the path of the written file.
func (r *Runner) translateSubtitle(ctx context.Context, logger *slog.Logger, item queue.WorkItem, record *ResultRecord) (string, error) {
	path := filepath.Join(r.settings.SubtitlesDir, item.Subtitle)
	entries, err := srt.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &NotFoundError{What: "subtitle", Path: path}
		}
		return "", err
	}
	if len(entries) == 0 {
		return "", &FormatError{Path: path, Reason: "no subtitle entries found"}
	}
	if issues := srt.Validate(entries); len(issues) > 0 {
		logger.Debug("subtitle structure issues", logging.Any("issues", issues))
	}

	units := srt.TextUnits(entries)
	translated, stats := r.translator.TranslateUnits(ctx, units, r.settings.SourceLanguage, r.settings.TargetLanguage,
		func(done, total int) {
			logger.Debug("translation chunk finished", logging.Int("done", done), logging.Int("total", total))
		})
	record.Units = stats.Units
	record.Fallbacks = stats.Fallbacks
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("translate %s: %w", item.Subtitle, err)
	}

	rebuilt, err := srt.Reassemble(entries, translated)
	if err != nil {
		logging.WarnWithContext(logger, "translated units do not line up with entries", "reassemble_mismatch",
			logging.Error(err),
			logging.String(logging.FieldImpact, "original subtitle text kept"),
		)
	}

	name := fmt.Sprintf("%s_%s.srt", fileutil.Stem(item.Subtitle), r.settings.TargetLanguage)
	output := filepath.Join(r.settings.SubtitlesDir, name)
	if err := srt.WriteFile(output, rebuilt); err != nil {
		return "", err
	}
	if err := r.queue.SetTranslated(item.ID, name); err != nil {
		return "", err
	}
	record.TranslatedSubtitle = name
	logger.Info("subtitle translated",
		logging.String("subtitle", item.Subtitle),
		logging.String("output", name),
		logging.Int("units", stats.Units),
		logging.Int("fallbacks", stats.Fallbacks),
		logging.Int("cache_hits", stats.CacheHits),
	)
	return output, nil
}

func (r *Runner) runMerge(ctx context.Context, logger *slog.Logger, item queue.WorkItem, record *ResultRecord) error {
	if err := r.advance(item.ID, queue.StatusProcessing); err != nil {
		return err
	}
	output, err := r.mergeSubtitle(ctx, logger, item)
	if err != nil {
		return err
	}
	record.Outputs = append(record.Outputs, output)
	record.TranslatedSubtitle = item.TranslatedSubtitle
	record.Message = "wrote " + filepath.Base(output)
	return r.finish(item.ID, record, queue.StatusCompleted)
}

// mergeSubtitle muxes (or burns in) the translated subtitle, or the original
// one when the item has not been translated.
func (r *Runner) mergeSubtitle(ctx context.Context, logger *slog.Logger, item queue.WorkItem) (string, error) {
	name, lang := item.Subtitle, r.settings.SourceLanguage
	if item.TranslatedSubtitle != "" {
		name, lang = item.TranslatedSubtitle, r.settings.TargetLanguage
	}
	if name == "" {
		return "", &NotFoundError{What: "subtitle", Path: item.ID}
	}
	subtitle := filepath.Join(r.settings.SubtitlesDir, name)
	if !fileutil.NonEmptyFile(subtitle) {
		return "", &NotFoundError{What: "subtitle", Path: subtitle}
	}

	stem := fileutil.Stem(item.VideoPath)
	if r.settings.BurnIn {
		output := filepath.Join(r.settings.OutputDir, stem+"_hardcoded.mkv")
		logger.Info("burning subtitle into video", logging.String("subtitle", name))
		if err := r.encoder.BurnSubtitle(ctx, item.VideoPath, subtitle, output); err != nil {
			return "", &CollaboratorError{Collaborator: "encoder", Err: err}
		}
		return output, nil
	}
	output := filepath.Join(r.settings.OutputDir, stem+"_with_subtitles.mkv")
	logger.Info("muxing subtitle track", logging.String("subtitle", name), logging.String("language", lang))
	if err := r.encoder.MuxSubtitle(ctx, item.VideoPath, subtitle, lang, output); err != nil {
		return "", &CollaboratorError{Collaborator: "encoder", Err: err}
	}
	return output, nil
}

func (r *Runner) runProcess(ctx context.Context, logger *slog.Logger, item queue.WorkItem, record *ResultRecord) error {
	if !item.HasSubtitle() {
		if err := r.advance(item.ID, queue.StatusProcessing); err != nil {
			return err
		}
		files, err := r.extractTracks(ctx, logger, item, record)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			record.Message = "no subtitle tracks found"
			return r.finish(item.ID, record, queue.StatusNoSubtitles)
		}
	}

	current, err := r.current(item.ID)
	if err != nil {
		return err
	}
	if err := r.advance(item.ID, queue.StatusTranslating); err != nil {
		return err
	}
	translated, err := r.translateSubtitle(ctx, logger, current, record)
	if err != nil {
		return err
	}
	record.Outputs = append(record.Outputs, translated)
	if err := r.advance(item.ID, queue.StatusTranslated); err != nil {
		return err
	}

	current, err = r.current(item.ID)
	if err != nil {
		return err
	}
	if err := r.advance(item.ID, queue.StatusProcessing); err != nil {
		return err
	}
	merged, err := r.mergeSubtitle(ctx, logger, current)
	if err != nil {
		return err
	}
	record.Outputs = append(record.Outputs, merged)
	record.Message = fmt.Sprintf("translated %d unit(s) and wrote %s", record.Units, filepath.Base(merged))
	return r.finish(item.ID, record, queue.StatusCompleted)
}

func (r *Runner) current(id string) (queue.WorkItem, error) {
	item, ok := r.queue.Get(id)
	if !ok {
		return queue.WorkItem{}, fmt.Errorf("item %q: %w", id, queue.ErrNotFound)
	}
	return item, nil
}
