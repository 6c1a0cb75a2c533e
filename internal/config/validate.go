package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateFFmpeg(); err != nil {
		return err
	}
	if len(c.Formats.VideoExtensions) == 0 {
		return errors.New("formats.video_extensions must list at least one extension")
	}
	if len(c.Formats.SubtitleExtensions) == 0 {
		return errors.New("formats.subtitle_extensions must list at least one extension")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (use console or json)", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateTranslation() error {
	t := c.Translation
	if t.ChunkSize <= 0 {
		return errors.New("translation.chunk_size must be positive")
	}
	if t.ChunkPauseMillis < 0 {
		return errors.New("translation.chunk_pause_ms must be >= 0")
	}
	if t.TimeoutSeconds <= 0 {
		return errors.New("translation.timeout_seconds must be positive")
	}
	if strings.EqualFold(t.SourceLanguage, t.TargetLanguage) {
		return fmt.Errorf("translation.source_language and target_language are both %q", t.SourceLanguage)
	}
	parsed, err := url.Parse(t.ServerURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("translation.server_url %q must be an http(s) URL", t.ServerURL)
	}
	return nil
}

func (c *Config) validateFFmpeg() error {
	if c.FFmpeg.CRF < 0 || c.FFmpeg.CRF > 51 {
		return errors.New("ffmpeg.crf must be between 0 and 51")
	}
	if !slices.Contains(validPresets, c.FFmpeg.Preset) {
		return fmt.Errorf("ffmpeg.preset %q is not an x264 preset", c.FFmpeg.Preset)
	}
	if c.FFmpeg.TimeoutSeconds < 0 {
		return errors.New("ffmpeg.timeout_seconds must be >= 0")
	}
	return nil
}
