package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTranslation(); err != nil {
		return err
	}
	c.normalizeFFmpeg()
	c.Formats.VideoExtensions = normalizeExtensions(c.Formats.VideoExtensions)
	c.Formats.SubtitleExtensions = normalizeExtensions(c.Formats.SubtitleExtensions)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name  string
		value *string
		def   string
	}{
		{"paths.input_dir", &c.Paths.InputDir, defaultInputDir},
		{"paths.subtitles_dir", &c.Paths.SubtitlesDir, defaultSubtitlesDir},
		{"paths.output_dir", &c.Paths.OutputDir, defaultOutputDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
		{"paths.cache_dir", &c.Paths.CacheDir, defaultCacheDir()},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.def
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeTranslation() error {
	t := &c.Translation
	if strings.TrimSpace(t.AccessKeyID) == "" {
		if value, ok := os.LookupEnv("LARA_ACCESS_KEY_ID"); ok {
			t.AccessKeyID = value
		}
	}
	if strings.TrimSpace(t.AccessKeySecret) == "" {
		if value, ok := os.LookupEnv("LARA_ACCESS_KEY_SECRET"); ok {
			t.AccessKeySecret = value
		}
	}
	if value, ok := os.LookupEnv("LARA_MCP_SERVER_URL"); ok && strings.TrimSpace(value) != "" {
		if strings.TrimSpace(t.ServerURL) == "" || t.ServerURL == defaultServerURL {
			t.ServerURL = value
		}
	}
	t.AccessKeyID = strings.TrimSpace(t.AccessKeyID)
	t.AccessKeySecret = strings.TrimSpace(t.AccessKeySecret)
	t.ServerURL = strings.TrimSpace(t.ServerURL)
	if t.ServerURL == "" {
		t.ServerURL = defaultServerURL
	}

	var err error
	if t.SourceLanguage, err = canonicalLanguage(t.SourceLanguage, defaultSourceLanguage); err != nil {
		return fmt.Errorf("translation.source_language: %w", err)
	}
	if t.TargetLanguage, err = canonicalLanguage(t.TargetLanguage, defaultTargetLanguage); err != nil {
		return fmt.Errorf("translation.target_language: %w", err)
	}

	if len(t.RepairOverrides) > 0 {
		normalized := make(map[string]map[string]string, len(t.RepairOverrides))
		for lang, pairs := range t.RepairOverrides {
			key, err := canonicalLanguage(lang, "")
			if err != nil {
				return fmt.Errorf("translation.repair_overrides: %w", err)
			}
			normalized[key] = pairs
		}
		t.RepairOverrides = normalized
	}
	return nil
}

func (c *Config) normalizeFFmpeg() {
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	if c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = defaultFFmpegBinary
	}
	c.FFmpeg.ProbeBinary = strings.TrimSpace(c.FFmpeg.ProbeBinary)
	if c.FFmpeg.ProbeBinary == "" {
		c.FFmpeg.ProbeBinary = defaultFFprobeBinary
	}
	c.FFmpeg.Preset = strings.ToLower(strings.TrimSpace(c.FFmpeg.Preset))
	if c.FFmpeg.Preset == "" {
		c.FFmpeg.Preset = defaultPreset
	}
}

// canonicalLanguage parses a BCP 47 tag and returns its canonical form
// ("FR" -> "fr", "pt_br" -> "pt-BR").
func canonicalLanguage(value, fallback string) (string, error) {
	value = strings.TrimSpace(strings.ReplaceAll(value, "_", "-"))
	if value == "" {
		value = fallback
	}
	if value == "" {
		return "", fmt.Errorf("language code required")
	}
	tag, err := language.Parse(value)
	if err != nil {
		return "", fmt.Errorf("invalid language %q: %w", value, err)
	}
	return tag.String(), nil
}

func normalizeExtensions(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(value))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}
