package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the three working folders plus log/cache locations.
type Paths struct {
	InputDir     string `toml:"input_dir"`
	SubtitlesDir string `toml:"subtitles_dir"`
	OutputDir    string `toml:"output_dir"`
	LogDir       string `toml:"log_dir"`
	CacheDir     string `toml:"cache_dir"`
	APIBind      string `toml:"api_bind"`
}

// Translation configures the translation service and batching.
type Translation struct {
	ServerURL        string `toml:"server_url"`
	AccessKeyID      string `toml:"access_key_id"`
	AccessKeySecret  string `toml:"access_key_secret"`
	SourceLanguage   string `toml:"source_language"`
	TargetLanguage   string `toml:"target_language"`
	ChunkSize        int    `toml:"chunk_size"`
	ChunkPauseMillis int    `toml:"chunk_pause_ms"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	CacheEnabled     bool   `toml:"cache_enabled"`
	RepairEncoding   bool   `toml:"repair_encoding"`
	// RepairOverrides adds mojibake replacements per target language.
	RepairOverrides map[string]map[string]string `toml:"repair_overrides"`
}

// FFmpeg configures the external encoder.
type FFmpeg struct {
	Binary         string `toml:"ffmpeg_binary"`
	ProbeBinary    string `toml:"ffprobe_binary"`
	BurnIn         bool   `toml:"burn_in"`
	CRF            int    `toml:"crf"`
	Preset         string `toml:"preset"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Formats lists the file extensions picked up by a folder scan.
type Formats struct {
	VideoExtensions    []string `toml:"video_extensions"`
	SubtitleExtensions []string `toml:"subtitle_extensions"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for subtrans.
type Config struct {
	Paths       Paths       `toml:"paths"`
	Translation Translation `toml:"translation"`
	FFmpeg      FFmpeg      `toml:"ffmpeg"`
	Formats     Formats     `toml:"formats"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/subtrans/config.toml")
}

// Load locates, parses, and validates a configuration file. A missing file is
// not an error: defaults plus environment fallbacks are used instead.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadDotEnv(filepath.Dir(resolvedPath)); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("subtrans.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// loadDotEnv loads .env files from the config directory and the working
// directory. Variables already present in the environment win.
func loadDotEnv(configDir string) error {
	candidates := []string{filepath.Join(configDir, ".env"), ".env"}
	var files []string
	seen := map[string]struct{}{}
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			files = append(files, abs)
		}
	}
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// EnsureDirectories creates the subtitles, output, log and cache directories.
// The input folder is never created: a missing one is reported by the scan.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.SubtitlesDir, c.Paths.OutputDir, c.Paths.LogDir}
	if c.Translation.CacheEnabled {
		dirs = append(dirs, c.Paths.CacheDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HasCredentials reports whether both translation access keys are present.
func (c *Config) HasCredentials() bool {
	return strings.TrimSpace(c.Translation.AccessKeyID) != "" &&
		strings.TrimSpace(c.Translation.AccessKeySecret) != ""
}

// CacheDatabasePath returns the translation memory database location.
func (c *Config) CacheDatabasePath() string {
	return filepath.Join(c.Paths.CacheDir, defaultCacheDatabaseName)
}

// LockPath returns the run lock guarding the subtitles folder.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "subtrans.lock")
}

// ChunkPause returns the pause between translation chunks.
func (c *Config) ChunkPause() time.Duration {
	if c.Translation.ChunkPauseMillis <= 0 {
		return 0
	}
	return time.Duration(c.Translation.ChunkPauseMillis) * time.Millisecond
}

// EncoderTimeout returns the per-invocation encoder timeout, zero for none.
func (c *Config) EncoderTimeout() time.Duration {
	if c.FFmpeg.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.FFmpeg.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "subtrans")
	}
	return "~/.cache/subtrans"
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
