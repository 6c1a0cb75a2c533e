package config

const (
	defaultInputDir          = "~/subtrans/input"
	defaultSubtitlesDir      = "~/subtrans/subtitles"
	defaultOutputDir         = "~/subtrans/output"
	defaultLogDir            = "~/.local/share/subtrans/logs"
	defaultAPIBind           = "127.0.0.1:7488"
	defaultServerURL         = "https://mcp.laratranslate.com/v1"
	defaultSourceLanguage    = "en"
	defaultTargetLanguage    = "fr"
	defaultChunkSize         = 20
	defaultChunkPauseMillis  = 100
	defaultTimeoutSeconds    = 30
	defaultFFmpegBinary      = "ffmpeg"
	defaultFFprobeBinary     = "ffprobe"
	defaultCRF               = 23
	defaultPreset            = "medium"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultCacheDatabaseName = "translations.db"
)

var (
	defaultVideoExtensions    = []string{".mkv", ".mp4", ".avi", ".mov", ".wmv", ".flv", ".webm"}
	defaultSubtitleExtensions = []string{".srt", ".ass", ".ssa", ".sub", ".vtt"}
	validPresets              = []string{"ultrafast", "superfast", "veryfast", "faster", "fast", "medium", "slow", "slower", "veryslow"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:     defaultInputDir,
			SubtitlesDir: defaultSubtitlesDir,
			OutputDir:    defaultOutputDir,
			LogDir:       defaultLogDir,
			CacheDir:     defaultCacheDir(),
			APIBind:      defaultAPIBind,
		},
		Translation: Translation{
			ServerURL:        defaultServerURL,
			SourceLanguage:   defaultSourceLanguage,
			TargetLanguage:   defaultTargetLanguage,
			ChunkSize:        defaultChunkSize,
			ChunkPauseMillis: defaultChunkPauseMillis,
			TimeoutSeconds:   defaultTimeoutSeconds,
			CacheEnabled:     true,
			RepairEncoding:   true,
		},
		FFmpeg: FFmpeg{
			Binary:      defaultFFmpegBinary,
			ProbeBinary: defaultFFprobeBinary,
			CRF:         defaultCRF,
			Preset:      defaultPreset,
		},
		Formats: Formats{
			VideoExtensions:    append([]string(nil), defaultVideoExtensions...),
			SubtitleExtensions: append([]string(nil), defaultSubtitleExtensions...),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
