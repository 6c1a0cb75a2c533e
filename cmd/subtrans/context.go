package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"subtrans/internal/config"
	"subtrans/internal/ffmpeg"
	"subtrans/internal/logging"
	"subtrans/internal/queue"
	"subtrans/internal/services/lara"
	"subtrans/internal/transcache"
	"subtrans/internal/translate"
	"subtrans/internal/workflow"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// scanSettings returns the folder pair and extensions from the config.
func scanSettings(cfg *config.Config) (queue.FolderPair, queue.Formats) {
	return queue.FolderPair{InputDir: cfg.Paths.InputDir, SubtitlesDir: cfg.Paths.SubtitlesDir},
		queue.Formats{Video: cfg.Formats.VideoExtensions, Subtitle: cfg.Formats.SubtitleExtensions}
}

// acquireRunLock takes the per-workspace lock so two runs never write the
// same subtitles folder. The returned func releases it.
func acquireRunLock(cfg *config.Config) (func(), error) {
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another subtrans run is using %s (lock %s)", cfg.Paths.SubtitlesDir, cfg.LockPath())
	}
	return func() { _ = lock.Unlock() }, nil
}

// services holds the collaborators a run needs.
type services struct {
	encoder *ffmpeg.Encoder
	client  *lara.Client
	batcher *translate.Batcher
	cache   *transcache.Store
}

func (s *services) Close() {
	if s != nil && s.cache != nil {
		_ = s.cache.Close()
	}
}

// runnerOptions wires whatever collaborators are present into a runner.
func (s *services) runnerOptions(logger *slog.Logger, observer workflow.Observer) []workflow.Option {
	opts := []workflow.Option{workflow.WithLogger(logger), workflow.WithObserver(observer)}
	if s.encoder != nil {
		opts = append(opts, workflow.WithEncoder(s.encoder))
	}
	if s.batcher != nil {
		opts = append(opts, workflow.WithTranslator(s.batcher))
	}
	return opts
}

// openServices builds the encoder and, when requested, the translation
// client with its batcher. A missing credential is returned as a
// configuration error before any item is touched.
func openServices(ctx context.Context, cfg *config.Config, logger *slog.Logger, withTranslator bool) (*services, error) {
	svc := &services{
		encoder: ffmpeg.New(ffmpeg.Options{
			FFmpegBinary:  cfg.FFmpeg.Binary,
			FFprobeBinary: cfg.FFmpeg.ProbeBinary,
			Timeout:       cfg.EncoderTimeout(),
			CRF:           cfg.FFmpeg.CRF,
			Preset:        cfg.FFmpeg.Preset,
		}, logger),
	}
	if !withTranslator {
		return svc, nil
	}

	client, err := newLaraClient(cfg)
	if err != nil {
		return nil, &workflow.ConfigurationError{Reason: "translation service", Err: err}
	}
	svc.client = client
	shape, err := client.Negotiate(ctx, cfg.Translation.SourceLanguage, cfg.Translation.TargetLanguage)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.WarnWithContext(logger, "translation request shape negotiation failed", "lara_negotiate_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "using the default request shape"),
			logging.String(logging.FieldErrorHint, "check credentials and translation.server_url"),
		)
	} else {
		logger.Debug("translation request shape negotiated", logging.String("tool", shape.Tool))
	}

	opts := []translate.Option{
		translate.WithChunkSize(cfg.Translation.ChunkSize),
		translate.WithChunkPause(cfg.ChunkPause()),
		translate.WithLogger(logger),
	}
	if cfg.Translation.RepairEncoding {
		opts = append(opts, translate.WithRepairer(translate.NewRepairer(cfg.Translation.RepairOverrides)))
	}
	if cfg.Translation.CacheEnabled {
		store, err := transcache.OpenForConfig(cfg)
		if err != nil {
			logging.WarnWithContext(logger, "translation memory unavailable", "cache_open_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "every unit is sent to the translation service"),
			)
		} else {
			svc.cache = store
			opts = append(opts, translate.WithCache(store))
		}
	}
	svc.batcher = translate.NewBatcher(client, opts...)
	return svc, nil
}

func newLaraClient(cfg *config.Config) (*lara.Client, error) {
	return lara.NewClient(lara.Config{
		ServerURL:       cfg.Translation.ServerURL,
		AccessKeyID:     cfg.Translation.AccessKeyID,
		AccessKeySecret: cfg.Translation.AccessKeySecret,
		TimeoutSeconds:  cfg.Translation.TimeoutSeconds,
	})
}

// withStopSignals maps the first SIGINT/SIGTERM to a queue stop request and
// the second to context cancellation.
func withStopSignals(parent context.Context, q *queue.Queue, out io.Writer) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		received := 0
		for {
			select {
			case <-sigs:
				received++
				if received == 1 {
					stopped := q.RequestStop()
					fmt.Fprintf(out, "\nStop requested; %d item(s) will finish their current step. Interrupt again to abort.\n", len(stopped))
					continue
				}
				cancel()
				return
			case <-done:
				return
			}
		}
	}()
	return ctx, func() {
		signal.Stop(sigs)
		close(done)
		cancel()
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

// isConfigurationError reports whether err should be shown with a config hint.
func isConfigurationError(err error) bool {
	var cfgErr *workflow.ConfigurationError
	return errors.As(err, &cfgErr)
}
