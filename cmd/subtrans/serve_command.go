package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"subtrans/internal/api"
	"subtrans/internal/logging"
	"subtrans/internal/queue"
	"subtrans/internal/workflow"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the queue and batch runs over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			release, err := acquireRunLock(cfg)
			if err != nil {
				return err
			}
			defer release()

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			svc, err := openServices(signalCtx, cfg, logger, cfg.HasCredentials())
			if err != nil {
				return err
			}
			defer svc.Close()
			if svc.batcher == nil {
				logging.WarnWithContext(logger, "translation service not configured", "translator_missing",
					logging.String(logging.FieldImpact, "translate and process runs are refused"),
					logging.String(logging.FieldErrorHint, "set LARA_ACCESS_KEY_ID and LARA_ACCESS_KEY_SECRET"),
				)
			}

			q := queue.New()
			folders, formats := scanSettings(cfg)
			if _, err := q.Scan(folders, formats); err != nil {
				logging.WarnWithContext(logger, "initial scan failed", "scan_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "queue starts empty"),
				)
			}
			settings := workflow.SettingsFromConfig(cfg)
			factory := func(observer workflow.Observer) *workflow.Runner {
				return workflow.NewRunner(q, settings, svc.runnerOptions(logger, observer)...)
			}

			if !strings.EqualFold(cfg.Logging.Level, "debug") {
				gin.SetMode(gin.ReleaseMode)
			}
			server := api.NewServer(q, api.ScanSettings{Folders: folders, Formats: formats}, factory, logger)
			addr := strings.TrimSpace(bind)
			if addr == "" {
				addr = cfg.Paths.APIBind
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s (Ctrl+C to stop)\n", addr)
			return server.Serve(signalCtx, addr)
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to paths.api_bind)")
	return cmd
}
