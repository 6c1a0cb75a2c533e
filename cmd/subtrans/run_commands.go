package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"subtrans/internal/logging"
	"subtrans/internal/queue"
	"subtrans/internal/workflow"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List videos in the input folder and their paired subtitles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			q := queue.New()
			items, err := q.Scan(scanSettings(cfg))
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, items)
			}
			out := cmd.OutOrStdout()
			renderQueue(out, items)
			renderCounts(out, q.Summary())
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

type runDescriptor struct {
	op    workflow.Operation
	short string
	long  string
}

var runDescriptors = []runDescriptor{
	{
		op:    workflow.OpExtract,
		short: "Extract embedded subtitle tracks to SRT",
		long:  "Extracts every subtitle track of each video into the subtitles folder and writes a copy of the video without subtitles to the output folder.",
	},
	{
		op:    workflow.OpTranslate,
		short: "Translate paired subtitles",
		long:  "Translates each paired subtitle from the source to the target language, writing <subtitle>_<target>.srt next to it.",
	},
	{
		op:    workflow.OpMerge,
		short: "Merge subtitles back into the videos",
		long:  "Muxes the translated subtitle (or the original one) into <video>_with_subtitles.mkv, or renders it into the picture when ffmpeg.burn_in is set.",
	},
	{
		op:    workflow.OpProcess,
		short: "Extract, translate and merge in one pass",
		long:  "Runs the full pipeline per video: extracts a subtitle when none is paired, translates it and merges the result.",
	},
}

func newRunCommands(ctx *commandContext) []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(runDescriptors))
	for _, desc := range runDescriptors {
		cmds = append(cmds, newRunCommand(ctx, desc))
	}
	return cmds
}

func newRunCommand(ctx *commandContext, desc runDescriptor) *cobra.Command {
	var (
		jsonOutput bool
		verbose    bool
		pairs      []string
		burnIn     bool
	)

	cmd := &cobra.Command{
		Use:   string(desc.op),
		Short: desc.short,
		Long:  desc.long,
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

			q := queue.New()
			if _, err := q.Scan(scanSettings(cfg)); err != nil {
				return err
			}
			selections, err := parsePairs(pairs)
			if err != nil {
				return err
			}
			if applied := q.SelectSubtitles(selections); applied < len(selections) {
				fmt.Fprintf(cmd.ErrOrStderr(), "warn: %d of %d --pair values matched no video\n", len(selections)-applied, len(selections))
			}

			// Reset before signals are wired so an early Ctrl-C is not undone.
			q.Reset()
			runCtx, stop := withStopSignals(cmd.Context(), q, cmd.ErrOrStderr())
			defer stop()

			needsTranslator := desc.op == workflow.OpTranslate || desc.op == workflow.OpProcess
			svc, err := openServices(runCtx, cfg, logger, needsTranslator)
			if err != nil {
				if isConfigurationError(err) {
					return fmt.Errorf("%w\nrun `subtrans config show` to inspect the loaded settings", err)
				}
				return err
			}
			defer svc.Close()

			settings := workflow.SettingsFromConfig(cfg)
			if cmd.Flags().Changed("burn-in") {
				settings.BurnIn = burnIn
			}
			var observer workflow.Observer = workflow.NopObserver{}
			if !jsonOutput {
				observer = newProgressPrinter(cmd.ErrOrStderr(), verbose)
			}
			runner := workflow.NewRunner(q, settings, svc.runnerOptions(logger, observer)...)
			report, err := runner.Run(runCtx, desc.op)
			if err != nil {
				return err
			}
			logger.Debug("run report ready", logging.String(logging.FieldRunID, report.RunID))

			if jsonOutput {
				return writeJSON(cmd, report)
			}
			renderReport(cmd.OutOrStdout(), report)
			if report.Summary.Errors > 0 {
				return fmt.Errorf("%s: %d item(s) failed", desc.op, report.Summary.Errors)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the run report as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print every item status change")
	cmd.Flags().StringArrayVar(&pairs, "pair", nil, "Pair a subtitle with a video (video=subtitle), repeatable")
	if desc.op == workflow.OpMerge || desc.op == workflow.OpProcess {
		cmd.Flags().BoolVar(&burnIn, "burn-in", false, "Render subtitles into the picture instead of adding a track")
	}
	return cmd
}

// parsePairs turns video=subtitle flags into a selection map.
func parsePairs(values []string) (map[string]string, error) {
	pairs := make(map[string]string, len(values))
	for _, value := range values {
		video, subtitle, ok := strings.Cut(value, "=")
		video, subtitle = strings.TrimSpace(video), strings.TrimSpace(subtitle)
		if !ok || video == "" {
			return nil, fmt.Errorf("invalid --pair %q (want video=subtitle)", value)
		}
		pairs[video] = subtitle
	}
	return pairs, nil
}
