package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newTranslateTextCommand(ctx *commandContext) *cobra.Command {
	var source, target string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "translate-text [text...]",
		Short: "Translate text passed as arguments or on stdin",
		Long:  "Translates each argument (or each stdin line when no argument is given) with the configured service. Lines that cannot be translated are printed unchanged.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			texts := args
			if len(texts) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				texts = strings.Split(strings.TrimRight(string(data), "\n"), "\n")
			}
			if source == "" {
				source = cfg.Translation.SourceLanguage
			}
			if target == "" {
				target = cfg.Translation.TargetLanguage
			}

			svc, err := openServices(cmd.Context(), cfg, logger, true)
			if err != nil {
				return err
			}
			defer svc.Close()

			translated, stats := svc.batcher.TranslateMany(cmd.Context(), texts, source, target)
			if jsonOutput {
				return writeJSON(cmd, map[string]any{
					"source":       source,
					"target":       target,
					"translations": translated,
					"stats":        stats,
				})
			}
			out := cmd.OutOrStdout()
			for _, line := range translated {
				fmt.Fprintln(out, line)
			}
			if stats.Fallbacks > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "warn: %d of %d line(s) kept in the source language\n", stats.Fallbacks, stats.Units)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "from", "", "Source language (defaults to translation.source_language)")
	cmd.Flags().StringVar(&target, "to", "", "Target language (defaults to translation.target_language)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
