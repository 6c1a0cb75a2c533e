package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"subtrans/internal/deps"
)

type doctorReport struct {
	ConfigPath      string        `json:"config_path"`
	Dependencies    []deps.Status `json:"dependencies"`
	Credentials     bool          `json:"credentials"`
	ServerURL       string        `json:"server_url"`
	ServerReachable bool          `json:"server_reachable"`
	ServerDetail    string        `json:"server_detail,omitempty"`
}

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var offline bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check external binaries and the translation service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := doctorReport{
				ConfigPath:   ctx.configPath,
				Dependencies: deps.CheckBinaries(deps.EncoderRequirements(cfg.FFmpeg.Binary, cfg.FFmpeg.ProbeBinary)),
				Credentials:  cfg.HasCredentials(),
				ServerURL:    cfg.Translation.ServerURL,
			}
			switch {
			case offline:
				report.ServerDetail = "skipped"
			case !report.Credentials:
				report.ServerDetail = "credentials not configured"
			default:
				client, err := newLaraClient(cfg)
				if err != nil {
					report.ServerDetail = err.Error()
					break
				}
				pingCtx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
				err = client.Ping(pingCtx)
				cancel()
				report.ServerReachable = err == nil
				if err != nil {
					report.ServerDetail = err.Error()
				}
			}

			if jsonOutput {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				renderDoctor(cmd, report)
			}
			if missing := deps.Missing(report.Dependencies); len(missing) > 0 {
				return fmt.Errorf("%d required dependency(ies) missing", len(missing))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the translation service check")
	return cmd
}

func renderDoctor(cmd *cobra.Command, report doctorReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config: %s\n", dash(report.ConfigPath))
	rows := make([][]string, 0, len(report.Dependencies)+1)
	for _, dep := range report.Dependencies {
		detail := dep.Path
		if !dep.Available {
			detail = dep.Detail
		}
		rows = append(rows, []string{dep.Name, dep.Command, yesNo(dep.Available), detail})
	}
	detail := report.ServerURL
	if report.ServerDetail != "" {
		detail = report.ServerDetail
	}
	rows = append(rows, []string{"LARA", "credentials: " + yesNo(report.Credentials), yesNo(report.ServerReachable), detail})
	fmt.Fprintln(out, renderTable([]string{"Check", "Command", "Available", "Detail"}, rows, nil))
}
