package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"subtrans/internal/transcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the translation memory",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func openCache(ctx *commandContext) (*transcache.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := transcache.OpenForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("open translation memory: %w", err)
	}
	return store, nil
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cached translations per language pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCache(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, stats)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database: %s\n", stats.Path)
			if stats.Entries == 0 {
				fmt.Fprintln(out, "No cached translations")
				return nil
			}
			rows := make([][]string, 0, len(stats.Pairs))
			for _, pair := range stats.Pairs {
				rows = append(rows, []string{
					pair.Source + " -> " + pair.Target,
					strconv.Itoa(pair.Entries),
					strconv.Itoa(pair.Hits),
					formatPercent(pair.Entries, stats.Entries),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Pair", "Entries", "Hits", "Share"}, rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight}))
			fmt.Fprintf(out, "%d entries, %d hits\n", stats.Entries, stats.Hits)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached translation",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCache(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached translation(s)\n", removed)
			return nil
		},
	}
}
