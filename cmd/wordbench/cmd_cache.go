package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wordbench/wordbench/internal/cache"
	"github.com/wordbench/wordbench/internal/projectconfig"
)

var cacheDir string

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the completion response cache",
		Long: `Manage the completion response cache.

The cache stores model responses so a benchmark can be replayed without
re-querying providers. Entries are keyed by model, target, trial index,
prompt, and temperature.`,
	}

	cmd.AddCommand(newCacheStatsCommand())
	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

func newCacheStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache entry count and size",
		RunE:  cacheStatsE,
	}
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Cache directory (default: .wordbench-cache)")
	return cmd
}

//nolint:errcheck // display-only writes; errors are not actionable
func cacheStatsE(cmd *cobra.Command, args []string) error {
	absDir, err := resolveCacheDir()
	if err != nil {
		return err
	}

	stats, err := cache.New(absDir).Stat()
	if err != nil {
		return fmt.Errorf("reading cache: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cache:   %s\n", absDir)
	fmt.Fprintf(out, "Entries: %d\n", stats.Entries)
	fmt.Fprintf(out, "Size:    %s\n", formatBytes(stats.SizeBytes))
	return nil
}

func newCacheClearCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the completion response cache",
		Long: `Clear all cached completion responses.

The next benchmark run will query every provider from scratch.`,
		RunE: cacheClearE,
	}
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Cache directory (default: .wordbench-cache)")
	return cmd
}

func cacheClearE(cmd *cobra.Command, args []string) error {
	absDir, err := resolveCacheDir()
	if err != nil {
		return err
	}

	if err := cache.New(absDir).Clear(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s\n", absDir) //nolint:errcheck
	return nil
}

// resolveCacheDir picks the cache directory (flag first, then project
// config) and resolves it to an absolute path.
func resolveCacheDir() (string, error) {
	dir := cacheDir
	if dir == "" {
		proj, err := projectconfig.Load(".")
		if err != nil {
			return "", fmt.Errorf("failed to load project config: %w", err)
		}
		dir = proj.Cache.Dir
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving cache directory: %w", err)
	}
	return absDir, nil
}

// formatBytes renders a byte count with a binary unit above 1 KiB.
func formatBytes(n int64) string {
	const kib = 1024
	switch {
	case n >= kib*kib:
		return fmt.Sprintf("%.1f MiB", float64(n)/(kib*kib))
	case n >= kib:
		return fmt.Sprintf("%.1f KiB", float64(n)/kib)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
