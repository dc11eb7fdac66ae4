package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/extpack/internal/cache"
	"github.com/Norgate-AV/extpack/internal/codes"
	"github.com/Norgate-AV/extpack/internal/config"
	"github.com/Norgate-AV/extpack/internal/ui"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the build cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:          "stats [dir]",
	Short:        "Show the entries in the bolt cache database",
	Args:         maxArgs(1),
	RunE:         runCacheStats,
	SilenceUsage: true,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	root := projectRoot(args)

	cfg, err := config.NewLoader().LoadForBuild(cmd, args)
	if err != nil {
		return codes.Wrap(codes.Config, err)
	}

	setupOutput(cmd, cfg)

	if cfg.CacheBackend != cache.BackendBolt {
		return codes.Wrap(codes.Usage, errors.New("cache stats needs the bolt cache backend (--cache-backend bolt)"))
	}

	paths, err := cfg.Resolve(root)
	if err != nil {
		return codes.Wrap(codes.Config, err)
	}

	store, err := cache.Open(cfg.CacheBackend, paths.Root)
	if err != nil {
		return codes.Wrap(codes.Config, err)
	}
	defer store.Close()

	bolt := store.(*cache.BoltStore)

	count, size, err := bolt.Stats()
	if err != nil {
		return fmt.Errorf("failed to read cache stats: %w", err)
	}

	entries, err := bolt.Entries()
	if err != nil {
		return fmt.Errorf("failed to read cache entries: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %d entries, %s\n", ui.Bold("Cache:"), count, ui.Size(size))

	for _, e := range entries {
		fmt.Fprintf(out, "  %s %s %s\n",
			relativeTo(root, e.OutDir), ui.Faint("%.12s", e.Fingerprint), ui.Faint("%s", e.Timestamp.Format(time.RFC3339)))
	}

	return nil
}
