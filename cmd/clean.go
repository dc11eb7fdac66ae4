package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/extpack/internal/cache"
	"github.com/Norgate-AV/extpack/internal/codes"
	"github.com/Norgate-AV/extpack/internal/config"
	"github.com/Norgate-AV/extpack/internal/ui"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [dir]",
	Short: "Forget the last build so the next one rebuilds",
	Long: `Delete the cache record for the project's output directory.
With --all the output directory is removed too, and the bolt cache database
is emptied.`,
	Args:         maxArgs(1),
	RunE:         runClean,
	SilenceUsage: true,
}

func init() {
	cleanCmd.Flags().Bool("all", false, "Also remove the output directory and every cached entry")
}

func runClean(cmd *cobra.Command, args []string) error {
	root := projectRoot(args)

	cfg, err := config.NewLoader().LoadForBuild(cmd, args)
	if err != nil {
		return codes.Wrap(codes.Config, err)
	}

	setupOutput(cmd, cfg)

	paths, err := cfg.Resolve(root)
	if err != nil {
		return codes.Wrap(codes.Config, err)
	}

	store, err := cache.Open(cfg.CacheBackend, paths.Root)
	if err != nil {
		return codes.Wrap(codes.Config, err)
	}
	defer store.Close()

	if err := store.Delete(cache.Key{ProjectRoot: paths.Root, OutDir: paths.OutDir}); err != nil {
		return fmt.Errorf("failed to delete cache record: %w", err)
	}

	slog.Debug("Deleted cache record", "out_dir", paths.OutDir, "backend", cfg.CacheBackend)

	all, _ := cmd.Flags().GetBool("all")
	if !all {
		printCleaned(cmd, cfg, "Cache record removed")
		return nil
	}

	if bolt, ok := store.(*cache.BoltStore); ok {
		if err := bolt.Clear(); err != nil {
			return fmt.Errorf("failed to clear cache database: %w", err)
		}
	}

	if err := os.RemoveAll(paths.OutDir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", paths.OutDir, err)
	}

	printCleaned(cmd, cfg, fmt.Sprintf("Removed %s and the build cache", relativeTo(root, paths.OutDir)))
	return nil
}

func printCleaned(cmd *cobra.Command, cfg *config.Config, msg string) {
	if cfg.Quiet {
		return
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.Success("✓"), msg)
}
