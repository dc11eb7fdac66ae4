package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/extpack/internal/builder"
	"github.com/Norgate-AV/extpack/internal/cache"
	"github.com/Norgate-AV/extpack/internal/codes"
	"github.com/Norgate-AV/extpack/internal/config"
	"github.com/Norgate-AV/extpack/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Rebuild whenever a source file changes",
	Long: `Build once, then watch the project for changes and rebuild.
The output directory, node_modules and dot directories are not watched.
Press Ctrl+C to stop.`,
	Args:         maxArgs(1),
	RunE:         runWatch,
	SilenceUsage: true,
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	memo, err := cache.NewMemo(cache.DefaultMemoSize)
	if err != nil {
		return err
	}

	// Unchanged files are not rehashed on every rebuild
	b := newBuilder(builder.WithSinks(newSinks(cmd)), builder.WithFingerprinter(memo.Fingerprint))

	rebuild := func(ctx context.Context) error {
		result, err := b.Build(ctx, root, cfg)
		if err != nil {
			return err
		}

		printResult(cmd, cfg, root, result)
		return nil
	}

	ctx := commandContext(cmd)

	// A failed first build is reported, the watch still starts
	if err := rebuild(ctx); err != nil {
		slog.Error("Initial build failed", "error", err)
	}

	w, err := watch.New(paths.Root, paths.OutDir, rebuild)
	if err != nil {
		return err
	}

	return w.Run(ctx)
}
