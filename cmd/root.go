package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Norgate-AV/extpack/internal/codes"
	"github.com/Norgate-AV/extpack/internal/config"
	"github.com/Norgate-AV/extpack/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "extpack [dir]",
	Short: "Incremental VS Code extension bundler",
	Long: `Bundle a VS Code extension with esbuild, skipping the build when the
sources are unchanged, and check the sources for APIs that are not available
on the web extension host.`,
	RunE:         runBuild,
	SilenceUsage: true,
	Args:         maxArgs(1),
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		stop()
		os.Exit(codes.ExitCode(err))
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime)
	addBuildFlags(rootCmd.PersistentFlags())
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return codes.Wrap(codes.Usage, err)
	})
	rootCmd.AddCommand(buildCmd, scanCmd, watchCmd, cleanCmd)
}

// addBuildFlags registers the flags shared by every command
func addBuildFlags(flags *pflag.FlagSet) {
	flags.StringP("entry", "e", "", "Entry point (default src/extension.ts, or extension.ts)")
	flags.StringP("outdir", "o", "", "Output directory (default "+config.DefaultOutDir+")")
	flags.String("outfile", "", "Output file name (default "+config.DefaultOutFile+")")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.BoolP("quiet", "q", false, "Suppress console output")
	flags.BoolP("minify", "m", false, "Minify the bundle and write a source map")
	flags.String("minifier", "", "Minification engine: esbuild or terser (default "+config.DefaultMinifier+")")
	flags.Bool("no-cache", false, "Disable build cache")
	flags.String("cache-backend", "", "Cache record store: file or bolt (default "+config.DefaultCacheBackend+")")
	flags.Bool("check", false, "Check web extension compatibility after building")
	flags.Bool("strict", false, "Exit with an error when compatibility issues are found")
}

// commandContext returns the command's context, or Background outside Execute
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}

// projectRoot is the directory argument, or the working directory
func projectRoot(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}

	return "."
}

// maxArgs is cobra.MaximumNArgs with the Usage exit code
func maxArgs(n int) cobra.PositionalArgs {
	check := cobra.MaximumNArgs(n)

	return func(cmd *cobra.Command, args []string) error {
		return codes.Wrap(codes.Usage, check(cmd, args))
	}
}
