package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/extpack/internal/builder"
	"github.com/Norgate-AV/extpack/internal/codes"
	"github.com/Norgate-AV/extpack/internal/config"
	"github.com/Norgate-AV/extpack/internal/scanner"
)

// newBuilder is swapped out in tests
var newBuilder = builder.New

var buildCmd = &cobra.Command{
	Use:   "build [dir]",
	Short: "Bundle the extension in dir (default: current directory)",
	Long: `Bundle the extension entry point into the output directory.
The build is skipped when no source file has changed since the last build
and the previous artifact is still present.`,
	Args:         maxArgs(1),
	RunE:         runBuild,
	SilenceUsage: true,
}

func runBuild(cmd *cobra.Command, args []string) error {
	root := projectRoot(args)

	cfg, err := config.NewLoader().LoadForBuild(cmd, args)
	if err != nil {
		return codes.Wrap(codes.Config, err)
	}

	setupOutput(cmd, cfg)

	b := newBuilder(builder.WithSinks(newSinks(cmd)))

	result, err := b.Build(commandContext(cmd), root, cfg)
	if err != nil {
		return codes.Wrap(codes.BuildFailed, err)
	}

	printResult(cmd, cfg, root, result)

	if !cfg.Check {
		return nil
	}

	paths, err := cfg.Resolve(root)
	if err != nil {
		return codes.Wrap(codes.Config, err)
	}

	return runCheck(cmd, cfg, root, paths.Entry)
}

// runCheck scans entry and reports issues. With --strict any issue fails.
func runCheck(cmd *cobra.Command, cfg *config.Config, root, entry string) error {
	issues, err := scanner.Scan(entry)
	if err != nil {
		return codes.Wrap(codes.BuildFailed, err)
	}

	printIssues(cmd, cfg, root, issues)

	strict, _ := cmd.Flags().GetBool("strict")
	if strict && len(issues) > 0 {
		return codes.Errorf(codes.Incompatible, "%d web compatibility issue(s) found", len(issues))
	}

	return nil
}
