package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/extpack/internal/codes"
	"github.com/Norgate-AV/extpack/internal/config"
)

var scanCmd = &cobra.Command{
	Use:   "scan [entry|dir]",
	Short: "Check sources for APIs unavailable on the web extension host",
	Long: `Scan the directory containing the entry point for Node.js built-in modules
and the process global. The argument is either an entry file or a project
directory whose configured entry point is used.`,
	Args:         maxArgs(1),
	RunE:         runScan,
	SilenceUsage: true,
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().LoadForBuild(cmd, args)
	if err != nil {
		return codes.Wrap(codes.Config, err)
	}

	setupOutput(cmd, cfg)

	root, entry, err := scanTarget(cfg, projectRoot(args))
	if err != nil {
		return codes.Wrap(codes.Config, err)
	}

	return runCheck(cmd, cfg, root, entry)
}

// scanTarget returns the project root and entry file for a scan argument
func scanTarget(cfg *config.Config, target string) (string, string, error) {
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		entry, err := filepath.Abs(target)
		if err != nil {
			return "", "", err
		}

		return filepath.Dir(entry), entry, nil
	}

	paths, err := cfg.Resolve(target)
	if err != nil {
		return "", "", err
	}

	return paths.Root, paths.Entry, nil
}
