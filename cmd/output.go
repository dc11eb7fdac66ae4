package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/extpack/internal/builder"
	"github.com/Norgate-AV/extpack/internal/config"
	"github.com/Norgate-AV/extpack/internal/scanner"
	"github.com/Norgate-AV/extpack/internal/ui"
)

// setupOutput configures logging and colour for one command run
func setupOutput(cmd *cobra.Command, cfg *config.Config) {
	level := slog.LevelInfo
	switch {
	case cfg.Quiet:
		level = slog.LevelWarn
	case cfg.Verbose:
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
	ui.Init(!cfg.Quiet)
}

// newSinks prints builder output on the command's stderr
func newSinks(cmd *cobra.Command) builder.Sinks {
	return builder.Sinks{
		Log: func(msg string) {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.Warning("%s", msg))
		},
		Error: func(msg string) {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.Failure("%s", msg))
		},
	}
}

// printResult prints the one-line build summary
func printResult(cmd *cobra.Command, cfg *config.Config, root string, result *builder.Result) {
	if cfg.Quiet {
		return
	}

	artifact := relativeTo(root, result.Artifact())
	out := cmd.OutOrStdout()

	if result.FromCache() {
		fmt.Fprintf(out, "%s %s %s\n",
			ui.Success("✓"), artifact, ui.Faint("(%s, cached)", ui.Size(result.Size())))
		return
	}

	fmt.Fprintf(out, "%s %s %s\n",
		ui.Success("✓"), artifact, ui.Faint("(%s in %s)", ui.Size(result.Size()), result.Elapsed().Round(time.Millisecond)))
}

// printIssues lists compatibility issues, one per line
func printIssues(cmd *cobra.Command, cfg *config.Config, root string, issues []scanner.Issue) {
	if cfg.Quiet {
		return
	}

	out := cmd.OutOrStdout()
	if len(issues) == 0 {
		fmt.Fprintf(out, "%s no web compatibility issues\n", ui.Success("✓"))
		return
	}

	for _, issue := range issues {
		fmt.Fprintf(out, "%s %s: %s\n", ui.Warning("!"), ui.Bold("%s", relativeTo(root, issue.File)), issue.Reason)
	}

	fmt.Fprintf(out, "%s\n", ui.Warning("%d web compatibility issue(s)", len(issues)))
}

func relativeTo(root, path string) string {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return path
	}

	rel, err := filepath.Rel(absRoot, path)
	if err != nil {
		return path
	}

	return rel
}
