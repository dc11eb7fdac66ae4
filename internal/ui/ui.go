// Package ui holds the terminal formatting functions used by the CLI.
//
// The functions are chosen once by Init. Without colour they return the
// formatted text unchanged, so callers never check for colour support.
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Formatter renders a message, optionally decorated
type Formatter func(format string, a ...any) string

func plain(format string, a ...any) string {
	return fmt.Sprintf(format, a...)
}

var (
	Success Formatter = plain
	Warning Formatter = plain
	Failure Formatter = plain
	Faint   Formatter = plain
	Bold    Formatter = plain
)

// Init selects coloured or plain formatters for the process. Colour is used
// only when enabled is true and stdout is a terminal that allows it.
func Init(enabled bool) {
	if !enabled || color.NoColor || os.Getenv("NO_COLOR") != "" {
		Success, Warning, Failure, Faint, Bold = plain, plain, plain, plain, plain
		return
	}

	Success = color.New(color.FgGreen).SprintfFunc()
	Warning = color.New(color.FgYellow).SprintfFunc()
	Failure = color.New(color.FgRed, color.Bold).SprintfFunc()
	Faint = color.New(color.Faint).SprintfFunc()
	Bold = color.New(color.Bold).SprintfFunc()
}

// Size renders a byte count for humans
func Size(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
