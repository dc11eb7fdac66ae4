package builder

import (
	"context"
	"errors"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Bundle is the output of a bundler run
type Bundle struct {
	// Code is the emitted JavaScript
	Code string

	// Map is an optional source map for Code
	Map string

	// Warnings reported by the bundler
	Warnings []string
}

// Bundler turns an entry file into a single JavaScript bundle
type Bundler interface {
	Bundle(ctx context.Context, entryFile string) (*Bundle, error)
}

// BundlerFunc adapts a function to the Bundler interface
type BundlerFunc func(ctx context.Context, entryFile string) (*Bundle, error)

func (f BundlerFunc) Bundle(ctx context.Context, entryFile string) (*Bundle, error) {
	return f(ctx, entryFile)
}

// DiagnosticsError carries the formatted errors of an esbuild run
type DiagnosticsError struct {
	Tool     string
	Messages []string
}

func (e *DiagnosticsError) Error() string {
	if len(e.Messages) == 0 {
		return e.Tool + " failed"
	}

	return e.Tool + " failed:\n" + strings.Join(e.Messages, "\n")
}

// EsbuildBundler bundles with the esbuild Go API for the extension host
type EsbuildBundler struct {
	Platform api.Platform
	Format   api.Format
	Target   api.Target

	// External modules are left as require() calls, "vscode" at minimum
	External []string
}

// NewEsbuildBundler creates a bundler targeting the Node extension host
func NewEsbuildBundler() *EsbuildBundler {
	return &EsbuildBundler{
		Platform: api.PlatformNode,
		Format:   api.FormatCommonJS,
		Target:   api.ES2020,
		External: []string{"vscode"},
	}
}

func (e *EsbuildBundler) Bundle(ctx context.Context, entryFile string) (*Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := api.Build(api.BuildOptions{
		EntryPoints: []string{entryFile},
		Bundle:      true,
		Write:       false,
		Platform:    e.Platform,
		Format:      e.Format,
		Target:      e.Target,
		External:    e.External,
		LogLevel:    api.LogLevelSilent,
	})

	if len(result.Errors) > 0 {
		return nil, &DiagnosticsError{Tool: "esbuild", Messages: formatMessages(result.Errors, api.ErrorMessage)}
	}

	if len(result.OutputFiles) == 0 {
		return nil, errors.New("esbuild produced no output")
	}

	return &Bundle{
		Code:     string(result.OutputFiles[0].Contents),
		Warnings: formatMessages(result.Warnings, api.WarningMessage),
	}, nil
}

func formatMessages(msgs []api.Message, kind api.MessageKind) []string {
	if len(msgs) == 0 {
		return nil
	}

	formatted := api.FormatMessages(msgs, api.FormatMessagesOptions{Kind: kind})
	out := make([]string, 0, len(formatted))
	for _, m := range formatted {
		out = append(out, strings.TrimSpace(m))
	}

	return out
}
