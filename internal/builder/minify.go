package builder

import (
	"context"
	"errors"

	"github.com/evanw/esbuild/pkg/api"
)

// ErrUnavailable is returned by Minifier.Available when the engine cannot run
var ErrUnavailable = errors.New("minifier unavailable")

// MinifyOptions control a minifier run
type MinifyOptions struct {
	// FileName is the artifact's base name, recorded in the source map
	FileName string

	// Compress enables syntax-level rewrites
	Compress bool

	// Mangle renames local identifiers
	Mangle bool

	// SourceMap requests an external source map
	SourceMap bool
}

// Minified is the output of a minifier run
type Minified struct {
	Code string
	Map  string
}

// Minifier is a minification engine selectable by name
type Minifier interface {
	Name() string

	// Available reports whether the engine can run on this machine
	Available() error

	Minify(ctx context.Context, code string, opts MinifyOptions) (*Minified, error)
}

// EsbuildMinifier minifies in-process with esbuild's transform API
type EsbuildMinifier struct{}

func (EsbuildMinifier) Name() string { return "esbuild" }

func (EsbuildMinifier) Available() error { return nil }

func (EsbuildMinifier) Minify(ctx context.Context, code string, opts MinifyOptions) (*Minified, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sourcemap := api.SourceMapNone
	if opts.SourceMap {
		sourcemap = api.SourceMapExternal
	}

	result := api.Transform(code, api.TransformOptions{
		Loader:            api.LoaderJS,
		MinifyWhitespace:  true,
		MinifyIdentifiers: opts.Mangle,
		MinifySyntax:      opts.Compress,
		Sourcemap:         sourcemap,
		Sourcefile:        opts.FileName,
		LogLevel:          api.LogLevelSilent,
	})

	if len(result.Errors) > 0 {
		return nil, &DiagnosticsError{Tool: "esbuild minify", Messages: formatMessages(result.Errors, api.ErrorMessage)}
	}

	return &Minified{
		Code: string(result.Code),
		Map:  string(result.Map),
	}, nil
}
