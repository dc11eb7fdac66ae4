package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Commander interface for testing
type Commander interface {
	Run() error
}

// TerserMinifier runs the terser CLI
type TerserMinifier struct {
	// Path is the terser executable, looked up on PATH when not absolute
	Path string

	lookPath    func(file string) (string, error)
	execCommand func(ctx context.Context, stderr *bytes.Buffer, name string, args ...string) Commander
}

// NewTerserMinifier creates a minifier that shells out to terser
func NewTerserMinifier() *TerserMinifier {
	return &TerserMinifier{
		Path:     "terser",
		lookPath: exec.LookPath,
		execCommand: func(ctx context.Context, stderr *bytes.Buffer, name string, args ...string) Commander {
			cmd := exec.CommandContext(ctx, name, args...)
			cmd.Stderr = stderr
			return cmd
		},
	}
}

func (t *TerserMinifier) Name() string { return "terser" }

func (t *TerserMinifier) Available() error {
	if _, err := t.lookPath(t.Path); err != nil {
		return fmt.Errorf("%w: %s not found: %v", ErrUnavailable, t.Path, err)
	}

	return nil
}

// BuildArgs builds the terser arguments for minifying input into output
func (t *TerserMinifier) BuildArgs(input, output string, opts MinifyOptions) []string {
	args := []string{input, "--output", output}

	if opts.Compress {
		args = append(args, "--compress")
	}

	if opts.Mangle {
		args = append(args, "--mangle")
	}

	if opts.SourceMap {
		name := opts.FileName
		if name == "" {
			name = filepath.Base(output)
		}

		args = append(args, "--source-map", fmt.Sprintf("filename='%s',url='%s.map'", name, name))
	}

	return args
}

func (t *TerserMinifier) Minify(ctx context.Context, code string, opts MinifyOptions) (*Minified, error) {
	path, err := t.lookPath(t.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found: %v", ErrUnavailable, t.Path, err)
	}

	dir, err := os.MkdirTemp("", "extpack-terser-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.js")
	output := filepath.Join(dir, "output.js")
	if err := os.WriteFile(input, []byte(code), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write terser input: %w", err)
	}

	var stderr bytes.Buffer
	c := t.execCommand(ctx, &stderr, path, t.BuildArgs(input, output, opts)...)
	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("terser failed (exit code %d): %s", exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}

		return nil, fmt.Errorf("failed to run terser: %w", err)
	}

	minified, err := os.ReadFile(output)
	if err != nil {
		return nil, fmt.Errorf("terser produced no output: %w", err)
	}

	out := &Minified{Code: string(minified)}
	if opts.SourceMap {
		sourceMap, err := os.ReadFile(output + ".map")
		if err != nil {
			return nil, fmt.Errorf("terser produced no source map: %w", err)
		}

		out.Map = string(sourceMap)
	}

	return out, nil
}
