// Package builder produces extension bundles, reusing the previous artifact
// when the project's source fingerprint has not changed.
//
// A build runs these steps in order:
//
//  1. Fingerprint the project sources, excluding the output directory
//  2. Compare with the recorded fingerprint; reuse the artifact if it matches
//     and the artifact is still on disk
//  3. Otherwise bundle the entry file, optionally minify it
//  4. Drop the old record, write the artifact, then record the new fingerprint
//
// An artifact is never replaced while a record for older sources remains, so
// a record always names the sources of the artifact on disk.
//
// Only a bundler failure or a failed write aborts a build. Fingerprint, cache
// and minifier problems are reported as messages and the build carries on.
package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Norgate-AV/extpack/internal/cache"
	"github.com/Norgate-AV/extpack/internal/config"
)

var (
	// ErrBundle wraps a failure of the bundler
	ErrBundle = errors.New("bundle failed")

	// ErrPersist wraps a failure to write the artifact, source map or cache record
	ErrPersist = errors.New("failed to write build output")
)

// Sinks receive the builder's console output. Nil functions discard.
type Sinks struct {
	Log   func(msg string)
	Error func(msg string)
}

// Builder coordinates fingerprinting, caching, bundling and minification
type Builder struct {
	bundler     Bundler
	minifiers   map[string]Minifier
	fingerprint func(root, excludedDir string) (string, error)
	openStore   func(backend, projectRoot string) (cache.Store, error)
	sinks       Sinks
	locks       *keyedMutex
	now         func() time.Time
}

// Option configures a Builder
type Option func(*Builder)

// WithBundler replaces the esbuild bundler
func WithBundler(b Bundler) Option {
	return func(bl *Builder) {
		bl.bundler = b
	}
}

// WithMinifier registers m under its name, replacing any engine of that name
func WithMinifier(m Minifier) Option {
	return func(bl *Builder) {
		bl.minifiers[m.Name()] = m
	}
}

// WithoutMinifier removes the named engine
func WithoutMinifier(name string) Option {
	return func(bl *Builder) {
		delete(bl.minifiers, name)
	}
}

// WithSinks sets where log and error output goes
func WithSinks(s Sinks) Option {
	return func(bl *Builder) {
		bl.sinks = s
	}
}

// WithFingerprinter replaces the source fingerprint function
func WithFingerprinter(f func(root, excludedDir string) (string, error)) Option {
	return func(bl *Builder) {
		bl.fingerprint = f
	}
}

// WithStoreOpener replaces how the cache record store is opened
func WithStoreOpener(f func(backend, projectRoot string) (cache.Store, error)) Option {
	return func(bl *Builder) {
		bl.openStore = f
	}
}

// New creates a Builder using esbuild for bundling and both minifiers
func New(opts ...Option) *Builder {
	b := &Builder{
		bundler: NewEsbuildBundler(),
		minifiers: map[string]Minifier{
			config.MinifierEsbuild: EsbuildMinifier{},
			config.MinifierTerser:  NewTerserMinifier(),
		},
		fingerprint: cache.Fingerprint,
		openStore:   cache.Open,
		locks:       newKeyedMutex(),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// run holds the state of a single Build call
type run struct {
	b        *Builder
	cfg      *config.Config
	messages []string
}

// note records a message and prints it unless quiet
func (r *run) note(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.messages = append(r.messages, msg)

	if !r.cfg.Quiet && r.b.sinks.Log != nil {
		r.b.sinks.Log(msg)
	}
}

// debug prints a message in verbose mode without recording it
func (r *run) debug(format string, args ...any) {
	if r.cfg.Verbose && !r.cfg.Quiet && r.b.sinks.Log != nil {
		r.b.sinks.Log(fmt.Sprintf(format, args...))
	}
}

func (r *run) fail(format string, args ...any) {
	if r.b.sinks.Error != nil {
		r.b.sinks.Error(fmt.Sprintf(format, args...))
	}
}

// Build produces the artifact for the project at projectRoot. It returns an
// error, and no Result, only when bundling or writing fails.
func (b *Builder) Build(ctx context.Context, projectRoot string, cfg *config.Config) (*Result, error) {
	paths, err := cfg.Resolve(projectRoot)
	if err != nil {
		return nil, err
	}

	unlock := b.locks.Lock(paths.OutDir)
	defer unlock()

	r := &run{b: b, cfg: cfg}
	start := b.now()

	fingerprint, err := b.fingerprint(paths.Root, paths.OutDir)
	if err != nil {
		r.note("Could not fingerprint sources, rebuilding: %v", err)
		fingerprint = ""
	} else {
		r.debug("Fingerprint: %s", fingerprint)
	}

	key := cache.Key{ProjectRoot: paths.Root, OutDir: paths.OutDir}

	// The store is opened even with caching off: a rebuild must drop the old
	// record before it replaces the artifact that record describes.
	store, err := b.openStore(cfg.CacheBackend, paths.Root)
	if err != nil {
		if cfg.Cache {
			r.note("Build cache unavailable, rebuilding: %v", err)
		} else {
			r.debug("Build cache unavailable: %v", err)
		}
		store = nil
	} else {
		defer store.Close()
	}

	record := cfg.Cache && store != nil && fingerprint != ""

	if record {
		if size, ok := r.cached(store, key, fingerprint, paths.Artifact); ok {
			return newResult(paths.Artifact, size, 0, true, r.messages), nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.debug("Bundling %s", paths.Entry)
	bundle, err := b.bundler.Bundle(ctx, paths.Entry)
	if err != nil {
		r.fail("Bundle failed: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrBundle, err)
	}

	for _, w := range bundle.Warnings {
		r.note("%s", w)
	}

	code, sourceMap := bundle.Code, ""
	if cfg.Minify {
		code, sourceMap = r.minify(ctx, code, paths)
	}

	if store != nil {
		if err := store.Delete(key); err != nil {
			r.fail("Failed to invalidate build cache: %v", err)
			return nil, fmt.Errorf("%w: %w", ErrPersist, err)
		}
	}

	if err := cache.WriteFile(paths.Artifact, []byte(code)); err != nil {
		r.fail("Failed to write %s: %v", paths.Artifact, err)
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	if sourceMap != "" {
		if err := cache.WriteFile(paths.SourceMap(), []byte(sourceMap)); err != nil {
			r.fail("Failed to write %s: %v", paths.SourceMap(), err)
			return nil, fmt.Errorf("%w: %w", ErrPersist, err)
		}
	} else {
		// A map from an earlier minified build no longer matches the artifact
		_ = os.Remove(paths.SourceMap())
	}

	// The record is written only once the artifact it vouches for exists
	if record {
		if err := store.Set(key, fingerprint); err != nil {
			r.fail("Failed to update build cache: %v", err)
			return nil, fmt.Errorf("%w: %w", ErrPersist, err)
		}
	}

	size, err := cache.ArtifactSize(paths.Artifact)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	elapsed := b.now().Sub(start)
	if elapsed <= 0 {
		// Zero is reserved for cache hits
		elapsed = time.Nanosecond
	}

	return newResult(paths.Artifact, size, elapsed, false, r.messages), nil
}

// cached reports whether the recorded fingerprint matches and the artifact is
// still present. Any failure counts as a miss.
func (r *run) cached(store cache.Store, key cache.Key, fingerprint, artifact string) (int64, bool) {
	stored, err := store.Get(key)
	if err != nil {
		if !errors.Is(err, cache.ErrNoRecord) {
			r.debug("Cache record unreadable: %v", err)
		}

		return 0, false
	}

	if stored != fingerprint {
		r.debug("Sources changed since last build")
		return 0, false
	}

	size, err := cache.ArtifactSize(artifact)
	if err != nil {
		r.debug("Cached artifact missing: %v", err)
		return 0, false
	}

	r.debug("Sources unchanged, reusing %s", artifact)
	return size, true
}

// minify runs the configured engine. On any failure the input is returned
// unchanged with an empty map.
func (r *run) minify(ctx context.Context, code string, paths config.Paths) (string, string) {
	name := r.cfg.Minifier
	m, ok := r.b.minifiers[name]
	if !ok {
		r.note("Minifier %q is not available, writing unminified output", name)
		return code, ""
	}

	if err := m.Available(); err != nil {
		r.note("Minifier %q is not available, writing unminified output: %v", name, err)
		return code, ""
	}

	fileName := filepath.Base(paths.Artifact)
	out, err := m.Minify(ctx, code, MinifyOptions{
		FileName:  fileName,
		Compress:  true,
		Mangle:    true,
		SourceMap: true,
	})
	if err != nil {
		r.note("Minifier %q failed, writing unminified output: %v", name, err)
		return code, ""
	}

	r.debug("Minified with %s: %d -> %d bytes", name, len(code), len(out.Code))

	if out.Map == "" {
		return out.Code, ""
	}

	return withSourceMapURL(out.Code, fileName+".map"), out.Map
}

// withSourceMapURL appends a sourceMappingURL comment unless one is present
func withSourceMapURL(code, url string) string {
	if strings.Contains(code, "//# sourceMappingURL=") {
		return code
	}

	if code != "" && !strings.HasSuffix(code, "\n") {
		code += "\n"
	}

	return code + "//# sourceMappingURL=" + url + "\n"
}
