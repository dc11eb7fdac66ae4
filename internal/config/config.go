package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Norgate-AV/extpack/internal/cache"
	"github.com/Norgate-AV/extpack/internal/utils"
	"github.com/spf13/viper"
)

// Default configuration values
const (
	DefaultEntry        = "src/extension.ts"
	FallbackEntry       = "extension.ts"
	DefaultOutDir       = "out"
	DefaultOutFile      = "extension.js"
	DefaultMinifier     = MinifierEsbuild
	DefaultCacheBackend = cache.BackendFile
	DefaultCache        = true
	DefaultVerbose      = false
	DefaultQuiet        = false
	DefaultMinify       = false

	MinifierEsbuild = "esbuild"
	MinifierTerser  = "terser"
)

// Minifiers lists the selectable minification engines
var Minifiers = []string{MinifierEsbuild, MinifierTerser}

// Holds the configuration options for extpack
type Config struct {
	// Entry point, relative to the project root unless absolute.
	// Empty selects src/extension.ts, or extension.ts when only that exists.
	Entry string

	// Output directory, relative to the project root unless absolute
	OutDir string

	// Name of the bundle inside OutDir
	OutFile string

	// Enable verbose output
	Verbose bool

	// Suppress console output. Messages are still collected.
	Quiet bool

	// Minify the bundle and write a source map
	Minify bool

	// Minification engine (esbuild or terser)
	Minifier string

	// Skip the rebuild when the source fingerprint is unchanged
	Cache bool

	// Where the fingerprint record lives (file or bolt)
	CacheBackend string

	// Run the web compatibility scan after building
	Check bool
}

// Default returns a Config populated with default values
func Default() *Config {
	return &Config{
		OutDir:       DefaultOutDir,
		OutFile:      DefaultOutFile,
		Verbose:      DefaultVerbose,
		Quiet:        DefaultQuiet,
		Minify:       DefaultMinify,
		Minifier:     DefaultMinifier,
		Cache:        DefaultCache,
		CacheBackend: DefaultCacheBackend,
	}
}

func Load() (*Config, error) {
	cfg := &Config{
		Entry:        viper.GetString("entry"),
		OutDir:       viper.GetString("out_dir"),
		OutFile:      viper.GetString("out_file"),
		Verbose:      viper.GetBool("verbose"),
		Quiet:        viper.GetBool("quiet"),
		Minify:       viper.GetBool("minify"),
		Minifier:     viper.GetString("minifier"),
		Cache:        viper.GetBool("cache"),
		CacheBackend: viper.GetString("cache_backend"),
		Check:        viper.GetBool("check"),
	}

	// Apply defaults if not set
	if cfg.OutDir == "" {
		cfg.OutDir = DefaultOutDir
	}

	if cfg.OutFile == "" {
		cfg.OutFile = DefaultOutFile
	}

	if cfg.Minifier == "" {
		cfg.Minifier = DefaultMinifier
	}

	if cfg.CacheBackend == "" {
		cfg.CacheBackend = DefaultCacheBackend
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	c.Minifier = strings.ToLower(strings.TrimSpace(c.Minifier))
	if !slices.Contains(Minifiers, c.Minifier) {
		return fmt.Errorf("invalid minifier: %q (want one of %s)", c.Minifier, strings.Join(Minifiers, ", "))
	}

	c.CacheBackend = strings.ToLower(strings.TrimSpace(c.CacheBackend))
	if !slices.Contains(cache.Backends, c.CacheBackend) {
		return fmt.Errorf("invalid cache backend: %q (want one of %s)", c.CacheBackend, strings.Join(cache.Backends, ", "))
	}

	if c.OutFile == "" || filepath.Base(c.OutFile) != c.OutFile {
		return fmt.Errorf("invalid output file name: %q", c.OutFile)
	}

	if c.OutDir == "" {
		return fmt.Errorf("output directory not specified")
	}

	return nil
}

// Paths are the absolute locations a build reads and writes
type Paths struct {
	Root     string
	Entry    string
	OutDir   string
	Artifact string
}

// SourceMap is the location of the map written next to a minified artifact
func (p Paths) SourceMap() string {
	return p.Artifact + ".map"
}

// Resolve turns the configured locations into absolute paths under root.
// When no entry is configured, src/extension.ts is used, or extension.ts at
// the root if only that one exists.
func (c *Config) Resolve(root string) (Paths, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return Paths{}, fmt.Errorf("failed to resolve project root: %w", err)
	}

	entry := c.Entry
	if entry == "" {
		entry = DefaultEntry
		if !exists(filepath.Join(absRoot, DefaultEntry)) && exists(filepath.Join(absRoot, FallbackEntry)) {
			entry = FallbackEntry
		}
	}

	p := Paths{
		Root:  absRoot,
		Entry: utils.ResolveUnder(absRoot, entry),
	}

	p.OutDir = utils.ResolveUnder(absRoot, c.OutDir)
	if p.OutDir == absRoot {
		return Paths{}, fmt.Errorf("output directory must not be the project root")
	}

	p.Artifact = filepath.Join(p.OutDir, c.OutFile)
	return p, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
