package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides (EXTPACK_MINIFY=true)
const EnvPrefix = "EXTPACK"

// Loader handles configuration loading from various sources
type Loader struct {
	// userConfigDir locates the per-user config directory
	userConfigDir func() (string, error)
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{userConfigDir: os.UserConfigDir}
}

// LoadForBuild loads configuration for the project rooted at the first
// argument (or the working directory). Later sources win:
// defaults, global config, local config, environment, flags.
func (l *Loader) LoadForBuild(cmd *cobra.Command, args []string) (*Config, error) {
	l.setupViperDefaults()
	l.loadGlobalConfig()
	l.loadLocalConfig(args)
	l.loadDotEnv(args)
	l.bindEnv()
	l.bindCommandFlags(cmd)

	return Load()
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	viper.SetDefault("out_dir", DefaultOutDir)
	viper.SetDefault("out_file", DefaultOutFile)
	viper.SetDefault("verbose", DefaultVerbose)
	viper.SetDefault("quiet", DefaultQuiet)
	viper.SetDefault("minify", DefaultMinify)
	viper.SetDefault("minifier", DefaultMinifier)
	viper.SetDefault("cache", DefaultCache)
	viper.SetDefault("cache_backend", DefaultCacheBackend)
	viper.SetDefault("check", false)
}

// loadGlobalConfig loads global configuration from the user config directory
func (l *Loader) loadGlobalConfig() {
	base, err := l.userConfigDir()
	if err != nil || base == "" {
		return
	}

	globalDir := filepath.Join(base, "extpack")

	for _, ext := range ConfigExtensions {
		globalPath := filepath.Join(globalDir, "config."+ext)

		if _, err := os.Stat(globalPath); err == nil {
			viper.SetConfigFile(globalPath)

			if err := viper.MergeInConfig(); err == nil {
				break
			}
		}
	}
}

// loadLocalConfig loads local configuration from the project directory or
// any of its parents
func (l *Loader) loadLocalConfig(args []string) {
	absDir := projectDir(args)
	if absDir == "" {
		return // silently ignore, config.Load() will handle validation
	}

	localPath := FindLocalConfig(absDir)
	if localPath != "" {
		viper.SetConfigFile(localPath)
		_ = viper.MergeInConfig()
	}
}

// loadDotEnv adds the variables of the project's .env file to the
// environment. Variables already set are not overridden.
func (l *Loader) loadDotEnv(args []string) {
	absDir := projectDir(args)
	if absDir == "" {
		return
	}

	_ = godotenv.Load(filepath.Join(absDir, ".env"))
}

// projectDir is the absolute directory named by the first argument. A file
// argument (scan takes an entry file) gives its directory.
func projectDir(args []string) string {
	dir := "."
	if len(args) > 0 && args[0] != "" {
		dir = args[0]
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}

	if info, err := os.Stat(absDir); err == nil && !info.IsDir() {
		absDir = filepath.Dir(absDir)
	}

	return absDir
}

// bindEnv maps EXTPACK_* environment variables onto config keys
func (l *Loader) bindEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// bindCommandFlags binds command flags to viper
func (l *Loader) bindCommandFlags(cmd *cobra.Command) {
	flags := map[string]string{
		"entry":         "entry",
		"out_dir":       "outdir",
		"out_file":      "outfile",
		"verbose":       "verbose",
		"quiet":         "quiet",
		"minify":        "minify",
		"minifier":      "minifier",
		"cache_backend": "cache-backend",
		"check":         "check",
	}

	for key, name := range flags {
		if f := cmd.Flags().Lookup(name); f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}

	// --no-cache is the inverse of the cache key, so only an explicit flag applies
	if f := cmd.Flags().Lookup("no-cache"); f != nil && f.Changed {
		viper.Set("cache", f.Value.String() != "true")
	}
}
