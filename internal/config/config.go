// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/rfls/libspec/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "libspec"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides (LIBSPEC_LOG_LEVEL).
	EnvPrefix = "LIBSPEC"

	// maxFileSize bounds config files read into memory.
	maxFileSize = 1 << 20
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the libspec configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// DefaultCacheDir returns the directory generated specifications are written
// to when cache_dir is not configured: $XDG_CACHE_HOME/libspec/specs on Linux
// and the os.UserCacheDir equivalent elsewhere.
func DefaultCacheDir() (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" || runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		var err error
		if base, err = os.UserCacheDir(); err != nil {
			return "", fmt.Errorf("failed to get cache directory: %w", err)
		}
	}
	return filepath.Join(base, AppName, "specs"), nil
}

// FilePath returns the config file that Load would read for opts, and
// whether it exists.
func FilePath(opts LoadOptions) (string, bool, error) {
	if opts.ConfigFilePath != "" {
		p := string(opts.ConfigFilePath)
		return p, fileExists(p), nil
	}
	cfgDir, err := configDirWithOverride(string(opts.ConfigDirPath))
	if err != nil {
		return "", false, err
	}
	p := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	return p, fileExists(p), nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}
	if err := opts.Validate(); err != nil {
		return nil, "", err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, exists, err := FilePath(opts)
	if err != nil {
		return nil, "", err
	}

	switch {
	case exists:
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'libspec config show' to see the effective configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	case opts.ConfigFilePath != "":
		// An explicit --config must exist.
		return nil, "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Run 'libspec config init' to create a default configuration").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(fmt.Errorf("config file not found: %s", path)).
			BuildError()
	default:
		path = ""
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("Durations are Go duration strings such as \"500ms\" or \"1m\"").
			WithSuggestion("generator.mode must be \"libdoc\" or \"static\"").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, path, nil
}

func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()
	v.SetDefault("generator.command", defaults.Generator.Command)
	v.SetDefault("generator.mode", string(defaults.Generator.Mode))
	v.SetDefault("generator.timeout", defaults.Generator.Timeout)
	v.SetDefault("generator.max_parallel_warm", defaults.Generator.MaxParallelWarm)
	v.SetDefault("watch.interval", defaults.Watch.Interval)
	v.SetDefault("watch.ignore", defaults.Watch.Ignore)
	v.SetDefault("watch.disable_notify", defaults.Watch.DisableNotify)
	v.SetDefault("cache_dir", defaults.CacheDir)
	v.SetDefault("spec_dirs", defaults.SpecDirs)
	v.SetDefault("builtin_libraries", defaults.BuiltinLibraries)
	v.SetDefault("warm_builtins", defaults.WarmBuiltins)
	v.SetDefault("workspace_folders", defaults.WorkspaceFolders)
	v.SetDefault("pythonpath", defaults.Pythonpath)
	v.SetDefault("log.level", string(defaults.Log.Level))
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// Config fields are optional, so validation uses Concrete(false) and decodes to
// a map that Viper merges over its defaults.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > maxFileSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", path, len(data), maxFileSize)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	// Unify with schema to validate against #Config definition
	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}

	// Merge into Viper (preserves defaults, allows env overrides)
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes a default config file at path unless one
// already exists. It reports whether a file was written.
func CreateDefaultConfig(path string) (bool, error) {
	if fileExists(path) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}
	return true, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// libspec configuration file\n\n")

	sb.WriteString("generator: {\n")
	fmt.Fprintf(&sb, "\tcommand: %q\n", cfg.Generator.Command)
	fmt.Fprintf(&sb, "\tmode: %q\n", cfg.Generator.Mode)
	fmt.Fprintf(&sb, "\ttimeout: %q\n", cfg.Generator.Timeout.String())
	fmt.Fprintf(&sb, "\tmax_parallel_warm: %d\n", cfg.Generator.MaxParallelWarm)
	sb.WriteString("}\n")

	sb.WriteString("\nwatch: {\n")
	fmt.Fprintf(&sb, "\tinterval: %q\n", cfg.Watch.Interval.String())
	writeList(&sb, "\t", "ignore", cfg.Watch.Ignore)
	fmt.Fprintf(&sb, "\tdisable_notify: %v\n", cfg.Watch.DisableNotify)
	sb.WriteString("}\n\n")

	if cfg.CacheDir != "" {
		fmt.Fprintf(&sb, "cache_dir: %q\n", cfg.CacheDir)
	}
	writeList(&sb, "", "spec_dirs", cfg.SpecDirs)
	writeList(&sb, "", "builtin_libraries", cfg.BuiltinLibraries)
	fmt.Fprintf(&sb, "warm_builtins: %v\n", cfg.WarmBuiltins)
	writeList(&sb, "", "workspace_folders", cfg.WorkspaceFolders)
	writeList(&sb, "", "pythonpath", cfg.Pythonpath)

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\tlevel: %q\n", cfg.Log.Level)
	sb.WriteString("}\n")

	return sb.String()
}

func writeList(sb *strings.Builder, indent, key string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(sb, "%s%s: []\n", indent, key)
		return
	}
	fmt.Fprintf(sb, "%s%s: [\n", indent, key)
	for _, item := range items {
		fmt.Fprintf(sb, "%s\t%q,\n", indent, item)
	}
	fmt.Fprintf(sb, "%s]\n", indent)
}
