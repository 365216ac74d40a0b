// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rfls/libspec/internal/generator"
	"github.com/rfls/libspec/internal/libspec"
	"github.com/rfls/libspec/internal/watch"
	"github.com/rfls/libspec/pkg/libdoc"
)

const (
	// GeneratorModeLibdoc runs the configured libdoc command in a subprocess.
	GeneratorModeLibdoc GeneratorMode = "libdoc"
	// GeneratorModeStatic introspects Python sources without an interpreter.
	GeneratorModeStatic GeneratorMode = "static"

	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidGeneratorMode is returned when a GeneratorMode value is not recognized.
	ErrInvalidGeneratorMode = errors.New("invalid generator mode")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidDuration is returned for zero or negative durations.
	ErrInvalidDuration = errors.New("invalid duration")
	// ErrInvalidGeneratorConfig is the sentinel error wrapped by InvalidGeneratorConfigError.
	ErrInvalidGeneratorConfig = errors.New("invalid generator config")
	// ErrInvalidWatchConfig is the sentinel error wrapped by InvalidWatchConfigError.
	ErrInvalidWatchConfig = errors.New("invalid watch config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// GeneratorMode selects the toolchain that generates missing specifications.
	GeneratorMode string

	// InvalidGeneratorModeError is returned when a GeneratorMode value is not recognized.
	// It wraps ErrInvalidGeneratorMode for errors.Is() compatibility.
	InvalidGeneratorModeError struct {
		Value GeneratorMode
	}

	// LogLevel is the minimum level of emitted log records.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidDurationError is returned when a duration field is not positive.
	InvalidDurationError struct {
		Field string
		Value time.Duration
	}

	// InvalidGeneratorConfigError collects field-level errors of a GeneratorConfig.
	InvalidGeneratorConfigError struct {
		FieldErrors []error
	}

	// InvalidWatchConfigError collects field-level errors of a WatchConfig.
	InvalidWatchConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		Generator GeneratorConfig `json:"generator" yaml:"generator" mapstructure:"generator"`
		Watch     WatchConfig     `json:"watch" yaml:"watch" mapstructure:"watch"`
		// CacheDir receives generated specifications. Empty selects DefaultCacheDir().
		CacheDir string `json:"cache_dir" yaml:"cache_dir" mapstructure:"cache_dir"`
		// SpecDirs hold pre-built specification files scanned after the cache.
		SpecDirs []string `json:"spec_dirs" yaml:"spec_dirs" mapstructure:"spec_dirs"`
		// BuiltinLibraries are always listed; empty selects the standard set.
		BuiltinLibraries []string `json:"builtin_libraries" yaml:"builtin_libraries" mapstructure:"builtin_libraries"`
		// WarmBuiltins generates missing built-in specifications in the background.
		WarmBuiltins     bool     `json:"warm_builtins" yaml:"warm_builtins" mapstructure:"warm_builtins"`
		WorkspaceFolders []string `json:"workspace_folders" yaml:"workspace_folders" mapstructure:"workspace_folders"`
		Pythonpath       []string `json:"pythonpath" yaml:"pythonpath" mapstructure:"pythonpath"`
		Log              LogConfig `json:"log" yaml:"log" mapstructure:"log"`
	}

	// GeneratorConfig configures specification generation.
	GeneratorConfig struct {
		Command         string        `json:"command" yaml:"command" mapstructure:"command"`
		Mode            GeneratorMode `json:"mode" yaml:"mode" mapstructure:"mode"`
		Timeout         time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
		MaxParallelWarm int           `json:"max_parallel_warm" yaml:"max_parallel_warm" mapstructure:"max_parallel_warm"`
	}

	// WatchConfig configures the change watcher.
	WatchConfig struct {
		Interval time.Duration `json:"interval" yaml:"interval" mapstructure:"interval"`
		// Ignore are doublestar patterns, relative to each scanned location.
		Ignore        []string `json:"ignore" yaml:"ignore" mapstructure:"ignore"`
		DisableNotify bool     `json:"disable_notify" yaml:"disable_notify" mapstructure:"disable_notify"`
	}

	// LogConfig configures logging.
	LogConfig struct {
		Level LogLevel `json:"level" yaml:"level" mapstructure:"level"`
	}
)

// String returns the string representation of the GeneratorMode.
func (m GeneratorMode) String() string { return string(m) }

// IsValid returns whether the GeneratorMode is one of the defined modes,
// and a list of validation errors if it is not.
func (m GeneratorMode) IsValid() (bool, []error) {
	switch m {
	case GeneratorModeLibdoc, GeneratorModeStatic:
		return true, nil
	default:
		return false, []error{&InvalidGeneratorModeError{Value: m}}
	}
}

// Error implements the error interface for InvalidGeneratorModeError.
func (e *InvalidGeneratorModeError) Error() string {
	return fmt.Sprintf("invalid generator mode %q (valid: libdoc, static)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidGeneratorModeError) Unwrap() error { return ErrInvalidGeneratorMode }

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Level converts to a charmbracelet/log level. Invalid values map to info.
func (l LogLevel) Level() log.Level {
	switch l {
	case LogLevelDebug:
		return log.DebugLevel
	case LogLevelWarn:
		return log.WarnLevel
	case LogLevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// Error implements the error interface for InvalidDurationError.
func (e *InvalidDurationError) Error() string {
	return fmt.Sprintf("invalid %s %s: must be positive", e.Field, e.Value)
}

// Unwrap returns ErrInvalidDuration for errors.Is() compatibility.
func (e *InvalidDurationError) Unwrap() error { return ErrInvalidDuration }

// IsValid returns whether the GeneratorConfig has valid fields.
func (c GeneratorConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Mode.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if c.Mode == GeneratorModeLibdoc && strings.TrimSpace(c.Command) == "" {
		errs = append(errs, errors.New("generator.command must be set in libdoc mode"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, &InvalidDurationError{Field: "generator.timeout", Value: c.Timeout})
	}
	if c.MaxParallelWarm < 1 {
		errs = append(errs, fmt.Errorf("generator.max_parallel_warm %d: must be at least 1", c.MaxParallelWarm))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidGeneratorConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidGeneratorConfigError.
func (e *InvalidGeneratorConfigError) Error() string {
	return fmt.Sprintf("invalid generator config: %s", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidGeneratorConfig for errors.Is() compatibility.
func (e *InvalidGeneratorConfigError) Unwrap() error { return ErrInvalidGeneratorConfig }

// IsValid returns whether the WatchConfig has valid fields.
func (c WatchConfig) IsValid() (bool, []error) {
	var errs []error
	if c.Interval <= 0 {
		errs = append(errs, &InvalidDurationError{Field: "watch.interval", Value: c.Interval})
	}
	if err := watch.ValidateIgnore(c.Ignore); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidWatchConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidWatchConfigError.
func (e *InvalidWatchConfigError) Error() string {
	return fmt.Sprintf("invalid watch config: %s", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidWatchConfig for errors.Is() compatibility.
func (e *InvalidWatchConfigError) Unwrap() error { return ErrInvalidWatchConfig }

// IsValid returns whether the Config has valid fields.
// It delegates to Generator.IsValid(), Watch.IsValid() and Log.Level.IsValid(),
// and checks every built-in library name.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Generator.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Watch.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Log.Level.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	for _, name := range c.BuiltinLibraries {
		if err := libdoc.LibraryName(name).Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Builtins returns the configured built-in names, or nil for the standard set.
func (c Config) Builtins() []libdoc.LibraryName {
	if len(c.BuiltinLibraries) == 0 {
		return nil
	}
	out := make([]libdoc.LibraryName, len(c.BuiltinLibraries))
	for i, n := range c.BuiltinLibraries {
		out[i] = libdoc.LibraryName(n)
	}
	return out
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Generator: GeneratorConfig{
			Command:         generator.DefaultLibdocCommand,
			Mode:            GeneratorModeLibdoc,
			Timeout:         generator.DefaultTimeout,
			MaxParallelWarm: libspec.DefaultMaxParallelWarm,
		},
		Watch: WatchConfig{
			Interval: watch.DefaultInterval,
			Ignore:   []string{},
		},
		CacheDir:         "", // resolved through DefaultCacheDir()
		SpecDirs:         []string{},
		BuiltinLibraries: []string{},
		WarmBuiltins:     false,
		WorkspaceFolders: []string{},
		Pythonpath:       []string{},
		Log: LogConfig{
			Level: LogLevelInfo,
		},
	}
}
