// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/libspec/config.cue (or the XDG equivalent on Linux,
// ~/Library/Application Support/libspec/config.cue on macOS, %APPDATA%\libspec\config.cue
// on Windows). Every key can be overridden through a LIBSPEC_ environment variable, with
// dots replaced by underscores (LIBSPEC_GENERATOR_MODE=static).
//
// Files are validated against an embedded CUE schema (config_schema.cue) before they are
// merged over the defaults, so type errors are reported with the offending path.
package config
