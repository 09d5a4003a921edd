// Package errors holds the sentinel errors shared across caskcat and small
// helpers for wrapping them with context. Callers compare with errors.Is.
package errors

import (
	"fmt"
	"strings"
)

// Common error types.
var (
	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigFileCreate  = fmt.Errorf("failed to create config file")
	ErrConfigFileExists  = fmt.Errorf("configuration file already exists (use --force to overwrite)")
	ErrConfigMarshal     = fmt.Errorf("failed to marshal config to YAML")
	ErrUnknownConfigKey  = fmt.Errorf("unknown configuration key")
	ErrInvalidConfigVal  = fmt.Errorf("invalid configuration value")

	// Settings validation errors.
	ErrHTTPTimeoutNegative  = fmt.Errorf("http_timeout cannot be negative")
	ErrMaxConcurrentInvalid = fmt.Errorf("max_concurrent cannot be negative")
	ErrInvalidThreshold     = fmt.Errorf("search_threshold must be within [0, 1]")
	ErrInvalidSearchLimit   = fmt.Errorf("search_limit must be at least 1")
	ErrInvalidCadence       = fmt.Errorf("invalid update cadence")
	ErrInvalidOutputFormat  = fmt.Errorf("invalid output format")
	ErrInvalidLogLevel      = fmt.Errorf("invalid log level")
	ErrInvalidProxyURL      = fmt.Errorf("invalid proxy URL")

	// Catalog snapshot and fetch errors.
	ErrCacheNotFound  = fmt.Errorf("catalog cache not found")
	ErrCacheDirectory = fmt.Errorf("cache directory cannot be empty")
	ErrCacheCorrupt   = fmt.Errorf("catalog cache is unreadable")
	ErrFetchFailed    = fmt.Errorf("catalog fetch failed")
	ErrCatalogFormat  = fmt.Errorf("catalog document is not a list of casks")
	ErrNoCatalog      = fmt.Errorf("no catalog available")

	// Catalog lookup errors.
	ErrCaskNotFound       = fmt.Errorf("cask not found")
	ErrNoCasksSpecified   = fmt.Errorf("no casks specified and --all flag not used")
	ErrInvalidFilterQuery = fmt.Errorf("invalid filter expression")

	// Executor errors.
	ErrExecutorNotConfigured = fmt.Errorf("package executor is not configured")
	ErrOperationFailed       = fmt.Errorf("package operation failed")
	ErrUnknownOperation      = fmt.Errorf("unknown package operation")
	ErrItemPanicked          = fmt.Errorf("batch item panicked")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ErrUnknownConfigKeyWithName creates an error naming the unsupported key.
func ErrUnknownConfigKeyWithName(key string) error {
	return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
}

// ErrInvalidConfigValueFor creates an error for a value that cannot be parsed for key.
func ErrInvalidConfigValueFor(key, value string) error {
	return fmt.Errorf("%w for %s: %q", ErrInvalidConfigVal, key, value)
}

// ErrInvalidCadenceWithValue creates an error listing the accepted cadence spellings.
func ErrInvalidCadenceWithValue(value string) error {
	return fmt.Errorf("%w: '%s', must be one of: every-launch, daily, every-N-days, weekly, monthly", ErrInvalidCadence, value)
}

// ErrInvalidOutputFormatWithDetails creates an error with the invalid format and valid options.
func ErrInvalidOutputFormatWithDetails(format string) error {
	return fmt.Errorf("%w: '%s', must be one of: text, json", ErrInvalidOutputFormat, format)
}

// ErrInvalidLogLevelWithDetails creates an error with the invalid level and valid options.
func ErrInvalidLogLevelWithDetails(level string) error {
	return fmt.Errorf("%w: '%s', must be one of: error, warn, info, debug", ErrInvalidLogLevel, level)
}

// ErrCaskNotFoundWithToken creates an error for a token missing from the catalog.
func ErrCaskNotFoundWithToken(token string) error {
	return fmt.Errorf("%w: %s", ErrCaskNotFound, token)
}

// ErrOperationFailedWithOutput creates an error for a non-successful executor run,
// keeping the last line of the tool's output for context.
func ErrOperationFailedWithOutput(op, target, output string) error {
	output = strings.TrimSpace(output)
	if i := strings.LastIndexByte(output, '\n'); i >= 0 {
		output = strings.TrimSpace(output[i+1:])
	}
	if output == "" {
		return fmt.Errorf("%w: %s %s", ErrOperationFailed, op, target)
	}
	return fmt.Errorf("%w: %s %s: %s", ErrOperationFailed, op, target, output)
}
