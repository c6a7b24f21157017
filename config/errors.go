package config

import "errors"

// Validation errors returned by Config.Validate, usable with errors.Is.
var (
	ErrEmptyInput         = errors.New("input cannot be empty")
	ErrInvalidInput       = errors.New("invalid input URL")
	ErrInvalidParallelism = errors.New("parallelism must be positive")
	ErrInvalidTimeout     = errors.New("timeout must be positive")
	ErrInvalidRetries     = errors.New("max retries cannot be negative")
	ErrInvalidBackoff     = errors.New("invalid retry backoff")
	ErrEmptyUserAgent     = errors.New("user agent cannot be empty")
	ErrInvalidTopK        = errors.New("top_k cannot be negative")
	ErrInvalidLimit       = errors.New("limit cannot be negative")
	ErrInvalidXPathColumn = errors.New("xpath column needs a name and an expression")
)

// ErrConfigNotFound is returned when an explicitly named config file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")
