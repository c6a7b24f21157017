package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// AppName names the application in config and XDG paths.
const AppName = "stockreport"

// Config holds run configuration shared by every report.
type Config struct {
	Input           string // snapshot directory or live base URL
	Output          string // destination file; empty selects the report default
	Parallelism     int
	Timeout         time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
	UserAgent       string
	Verbose         bool
	MetricsAddr     string
	ConfigFile      string

	// Reports holds per-report overrides keyed by report name.
	Reports map[string]ReportOverride
}

// ReportOverride adjusts a report definition from the config file.
type ReportOverride struct {
	Title   string        `yaml:"title"`
	TopK    *int          `yaml:"top_k"`
	Limit   *int          `yaml:"limit"`
	Columns []string      `yaml:"columns"`
	XPath   []XPathColumn `yaml:"xpath"`
}

// XPathColumn declares an extra column evaluated with an XPath expression.
type XPathColumn struct {
	Name string `yaml:"name"`
	Expr string `yaml:"expr"`
}

// DefaultConfig returns defaults for reading the local snapshot in ./pages.
func DefaultConfig() *Config {
	return &Config{
		Input:           "pages",
		Parallelism:     4,
		Timeout:         10 * time.Second,
		MaxRetries:      2,
		RetryBackoff:    200 * time.Millisecond,
		RetryBackoffMax: 2 * time.Second,
		UserAgent:       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Reports:         map[string]ReportOverride{},
	}
}

// IsOnline reports whether Input names a live http(s) site.
func (c *Config) IsOnline() bool {
	return IsURL(c.Input)
}

// IsURL reports whether s is an http or https URL.
func IsURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Input) == "" {
		return ErrEmptyInput
	}
	if c.IsOnline() {
		parsed, err := url.Parse(c.Input)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("%w: base URL must include a host", ErrInvalidInput)
		}
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidParallelism, c.Parallelism)
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxRetries < 0 {
		return ErrInvalidRetries
	}
	if c.RetryBackoff < 0 || c.RetryBackoffMax < 0 {
		return ErrInvalidBackoff
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("%w: retry backoff (%s) cannot exceed retry backoff max (%s)", ErrInvalidBackoff, c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.UserAgent == "" {
		return ErrEmptyUserAgent
	}
	for name, o := range c.Reports {
		if o.TopK != nil && *o.TopK < 0 {
			return fmt.Errorf("report %q: %w", name, ErrInvalidTopK)
		}
		if o.Limit != nil && *o.Limit < 0 {
			return fmt.Errorf("report %q: %w", name, ErrInvalidLimit)
		}
		for _, col := range o.XPath {
			if col.Name == "" || col.Expr == "" {
				return fmt.Errorf("report %q: %w", name, ErrInvalidXPathColumn)
			}
		}
	}
	return nil
}
