package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables read by ApplyEnv.
const (
	EnvParallel    = "STOCKREPORT_PARALLEL"
	EnvTimeout     = "STOCKREPORT_TIMEOUT"
	EnvMaxRetries  = "STOCKREPORT_MAX_RETRIES"
	EnvVerbose     = "STOCKREPORT_VERBOSE"
	EnvMetricsAddr = "STOCKREPORT_METRICS_ADDR"
	EnvConfigFile  = "STOCKREPORT_CONFIG"
)

// ApplyEnv overrides cfg with any STOCKREPORT_* variables that are set.
func ApplyEnv(cfg *Config) {
	cfg.Parallelism = EnvInt(EnvParallel, cfg.Parallelism)
	cfg.Timeout = EnvDuration(EnvTimeout, cfg.Timeout)
	cfg.MaxRetries = EnvInt(EnvMaxRetries, cfg.MaxRetries)
	cfg.Verbose = EnvBool(EnvVerbose, cfg.Verbose)
	cfg.MetricsAddr = EnvString(EnvMetricsAddr, cfg.MetricsAddr)
}

// EnvString returns the trimmed value of key, or fallback when unset or blank.
func EnvString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// EnvInt parses key as an integer. Malformed values are logged and ignored.
func EnvInt(key string, fallback int) int {
	v := EnvString(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring malformed environment value", slog.String("key", key), slog.String("value", v))
		return fallback
	}
	return n
}

// EnvBool parses key with strconv.ParseBool.
func EnvBool(key string, fallback bool) bool {
	v := EnvString(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("ignoring malformed environment value", slog.String("key", key), slog.String("value", v))
		return fallback
	}
	return b
}

// EnvDuration parses key as a Go duration ("5s"); a bare integer means seconds.
func EnvDuration(key string, fallback time.Duration) time.Duration {
	v := EnvString(key, "")
	if v == "" {
		return fallback
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("ignoring malformed environment value", slog.String("key", key), slog.String("value", v))
		return fallback
	}
	return d
}
