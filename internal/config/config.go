// Package config loads process configuration from the environment into an
// immutable value. Nothing in the pipeline reads env vars directly; main
// loads a Config once and passes it down, so per-request behavior can never
// be contaminated by config mutation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Defaults. Fetch and chunk bounds match what the archive has always used.
const (
	DefaultFetchTimeout   = 30 * time.Second
	DefaultMaxFetchBytes  = 10 << 20 // 10 MiB
	DefaultMaxChunkChars  = 1200
	DefaultTopK           = 5
	DefaultOverfetch      = 4
	DefaultMinScore       = 0.0
	DefaultOracleCacheLen = 10000
)

// Config is the immutable process configuration.
type Config struct {
	DataDir string // root for blob store and both SQLite databases

	// Authorized callers. Empty means owner-only: only CallerOwner passes.
	AllowedCallers []string

	FetchTimeout  time.Duration
	MaxFetchBytes int64
	MaxChunkChars int

	TopK      int     // default result count
	Overfetch int     // nearest-neighbor overfetch factor before collapsing
	MinScore  float64 // drop hits below this similarity

	OracleProvider string // "", "workersai", "gemini", "local"
	OracleCacheLen int

	ReconcileOnStart bool
}

// CallerOwner is the caller id that is always authorized.
const CallerOwner = "owner"

// Load reads configuration from the environment. Unset values fall back to
// defaults; malformed numeric values are an error rather than a silent
// default, so a typo in deployment config fails loudly.
func Load() (Config, error) {
	cfg := Config{
		DataDir:        os.Getenv("SEEN_DATA_DIR"),
		OracleProvider: strings.ToLower(os.Getenv("SEEN_ORACLE_PROVIDER")),
		FetchTimeout:   DefaultFetchTimeout,
		MaxFetchBytes:  DefaultMaxFetchBytes,
		MaxChunkChars:  DefaultMaxChunkChars,
		TopK:           DefaultTopK,
		Overfetch:      DefaultOverfetch,
		MinScore:       DefaultMinScore,
		OracleCacheLen: DefaultOracleCacheLen,
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("SEEN_DATA_DIR unset and no home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".seen")
	}

	if v := os.Getenv("SEEN_ALLOWED_CALLERS"); v != "" {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cfg.AllowedCallers = append(cfg.AllowedCallers, c)
			}
		}
	}

	var err error
	if cfg.FetchTimeout, err = durationEnv("SEEN_FETCH_TIMEOUT", cfg.FetchTimeout); err != nil {
		return Config{}, err
	}
	if cfg.MaxFetchBytes, err = int64Env("SEEN_MAX_FETCH_BYTES", cfg.MaxFetchBytes); err != nil {
		return Config{}, err
	}
	if cfg.MaxChunkChars, err = intEnv("SEEN_MAX_CHUNK_CHARS", cfg.MaxChunkChars); err != nil {
		return Config{}, err
	}
	if cfg.TopK, err = intEnv("SEEN_TOP_K", cfg.TopK); err != nil {
		return Config{}, err
	}
	if cfg.Overfetch, err = intEnv("SEEN_OVERFETCH", cfg.Overfetch); err != nil {
		return Config{}, err
	}
	if cfg.OracleCacheLen, err = intEnv("SEEN_ORACLE_CACHE", cfg.OracleCacheLen); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("SEEN_MIN_SCORE"); v != "" {
		if cfg.MinScore, err = strconv.ParseFloat(v, 64); err != nil {
			return Config{}, fmt.Errorf("SEEN_MIN_SCORE: %w", err)
		}
	}
	cfg.ReconcileOnStart = os.Getenv("SEEN_RECONCILE_ON_START") == "true"

	return cfg, nil
}

// Authorized reports whether a caller id may invoke the pipeline. The
// allow-list is evaluated per request against the immutable config value.
func (c Config) Authorized(callerID string) bool {
	if callerID == CallerOwner {
		return true
	}
	for _, allowed := range c.AllowedCallers {
		if callerID == allowed {
			return true
		}
	}
	return false
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func int64Env(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
