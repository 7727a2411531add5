// Package config loads client configuration from files, environment, and flags.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
)

// Reference timing values for the submit/poll protocol.
const (
	DefaultPollInterval     = 5 * time.Second
	DefaultProgressInterval = 2 * time.Second
	DefaultSubmitTimeout    = 610 * time.Second
)

// Options are the user-settable knobs. Zero values mean "not set" so layered
// sources can be merged.
type Options struct {
	// APIURL is the base URL of the agent backend.
	APIURL string `json:"apiUrl"`
	// StateDir is where cached client state lives. Defaults to ~/.portal.
	StateDir string `json:"stateDir"`
	// LogLevel is one of DEBUG, INFO, WARN, ERROR.
	LogLevel string `json:"logLevel"`
	// PollInterval is the task poll cadence, e.g. "5s".
	PollInterval string `json:"pollInterval"`
	// ProgressInterval is the status notice cadence, e.g. "2s".
	ProgressInterval string `json:"progressInterval"`
	// SubmitTimeout is the client-side submission deadline, e.g. "610s".
	SubmitTimeout string `json:"submitTimeout"`
	NoColor       bool   `json:"noColor"`
	Quiet         bool   `json:"quiet"`
	JSON          bool   `json:"json"`
}

// Config is the fully resolved configuration.
type Config struct {
	APIURL           string
	StateDir         string
	LogLevel         string
	PollInterval     time.Duration
	ProgressInterval time.Duration
	SubmitTimeout    time.Duration
	NoColor          bool
	Quiet            bool
	JSON             bool
}

// Load resolves configuration from, in priority order (later wins):
// defaults, ~/.portal/portal.jsonc, <cwd>/.portal/portal.json, a .env file,
// environment variables, then the given flag overrides.
func Load(cwd string, flags Options) (*Config, error) {
	merged := Options{}

	if home, err := os.UserHomeDir(); err == nil {
		if opts, err := readOptionsFile(filepath.Join(home, ".portal", "portal.jsonc")); err == nil {
			apply(&merged, opts)
		}
	}
	if opts, err := readOptionsFile(filepath.Join(cwd, ".portal", "portal.json")); err == nil {
		apply(&merged, opts)
	}

	// .env is best effort; env vars below still apply without one.
	_ = godotenv.Load(filepath.Join(cwd, ".env"))

	apply(&merged, envOptions())
	apply(&merged, flags)

	return resolve(merged)
}

func readOptionsFile(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, err
	}
	var opts Options
	if err := json.Unmarshal(jsonc.ToJSON(data), &opts); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func envOptions() Options {
	return Options{
		APIURL:           os.Getenv("PORTAL_API_URL"),
		StateDir:         os.Getenv("PORTAL_STATE_DIR"),
		LogLevel:         os.Getenv("PORTAL_LOG_LEVEL"),
		PollInterval:     os.Getenv("PORTAL_POLL_INTERVAL"),
		ProgressInterval: os.Getenv("PORTAL_PROGRESS_INTERVAL"),
		SubmitTimeout:    os.Getenv("PORTAL_SUBMIT_TIMEOUT"),
	}
}

func apply(dst *Options, src Options) {
	if src.APIURL != "" {
		dst.APIURL = src.APIURL
	}
	if src.StateDir != "" {
		dst.StateDir = src.StateDir
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.PollInterval != "" {
		dst.PollInterval = src.PollInterval
	}
	if src.ProgressInterval != "" {
		dst.ProgressInterval = src.ProgressInterval
	}
	if src.SubmitTimeout != "" {
		dst.SubmitTimeout = src.SubmitTimeout
	}
	if src.NoColor {
		dst.NoColor = true
	}
	if src.Quiet {
		dst.Quiet = true
	}
	if src.JSON {
		dst.JSON = true
	}
}

func resolve(opts Options) (*Config, error) {
	if opts.APIURL == "" {
		return nil, errors.New("missing backend URL: set apiUrl in portal.json or PORTAL_API_URL")
	}

	stateDir := opts.StateDir
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		stateDir = filepath.Join(home, ".portal")
	}

	cfg := &Config{
		APIURL:           opts.APIURL,
		StateDir:         stateDir,
		LogLevel:         opts.LogLevel,
		PollInterval:     DefaultPollInterval,
		ProgressInterval: DefaultProgressInterval,
		SubmitTimeout:    DefaultSubmitTimeout,
		NoColor:          opts.NoColor,
		Quiet:            opts.Quiet,
		JSON:             opts.JSON,
	}

	var err error
	if cfg.PollInterval, err = parseInterval(opts.PollInterval, DefaultPollInterval); err != nil {
		return nil, err
	}
	if cfg.ProgressInterval, err = parseInterval(opts.ProgressInterval, DefaultProgressInterval); err != nil {
		return nil, err
	}
	if cfg.SubmitTimeout, err = parseInterval(opts.SubmitTimeout, DefaultSubmitTimeout); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseInterval(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("interval must be positive: " + s)
	}
	return d, nil
}
