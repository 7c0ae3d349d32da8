// Package config loads Edda's project-level settings: the ledger root,
// hook/lock timeouts, and context-packer budget. Settings live in
// .edda/config.json and can be overridden by environment variables, which
// always win over the file — useful when a hook is invoked from a harness
// that can't rewrite the file but can set env vars for a single run.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

// Config is the subset of .edda/config.json fields the hook dispatcher and
// ledger need at startup, before any per-command flag parsing happens.
type Config struct {
	// LedgerDir is the directory holding ledger.db, ledger/blobs/, and
	// branches/. Heartbeats live in the per-user coordination store instead.
	// Defaults to ".edda" relative to the project root.
	LedgerDir string `mapstructure:"ledger_dir"`

	// HookTimeoutMS bounds how long the resilience shell waits for a hook
	// handler before abandoning it and returning a neutral response.
	HookTimeoutMS int `mapstructure:"hook_timeout_ms"`

	// BridgeLockTimeoutMS bounds how long an append waits to acquire the
	// ledger's single-writer lock before giving up.
	BridgeLockTimeoutMS int `mapstructure:"bridge_lock_timeout_ms"`

	// ContextBudget is the default character budget for packed context
	// snapshots, overridable per-call.
	ContextBudget int `mapstructure:"context_budget"`

	// Debug enables verbose diagnostic logging to stderr.
	Debug bool `mapstructure:"debug"`
}

// Default returns the built-in defaults used when no config file and no
// environment overrides are present.
func Default() *Config {
	return &Config{
		LedgerDir:           ".edda",
		HookTimeoutMS:       3000,
		BridgeLockTimeoutMS: 2000,
		ContextBudget:       8000,
		Debug:               false,
	}
}

// Load reads .edda/config.json under projectRoot (if present), then applies
// environment variable overrides, then returns the merged result. A missing
// config file is not an error; Load falls back to Default().
func Load(projectRoot string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(projectRoot, ".edda"))
	v.SetDefault("ledger_dir", cfg.LedgerDir)
	v.SetDefault("hook_timeout_ms", cfg.HookTimeoutMS)
	v.SetDefault("bridge_lock_timeout_ms", cfg.BridgeLockTimeoutMS)
	v.SetDefault("context_budget", cfg.ContextBudget)
	v.SetDefault("debug", cfg.Debug)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read .edda/config.json: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse .edda/config.json: %w", err)
	}

	applyEnvOverrides(cfg)

	if cfg.LedgerDir == "" {
		cfg.LedgerDir = ".edda"
	}
	if !filepath.IsAbs(cfg.LedgerDir) {
		cfg.LedgerDir = filepath.Join(projectRoot, cfg.LedgerDir)
	}

	return cfg, nil
}

// applyEnvOverrides mutates cfg in place with whichever of HOOK_TIMEOUT_MS,
// BRIDGE_LOCK_TIMEOUT_MS, CONTEXT_BUDGET, DEBUG and EDDA_LEDGER_DIR are
// set. Environment always wins over the file, matching
// the precedence a single hook invocation needs when it can't touch disk.
func applyEnvOverrides(cfg *Config) {
	if ms := os.Getenv("HOOK_TIMEOUT_MS"); ms != "" {
		if n, err := strconv.Atoi(ms); err == nil && n > 0 {
			cfg.HookTimeoutMS = n
		}
	}
	if ms := os.Getenv("BRIDGE_LOCK_TIMEOUT_MS"); ms != "" {
		if n, err := strconv.Atoi(ms); err == nil && n > 0 {
			cfg.BridgeLockTimeoutMS = n
		}
	}
	if b := os.Getenv("CONTEXT_BUDGET"); b != "" {
		if n, err := strconv.Atoi(b); err == nil && n > 0 {
			cfg.ContextBudget = n
		}
	}
	if d := os.Getenv("DEBUG"); d != "" {
		cfg.Debug = true
	}
	if dir := os.Getenv("EDDA_LEDGER_DIR"); dir != "" {
		cfg.LedgerDir = dir
	}
}
