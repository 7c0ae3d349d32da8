package main

import (
	"os"
	"path/filepath"

	"github.com/fagemx/edda/internal/config"
	"github.com/fagemx/edda/internal/ledger"
	"github.com/fagemx/edda/internal/projectid"
)

// openWorkspace resolves the current directory's config and opens its
// ledger, returning both plus the resolved project ID. Every subcommand
// shares this so flag handling and error messages stay consistent.
func openWorkspace() (*ledger.Ledger, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		cfg = config.Default()
	}
	l, err := ledger.Open(cfg.LedgerDir, 2000, cfg.BridgeLockTimeoutMS)
	if err != nil {
		return nil, "", err
	}
	id, err := projectid.ProjectID(cwd)
	if err != nil {
		id = ""
	}
	return l, id, nil
}

// userCoordDir mirrors edda-hook's resolution of the per-user coordination
// store root so doctor/watch inspect the same directory the hook writes to.
func userCoordDir() string {
	if dir := os.Getenv("EDDA_COORD_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "edda-coordination")
	}
	return filepath.Join(home, ".edda", "coordination")
}
