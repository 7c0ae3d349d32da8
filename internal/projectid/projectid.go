// Package projectid resolves a stable project_id for the coordination
// store: the hash of the canonical repository root, worktree-aware, so
// every worktree of the same repository shares one coordination namespace.
package projectid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// GitDir returns the .git directory for the repository containing dir,
// worktree-aware (git rev-parse --git-dir resolves a worktree's ".git" file
// to the real per-worktree git dir, not the main repo's).
func GitDir(dir string) (string, error) {
	out, err := runGit(dir, "rev-parse", "--git-dir")
	if err != nil {
		return "", fmt.Errorf("not a git repository: %w", err)
	}
	gitDir := out
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(dir, gitDir)
	}
	return gitDir, nil
}

// IsWorktree reports whether dir is inside a linked worktree, determined by
// comparing --git-dir against --git-common-dir.
func IsWorktree(dir string) bool {
	gitDir, err1 := runGit(dir, "rev-parse", "--git-dir")
	commonDir, err2 := runGit(dir, "rev-parse", "--git-common-dir")
	if err1 != nil || err2 != nil || gitDir == "" || commonDir == "" {
		return false
	}
	absGit, e1 := filepath.Abs(filepath.Join(dir, gitDir))
	absCommon, e2 := filepath.Abs(filepath.Join(dir, commonDir))
	if e1 != nil || e2 != nil {
		return false
	}
	return absGit != absCommon
}

// MainRepoRoot returns the root of the main repository that dir belongs to.
// If dir is a linked worktree, this strips the "/worktrees/<name>" suffix
// from --git-common-dir rather than returning the worktree's own root, so
// every worktree of one repository resolves to the same path.
func MainRepoRoot(dir string) (string, error) {
	if IsWorktree(dir) {
		commonDir, err := runGit(dir, "rev-parse", "--git-common-dir")
		if err != nil {
			return "", fmt.Errorf("resolve main repo root: %w", err)
		}
		if !filepath.IsAbs(commonDir) {
			commonDir = filepath.Join(dir, commonDir)
		}
		if idx := strings.Index(commonDir, string(filepath.Separator)+"worktrees"+string(filepath.Separator)); idx > 0 {
			commonDir = commonDir[:idx]
		}
		return filepath.Dir(commonDir), nil
	}

	gitDir, err := GitDir(dir)
	if err != nil {
		return "", err
	}
	return filepath.Dir(gitDir), nil
}

// CanonicalRoot resolves dir's main repository root to a canonical absolute
// path: symlinks resolved, and case-folded on platforms with case-insensitive
// filesystems (Windows and, conventionally, darwin).
func CanonicalRoot(dir string) (string, error) {
	root, err := MainRepoRoot(dir)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		// A root that doesn't exist on disk (rare) falls back to the
		// unresolved path rather than failing project_id resolution.
		resolved = root
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		abs = strings.ToLower(abs)
	}
	return abs, nil
}

// ProjectID returns the project_id for the repository containing dir: the
// hex-encoded SHA-256 of its canonical repository root.
func ProjectID(dir string) (string, error) {
	root, err := CanonicalRoot(dir)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(root))
	return hex.EncodeToString(sum[:]), nil
}

func runGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
