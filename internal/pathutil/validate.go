// Package pathutil confines file paths supplied by MCP clients to known directories.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExportsDir is the directory under a .recuria root that holds archives.
const ExportsDir = "exports"

// RedactPath reduces a full path to .../<parent>/<basename> for error messages.
// "/home/user/.recuria/exports/a.json.gz" becomes ".../exports/a.json.gz".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return filepath.Base(cleaned)
	}
	return ".../" + parent + "/" + filepath.Base(cleaned)
}

// ValidatePath reports an error unless path resolves inside one of allowedDirs.
// Symlinks are resolved on the deepest existing ancestor so that a file
// that does not exist yet can still be checked.
func ValidatePath(path string, allowedDirs []string) error {
	switch {
	case path == "":
		return fmt.Errorf("path validation failed: path is empty")
	case len(allowedDirs) == 0:
		return fmt.Errorf("path validation failed: no allowed directories configured")
	case strings.ContainsRune(path, '\x00'):
		return fmt.Errorf("path validation failed: path contains null byte")
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("path validation failed: cannot resolve absolute path: %w", err)
	}
	resolvedDir, err := resolveExisting(filepath.Dir(absPath))
	if err != nil {
		return fmt.Errorf("path validation failed: cannot resolve parent directory: %w", err)
	}
	resolved := filepath.Join(resolvedDir, filepath.Base(absPath))

	for _, dir := range allowedDirs {
		abs, err := filepath.Abs(filepath.Clean(dir))
		if err != nil {
			continue
		}
		base, err := resolveExisting(abs)
		if err != nil {
			continue
		}
		if within(resolved, base) {
			return nil
		}
	}
	return fmt.Errorf("path validation failed: %q is outside allowed directories", RedactPath(absPath))
}

// resolveExisting evaluates symlinks on the deepest existing ancestor of
// dir and re-appends the missing tail.
func resolveExisting(dir string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		return resolved, nil
	}
	parent := filepath.Dir(dir)
	if parent == dir {
		return "", fmt.Errorf("cannot resolve path: %s", RedactPath(dir))
	}
	resolvedParent, err := resolveExisting(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(dir)), nil
}

func within(path, base string) bool {
	return path == base || strings.HasPrefix(path, base+string(os.PathSeparator))
}

// AllowedExportDirs returns the directories archives may be written to:
// ~/.recuria/exports and, when projectRoot is set, <projectRoot>/.recuria/exports.
func AllowedExportDirs(projectRoot string) ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	dirs := []string{filepath.Join(home, ".recuria", ExportsDir)}
	if projectRoot != "" {
		dirs = append(dirs, filepath.Join(projectRoot, ".recuria", ExportsDir))
	}
	return dirs, nil
}
