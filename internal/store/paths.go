package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the per-project data directory.
const DirName = ".recuria"

// DBFile is the default SQLite database file name.
const DBFile = "recuria.db"

// GlobalPath returns the path to the global .recuria directory.
// On Unix: ~/.recuria
// On Windows: %USERPROFILE%\.recuria
func GlobalPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName), nil
}

// LocalPath returns the .recuria directory for the given project root.
func LocalPath(projectRoot string) string {
	return filepath.Join(projectRoot, DirName)
}

// DefaultSQLitePath returns the database path used when no DSN is configured.
func DefaultSQLitePath(projectRoot string) string {
	return filepath.Join(LocalPath(projectRoot), DBFile)
}
