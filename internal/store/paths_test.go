package store

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestGlobalPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	got, err := GlobalPath()
	if err != nil {
		t.Fatalf("GlobalPath() error = %v", err)
	}
	if got != filepath.Join(home, ".recuria") {
		t.Errorf("GlobalPath() = %q", got)
	}
}

func TestDefaultSQLitePath(t *testing.T) {
	got := DefaultSQLitePath("/project")
	if !strings.HasSuffix(got, filepath.Join(".recuria", "recuria.db")) {
		t.Errorf("DefaultSQLitePath() = %q", got)
	}
	if LocalPath("/project") != filepath.Join("/project", ".recuria") {
		t.Errorf("LocalPath() = %q", LocalPath("/project"))
	}
}
