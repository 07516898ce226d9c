package codewatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/najoast/actorhost/hostlog"
)

func TestStartStopWithRealmSubdirectories(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "global"), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}

	w, err := New(root, hostlog.Component("codewatch-test"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(root, "global", "Echo.so"), []byte("x"), 0644); err != nil {
		t.Fatalf("writing fixture file failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if err := w.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestFilepathGlobDirsFiltersFiles(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "realm-a"), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "not-a-dir.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("writing file failed: %v", err)
	}

	dirs, err := filepathGlobDirs(root)
	if err != nil {
		t.Fatalf("filepathGlobDirs failed: %v", err)
	}
	if len(dirs) != 1 || filepath.Base(dirs[0]) != "realm-a" {
		t.Errorf("expected only realm-a, got %v", dirs)
	}
}
