package cleanup_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ncanimate/internal/cleanup"
	"ncanimate/internal/framefiles"
	"ncanimate/internal/logging"
)

func frameIndex(t *testing.T, dir string, names ...string) framefiles.Index {
	t.Helper()
	idx := framefiles.Index{}
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("frame"), 0o644); err != nil {
			t.Fatalf("write frame: %v", err)
		}
		idx[framefiles.Key{Region: "qld", Height: "default", Start: name, Format: "png"}] = path
	}
	return idx
}

func TestReclaimDeletesOnlyUnneededFrames(t *testing.T) {
	dir := t.TempDir()
	known := frameIndex(t, dir, "a", "b", "c")
	required := framefiles.Index{}
	for k, p := range known {
		if k.Start == "b" {
			required[k] = p
		}
	}

	result := cleanup.Reclaim(known, required, logging.NewNop())
	if len(result.Removed) != 2 || len(result.Errors) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(known) != 1 {
		t.Fatalf("expected only the required frame to stay known, got %d", len(known))
	}
	if _, err := os.Stat(filepath.Join(dir, "b")); err != nil {
		t.Fatalf("required frame was removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a")); !os.IsNotExist(err) {
		t.Fatal("unneeded frame still exists")
	}
}

func TestReclaimForgetsFramesNeverWritten(t *testing.T) {
	known := framefiles.Index{{Start: "ghost"}: filepath.Join(t.TempDir(), "ghost.png")}
	result := cleanup.Reclaim(known, framefiles.Index{}, logging.NewNop())
	if len(result.Removed) != 0 || len(result.Errors) != 0 || len(known) != 0 {
		t.Fatalf("unexpected result %+v known=%d", result, len(known))
	}
}

func TestReclaimFailureIsNotFatal(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	known := frameIndex(t, dir, "locked")
	if err := os.Chmod(dir, 0o500); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	result := cleanup.Reclaim(known, framefiles.Index{}, logging.NewNop())
	if len(result.Errors) != 1 || len(known) != 1 {
		t.Fatalf("expected one recorded failure, got %+v", result)
	}
}

func TestDiskSpace(t *testing.T) {
	total, free, err := cleanup.DiskSpace(t.TempDir())
	if err != nil {
		t.Fatalf("DiskSpace: %v", err)
	}
	if total == 0 || free > total {
		t.Fatalf("implausible disk space total=%d free=%d", total, free)
	}
}

func TestCleanStaleRemovesOldWorkDirs(t *testing.T) {
	root := t.TempDir()
	oldDir := filepath.Join(root, "old-run")
	recentDir := filepath.Join(root, "recent-run")
	for _, dir := range []string{oldDir, recentDir} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	oldTime := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(oldDir, oldTime, oldTime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	result := cleanup.CleanStale(context.Background(), root, "", 24*time.Hour, logging.NewNop())
	if len(result.Removed) != 1 || result.Removed[0] != oldDir {
		t.Fatalf("unexpected removals %v", result.Removed)
	}
	if _, err := os.Stat(recentDir); err != nil {
		t.Fatal("recent directory should still exist")
	}
}

func TestCleanStaleOnlyTouchesOwnerDirs(t *testing.T) {
	root := t.TempDir()
	oldTime := time.Now().Add(-48 * time.Hour)
	names := []string{"p_1b4e28ba-2fa1", "p_x_9c1f0a33-77de", "other_5d2a11c0-0e4b", "p"}
	for _, name := range names {
		dir := filepath.Join(root, name)
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.Chtimes(dir, oldTime, oldTime); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	result := cleanup.CleanStale(context.Background(), root, "p", 24*time.Hour, logging.NewNop())
	if len(result.Removed) != 1 || result.Removed[0] != filepath.Join(root, "p_1b4e28ba-2fa1") {
		t.Fatalf("unexpected removals %v", result.Removed)
	}
	for _, name := range names[1:] {
		if _, err := os.Stat(filepath.Join(root, name)); err != nil {
			t.Fatalf("%s should still exist: %v", name, err)
		}
	}
}

func TestCleanStaleMissingDir(t *testing.T) {
	result := cleanup.CleanStale(context.Background(), filepath.Join(t.TempDir(), "absent"), "p", time.Hour, nil)
	if len(result.Removed) != 0 || len(result.Errors) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestRemoveWorkDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	if err := os.MkdirAll(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := cleanup.RemoveWorkDir(dir, logging.NewNop()); err != nil {
		t.Fatalf("RemoveWorkDir: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatal("work dir still exists")
	}
}
