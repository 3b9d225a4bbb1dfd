package watchdog

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSnapshot_DetectsFileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.mp3")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := New(dir, func() {}, nil)
	before := w.snapshot()

	time.Sleep(10 * time.Millisecond)
	if err := os.WriteFile(path, []byte("ab"), 0o644); err != nil {
		t.Fatal(err)
	}
	after := w.snapshot()

	if equalSnapshots(before, after) {
		t.Error("expected snapshots to differ after file size change")
	}
}

func TestEqualSnapshots_Identical(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.mp3")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := New(dir, func() {}, nil)
	a := w.snapshot()
	b := w.snapshot()
	if !equalSnapshots(a, b) {
		t.Error("expected two snapshots of an unchanged tree to be equal")
	}
}

func TestSnapshot_DetectsRewriteForPollLoop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.mp3")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := New(dir, func() {}, nil)

	before := w.snapshot()
	if err := os.WriteFile(path, []byte("changed"), 0o644); err != nil {
		t.Fatal(err)
	}
	after := w.snapshot()
	if equalSnapshots(before, after) {
		t.Fatal("expected a detectable change for the poll loop to act on")
	}
}
