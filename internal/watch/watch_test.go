package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestRunNotifiesForWatchedFileOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	w, err := New(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hits := make(chan struct{}, 16)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, func() { hits <- struct{}{} }) }()

	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-hits:
	case <-time.After(5 * time.Second):
		t.Fatal("no notification for the watched file")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestRelevantFiltersByPathAndOp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	w, err := New(path, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		ev   fsnotify.Event
		want bool
	}{
		{fsnotify.Event{Name: path, Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: path, Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: path, Op: fsnotify.Rename}, true},
		{fsnotify.Event{Name: path, Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: path + ".bak", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: filepath.Join(dir, ".model-123"), Op: fsnotify.Create}, false},
	}
	for _, tt := range tests {
		if got := w.relevant(tt.ev); got != tt.want {
			t.Errorf("relevant(%v) = %v, want %v", tt.ev, got, tt.want)
		}
	}
}

func TestMovedAwayFileWaitsForCreate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	w, err := New(path, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	// the file does not exist between the move and the create
	for _, op := range []fsnotify.Op{fsnotify.Rename, fsnotify.Remove} {
		if w.relevant(fsnotify.Event{Name: path, Op: op}) {
			t.Errorf("%v of a missing file must not trigger a reload", op)
		}
	}
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !w.relevant(fsnotify.Event{Name: path, Op: fsnotify.Create}) {
		t.Fatal("create of the file must trigger a reload")
	}
}
