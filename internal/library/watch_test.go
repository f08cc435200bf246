package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchTriggersOnChangeAfterDebounce(t *testing.T) {
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	go Watch(ctx, []string{dir}, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	// Give the watcher goroutine time to register the root before writing.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "new-track.mp3"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatalf("expected onChange to fire after the debounce window")
	}
}

func TestWatchStopsOnContextCancel(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		Watch(ctx, []string{dir}, func() {})
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected Watch to return after context cancellation")
	}
}
