package transcode

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestCache(t *testing.T, maxRunning, maxCompleted int, delay time.Duration) (*Cache, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{
		TranscodeDir: dir,
		MaxRunning:   maxRunning,
		MaxCompleted: maxCompleted,
		Options:      Options{Bitrate: "192k", Command: fakeEncoder(t, delay)},
	}
	return NewCache(cfg), dir
}

func writeSource(t *testing.T, dir, name string, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func TestGetOrCreateSharesOneTranscoderPerFingerprint(t *testing.T) {
	c, dir := newTestCache(t, 1, 2, 300*time.Millisecond)
	src := writeSource(t, dir, "B.flac", "hello world")

	const n = 10
	var wg sync.WaitGroup
	results := make([]*Transcoder, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr, err := c.GetOrCreate("/B.mp3", src, ".mp3")
			if err != nil {
				t.Errorf("GetOrCreate: %v", err)
				return
			}
			results[i] = tr
		}(i)
	}
	wg.Wait()

	for i, tr := range results {
		if tr == nil {
			t.Fatalf("result %d is nil", i)
		}
		if tr != results[0] {
			t.Errorf("result %d is a different Transcoder than result 0; fingerprint sharing failed", i)
		}
	}

	for _, tr := range results {
		tr.Release()
	}
}

func TestHousekeepEnforcesRetentionCapacities(t *testing.T) {
	c, dir := newTestCache(t, 1, 2, 0)

	targets := []string{"/X.mp3", "/Y.mp3", "/Z.mp3"}
	for i, fp := range targets {
		src := writeSource(t, dir, string(rune('A'+i))+".flac", "payload")
		tr, err := c.GetOrCreate(fp, src, ".mp3")
		if err != nil {
			t.Fatalf("GetOrCreate(%s): %v", fp, err)
		}

		if !tr.AwaitOutputExists(context.Background(), 2*time.Second) {
			t.Fatalf("output for %s never appeared", fp)
		}
		deadline := time.Now().Add(2 * time.Second)
		for !tr.IsFinished() && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}

		c.Touch(tr)
		tr.Release()
	}

	stats := c.Stats()
	if len(stats.Running) > 1 {
		t.Errorf("running list = %v, want at most 1 entry", stats.Running)
	}
	if len(stats.Completed) > 2 {
		t.Errorf("completed list = %v, want at most 2 entries", stats.Completed)
	}

	// X was evicted first and should no longer exist on disk: its only
	// reference was the retention lists, now both released.
	if _, err := os.Stat(filepath.Join(dir, "TRANSCODE_0.mp3")); !os.IsNotExist(err) {
		t.Errorf("X's output file should have been removed after eviction, err=%v", err)
	}
}

func TestGetOrCreateAfterLastReleaseSpawnsFresh(t *testing.T) {
	c, dir := newTestCache(t, 1, 1, 0)
	src := writeSource(t, dir, "B.flac", "payload")

	first, err := c.GetOrCreate("/B.mp3", src, ".mp3")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	first.Release() // drops to zero; forget() removes "/B.mp3" from the index

	second, err := c.GetOrCreate("/B.mp3", src, ".mp3")
	if err != nil {
		t.Fatalf("GetOrCreate (second): %v", err)
	}
	if second == first {
		t.Fatalf("expected a fresh Transcoder after the first was released, got the same pointer")
	}
	second.Release()
}
