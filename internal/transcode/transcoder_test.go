package transcode

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

// fakeEncoder writes a small shell script standing in for ffmpeg: it reads
// the input named after "-i", sleeps briefly, then copies it to whatever
// its last argument is. delay controls how long it holds before writing,
// letting tests exercise the Running state.
func fakeEncoder(t *testing.T, delay time.Duration) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-ffmpeg.sh")
	script := `#!/bin/sh
input=""
output=""
prev=""
for arg in "$@"; do
  if [ "$prev" = "-i" ]; then
    input="$arg"
  fi
  output="$arg"
  prev="$arg"
done
sleep ` + strconv.FormatFloat(delay.Seconds(), 'f', -1, 64) + `
cat "$input" > "$output"
`
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake encoder: %v", err)
	}
	return path
}

func TestSpawnProducesOutputFile(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source.flac")
	if err := os.WriteFile(srcPath, []byte("source bytes"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	outPath := filepath.Join(dir, "TRANSCODE_0.mp3")

	opts := Options{Bitrate: "192k", Command: fakeEncoder(t, 0)}
	tr, err := spawn("fp", srcPath, ".mp3", outPath, opts)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	defer tr.destroy()

	if !tr.AwaitOutputExists(context.Background(), 2*time.Second) {
		t.Fatalf("AwaitOutputExists: output file never appeared")
	}

	deadline := time.Now().Add(2 * time.Second)
	for !tr.IsFinished() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !tr.IsFinished() {
		t.Fatalf("transcoder never reported Finished")
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "source bytes" {
		t.Errorf("output = %q, want %q", data, "source bytes")
	}
}

func TestReleaseDestroysOutputFile(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source.flac")
	if err := os.WriteFile(srcPath, []byte("x"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	outPath := filepath.Join(dir, "TRANSCODE_0.mp3")

	opts := Options{Bitrate: "192k", Command: fakeEncoder(t, 0)}
	tr, err := spawn("fp", srcPath, ".mp3", outPath, opts)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	tr.acquire()

	if !tr.AwaitOutputExists(context.Background(), 2*time.Second) {
		t.Fatalf("output never appeared")
	}

	tr.Release() // drops to zero, triggers destroy

	if _, err := os.Stat(outPath); !os.IsNotExist(err) {
		t.Errorf("output file still exists after last Release: err=%v", err)
	}
}

func TestAwaitOutputExistsTimesOut(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source.flac")
	if err := os.WriteFile(srcPath, []byte("x"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	outPath := filepath.Join(dir, "TRANSCODE_0.mp3")

	opts := Options{Bitrate: "192k", Command: fakeEncoder(t, 5*time.Second)}
	tr, err := spawn("fp", srcPath, ".mp3", outPath, opts)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	defer tr.destroy()

	if tr.AwaitOutputExists(context.Background(), 200*time.Millisecond) {
		t.Fatalf("AwaitOutputExists returned true before the encoder could have written anything")
	}
}
