package library

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsSupportedFormat(t *testing.T) {
	cases := map[string]bool{
		".mp3": true, ".MP3": true, ".flac": true, ".ogg": true,
		".txt": false, "": false,
	}
	for ext, want := range cases {
		if got := IsSupportedFormat(ext); got != want {
			t.Errorf("IsSupportedFormat(%q) = %v, want %v", ext, got, want)
		}
	}
}

func TestNewTrackFromFileFallsBackToFilename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Some Untagged Song.mp3")
	if err := os.WriteFile(path, []byte("not actually audio data"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	track, err := NewTrackFromFile(path)
	if err != nil {
		t.Fatalf("NewTrackFromFile: %v", err)
	}
	if track.Title != "Some Untagged Song" {
		t.Errorf("Title = %q, want filename-derived title", track.Title)
	}
	if track.Format != "mp3" {
		t.Errorf("Format = %q, want mp3", track.Format)
	}
	if track.Checksum == "" {
		t.Errorf("expected a non-empty checksum")
	}
	if !track.FileExists() {
		t.Errorf("expected FileExists to be true right after creation")
	}
}

func TestNewTrackFromFileAssignsIncreasingIDs(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.mp3")
	p2 := filepath.Join(dir, "b.mp3")
	os.WriteFile(p1, []byte("x"), 0o644)
	os.WriteFile(p2, []byte("y"), 0o644)

	t1, err := NewTrackFromFile(p1)
	if err != nil {
		t.Fatalf("track 1: %v", err)
	}
	t2, err := NewTrackFromFile(p2)
	if err != nil {
		t.Fatalf("track 2: %v", err)
	}
	if t2.ID <= t1.ID {
		t.Errorf("expected increasing track IDs, got %d then %d", t1.ID, t2.ID)
	}
}

func TestFileExistsReflectsDeletion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.mp3")
	os.WriteFile(path, []byte("x"), 0o644)

	track, err := NewTrackFromFile(path)
	if err != nil {
		t.Fatalf("NewTrackFromFile: %v", err)
	}
	os.Remove(path)
	if track.FileExists() {
		t.Errorf("expected FileExists to be false after removal")
	}
}
