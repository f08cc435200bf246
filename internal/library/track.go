package library

import (
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/dhowden/tag"
)

// lastTrackID is a global counter for generating unique track IDs.
var lastTrackID atomic.Int64

func nextTrackID() int64 {
	return lastTrackID.Add(1)
}

// SetLastTrackID sets the global track ID counter. Used when restoring a
// persisted catalog so newly scanned tracks don't collide with known IDs.
func SetLastTrackID(id int64) {
	lastTrackID.Store(id)
}

// Track represents a single audio file with its metadata.
type Track struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist,omitempty"`
	Album    string `json:"album,omitempty"`
	Genre    string `json:"genre,omitempty"`
	Year     int    `json:"year,omitempty"`
	TrackNum int    `json:"trackNum,omitempty"`
	Duration int    `json:"duration"`
	FilePath string `json:"filePath"`
	Format   string `json:"format"`
	Checksum string `json:"checksum"`
}

// SupportedFormats lists the audio file extensions the scanner recognizes.
var SupportedFormats = []string{".mp3", ".wav", ".flac", ".aac", ".ogg", ".m4a"}

// IsSupportedFormat returns true if ext (including the leading dot) names a
// supported audio format.
func IsSupportedFormat(ext string) bool {
	lower := strings.ToLower(ext)
	for _, f := range SupportedFormats {
		if lower == f {
			return true
		}
	}
	return false
}

// NewTrackFromFile builds a Track by hashing the file and, best-effort,
// reading its audio tags. Tag failures are not fatal: the Track falls back
// to filename-derived metadata.
func NewTrackFromFile(path string) (*Track, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	ext := strings.ToLower(filepath.Ext(absPath))
	filename := filepath.Base(absPath)
	nameWithoutExt := strings.TrimSuffix(filename, filepath.Ext(filename))

	checksum, err := computeChecksum(absPath)
	if err != nil {
		return nil, fmt.Errorf("checksum %s: %w", absPath, err)
	}

	track := &Track{
		ID:       nextTrackID(),
		Title:    nameWithoutExt,
		FilePath: absPath,
		Format:   strings.TrimPrefix(ext, "."),
		Checksum: checksum,
	}

	extractTrackMetadata(track, absPath)
	return track, nil
}

func computeChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func extractTrackMetadata(track *Track, path string) {
	f, err := os.Open(path)
	if err != nil {
		slog.Warn("could not open file for metadata", "path", path, "error", err)
		return
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		slog.Debug("could not read tags", "path", path, "error", err)
		return
	}

	if m.Title() != "" {
		track.Title = m.Title()
	}
	if m.Artist() != "" {
		track.Artist = m.Artist()
	}
	if m.Album() != "" {
		track.Album = m.Album()
	}
	if m.Genre() != "" {
		track.Genre = m.Genre()
	}
	if m.Year() != 0 {
		track.Year = m.Year()
	}
	if num, _ := m.Track(); num != 0 {
		track.TrackNum = num
	}
}

// FileExists reports whether the track's backing file is still present.
func (t *Track) FileExists() bool {
	info, err := os.Stat(t.FilePath)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
