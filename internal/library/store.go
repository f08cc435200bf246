package library

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
)

// catalogV1 is the on-disk shape of the override store: a flat map of
// checksum to user-edited fields, kept separate from the scanned tree so a
// rescan never clobbers manual corrections.
type catalogV1 struct {
	Version   int                    `json:"version"`
	Overrides map[string]TrackFields `json:"overrides"`
	NextID    int64                  `json:"nextId"`
}

// TrackFields is the subset of Track metadata the override store can
// replace, independent of what tag-reading produced. The admin API has no
// route that edits it.
type TrackFields struct {
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
	Genre  string `json:"genre,omitempty"`
	Year   int    `json:"year,omitempty"`
}

// Store persists catalog overrides to disk atomically, so a crash
// mid-write never leaves a corrupt file behind.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore opens (or prepares to create) a Store backed by path. It creates
// the parent directory if missing.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}
	return &Store{path: path}, nil
}

// Load reads the overrides map from disk. A missing file is not an error:
// it returns an empty catalog, matching a first-run server with no
// persisted corrections yet.
func (s *Store) Load() (map[string]TrackFields, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string]TrackFields), 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read catalog: %w", err)
	}

	var c catalogV1
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, 0, fmt.Errorf("parse catalog: %w", err)
	}
	if c.Overrides == nil {
		c.Overrides = make(map[string]TrackFields)
	}
	return c.Overrides, c.NextID, nil
}

// Save atomically writes overrides to disk, replacing any existing file.
func (s *Store) Save(overrides map[string]TrackFields, nextID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := catalogV1{Version: 1, Overrides: overrides, NextID: nextID}
	data, err := json.MarshalIndent(&c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return nil
}

// Apply overlays stored overrides onto the tracks in a freshly scanned
// tree, keyed by checksum, so manual corrections survive a rescan.
func Apply(n *Node, overrides map[string]TrackFields) {
	for _, t := range n.Media {
		if f, ok := overrides[t.Checksum]; ok {
			applyFields(t, f)
		}
	}
	for _, child := range n.Dirs {
		Apply(child, overrides)
	}
}

func applyFields(t *Track, f TrackFields) {
	if f.Title != "" {
		t.Title = f.Title
	}
	if f.Artist != "" {
		t.Artist = f.Artist
	}
	if f.Album != "" {
		t.Album = f.Album
	}
	if f.Genre != "" {
		t.Genre = f.Genre
	}
	if f.Year != 0 {
		t.Year = f.Year
	}
}
