package library

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// graphicExtensions lists the image file extensions treated as directory
// cover art, mirroring the original scanner's graphic-file recognition.
var graphicExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// ScanErrors collects the non-fatal per-file errors encountered during a
// Scan, keyed by the offending path. A populated ScanErrors does not make
// Scan itself fail: a handful of unreadable files shouldn't take down the
// whole library.
type ScanErrors map[string]error

// Scan walks one or more directory roots and overlays them into a single
// tree, keyed throughout by Simplify'd names. Directories that simplify to
// the same name across different roots are merged rather than shadowed,
// replicating the original scanner's multi-root overlay behaviour. The
// returned ScanErrors holds the audio files that could not be read and the
// subdirectories that could not be listed; unreadable tags are not errors.
func Scan(musicDirs []string) (*Node, ScanErrors, error) {
	root := newNode("", "")
	errs := make(ScanErrors)

	for _, dir := range musicDirs {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("stat music dir %s: %w", dir, err)
		}
		if !info.IsDir() {
			return nil, nil, fmt.Errorf("music dir %s is not a directory", dir)
		}
		if err := overlayDir(root, dir, errs); err != nil {
			return nil, nil, fmt.Errorf("scan %s: %w", dir, err)
		}
	}

	return root, errs, nil
}

// overlayDir merges the contents of fsPath into node, recursing into
// subdirectories and overlaying them onto any existing child of the same
// simplified name.
func overlayDir(node *Node, fsPath string, errs ScanErrors) error {
	entries, err := os.ReadDir(fsPath)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		full := filepath.Join(fsPath, name)

		if entry.IsDir() {
			key := Simplify(name)
			if key == "" {
				continue
			}
			child, ok := node.Dirs[key]
			if !ok {
				child = newNode(name, full)
				node.Dirs[key] = child
			}
			if err := overlayDir(child, full, errs); err != nil {
				errs[full] = err
				slog.Warn("scan: could not read directory", "path", full, "error", err)
			}
			continue
		}

		ext := strings.ToLower(filepath.Ext(name))
		switch {
		case IsSupportedFormat(ext):
			key := Simplify(strings.TrimSuffix(name, filepath.Ext(name)))
			if key == "" {
				continue
			}
			track, err := NewTrackFromFile(full)
			if err != nil {
				errs[full] = err
				slog.Warn("scan: could not read track", "path", full, "error", err)
				continue
			}
			node.Media[key] = track
		case graphicExtensions[ext]:
			// Last graphic found in a directory wins; directories rarely
			// carry more than one piece of cover art.
			node.Graphic = full
		}
	}

	return nil
}
