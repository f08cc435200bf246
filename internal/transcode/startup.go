package transcode

import (
	"log/slog"
	"os"
	"path/filepath"
)

// purgeStale removes every file matching TRANSCODE_*.* in transcodeDir. It
// is called once at process startup, after the listening socket is bound,
// to clean up output files an earlier crashed instance left behind.
func purgeStale(transcodeDir string) error {
	matches, err := filepath.Glob(filepath.Join(transcodeDir, "TRANSCODE_*.*"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			slog.Warn("transcode: could not purge stale file", "path", m, "error", err)
			continue
		}
		slog.Debug("transcode: purged stale file", "path", m)
	}
	return nil
}
