// Package tailer streams a still-growing transcoded file to an HTTP client,
// following the writer in near-real time. It writes the raw payload and
// relies on net/http's own chunked transfer encoding (triggered by the
// absence of a Content-Length) to frame the wire format.
package tailer

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sonorafm/sonora/internal/transcode"
)

const (
	firstChunkSize     = 128 * 1024
	runningChunkSize   = 64 * 1024
	finishedChunkSize  = 128 * 1024
	startupDelay       = 1 * time.Second
	notReadyRetryDelay = 500 * time.Millisecond
)

// Tail streams t.OutputPath to w as it grows, until the transcoder finishes
// and the file is fully drained. No Content-Length is set, so net/http
// chunks the response itself; Tail only ever writes raw payload bytes and
// flushes after each write. It calls cache.Touch(t) exactly once, when
// streaming ends, so a transcoder that finished while outside the
// running-list window still earns a spot on the completed list. It never
// calls t.Release(); the caller owns that. Returns the number of payload
// bytes written, for caller-side metrics.
func Tail(w http.ResponseWriter, t *transcode.Transcoder, cache *transcode.Cache) (int64, error) {
	defer cache.Touch(t)

	header := w.Header()
	header.Set("Cache-Control", "max-age=1000")
	if ct := mimeForExt(t.TargetExt); ct != "" {
		header.Set("Content-Type", ct)
	}
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)

	f, err := os.Open(t.OutputPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	time.Sleep(startupDelay)

	var pos int64
	first := true

	for {
		// Read the finished flag before the size, so a size taken after the
		// child exited is final and nothing written last is skipped.
		finished := t.IsFinished()
		info, err := f.Stat()
		if err != nil {
			return pos, err
		}
		remaining := info.Size() - pos

		chunkSize := int64(runningChunkSize)
		switch {
		case first:
			chunkSize = firstChunkSize
		case finished:
			chunkSize = finishedChunkSize
		}

		if remaining <= 0 {
			if finished {
				break
			}
			time.Sleep(notReadyRetryDelay)
			continue
		}
		if remaining < chunkSize && !finished {
			// More data is coming; never send a short chunk early.
			time.Sleep(notReadyRetryDelay)
			continue
		}

		toRead := chunkSize
		if remaining < toRead {
			toRead = remaining
		}
		first = false

		buf := make([]byte, toRead)
		n, rerr := io.ReadFull(f, buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				if isDisconnect(werr) {
					slog.Info("tailer: client disconnected", "fingerprint", t.Fingerprint, "bytesSent", humanize.Bytes(uint64(pos+int64(n))))
					return pos + int64(n), nil
				}
				return pos, werr
			}
			if flusher != nil {
				flusher.Flush()
			}
			pos += int64(n)
		}
		if rerr != nil && rerr != io.EOF && rerr != io.ErrUnexpectedEOF {
			return pos, rerr
		}
	}

	return pos, nil
}

func mimeForExt(ext string) string {
	switch ext {
	case ".mp3":
		return "audio/mpeg"
	case ".ogg":
		return "audio/ogg"
	default:
		return ""
	}
}

func isDisconnect(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET)
}
