// Package filesend serves byte intervals of on-disk files over HTTP, with
// Range support and robust handling of client disconnects.
package filesend

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/sonorafm/sonora/internal/httprange"
)

const blockSize = 16 * 1024

// Send serves path to w, honoring spec as a byte range with 206 if it
// resolves cleanly against the file's length, and answering 416 with no
// body if it does not. A nil spec, or any spec on a non-seekable file,
// serves the whole file with 200.
// Returns the HTTP status actually sent and the number of bytes written, for
// caller-side logging and metrics.
func Send(w http.ResponseWriter, r *http.Request, path string, spec *httprange.Spec) (int, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, 0, err
	}
	length := info.Size()

	seekable := isSeekable(f)
	if spec != nil && !seekable {
		slog.Warn("filesend: range requested on non-seekable file, downgrading to full send", "path", path)
		spec = nil
	}

	start, end := int64(0), length-1
	status := http.StatusOK
	if spec != nil {
		s, e, rerr := spec.Resolve(length)
		if rerr != nil {
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return http.StatusRequestedRangeNotSatisfiable, 0, nil
		}
		start, end = s, e
		status = http.StatusPartialContent
	}

	size := end - start + 1

	header := w.Header()
	header.Set("Accept-Ranges", "bytes")
	header.Set("Content-Length", strconv.FormatInt(size, 10))
	header.Set("Cache-Control", "max-age=1000")
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		header.Set("Content-Type", ct)
	}
	if status == http.StatusPartialContent {
		header.Set("Content-Range", "bytes "+strconv.FormatInt(start, 10)+"-"+strconv.FormatInt(end, 10)+"/"+strconv.FormatInt(length, 10))
	}
	w.WriteHeader(status)

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return status, 0, err
	}

	sent, err := copyBlocks(w, f, size)
	if err != nil {
		if isDisconnect(err) {
			slog.Info("filesend: client disconnected", "path", path, "bytesSent", humanize.Bytes(uint64(sent)))
			return status, sent, nil
		}
		return status, sent, err
	}
	return status, sent, nil
}

// copyBlocks copies exactly n bytes from src to dst in blockSize chunks,
// returning how many bytes were actually written before any error.
func copyBlocks(dst io.Writer, src io.Reader, n int64) (int64, error) {
	var sent int64
	buf := make([]byte, blockSize)
	for sent < n {
		want := int64(blockSize)
		if remaining := n - sent; remaining < want {
			want = remaining
		}
		read, rerr := src.Read(buf[:want])
		if read > 0 {
			if _, werr := dst.Write(buf[:read]); werr != nil {
				return sent, werr
			}
			sent += int64(read)
			if f, ok := dst.(http.Flusher); ok {
				f.Flush()
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				return sent, nil
			}
			return sent, rerr
		}
	}
	return sent, nil
}

func isSeekable(f *os.File) bool {
	_, err := f.Seek(0, io.SeekCurrent)
	return err == nil
}

// isDisconnect reports whether err represents a client going away mid-body
// transfer (broken pipe / connection reset), which is not a server error.
func isDisconnect(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET)
}
