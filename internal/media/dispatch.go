// Package media wires the library snapshot, range parsing, file sending,
// transcode cache, and chunked tailing together into one HTTP handler: the
// dispatch glue between an incoming media GET and the component that
// actually serves it.
package media

import (
	"context"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sonorafm/sonora/internal/filesend"
	"github.com/sonorafm/sonora/internal/httprange"
	"github.com/sonorafm/sonora/internal/library"
	"github.com/sonorafm/sonora/internal/metrics"
	"github.com/sonorafm/sonora/internal/tailer"
	"github.com/sonorafm/sonora/internal/transcode"
)

// transcodableExtensions is the fixed allow-list of targets the dispatcher
// will spin up a transcode for.
var transcodableExtensions = map[string]bool{".ogg": true, ".mp3": true}

const outputAwaitTimeout = 10 * time.Second

// Handler serves media GET requests by consulting a Library snapshot and
// dispatching to the File Sender, the Transcoder Cache + Chunked Tailer,
// or a 404.
type Handler struct {
	root   atomic.Pointer[library.Node]
	cache  *transcode.Cache
	active atomic.Int64
}

// ActiveStreams reports how many media requests are currently being served.
func (h *Handler) ActiveStreams() int64 {
	return h.active.Load()
}

// NewHandler builds a dispatcher over an initial library snapshot and a
// transcode cache. SetRoot can replace the snapshot later (e.g. after a
// rescan) without interrupting in-flight requests, which keep using
// whatever snapshot they already resolved against.
func NewHandler(root *library.Node, cache *transcode.Cache) *Handler {
	h := &Handler{cache: cache}
	h.root.Store(root)
	return h
}

// SetRoot atomically swaps in a freshly scanned library snapshot.
func (h *Handler) SetRoot(root *library.Node) {
	h.root.Store(root)
}

// Root returns the library snapshot currently in use.
func (h *Handler) Root() *library.Node {
	return h.root.Load()
}

// ServeHTTP implements the per-request dispatch decision described by the
// core's design: resolve path -> direct send, transcode-and-stream, or 404.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.active.Add(1)
	defer h.active.Add(-1)

	segments := splitPath(r.URL.Path)
	if len(segments) == 0 {
		notFound(w, r)
		return
	}

	node := h.root.Load()
	for _, seg := range segments[:len(segments)-1] {
		child, ok := node.Dirs[library.Simplify(seg)]
		if !ok {
			notFound(w, r)
			return
		}
		node = child
	}

	filename := segments[len(segments)-1]
	ext := strings.ToLower(filepath.Ext(filename))
	basename := strings.TrimSuffix(filename, filepath.Ext(filename))

	if node.Graphic != "" && filepath.Base(node.Graphic) == filename {
		h.sendFile(w, r, node.Graphic)
		return
	}

	track, ok := node.Media[library.Simplify(basename)]
	if !ok {
		notFound(w, r)
		return
	}

	storedExt := "." + track.Format
	if strings.EqualFold(storedExt, ext) {
		h.sendFile(w, r, track.FilePath)
		return
	}

	if !transcodableExtensions[ext] || !h.cache.TranscodingEnabled() {
		notFound(w, r)
		return
	}

	h.serveTranscode(w, r, track, ext)
}

func (h *Handler) sendFile(w http.ResponseWriter, r *http.Request, path string) {
	spec := httprange.Parse(r.Header.Get("Range"))
	status, sent, err := filesend.Send(w, r, path, spec)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		metrics.RecordRequest("500")
		return
	}
	metrics.RecordBytesServed("direct", sent)
	metrics.RecordRequest(strconv.Itoa(status))
}

func (h *Handler) serveTranscode(w http.ResponseWriter, r *http.Request, track *library.Track, ext string) {
	fingerprint := r.URL.Path

	t, err := h.cache.GetOrCreate(fingerprint, track.FilePath, ext)
	if err != nil {
		notFound(w, r)
		return
	}
	defer t.Release()

	h.cache.Touch(t)
	h.cache.Housekeep()

	ctx, cancel := context.WithTimeout(r.Context(), outputAwaitTimeout)
	defer cancel()
	if !t.AwaitOutputExists(ctx, outputAwaitTimeout) {
		notFound(w, r)
		return
	}

	if t.IsFinished() {
		h.sendFile(w, r, t.OutputPath)
		return
	}

	sent, err := tailer.Tail(w, t, h.cache)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		metrics.RecordRequest("500")
		return
	}
	metrics.RecordBytesServed("transcoded", sent)
	metrics.RecordRequest("200")
}

// notFound writes a 404 and records it for the requests-total metric.
func notFound(w http.ResponseWriter, r *http.Request) {
	http.NotFound(w, r)
	metrics.RecordRequest("404")
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
