package api

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sonorafm/sonora/internal/library"
)

// sanitiseTrack strips the absolute filesystem path down to a basename so
// the admin API never leaks server-side layout to a browser client.
func sanitiseTrack(t *library.Track) gin.H {
	return gin.H{
		"id":       t.ID,
		"title":    t.Title,
		"artist":   t.Artist,
		"album":    t.Album,
		"genre":    t.Genre,
		"year":     t.Year,
		"trackNum": t.TrackNum,
		"duration": t.Duration,
		"fileName": filepath.Base(t.FilePath),
		"format":   t.Format,
		"checksum": t.Checksum,
	}
}

func collectTracks(n *library.Node, out *[]*library.Track) {
	if n == nil {
		return
	}
	for _, t := range n.Media {
		*out = append(*out, t)
	}
	for _, child := range n.Dirs {
		collectTracks(child, out)
	}
}

// listTracks handles GET /api/tracks.
func (s *Server) listTracks(c *gin.Context) {
	var tracks []*library.Track
	collectTracks(s.Root(), &tracks)

	sanitised := make([]gin.H, 0, len(tracks))
	for _, t := range tracks {
		sanitised = append(sanitised, sanitiseTrack(t))
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"total":  len(sanitised),
		"tracks": sanitised,
	})
}

// searchTracks handles GET /api/tracks/search?q=.
func (s *Server) searchTracks(c *gin.Context) {
	q := strings.ToLower(strings.TrimSpace(c.Query("q")))
	if q == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "total": 0, "tracks": []gin.H{}})
		return
	}

	var all []*library.Track
	collectTracks(s.Root(), &all)

	var matches []gin.H
	for _, t := range all {
		if strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Artist), q) ||
			strings.Contains(strings.ToLower(t.Album), q) {
			matches = append(matches, sanitiseTrack(t))
		}
	}
	if matches == nil {
		matches = []gin.H{}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "total": len(matches), "tracks": matches})
}
