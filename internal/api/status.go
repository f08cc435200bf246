package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sonorafm/sonora/internal/library"
)

// status handles GET /api/status.
func (s *Server) status(c *gin.Context) {
	root := s.Root()
	tracks, graphics := countNode(root)

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"stationName":   s.StationName,
		"trackCount":    tracks,
		"graphicCount":  graphics,
		"activeStreams": s.Dispatcher.ActiveStreams(),
	})
}

func countNode(n *library.Node) (tracks, graphics int) {
	if n == nil {
		return 0, 0
	}
	tracks += len(n.Media)
	if n.Graphic != "" {
		graphics++
	}
	for _, child := range n.Dirs {
		ct, cg := countNode(child)
		tracks += ct
		graphics += cg
	}
	return tracks, graphics
}
