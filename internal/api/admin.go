package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// rescanLibrary handles POST /api/library/rescan: triggers an immediate
// rescan, bypassing the fsnotify debounce.
func (s *Server) rescanLibrary(c *gin.Context) {
	if err := s.Rescan(); err != nil {
		logWith(c).Error("manual rescan failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// cacheStats handles GET /api/cache/stats: exposes the running/completed
// retention lists for operator visibility into the cache invariants.
func (s *Server) cacheStats(c *gin.Context) {
	stats := s.Cache.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"running":   stats.Running,
		"completed": stats.Completed,
	})
}
