// Package api implements the small JSON admin/status surface: read-only
// library browsing for everyone, and two operator endpoints (rescan, cache
// stats) gated by bcrypt+JWT login.
package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/sonorafm/sonora/internal/auth"
	"github.com/sonorafm/sonora/internal/library"
	"github.com/sonorafm/sonora/internal/media"
	"github.com/sonorafm/sonora/internal/metrics"
	"github.com/sonorafm/sonora/internal/transcode"
)

// Server bundles everything the admin API needs to answer requests.
type Server struct {
	StationName string
	Root        func() *library.Node
	Cache       *transcode.Cache
	Dispatcher  *media.Handler
	Auth        *auth.Auth
	Rescan      func() error

	loginLimiter *rate.Limiter
}

// NewRouter builds the gin engine with every route wired up.
func NewRouter(s *Server) *gin.Engine {
	if s.loginLimiter == nil {
		s.loginLimiter = rate.NewLimiter(rate.Every(time.Second), 5)
	}

	r := gin.New()
	r.Use(requestID(), gin.Recovery())

	r.GET("/api/status", s.status)
	r.GET("/api/tracks", s.listTracks)
	r.GET("/api/tracks/search", s.searchTracks)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.POST("/api/auth/login", s.login)

	protected := r.Group("/api")
	protected.Use(s.requireAuth())
	protected.POST("/library/rescan", s.rescanLibrary)
	protected.GET("/cache/stats", s.cacheStats)

	return r
}

// requestID attaches a per-request correlation ID (used in logging) so a
// single request's log lines can be tied together.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set("requestID", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func logWith(c *gin.Context) *slog.Logger {
	id, _ := c.Get("requestID")
	return slog.With("requestID", id)
}
