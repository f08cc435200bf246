package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sonorafm/sonora/internal/auth"
)

// login handles POST /api/auth/login: rate-limited bcrypt+JWT
// authentication for the single configured operator account.
func (s *Server) login(c *gin.Context) {
	if !s.loginLimiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"status": "error", "error": "too many login attempts, slow down"})
		return
	}

	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid request body"})
		return
	}
	if len(body.Username) == 0 || len(body.Username) > 256 ||
		len(body.Password) == 0 || len(body.Password) > 256 {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid credentials format"})
		return
	}

	token, err := s.Auth.Authenticate(body.Username, body.Password, c.Request.RemoteAddr)
	if err != nil {
		logWith(c).Warn("failed login attempt", "remote", c.Request.RemoteAddr, "error", err)
		if err == auth.ErrRateLimited {
			remaining := s.Auth.RemainingLockout(c.Request.RemoteAddr)
			c.Header("Retry-After", fmt.Sprintf("%d", int(remaining.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{"status": "error", "error": "too many login attempts, please try again later"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "invalid credentials"})
		return
	}

	slog.Info("operator logged in", "username", body.Username, "remote", c.Request.RemoteAddr)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "token": token})
}

// requireAuth adapts auth.Auth's bearer-token validation into a gin
// middleware for the two protected admin routes.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "authentication required"})
			return
		}

		if _, err := s.Auth.ValidateToken(strings.TrimSpace(parts[1])); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "invalid or expired token"})
			return
		}
		c.Next()
	}
}
