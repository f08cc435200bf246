package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sonorafm/sonora/internal/auth"
	"github.com/sonorafm/sonora/internal/library"
	"github.com/sonorafm/sonora/internal/media"
	"github.com/sonorafm/sonora/internal/transcode"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*gin.Engine, *Server) {
	t.Helper()

	root := &library.Node{
		Dirs: map[string]*library.Node{},
		Media: map[string]*library.Track{
			"song": {ID: 1, Title: "Song", Artist: "Artist", FilePath: "/music/song.mp3", Format: "mp3"},
		},
	}
	cache := transcode.NewCache(transcode.Config{TranscodeDir: t.TempDir(), MaxRunning: 1, MaxCompleted: 1})
	dispatcher := media.NewHandler(root, cache)

	a := auth.New(auth.Config{
		Username:  "admin",
		Password:  "hunter2",
		JWTSecret: "a-very-long-test-secret-value-123456",
		TokenTTL:  time.Hour,
	})

	s := &Server{
		StationName: "Test Station",
		Root:        func() *library.Node { return root },
		Cache:       cache,
		Dispatcher:  dispatcher,
		Auth:        a,
		Rescan:      func() error { return nil },
	}
	return NewRouter(s), s
}

func TestStatusEndpoint(t *testing.T) {
	r, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["trackCount"].(float64) != 1 {
		t.Errorf("trackCount = %v, want 1", body["trackCount"])
	}
}

func TestListTracksHidesFilesystemPath(t *testing.T) {
	r, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/tracks", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); containsSubstring(body, "/music/song.mp3") {
		t.Errorf("response leaked absolute file path: %s", body)
	}
}

func TestProtectedRouteRequiresAuth(t *testing.T) {
	r, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/library/rescan", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without a token", rec.Code)
	}
}

func TestLoginThenAccessProtectedRoute(t *testing.T) {
	r, _ := newTestServer(t)

	loginBody := `{"username":"admin","password":"hunter2"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(loginBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	var loginResp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &loginResp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	token, _ := loginResp["token"].(string)
	if token == "" {
		t.Fatalf("login response had no token: %v", loginResp)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/cache/stats", nil)
	req2.Header.Set("Authorization", "Bearer "+token)
	rec2 := httptest.NewRecorder()
	r.ServeHTTP(rec2, req2)

	if rec2.Code != http.StatusOK {
		t.Fatalf("cache/stats status = %d, want 200, body=%s", rec2.Code, rec2.Body.String())
	}
}

func containsSubstring(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
