package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/ammar1510/spark/internal/auth"
	"github.com/ammar1510/spark/internal/chat"
	"github.com/ammar1510/spark/internal/database"
	"github.com/ammar1510/spark/internal/matching"
	"github.com/ammar1510/spark/internal/models"
	"github.com/ammar1510/spark/internal/ratelimit"
	"github.com/ammar1510/spark/internal/suggest"
	"github.com/ammar1510/spark/internal/websocket"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
	auth.InitJWTKey([]byte("test-secret-key-for-api-tests"))
}

type testServer struct {
	router  *gin.Engine
	db      *database.MemoryDB
	sockets *websocket.Manager
	now     time.Time
}

type serverOption func(*serverConfig)

type serverConfig struct {
	limiter  ratelimit.Limiter
	provider suggest.Provider
}

func withLimiter(l ratelimit.Limiter) serverOption {
	return func(c *serverConfig) { c.limiter = l }
}

func withProvider(p suggest.Provider) serverOption {
	return func(c *serverConfig) { c.provider = p }
}

// newTestServer wires the full API over the in-memory store with a
// controllable clock
func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	cfg := serverConfig{limiter: ratelimit.Noop{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	s := &testServer{db: database.NewMemoryDB(), now: t0}
	clock := chat.ClockFunc(func() time.Time { return s.now })

	s.sockets = websocket.NewManager()
	gate := chat.NewGate(s.db, chat.WithClock(clock), chat.WithLimiter(cfg.limiter), chat.WithNotifier(s.sockets))
	s.sockets.SetChat(gate)
	go s.sockets.Run(ctx)

	matches := matching.NewService(s.db, matching.WithClock(clock), matching.WithNotifier(s.sockets))

	s.router = gin.New()
	RegisterRoutes(s.router, Deps{
		DB:       s.db,
		Gate:     gate,
		Matches:  matches,
		Suggests: suggest.NewService(cfg.provider),
		Sockets:  s.sockets,
	})
	return s
}

// newUser registers a user directly in the store and returns a bearer token
func (s *testServer) newUser(t *testing.T, name string) (*models.User, string) {
	t.Helper()

	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	user, err := s.db.CreateUser(context.Background(), name, name+"@email.com", hash)
	require.NoError(t, err)

	token, _, err := auth.GenerateToken(user)
	require.NoError(t, err)
	return user, token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

// postIdea creates a date idea as the token's owner
func (s *testServer) postIdea(t *testing.T, token string) models.DateIdea {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/date-ideas", token, models.DateIdeaRequest{
		Title:       "Stargazing & Hot Cocoa",
		Description: "Let's drive out of the city",
		Category:    models.CategoryOutdoorsAndAdventure,
		Budget:      "Free",
		DressCode:   "Casual",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var idea models.DateIdea
	decode(t, w, &idea)
	return idea
}
