package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammar1510/spark/internal/lifecycle"
	"github.com/ammar1510/spark/internal/models"
	"github.com/ammar1510/spark/internal/suggest"
)

type sendResponse struct {
	Message models.Message   `json:"message"`
	Match   models.MatchView `json:"match"`
}

type stubLimiter struct{}

func (stubLimiter) Allow(context.Context, string) (time.Duration, bool, error) {
	return 1500 * time.Millisecond, false, nil
}

type stubProvider struct {
	lines []string
	err   error
}

func (p stubProvider) Suggest(context.Context, string) ([]string, error) {
	return p.lines, p.err
}

func TestSwipeFlow(t *testing.T) {
	s := newTestServer(t)
	chloe, chloeToken := s.newUser(t, "chloe")
	marcus, marcusToken := s.newUser(t, "marcus")

	w := s.do(t, http.MethodPost, "/api/users/"+marcus.ID+"/like", chloeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"matched":false}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/users/"+chloe.ID+"/like", marcusToken, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var liked struct {
		Matched bool             `json:"matched"`
		Match   models.MatchView `json:"match"`
	}
	decode(t, w, &liked)
	assert.True(t, liked.Matched)
	assert.Equal(t, chloe.ID, liked.Match.User.ID)
	assert.Equal(t, models.InterestSwipe, liked.Match.InterestType)
	assert.True(t, liked.Match.Availability.InputEnabled)
	assert.Equal(t, string(lifecycle.StatePermanent), liked.Match.Availability.State)

	w = s.do(t, http.MethodPost, "/api/users/"+chloe.ID+"/like", chloeToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "self like")

	w = s.do(t, http.MethodPost, "/api/users/ghost/like", chloeToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDateIdeas(t *testing.T) {
	s := newTestServer(t)
	_, token := s.newUser(t, "marcus")

	idea := s.postIdea(t, token)
	assert.NotEmpty(t, idea.ID)
	assert.Equal(t, models.CategoryOutdoorsAndAdventure, idea.Category)

	w := s.do(t, http.MethodGet, "/api/date-ideas", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ideas []models.DateIdea
	decode(t, w, &ideas)
	require.Len(t, ideas, 1)

	w = s.do(t, http.MethodGet, "/api/date-ideas/"+idea.ID, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/date-ideas/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	tests := []struct {
		name string
		req  models.DateIdeaRequest
	}{
		{name: "missing title", req: models.DateIdeaRequest{Description: "x"}},
		{name: "unknown category", req: models.DateIdeaRequest{Title: "x", Description: "x", Category: "Skydiving"}},
		{name: "bad budget", req: models.DateIdeaRequest{Title: "x", Description: "x", Budget: "$$$$"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/date-ideas", token, tt.req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	w = s.do(t, http.MethodPost, "/api/date-ideas", token, models.DateIdeaRequest{Title: "Walk", Description: "Park"})
	require.Equal(t, http.StatusCreated, w.Code)
	var plain models.DateIdea
	decode(t, w, &plain)
	assert.Equal(t, models.CategoryUncategorized, plain.Category)
}

func TestDateInterestLifecycle(t *testing.T) {
	s := newTestServer(t)
	chloe, chloeToken := s.newUser(t, "chloe")
	_, marcusToken := s.newUser(t, "marcus")
	idea := s.postIdea(t, marcusToken)

	w := s.do(t, http.MethodPut, "/api/date-ideas/"+idea.ID+"/interest", marcusToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "authors cannot be interested in their own idea")

	w = s.do(t, http.MethodPut, "/api/date-ideas/"+idea.ID+"/interest", chloeToken, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var view models.MatchView
	decode(t, w, &view)
	assert.Equal(t, "3 days left", view.Availability.TimeRemaining)
	assert.Equal(t, string(lifecycle.BannerTimeRemaining), view.Availability.Banner)

	w = s.do(t, http.MethodPut, "/api/date-ideas/"+idea.ID+"/interest", chloeToken, nil)
	assert.Equal(t, http.StatusOK, w.Code, "second expression returns the existing match")

	matchPath := "/api/matches/" + view.ID + "/messages"

	// window passes without the author writing
	s.now = t0.Add(73 * time.Hour)

	w = s.do(t, http.MethodPost, matchPath, chloeToken, models.MessageRequest{Text: "Still keen?"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/matches", chloeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.MatchView
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.False(t, list[0].Availability.InputEnabled)
	assert.Equal(t, string(lifecycle.StateExpiredAwaitingAuthor), list[0].Availability.State)

	// author re-engages, expiry stays
	w = s.do(t, http.MethodPost, matchPath, marcusToken, models.MessageRequest{Text: "Sorry! This weekend?"})
	require.Equal(t, http.StatusCreated, w.Code)
	var sent sendResponse
	decode(t, w, &sent)
	assert.NotNil(t, sent.Match.InterestExpiresAt)
	assert.Equal(t, chloe.ID, sent.Match.User.ID)
	assert.Equal(t, string(lifecycle.BannerReengage), sent.Match.Availability.Banner)

	// the interested user's reply makes it permanent
	s.now = s.now.Add(time.Minute)
	w = s.do(t, http.MethodPost, matchPath, chloeToken, models.MessageRequest{Text: "Yes!"})
	require.Equal(t, http.StatusCreated, w.Code)
	sent = sendResponse{}
	decode(t, w, &sent)
	assert.Nil(t, sent.Match.InterestExpiresAt)
	assert.True(t, sent.Match.Availability.InputEnabled)
	assert.Empty(t, sent.Match.Availability.Banner)
	assert.Equal(t, "Yes!", sent.Message.Text)

	w = s.do(t, http.MethodGet, matchPath, chloeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var messages []models.Message
	decode(t, w, &messages)
	require.Len(t, messages, 2)
	assert.Equal(t, "Sorry! This weekend?", messages[0].Text)

	// revocation is closed once the author has written
	w = s.do(t, http.MethodDelete, "/api/date-ideas/"+idea.ID+"/interest", chloeToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRevokeInterest(t *testing.T) {
	s := newTestServer(t)
	_, chloeToken := s.newUser(t, "chloe")
	_, marcusToken := s.newUser(t, "marcus")
	idea := s.postIdea(t, marcusToken)

	w := s.do(t, http.MethodPost, "/api/date-ideas/"+idea.ID+"/interest/toggle", chloeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var toggled struct {
		Interested bool             `json:"interested"`
		Match      models.MatchView `json:"match"`
	}
	decode(t, w, &toggled)
	require.True(t, toggled.Interested)

	w = s.do(t, http.MethodDelete, "/api/matches/"+toggled.Match.ID, marcusToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "authors cannot revoke")

	w = s.do(t, http.MethodDelete, "/api/matches/"+toggled.Match.ID, chloeToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	for _, token := range []string{chloeToken, marcusToken} {
		w = s.do(t, http.MethodGet, "/api/matches", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/matches/"+toggled.Match.ID, chloeToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendMessageErrors(t *testing.T) {
	s := newTestServer(t)
	chloe, chloeToken := s.newUser(t, "chloe")
	marcus, marcusToken := s.newUser(t, "marcus")
	_, eveToken := s.newUser(t, "eve")

	s.do(t, http.MethodPost, "/api/users/"+chloe.ID+"/like", marcusToken, nil)
	var liked struct {
		Match models.MatchView `json:"match"`
	}
	w := s.do(t, http.MethodPost, "/api/users/"+marcus.ID+"/like", chloeToken, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	decode(t, w, &liked)
	path := "/api/matches/" + liked.Match.ID + "/messages"

	tests := []struct {
		name       string
		token      string
		path       string
		body       interface{}
		wantStatus int
	}{
		{name: "no auth", path: path, body: models.MessageRequest{Text: "hi"}, wantStatus: http.StatusUnauthorized},
		{name: "missing text", token: chloeToken, path: path, body: map[string]string{}, wantStatus: http.StatusBadRequest},
		{name: "blank text", token: chloeToken, path: path, body: models.MessageRequest{Text: "   "}, wantStatus: http.StatusBadRequest},
		{name: "outsider", token: eveToken, path: path, body: models.MessageRequest{Text: "hi"}, wantStatus: http.StatusNotFound},
		{name: "unknown match", token: chloeToken, path: "/api/matches/missing/messages", body: models.MessageRequest{Text: "hi"}, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}

	w = s.do(t, http.MethodGet, path, eveToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "outsiders cannot read messages")
}

func TestSendMessageRateLimited(t *testing.T) {
	s := newTestServer(t, withLimiter(stubLimiter{}))
	chloe, chloeToken := s.newUser(t, "chloe")
	marcus, marcusToken := s.newUser(t, "marcus")

	s.do(t, http.MethodPost, "/api/users/"+chloe.ID+"/like", marcusToken, nil)
	w := s.do(t, http.MethodPost, "/api/users/"+marcus.ID+"/like", chloeToken, nil)
	var liked struct {
		Match models.MatchView `json:"match"`
	}
	decode(t, w, &liked)

	w = s.do(t, http.MethodPost, "/api/matches/"+liked.Match.ID+"/messages", chloeToken, models.MessageRequest{Text: "hi"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
}

func TestSuggestions(t *testing.T) {
	s := newTestServer(t, withProvider(stubProvider{err: errors.New("provider down")}))
	chloe, chloeToken := s.newUser(t, "chloe")
	marcus, marcusToken := s.newUser(t, "marcus")
	_, eveToken := s.newUser(t, "eve")

	s.do(t, http.MethodPost, "/api/users/"+chloe.ID+"/like", marcusToken, nil)
	w := s.do(t, http.MethodPost, "/api/users/"+marcus.ID+"/like", chloeToken, nil)
	var liked struct {
		Match models.MatchView `json:"match"`
	}
	decode(t, w, &liked)
	path := "/api/matches/" + liked.Match.ID + "/suggestions"

	w = s.do(t, http.MethodGet, path, chloeToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "free users")

	w = s.do(t, http.MethodPost, "/api/auth/me/premium", chloeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, path, chloeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Suggestions []string `json:"suggestions"`
	}
	decode(t, w, &resp)
	assert.Equal(t, suggest.Fallback, resp.Suggestions)

	w = s.do(t, http.MethodGet, path, eveToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type promptRecorder struct {
	prompts chan string
}

func (p promptRecorder) Suggest(_ context.Context, prompt string) ([]string, error) {
	p.prompts <- prompt
	return []string{"a", "b", "c"}, nil
}

func TestSuggestionsUseEditedProfile(t *testing.T) {
	rec := promptRecorder{prompts: make(chan string, 1)}
	s := newTestServer(t, withProvider(rec))
	chloe, chloeToken := s.newUser(t, "chloe")
	marcus, marcusToken := s.newUser(t, "marcus")

	interests := []string{"Astronomy", "Cocoa"}
	bio := "Night owl"
	w := s.do(t, http.MethodPut, "/api/auth/me", marcusToken, models.ProfileUpdate{Interests: &interests, Bio: &bio})
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodPost, "/api/auth/me/premium", chloeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	s.do(t, http.MethodPost, "/api/users/"+chloe.ID+"/like", marcusToken, nil)
	w = s.do(t, http.MethodPost, "/api/users/"+marcus.ID+"/like", chloeToken, nil)
	var liked struct {
		Match models.MatchView `json:"match"`
	}
	decode(t, w, &liked)

	w = s.do(t, http.MethodGet, "/api/matches/"+liked.Match.ID+"/suggestions", chloeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"suggestions":["a","b","c"]}`, w.Body.String())

	prompt := <-rec.prompts
	assert.Contains(t, prompt, "Astronomy, Cocoa")
	assert.Contains(t, prompt, `"Night owl"`)
}

func TestWebSocketRouteRequiresToken(t *testing.T) {
	s := newTestServer(t)
	chloe, chloeToken := s.newUser(t, "chloe")

	server := httptest.NewServer(s.router)
	defer server.Close()
	base := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws"

	_, resp, err := gorilla.DefaultDialer.Dial(base, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ws, resp, err := gorilla.DefaultDialer.Dial(base+"?token="+chloeToken, nil)
	require.NoError(t, err)
	defer ws.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	assert.Eventually(t, func() bool { return s.sockets.IsConnected(chloe.ID) }, time.Second, 10*time.Millisecond)
}

func TestMatchPushedOverSocket(t *testing.T) {
	s := newTestServer(t)
	chloe, chloeToken := s.newUser(t, "chloe")
	marcus, marcusToken := s.newUser(t, "marcus")

	server := httptest.NewServer(s.router)
	defer server.Close()

	ws, _, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/api/ws?token="+chloeToken, nil)
	require.NoError(t, err)
	defer ws.Close()
	require.Eventually(t, func() bool { return s.sockets.IsConnected(chloe.ID) }, time.Second, 10*time.Millisecond)

	s.do(t, http.MethodPost, "/api/users/"+chloe.ID+"/like", marcusToken, nil)
	s.do(t, http.MethodPost, "/api/users/"+marcus.ID+"/like", chloeToken, nil)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(time.Second)))
	var evt models.Event
	require.NoError(t, ws.ReadJSON(&evt))
	assert.Equal(t, models.EventMatch, evt.Type)
	assert.NotEmpty(t, evt.MatchID)
}
