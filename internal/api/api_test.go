package api_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/copal/internal/api"
	"github.com/oggyb/copal/internal/app"
	"github.com/oggyb/copal/internal/config"
	"github.com/oggyb/copal/internal/db"
	"github.com/oggyb/copal/internal/notify"
	"github.com/oggyb/copal/internal/realtime"
	"github.com/oggyb/copal/internal/service/chat"
	"github.com/oggyb/copal/internal/service/interaction"
)

type testServer struct {
	srv *httptest.Server
	db  *gorm.DB
	hub *realtime.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dbase, err := gorm.Open(sqlite.Open(":memory:"), db.GormConfig("warn"))
	require.NoError(t, err)
	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(dbase))
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, dbase.Create(&db.User{ID: id, Name: "User " + id, Email: id + "@test.com"}).Error)
	}

	cfg := &config.Config{}
	cfg.App.ENV = "development"
	cfg.HTTP.AllowedOrigins = []string{"*"}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(cfg, dbase, nil, logger)

	chats := chat.NewService(appCtx, nil)
	hub := realtime.NewHub(chats, logger, realtime.OptionsFromConfig(cfg))
	chats.SetPublisher(hub)
	interactions := interaction.NewService(appCtx, notify.NewLocal(hub))

	srv := httptest.NewServer(api.NewRouter(api.NewHandler(appCtx, interactions, chats, hub)))
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, db: dbase, hub: hub}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	} else if len(raw) > 0 {
		out["_raw"] = string(raw)
	}
	return resp.StatusCode, out
}

func TestLike_MutualCreatesMatch(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/user-interactions/like", map[string]string{"userId": "a", "likedId": "b"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["isMatch"])

	status, body = s.do(t, http.MethodPost, "/api/user-interactions/like", map[string]string{"userId": "b", "likedId": "a"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["isMatch"])
	match, ok := body["match"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a", match["userId1"])
	assert.Equal(t, "b", match["userId2"])

	status, body = s.do(t, http.MethodGet, "/api/user-interactions/matches?userId=a", nil)
	require.Equal(t, http.StatusOK, status)
	matches := body["matches"].([]any)
	require.Len(t, matches, 1)
	entry := matches[0].(map[string]any)
	assert.NotEmpty(t, entry["createdAt"])
	assert.Equal(t, "b", entry["otherUser"].(map[string]any)["id"])
}

func TestLike_Repeat_Self_Unknown_Missing(t *testing.T) {
	s := newTestServer(t)

	s.do(t, http.MethodPost, "/api/user-interactions/like", map[string]string{"userId": "a", "likedId": "b"})
	status, body := s.do(t, http.MethodPost, "/api/user-interactions/like", map[string]string{"userId": "a", "likedId": "b"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Already liked this user", body["message"])

	status, body = s.do(t, http.MethodPost, "/api/user-interactions/like", map[string]string{"userId": "a", "likedId": "a"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "cannot like yourself", body["error"])

	status, body = s.do(t, http.MethodPost, "/api/user-interactions/like", map[string]string{"userId": "a", "likedId": "ghost"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["isDummyData"])

	status, body = s.do(t, http.MethodPost, "/api/user-interactions/like", map[string]string{"userId": "a"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Missing required fields: likedId", body["error"])

	var likes int64
	require.NoError(t, s.db.Model(&db.Like{}).Count(&likes).Error)
	assert.Equal(t, int64(1), likes)
}

func TestUnlike_RemovesMatch(t *testing.T) {
	s := newTestServer(t)

	s.do(t, http.MethodPost, "/api/user-interactions/like", map[string]string{"userId": "a", "likedId": "b"})
	s.do(t, http.MethodPost, "/api/user-interactions/like", map[string]string{"userId": "b", "likedId": "a"})

	status, _ := s.do(t, http.MethodDelete, "/api/user-interactions/like", map[string]string{"userId": "a", "likedId": "b"})
	require.Equal(t, http.StatusOK, status)

	_, body := s.do(t, http.MethodGet, "/api/user-interactions/matches?userId=a", nil)
	assert.Empty(t, body["matches"])
}

func TestPass_NoMatchAndLikedYou(t *testing.T) {
	s := newTestServer(t)

	s.do(t, http.MethodPost, "/api/user-interactions/like", map[string]string{"userId": "a", "likedId": "b"})
	status, body := s.do(t, http.MethodPost, "/api/user-interactions/pass", map[string]string{"userId": "b", "passedId": "a"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	_, body = s.do(t, http.MethodGet, "/api/user-interactions/matches?userId=a", nil)
	assert.Empty(t, body["matches"])

	_, body = s.do(t, http.MethodGet, "/api/user-interactions/liked-you/count?userId=b", nil)
	assert.Equal(t, float64(0), body["count"])

	s.do(t, http.MethodPost, "/api/user-interactions/like", map[string]string{"userId": "c", "likedId": "b"})
	_, body = s.do(t, http.MethodGet, "/api/user-interactions/liked-you?userId=b", nil)
	likers := body["likers"].([]any)
	require.Len(t, likers, 1)
	assert.Equal(t, "c", likers[0].(map[string]any)["user"].(map[string]any)["id"])

	status, _ = s.do(t, http.MethodGet, "/api/user-interactions/matches", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestNewLikedYou_SkipsLikedBack(t *testing.T) {
	s := newTestServer(t)

	s.do(t, http.MethodPost, "/api/user-interactions/like", map[string]string{"userId": "b", "likedId": "a"})
	s.do(t, http.MethodPost, "/api/user-interactions/like", map[string]string{"userId": "c", "likedId": "a"})
	s.do(t, http.MethodPost, "/api/user-interactions/like", map[string]string{"userId": "a", "likedId": "b"})

	status, body := s.do(t, http.MethodGet, "/api/user-interactions/liked-you/new?userId=a", nil)
	require.Equal(t, http.StatusOK, status)
	likers := body["likers"].([]any)
	require.Len(t, likers, 1)
	assert.Equal(t, "c", likers[0].(map[string]any)["user"].(map[string]any)["id"])

	status, _ = s.do(t, http.MethodGet, "/api/user-interactions/liked-you/new?userId=a&paginationToken=not-a-token!", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestChat_CreateAndMessages(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/chat", map[string]any{"userIds": []string{"a"}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "userIds")

	status, body = s.do(t, http.MethodPost, "/chat", map[string]any{"userIds": []string{"a", "b"}})
	require.Equal(t, http.StatusCreated, status)
	convID := body["id"].(string)

	status, _ = s.do(t, http.MethodPost, "/chat/"+convID+"/messages", map[string]string{"senderId": "a", "content": "hello"})
	require.Equal(t, http.StatusCreated, status)

	status, _ = s.do(t, http.MethodPost, "/chat/"+convID+"/messages", map[string]string{"senderId": "c", "content": "intruder"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = s.do(t, http.MethodGet, "/chat/user/a", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodGet, "/chat/missing/messages", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestChatSocket_RequiresUserID(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/ws/chat", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Unauthorized: Missing userId", body["error"])
}

func TestChatSocket_ReceivesHTTPMessagesAndMatches(t *testing.T) {
	s := newTestServer(t)

	_, body := s.do(t, http.MethodPost, "/chat", map[string]any{"userIds": []string{"a", "b"}})
	convID := body["id"].(string)

	wsURL := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws/chat?userId=b"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer ws.Close()

	read := func() realtime.Envelope {
		require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
		var env realtime.Envelope
		require.NoError(t, ws.ReadJSON(&env))
		return env
	}
	require.Equal(t, realtime.TypeStatus, read().Type)

	s.do(t, http.MethodPost, "/chat/"+convID+"/messages", map[string]string{"senderId": "a", "content": "over http"})
	env := read()
	assert.Equal(t, realtime.TypeNewMessage, env.Type)
	assert.Equal(t, "over http", env.Data.(map[string]any)["content"])

	s.do(t, http.MethodPost, "/api/user-interactions/like", map[string]string{"userId": "a", "likedId": "b"})
	s.do(t, http.MethodPost, "/api/user-interactions/like", map[string]string{"userId": "b", "likedId": "a"})
	env = read()
	assert.Equal(t, realtime.TypeMatch, env.Type)
}

func TestHealthAndSeed(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "disabled", body["redis"])

	status, _ = s.do(t, http.MethodPost, "/api/test-data/users", nil)
	require.Equal(t, http.StatusOK, status)

	var users int64
	require.NoError(t, s.db.WithContext(context.Background()).Model(&db.User{}).Count(&users).Error)
	assert.Greater(t, users, int64(3))
}
