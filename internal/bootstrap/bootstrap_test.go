package bootstrap

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lila-rooms/internal/service"
)

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := parseConfig(env.Options{Environment: map[string]string{
		"JWT_SECRET": "s",
		"LOG_LEVEL":  "loud",
	}})
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Minute, cfg.RoomCacheTTL)
	assert.False(t, cfg.UseDatabase())
	// 没有 Redis 时关闭异步历史任务
	assert.False(t, cfg.HistoryAsync)
}

func TestParseConfig_RequiresSecretAndDBUser(t *testing.T) {
	_, err := parseConfig(env.Options{Environment: map[string]string{}})
	assert.Error(t, err)

	_, err = parseConfig(env.Options{Environment: map[string]string{"JWT_SECRET": "s", "DB_HOST": "db"}})
	assert.Error(t, err)

	cfg, err := parseConfig(env.Options{Environment: map[string]string{
		"JWT_SECRET": "s", "REDIS_ADDR": "localhost:6379", "ROOM_STRICT_CARD_GATE": "true", "RATE_LIMIT_WINDOW": "2s",
	}})
	require.NoError(t, err)
	assert.True(t, cfg.HistoryAsync)
	assert.True(t, cfg.StrictCardGate)
	assert.Equal(t, 2*time.Second, cfg.RateLimitWindow)
}

func newTestRouter(t *testing.T, admin bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &Config{JWTSecret: "s", EnableAdminRoutes: admin, CORSAllowedOrigin: "*"}
	log := logrus.New()
	log.SetOutput(io.Discard)

	repos := NewMemoryRepositories()
	authService, err := service.NewAuthService(repos.Users, cfg.JWTSecret, 1)
	require.NoError(t, err)
	roomService, err := service.NewRoomService(repos.Rooms, service.WithHistoryNotifier(service.NewDirectHistoryNotifier(repos.History)))
	require.NoError(t, err)

	return NewRouter(RouterDeps{
		Config:         cfg,
		Log:            log,
		AuthService:    authService,
		RoomService:    roomService,
		HistoryService: service.NewHistoryService(repos.History),
	})
}

func call(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
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
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r *gin.Engine, username string) string {
	t.Helper()
	w := call(t, r, http.MethodPost, "/api/auth/register", "", gin.H{"username": username, "password": "secret123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = call(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"username": username, "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct{ Token string }
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func TestRouter_EndToEndHistory(t *testing.T) {
	r := newTestRouter(t, false)
	host := login(t, r, "host")
	guest := login(t, r, "guest")

	w := call(t, r, http.MethodPost, "/api/rooms", host, gin.H{"boardType": "short"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Room struct{ ID string } `json:"room"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	base := "/api/rooms/" + created.Room.ID

	require.Equal(t, http.StatusOK, call(t, r, http.MethodPost, base+"/join", guest, nil).Code)
	require.Equal(t, http.StatusOK, call(t, r, http.MethodPost, base+"/start", host, nil).Code)
	require.Equal(t, http.StatusOK, call(t, r, http.MethodPost, base+"/finish", host, nil).Code)

	w = call(t, r, http.MethodGet, "/api/me/history", guest, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Entries []struct {
			RoomID    string `json:"roomId"`
			FinalCell int    `json:"finalCell"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history.Entries, 1)
	assert.Equal(t, created.Room.ID, history.Entries[0].RoomID)
	assert.Equal(t, 1, history.Entries[0].FinalCell)

	// 管理路由默认不注册
	assert.Equal(t, http.StatusNotFound, call(t, r, http.MethodPost, "/api/admin/clear", host, nil).Code)
}

func TestRouter_AdminClear(t *testing.T) {
	r := newTestRouter(t, true)
	token := login(t, r, "ops")
	w := call(t, r, http.MethodPost, "/api/rooms", token, gin.H{})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	assert.Equal(t, http.StatusOK, call(t, r, http.MethodPost, "/api/admin/clear", token, nil).Code)
	assert.Equal(t, http.StatusOK, call(t, r, http.MethodGet, "/ping", "", nil).Code)
}
