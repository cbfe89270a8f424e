package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lila-rooms/internal/domain"
	"lila-rooms/internal/dto"
	"lila-rooms/internal/game"
	"lila-rooms/internal/infra/memory"
	"lila-rooms/internal/middleware"
	"lila-rooms/internal/service"
)

const testSecret = "handler-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	repo := memory.NewRoomRepository(memory.NewRegistry())
	roller := game.RollerFunc(func(n int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = 2
		}
		return out
	})
	svc, err := service.NewRoomService(repo, service.WithRoller(roller))
	require.NoError(t, err)

	r := gin.New()
	api := r.Group("/api", middleware.Auth(testSecret))
	NewRoomHandler(svc).RegisterRoutes(api)
	return r
}

func bearer(t *testing.T, userID, name string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"name":    name,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func do(t *testing.T, r *gin.Engine, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", bearer(t, userID, "user-"+userID))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeRoom(t *testing.T, w *httptest.ResponseRecorder) *domain.GameRoom {
	t.Helper()
	var resp dto.RoomResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Room)
	return resp.Room
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRoomHandler_Flow(t *testing.T) {
	r := setupRouter(t)

	w := do(t, r, http.MethodPost, "/api/rooms", "h", dto.CreateRoomRequest{BoardType: domain.BoardShort})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	room := decodeRoom(t, w)
	assert.Equal(t, "user-h", room.Players[0].DisplayName)
	base := "/api/rooms/" + room.ID

	w = do(t, r, http.MethodGet, "/api/rooms?code="+room.Code, "a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, room.ID, decodeRoom(t, w).ID)

	w = do(t, r, http.MethodPost, base+"/start", "h", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NO_PLAYERS", decodeError(t, w).Code)

	w = do(t, r, http.MethodPost, base+"/join", "a", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(t, r, http.MethodPost, base+"/join", "b", dto.JoinRoomRequest{DisplayName: "Bee"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bee", decodeRoom(t, w).Players[2].DisplayName)

	w = do(t, r, http.MethodPost, base+"/start", "a", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = do(t, r, http.MethodPost, base+"/start", "h", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodPost, base+"/roll", "h", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "HOST_CANNOT_ROLL", decodeError(t, w).Code)
	w = do(t, r, http.MethodPost, base+"/roll", "b", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NOT_YOUR_TURN", decodeError(t, w).Code)

	w = do(t, r, http.MethodPost, base+"/roll", "a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var roll dto.RollResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &roll))
	// short 棋盘 1+2=3 是箭头，到 12
	assert.Equal(t, 12, roll.Move.ToCell)
	assert.Equal(t, "b", roll.Room.GameState.CurrentTurnPlayerID)

	w = do(t, r, http.MethodPost, base+"/card/close", "b", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = do(t, r, http.MethodPost, base+"/card/close", "a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decodeRoom(t, w).GameState.ActiveCard)

	w = do(t, r, http.MethodPost, base+"/notes", "h", dto.RecordNoteRequest{CellNumber: 12, Note: "nice", Scope: domain.NoteScopeHostPlayer})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "TARGET_PLAYER_REQUIRED", decodeError(t, w).Code)
	w = do(t, r, http.MethodPost, base+"/notes", "a", dto.RecordNoteRequest{CellNumber: 12, Note: "mine"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodPatch, base+"/settings", "h", gin.H{"diceMode": "warp"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, r, http.MethodPatch, base+"/settings", "h", gin.H{"diceMode": "triple"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.DiceTriple, decodeRoom(t, w).GameState.Settings.DiceMode)

	w = do(t, r, http.MethodPut, base+"/token-color", "a", dto.TokenColorRequest{Color: "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_TOKEN_COLOR", decodeError(t, w).Code)

	w = do(t, r, http.MethodPost, base+"/pause", "h", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.RoomStatusPaused, decodeRoom(t, w).Status)
	w = do(t, r, http.MethodPost, base+"/resume", "h", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, r, http.MethodPost, base+"/finish", "h", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.RoomStatusFinished, decodeRoom(t, w).Status)

	w = do(t, r, http.MethodPost, base+"/join", "c", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ROOM_FINISHED", decodeError(t, w).Code)
}

func TestRoomHandler_NotFoundAndUnauthenticated(t *testing.T) {
	r := setupRouter(t)

	w := do(t, r, http.MethodGet, "/api/rooms/nope", "a", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ROOM_NOT_FOUND", decodeError(t, w).Code)

	w = do(t, r, http.MethodGet, "/api/rooms", "a", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/rooms", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodPost, "/api/rooms", "h", gin.H{"boardType": "huge"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoomHandler_NonMemberIsNotFound(t *testing.T) {
	r := setupRouter(t)
	w := do(t, r, http.MethodPost, "/api/rooms", "h", dto.CreateRoomRequest{BoardType: domain.BoardShort})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	room := decodeRoom(t, w)

	w = do(t, r, http.MethodPut, "/api/rooms/"+room.ID+"/token-color", "x", dto.TokenColorRequest{Color: "#123456"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PLAYER_NOT_IN_ROOM", decodeError(t, w).Code)
	assert.Equal(t, http.StatusNotFound, statusForKind(domain.KindPlayerNotInRoom))
}

func TestStatusForKind_CoversEveryKind(t *testing.T) {
	for k := domain.KindRoomNotFound; k <= domain.KindPlayerNotInRoom; k++ {
		status := statusForKind(k)
		assert.NotEqual(t, http.StatusInternalServerError, status, "kind %s has no status", k)
		assert.GreaterOrEqual(t, status, 400)
		assert.Less(t, status, 500)
	}
}
