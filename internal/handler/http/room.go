// Package http 是房间协调器的 gin 适配层：参数绑定、身份读取和错误到状态码的映射。
package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"lila-rooms/internal/domain"
	"lila-rooms/internal/dto"
	"lila-rooms/internal/game"
	"lila-rooms/internal/middleware"
	"lila-rooms/internal/service"
)

// RoomHandler 封装了与房间相关的 HTTP 处理逻辑
type RoomHandler struct {
	roomService *service.RoomService
}

func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

// RegisterRoutes 注册房间路由，调用方负责在 group 上挂认证中间件
func (h *RoomHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rooms := rg.Group("/rooms")
	rooms.POST("", h.CreateRoom)
	rooms.GET("", h.GetRoomByCode)
	rooms.GET("/:id", h.GetRoom)
	rooms.POST("/:id/join", h.JoinRoom)
	rooms.POST("/:id/start", h.lifecycle(h.roomService.StartRoom))
	rooms.POST("/:id/pause", h.lifecycle(h.roomService.PauseRoom))
	rooms.POST("/:id/resume", h.lifecycle(h.roomService.ResumeRoom))
	rooms.POST("/:id/finish", h.lifecycle(h.roomService.FinishRoom))
	rooms.POST("/:id/roll", h.RollDice)
	rooms.POST("/:id/card/close", h.CloseActiveCard)
	rooms.POST("/:id/notes", h.RecordNote)
	rooms.PATCH("/:id/settings", h.UpdateSettings)
	rooms.PUT("/:id/token-color", h.UpdateTokenColor)
}

// currentUser 读取认证用户，缺失时已写好 401 响应
func currentUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		logrus.WithField("path", c.FullPath()).Warn("Handler: user id not found in context, auth middleware missing?")
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
	}
	return userID, ok
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if req.BoardType == "" {
		req.BoardType = domain.BoardFull
	}
	name := req.DisplayName
	if name == "" {
		name = middleware.DisplayName(c)
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), userID, name, req.BoardType)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, dto.RoomResponse{Room: room})
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.roomService.GetRoomByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dto.RoomResponse{Room: room})
}

// GetRoomByCode GET /rooms?code=XXXXXX
func (h *RoomHandler) GetRoomByCode(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: code is required")
		return
	}
	room, err := h.roomService.GetRoomByCode(c.Request.Context(), code)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dto.RoomResponse{Room: room})
}

func (h *RoomHandler) JoinRoom(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.JoinRoomRequest
	// 请求体可以为空
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			ErrorResponse(c, http.StatusBadRequest, "Invalid input: "+err.Error())
			return
		}
	}
	name := req.DisplayName
	if name == "" {
		name = middleware.DisplayName(c)
	}
	room, err := h.roomService.JoinRoom(c.Request.Context(), c.Param("id"), userID, name)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dto.RoomResponse{Room: room})
}

type lifecycleFunc func(ctx context.Context, roomID, actorUserID string) (*domain.GameRoom, error)

// lifecycle start/pause/resume/finish 共用同一个处理流程
func (h *RoomHandler) lifecycle(op lifecycleFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		room, err := op(c.Request.Context(), c.Param("id"), userID)
		if err != nil {
			HandleServiceError(c, err)
			return
		}
		SuccessResponse(c, http.StatusOK, dto.RoomResponse{Room: room})
	}
}

func (h *RoomHandler) RollDice(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	room, move, err := h.roomService.RollDice(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dto.RollResponse{Room: room, Move: move})
}

func (h *RoomHandler) CloseActiveCard(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	room, err := h.roomService.CloseActiveCard(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dto.RoomResponse{Room: room})
}

func (h *RoomHandler) RecordNote(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.RecordNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	room, err := h.roomService.RecordNote(c.Request.Context(), c.Param("id"), userID, game.NoteInput{
		CellNumber:     req.CellNumber,
		Text:           req.Note,
		Scope:          req.Scope,
		TargetPlayerID: req.TargetPlayerID,
	})
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dto.RoomResponse{Room: room})
}

func (h *RoomHandler) UpdateSettings(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var patch domain.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	room, err := h.roomService.UpdateSettings(c.Request.Context(), c.Param("id"), userID, patch)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dto.RoomResponse{Room: room})
}

func (h *RoomHandler) UpdateTokenColor(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.TokenColorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	room, err := h.roomService.UpdateTokenColor(c.Request.Context(), c.Param("id"), userID, req.Color)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dto.RoomResponse{Room: room})
}

// ClearAll 清空全部房间，只在显式开启管理路由时注册
func (h *RoomHandler) ClearAll(c *gin.Context) {
	if err := h.roomService.ClearAll(c.Request.Context()); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "All rooms cleared"})
}
