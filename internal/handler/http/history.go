package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lila-rooms/internal/dto"
	"lila-rooms/internal/service"
)

// HistoryHandler 当前用户的历史进度
type HistoryHandler struct {
	historyService *service.HistoryService
}

func NewHistoryHandler(historyService *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: historyService}
}

// ListMine GET /me/history?limit=N
func (h *HistoryHandler) ListMine(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	entries, err := h.historyService.ListForUser(c.Request.Context(), userID, limit)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dto.HistoryResponse{Entries: entries})
}
