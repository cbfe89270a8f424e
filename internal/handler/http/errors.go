package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"lila-rooms/internal/domain"
	"lila-rooms/internal/dto"
	"lila-rooms/internal/service"
)

// statusForKind 每个房间错误信号对应的 HTTP 状态码
func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindRoomNotFound, domain.KindPlayerNotInRoom:
		return http.StatusNotFound
	case domain.KindForbidden, domain.KindHostCannotRoll:
		return http.StatusForbidden
	case domain.KindTargetPlayerRequired, domain.KindInvalidTokenColor:
		return http.StatusBadRequest
	case domain.KindRoomFull, domain.KindRoomFinished, domain.KindNotYourTurn,
		domain.KindRoomNotInProgress, domain.KindActiveCardPending,
		domain.KindPlayerAlreadyFinished, domain.KindNoPlayers:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// HandleServiceError 把服务层错误写成 JSON 响应
func HandleServiceError(c *gin.Context, err error) {
	if kind, ok := domain.KindOf(err); ok {
		c.JSON(statusForKind(kind), dto.ErrorResponse{Error: err.Error(), Code: kind.String()})
		return
	}
	switch {
	case errors.Is(err, service.ErrAuthenticationFailed):
		ErrorResponse(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrRegistrationFailed):
		ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
