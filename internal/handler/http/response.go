package http

import (
	"github.com/gin-gonic/gin"

	"lila-rooms/internal/dto"
)

func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, dto.ErrorResponse{Error: message})
}

func SuccessResponse(c *gin.Context, code int, data interface{}) {
	c.JSON(code, data)
}
