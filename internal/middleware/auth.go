package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
)

// Gin 上下文中保存认证信息的键
const (
	ContextUserIDKey      = "user_id"
	ContextDisplayNameKey = "display_name"
)

// ErrMissingAuthHeader 表示缺少 Authorization 头
var ErrMissingAuthHeader = errors.New("missing Authorization header")

// Auth 返回一个 Gin 中间件，用于验证 JWT token。
func Auth(jwtSecret string) gin.HandlerFunc {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty for Auth middleware")
	}

	return func(c *gin.Context) {
		tokenStr, err := extractToken(c)
		if err != nil {
			if errors.Is(err, ErrMissingAuthHeader) {
				logrus.Debug("Auth middleware: missing Authorization header")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			} else {
				logrus.WithError(err).Warn("Auth middleware: malformed token")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			}
			return
		}

		claims, err := validateToken(tokenStr, jwtSecret)
		if err != nil {
			logCtx := logrus.WithError(err)
			var validationError *jwt.ValidationError
			if errors.As(err, &validationError) && validationError.Errors&jwt.ValidationErrorExpired != 0 {
				logCtx = logCtx.WithField("reason", "expired")
			}
			logCtx.Warn("Auth middleware: invalid token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		userID, ok := claims["user_id"].(string)
		if !ok || userID == "" {
			logrus.Errorf("Auth middleware: 'user_id' claim is missing or not a string: %v", claims["user_id"])
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token processing error: invalid user_id"})
			return
		}
		name, _ := claims["name"].(string)

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextDisplayNameKey, name)
		logrus.WithField("user_id", userID).Debug("Auth middleware: user authenticated via JWT")
		c.Next()
	}
}

// UserID 取出 Auth 中间件写入的 userId
func UserID(c *gin.Context) (string, bool) {
	id := c.GetString(ContextUserIDKey)
	return id, id != ""
}

// DisplayName 取出 token 中的显示名，可能为空
func DisplayName(c *gin.Context) string {
	return c.GetString(ContextDisplayNameKey)
}

// extractToken 从 Authorization 头中提取 Bearer Token
func extractToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", jwt.ErrTokenMalformed
	}
	return parts[1], nil
}

// validateToken 解析并验证 JWT，只接受 HMAC 签名
func validateToken(tokenStr string, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token or claims type")
}
