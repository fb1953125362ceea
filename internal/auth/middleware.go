package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextUserKey ключ gin-контекста с идентификатором пользователя
const ContextUserKey = "user_id"

// ServiceKeyHeader заголовок сервисного ключа для внутренних вызовов
const ServiceKeyHeader = "X-Service-Key"

// Middleware возвращает gin middleware, проверяющее заголовок
// Authorization вида "Token <token>" через верификатор. При успехе
// идентификатор пользователя кладется в контекст запроса.
func Middleware(verifier Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Token") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed authorization header"})
			return
		}

		userID, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextUserKey, userID)
		c.Next()
	}
}

// ServiceKeyMiddleware возвращает gin middleware для внутренних
// endpoint'ов (webhook платежного шлюза, выдача заказов): запрос
// должен нести заранее разделенный сервисный ключ.
func ServiceKeyMiddleware(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(ServiceKeyHeader)
		if key == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid service key"})
			return
		}
		c.Next()
	}
}

// UserID извлекает идентификатор пользователя, положенный Middleware
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserKey)
}
