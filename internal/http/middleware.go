package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	userIDHeader = "X-User-ID"
	userIDKey    = "user_id"
)

// requireUser берёт идентификатор пользователя чата из заголовка,
// фронтенд отвечает за его подлинность
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader(userIDHeader), 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": userIDHeader + " header is missing or invalid"})
			c.Abort()
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

func currentUser(c *gin.Context) int64 { return c.GetInt64(userIDKey) }

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := log.Info()
		if status >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Int64("user_id", currentUser(c)).
			Msg("HTTP request")
	}
}
