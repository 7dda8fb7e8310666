package middleware

import (
	"net/http"
	"strings"
	"time"

	"taskflow/internal/logger"
	"taskflow/internal/model"
	"taskflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const HeaderRequestID = "X-Request-ID"

const (
	KeyUserID    = "user_id"
	KeySessionID = "sid"
	KeyExpiresAt = "exp"
)

// JWTAuth verifies the bearer token, or the token query parameter for websocket upgrades.
// A token close to expiry is renewed through the X-New-Token header.
func JWTAuth(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ""
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			raw = h[7:]
		} else if q := c.Query("token"); q != "" {
			raw = q
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		claims, err := auth.ParseToken(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(KeyUserID, claims.UserID)
		c.Set(KeySessionID, claims.SessionID)
		c.Set(KeyExpiresAt, claims.ExpiresAt)
		c.Request = c.Request.WithContext(logger.With(c.Request.Context(), "uid", claims.UserID))

		if time.Until(claims.ExpiresAt) < 24*time.Hour {
			p := &model.Profile{ID: claims.UserID, DisplayName: claims.Name}
			if fresh, err := auth.IssueToken(p, claims.SessionID); err == nil {
				c.Header("X-New-Token", fresh)
			} else {
				logger.Warn("token.renew failed", "uid", claims.UserID, "err", err)
			}
		}

		c.Next()
	}
}

func UserID(c *gin.Context) int64 { return c.GetInt64(KeyUserID) }

// SetupRequired answers every request with 503 while required settings are missing.
func SetupRequired(missing []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "setup required", "missing": missing})
	}
}

// RequestLog tags each request with an id (echoed in X-Request-ID) and logs its outcome.
func RequestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := c.GetHeader(HeaderRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header(HeaderRequestID, rid)
		c.Request = c.Request.WithContext(logger.With(c.Request.Context(), "rid", rid))

		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
		}
		log := logger.From(c.Request.Context())
		switch {
		case status >= 500:
			log.Error("http", args...)
		case status >= 400:
			log.Warn("http", args...)
		default:
			log.Debug("http", args...)
		}
	}
}
