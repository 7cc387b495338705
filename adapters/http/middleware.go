package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/logger"
	"github.com/khoahotran/profile-editor/pkg/metrics"
	"github.com/khoahotran/profile-editor/pkg/session"
)

const (
	GinContextKeySessionID = "sessionID"
)

type SessionCookie struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// SessionMiddleware resolves the editor session from a signed cookie. A
// missing, forged or expired cookie starts a new session.
func SessionMiddleware(tokens *session.TokenService, cookie SessionCookie, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, err := c.Cookie(cookie.Name); err == nil && raw != "" {
			if id, err := tokens.Verify(raw); err == nil {
				c.Set(GinContextKeySessionID, id)
				c.Next()
				return
			}
			log.Debug("Discarding invalid session cookie")
		}

		id := uuid.NewString()
		signed, err := tokens.Sign(id)
		if err != nil {
			log.Error("Failed to sign session cookie", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "cannot start session"})
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookie.Name, signed, int(cookie.TTL.Seconds()), "/", "", cookie.Secure, true)
		c.Set(GinContextKeySessionID, id)
		c.Next()
	}
}

func GetSessionIDFromGinContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(GinContextKeySessionID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// ErrorMiddleware renders errors attached with c.Error. Browser requests get
// the error page, everything else JSON.
func ErrorMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		status := apperror.ToHTTPStatus(err)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
		}
		if status >= http.StatusInternalServerError {
			log.Error("Request failed", err, fields...)
		} else {
			log.Warn("Request rejected", append(fields, zap.Error(err))...)
		}

		if c.Writer.Written() {
			return
		}

		var appErr *apperror.AppError
		if !errors.As(err, &appErr) {
			appErr = apperror.NewInternal("unexpected error", err)
		}
		if wantsHTML(c) {
			c.HTML(status, "error.html", gin.H{"Status": status, "Message": appErr.Message})
			return
		}
		c.JSON(status, appErr.ToJSON())
	}
}

func wantsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		metrics.HttpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		metrics.HttpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
