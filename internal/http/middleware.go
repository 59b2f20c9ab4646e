package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"login-portal/internal/domain"
)

const ctxSessionKey = "session"

// requestLogger logs one line per request.
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).Round(time.Millisecond).String(),
			"bytes":    c.Writer.Size(),
			"client":   c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Error("request failed")
			return
		}
		entry.Info("request")
	}
}

// requireSession sends browsers without an authenticated session back to the login page.
func (h *Handler) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := h.cookies.Read(c)
		rec, err := h.login.Current(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				c.Redirect(http.StatusFound, "/")
				c.Abort()
				return
			}
			h.internalError(c, err)
			return
		}
		c.Set(ctxSessionKey, rec)
		c.Next()
	}
}

func currentSession(c *gin.Context) domain.SessionRecord {
	rec, _ := c.MustGet(ctxSessionKey).(domain.SessionRecord)
	return rec
}
