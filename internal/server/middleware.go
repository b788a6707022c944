package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
)

const (
	headerRequestID = "X-Request-ID"
	keyHandle       = "tenant.handle"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)
		c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func accessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http.request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"request_id", common.RequestIDFromContext(c.Request.Context()),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (a *api) basicAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, pass, ok := c.Request.BasicAuth()
		if !ok || !a.Auth.Authenticate(user, pass) {
			c.Header("WWW-Authenticate", `Basic realm="invoice-intake"`)
			abortError(c, common.ErrUnauthorized)
			return
		}
		if user != c.Param("tenant") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "tenant does not belong to the authenticated user"})
			return
		}
		c.Next()
	}
}

func (a *api) resolveTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("tenant")
		h, err := a.Tenants.Resolve(c.Request.Context(), name)
		if err != nil {
			a.logger.Error("server.tenant.resolve.failed", "tenant", name, "error", err)
			abortError(c, err)
			return
		}
		c.Set(keyHandle, h)
		c.Request = c.Request.WithContext(common.WithTenant(c.Request.Context(), name))
		c.Next()
	}
}

func handleFrom(c *gin.Context) repository.Handle {
	h, _ := c.Get(keyHandle)
	return h.(repository.Handle)
}

// statusFor maps sentinel errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func abortError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
