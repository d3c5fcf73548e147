// Package middleware holds the gin middlewares shared by every route group.
package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/xchicks/internal/domain/models"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"

	actorKey = "xchicks.actor"
)

// Actor reads the caller identity set by the upstream auth proxy. Requests
// without a valid identity are refused.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := models.Actor{
			ID:   strings.TrimSpace(c.GetHeader(HeaderActorID)),
			Role: models.Role(strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderActorRole)))),
		}
		if !actor.Valid() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.Result{
				ErrorKind: models.KindForbidden,
				Message:   "missing or unknown actor identity",
			})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// ActorFrom returns the actor stored by Actor.
func ActorFrom(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(models.Actor); ok {
			return actor
		}
	}
	return models.Actor{}
}

// Require refuses actors whose role does not grant capability.
func Require(capability models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		if !actor.Can(capability) {
			c.AbortWithStatusJSON(http.StatusForbidden, models.Failed(
				fmt.Errorf("%w: %s may not %s", models.ErrForbidden, actor.Role, capability)))
			return
		}
		c.Next()
	}
}

// Logger logs one line per request.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if actor := ActorFrom(c); actor.ID != "" {
			fields = append(fields, zap.String("actor", actor.ID))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("request completed", fields...)
			return
		}
		logger.Info("request completed", fields...)
	}
}
