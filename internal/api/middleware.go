package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"creamery/internal/config"
	"creamery/internal/logger"
	"creamery/internal/monitoring"
)

const (
	requestIDHeader = "X-Request-ID"

	ctxRequestID = "request_id"
	ctxOwner     = "owner"
	ctxActor     = "actor"
	ctxLogger    = "logger"
)

// RequestID tags each request with an id, reusing the caller's when given
func RequestID(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Set(ctxLogger, log.With("request_id", id))
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs every request once it has been served
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if owner := c.GetString(ctxOwner); owner != "" {
			fields = append(fields, "owner", owner)
		}

		reqLog := requestLogger(c, log)
		switch {
		case status >= 500:
			reqLog.Error("HTTP request", fields...)
		case status >= 400:
			reqLog.Warn("HTTP request", fields...)
		default:
			reqLog.Info("HTTP request", fields...)
		}
	}
}

// Metrics records request latency by route
func Metrics(mc *monitoring.MetricsCollector) gin.HandlerFunc {
	if mc == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		mc.RecordRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start).Seconds())
	}
}

// OwnerAuth resolves the owning account of a request from an HMAC-signed
// bearer token carrying an "owner" claim. With no secret configured every
// request belongs to the default owner.
func OwnerAuth(auth config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth.Secret == "" {
			c.Set(ctxOwner, auth.DefaultOwner)
			c.Set(ctxActor, auth.DefaultOwner)
			c.Next()
			return
		}

		tokenString := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if tokenString == "" {
			// browsers cannot set headers on websocket upgrades
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			respondUnauthorized(c, "authorization header required")
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(auth.Secret), nil
		})
		if err != nil || !token.Valid {
			respondUnauthorized(c, "invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			respondUnauthorized(c, "invalid token claims")
			return
		}
		owner, _ := claims["owner"].(string)
		if owner == "" {
			respondUnauthorized(c, "token has no owner")
			return
		}
		actor, _ := claims["sub"].(string)
		if actor == "" {
			actor = owner
		}

		c.Set(ctxOwner, owner)
		c.Set(ctxActor, actor)
		c.Next()
	}
}

func requestLogger(c *gin.Context, fallback *logger.Logger) *logger.Logger {
	if l, ok := c.Get(ctxLogger); ok {
		if reqLog, ok := l.(*logger.Logger); ok {
			return reqLog
		}
	}
	return fallback
}
