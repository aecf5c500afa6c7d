package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const principalKey = "principal"

// Claims carried by access tokens. Tokens are issued elsewhere.
type Claims struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticate verifies an HS256 bearer token and stores the caller on the
// gin context.
func Authenticate(secret string) gin.HandlerFunc {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(tokenStr) == "" {
			abortWithError(c, http.StatusUnauthorized, "authentication required")
			return
		}

		var claims Claims
		token, err := parser.ParseWithClaims(strings.TrimSpace(tokenStr), &claims, func(*jwt.Token) (any, error) {
			return key, nil
		})
		if err != nil || !token.Valid {
			abortWithError(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		id, err := uuid.Parse(claims.ID)
		if err != nil || claims.Role == "" {
			abortWithError(c, http.StatusUnauthorized, "invalid token claims")
			return
		}

		c.Set(principalKey, domain.Principal{ID: id, Role: domain.Role(claims.Role)})
		c.Next()
	}
}

// AuthorizeRoles must run after Authenticate.
func AuthorizeRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principalFrom(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
			return
		}
		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}
		abortWithError(c, http.StatusForbidden, "insufficient permissions")
	}
}

func principalFrom(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}

// RequestTimeout bounds the request context handed to services.
func RequestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			abortWithError(c, http.StatusGatewayTimeout, "request timed out")
		}
	}
}

// RequestLogger writes one structured line per request.
func RequestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		c.Next()

		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})

		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request completed")
		case status >= http.StatusBadRequest:
			entry.Warn("request completed")
		default:
			entry.Info("request completed")
		}
	}
}
