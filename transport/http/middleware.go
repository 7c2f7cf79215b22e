package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/ridegate/core"
	"github.com/layer-3/ridegate/service"
	"github.com/sirupsen/logrus"
)

const identityContextKey = "identity"

// Headers propagated to backends after authentication.
const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
)

// Identity returns the authenticated identity attached by the
// Authenticate middleware, or nil for unauthenticated requests.
func Identity(c *gin.Context) *core.Identity {
	v, ok := c.Get(identityContextKey)
	if !ok {
		return nil
	}
	identity, ok := v.(*core.Identity)
	if !ok {
		return nil
	}
	return identity
}

func bearerToken(c *gin.Context) (string, error) {
	auth := c.GetHeader("Authorization")
	if auth == "" {
		return "", core.ErrNoToken
	}
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found || token == "" {
		return "", core.ErrNoToken
	}
	return token, nil
}

// Authenticate creates middleware that validates access tokens and
// attaches the identity to the request context.
func Authenticate(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		identity, err := auth.VerifyAccess(c.Request.Context(), token)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.Set(identityContextKey, identity)
		c.Next()
	}
}

// OptionalAuthenticate attaches the identity when a valid token is
// presented and lets the request through unauthenticated otherwise.
func OptionalAuthenticate(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err == nil {
			if identity, err := auth.VerifyAccess(c.Request.Context(), token); err == nil {
				c.Set(identityContextKey, identity)
			}
		}
		c.Next()
	}
}

// RequireRole restricts the route to the given roles. Authentication
// strictly precedes authorization: a missing identity is 401, a wrong
// role is 403.
func RequireRole(allowed ...core.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := Identity(c)
		if identity == nil {
			respondServiceError(c, core.ErrNoToken)
			return
		}

		for _, role := range allowed {
			if identity.Role == role {
				c.Next()
				return
			}
		}
		respondServiceError(c, core.ErrInsufficientRole)
	}
}

// RequireRoleFor applies per-method role gates; methods without an
// entry pass with authentication alone.
func RequireRoleFor(rules map[string][]core.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, ok := rules[c.Request.Method]
		if !ok {
			c.Next()
			return
		}

		identity := Identity(c)
		if identity == nil {
			respondServiceError(c, core.ErrNoToken)
			return
		}
		for _, role := range allowed {
			if identity.Role == role {
				c.Next()
				return
			}
		}
		respondServiceError(c, core.ErrInsufficientRole)
	}
}

// CORS allows cross-origin requests from the configured origins.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	originsSet := make(map[string]struct{}, len(allowedOrigins))
	allowAll := false
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		originsSet[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		_, ok := originsSet[origin]
		if origin != "" && (allowAll || ok) {
			if allowAll {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Recovery recovers from handler panics with a structured 500.
func Recovery(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(logrus.Fields{
					"method": c.Request.Method,
					"path":   c.Request.URL.Path,
					"panic":  r,
				}).Error("panic recovered")
				respondError(c, http.StatusInternalServerError, CodeInternal, "Internal server error")
			}
		}()
		c.Next()
	}
}

// RequestLogger logs each request with its outcome.
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
			"ip":     c.ClientIP(),
		}).Info("request")
	}
}
