package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fruitstand/backend/internal/infrastructure/auth"
	"github.com/fruitstand/backend/internal/infrastructure/logger"
	"github.com/fruitstand/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	JWTUserIDKey  = "jwt_user_id"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	// JWTService is required for token validation
	JWTService *auth.JWTService
	// TokenBlacklist is optional for checking revoked tokens
	TokenBlacklist auth.TokenBlacklist
	// Optional lets requests without an Authorization header through as guests.
	// A header that is present must still be valid.
	Optional bool
	Logger   *zap.Logger
}

// JWTAuth requires a valid, unrevoked access token
func JWTAuth(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			if cfg.Optional {
				c.Next()
				return
			}
			abortAuth(c, cfg, dto.ErrCodeUnauthorized, "Authentication required", nil)
			return
		}

		tokenString, ok := strings.CutPrefix(authHeader, BearerPrefix)
		if !ok || strings.TrimSpace(tokenString) == "" {
			abortAuth(c, cfg, dto.ErrCodeUnauthorized, "Invalid authorization header format", nil)
			return
		}

		claims, err := cfg.JWTService.ValidateAccessToken(strings.TrimSpace(tokenString))
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				abortAuth(c, cfg, dto.ErrCodeTokenExpired, "Token has expired", err)
				return
			}
			abortAuth(c, cfg, dto.ErrCodeTokenInvalid, "Invalid token", err)
			return
		}

		if cfg.TokenBlacklist != nil {
			ctx := c.Request.Context()
			revoked, err := cfg.TokenBlacklist.IsRevoked(ctx, claims.ID)
			if err == nil && !revoked {
				revoked, err = cfg.TokenBlacklist.IsUserRevoked(ctx, claims.Subject, claims.IssuedAtTime())
			}
			if err != nil {
				// fail open: a redis outage should not sign everyone out
				cfg.Logger.Error("Failed to check token revocation",
					zap.String("user_id", claims.Subject),
					zap.Error(err))
			} else if revoked {
				abortAuth(c, cfg, dto.ErrCodeTokenInvalid, "Token has been revoked", auth.ErrTokenRevoked)
				return
			}
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID())
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.Subject))
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin role. It must run after JWTAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized, "Authentication required", GetRequestID(c)))
			return
		}
		if !claims.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeForbidden, "Admin access required", GetRequestID(c)))
			return
		}
		c.Next()
	}
}

func abortAuth(c *gin.Context, cfg JWTMiddlewareConfig, code, message string, err error) {
	fields := []zap.Field{zap.String("path", c.Request.URL.Path), zap.String("reason", message)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	cfg.Logger.Debug("JWT authentication failed", fields...)
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}

// GetClaims returns the validated claims, or nil for guests
func GetClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(JWTClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// GetUserID returns the authenticated user id
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	if v, ok := c.Get(JWTUserIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id, true
		}
	}
	return uuid.Nil, false
}
