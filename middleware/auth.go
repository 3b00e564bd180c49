package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/linkvault/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
)

// bearerToken extracts the token from an Authorization header, or "" when absent
// or malformed.
func bearerToken(ctx *gin.Context) string {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AuthRequired ensures the request is authenticated via JWT.
func AuthRequired(jwtSecret string, blacklist *utils.TokenBlacklist) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString := bearerToken(ctx)
		if tokenString == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "Authentication required.")
			ctx.Abort()
			return
		}

		if blacklist != nil && blacklist.Contains(tokenString) {
			utils.Error(ctx, http.StatusUnauthorized, 40102, "token revoked")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(jwtSecret, tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40103, "Invalid or expired token.")
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Next()
	}
}

// OptionalAuth attaches the requester identity when a valid token is present but
// never blocks the request: link endpoints serve anonymous callers too, and the
// access evaluator decides what anonymity may see.
func OptionalAuth(jwtSecret string, blacklist *utils.TokenBlacklist) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if tokenString := bearerToken(ctx); tokenString != "" {
			if blacklist == nil || !blacklist.Contains(tokenString) {
				if claims, err := utils.ParseToken(jwtSecret, tokenString); err == nil {
					ctx.Set(ContextUserIDKey, claims.UserID)
					ctx.Set(ContextUsernameKey, claims.Username)
				}
			}
		}
		ctx.Next()
	}
}

// RequesterID returns the authenticated user id, zero when anonymous.
func RequesterID(ctx *gin.Context) uint {
	if v, ok := ctx.Get(ContextUserIDKey); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
