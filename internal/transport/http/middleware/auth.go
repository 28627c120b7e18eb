package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskhub/internal/model"
	"taskhub/internal/pkg/jwtutil"
	"taskhub/internal/transport/http/response"
)

const (
	// SessionCookie carries the signed bearer token.
	SessionCookie = "jwt"

	ContextUserKey  = "current_user"
	ContextTokenKey = "session_token"
)

// TokenChecker answers whether a token has been revoked by logout.
type TokenChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// UserLoader resolves the token's subject to a live user record.
type UserLoader interface {
	GetByID(id string) (*model.User, error)
}

// Auth authenticates the request from the session cookie (or a bearer
// header as a fallback), rejects revoked tokens and loads the caller into
// the request context.
func Auth(secret string, revoked TokenChecker, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "unauthorized, no token provided")
			c.Abort()
			return
		}

		claims, err := jwtutil.ParseToken(secret, token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "unauthorized, invalid token")
			c.Abort()
			return
		}

		if revoked != nil {
			isRevoked, err := revoked.IsRevoked(c.Request.Context(), token)
			if err == nil && isRevoked {
				response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "unauthorized, token revoked")
				c.Abort()
				return
			}
		}

		user, err := users.GetByID(claims.UserID)
		if err != nil {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "internal server error")
			c.Abort()
			return
		}
		if user == nil {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "unauthorized, user not found")
			c.Abort()
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextTokenKey, token)
		c.Next()
	}
}

// CurrentUser pulls the authenticated caller placed by Auth.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*model.User)
	return user, ok
}

func tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie
	}

	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	const prefix = "Bearer "
	if strings.HasPrefix(authHeader, prefix) {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
	}
	return ""
}
