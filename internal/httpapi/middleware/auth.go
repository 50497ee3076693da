package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/reviselabs/revise/internal/auth"
	"github.com/reviselabs/revise/internal/common"
)

const (
	UserIDKey   = "user_id"
	UserNameKey = "user_name"
	TokenKey    = "access_token"

	CookieName = "access_token"
)

// TokenBlacklist is satisfied by the redis store; logout puts live tokens
// here until they expire.
type TokenBlacklist interface {
	IsTokenBlacklisted(ctx context.Context, token string) (bool, error)
}

// AuthRequired extracts the JWT from the access_token cookie or the
// Authorization header and puts the trusted principal into the gin context.
func AuthRequired(secret string, blacklist TokenBlacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
			c.Abort()
			return
		}

		claims, err := auth.ParseJWT(token, secret)
		if err != nil {
			common.Fail(c, http.StatusUnauthorized, 40102, "invalid or expired token")
			c.Abort()
			return
		}

		if blacklist != nil {
			revoked, err := blacklist.IsTokenBlacklisted(c.Request.Context(), token)
			if err == nil && revoked {
				common.Fail(c, http.StatusUnauthorized, 40103, "token revoked")
				c.Abort()
				return
			}
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserNameKey, claims.Name)
		c.Set(TokenKey, token)
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(CookieName); err == nil && cookie != "" {
		return cookie
	}
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}
