package security

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chaters/store"
	"chaters/tools/errs"
)

// Context keys set by Middleware; downstream handlers read these.
const (
	CtxUserKey  = "authUser"  // *store.User
	CtxTokenKey = "authToken" // string
)

type Options struct {
	Verifier *store.SessionVerifier
	Store    *store.Store

	// CookieName is checked when no bearer header is present; browser
	// clients authenticate with a cookie, API clients with a header.
	CookieName string
}

// Middleware authenticates a request and stashes the user row into the
// gin context; unauthenticated requests get 401 and never reach the
// handler.
func Middleware(opts Options) gin.HandlerFunc {
	if opts.CookieName == "" {
		opts.CookieName = "token"
	}
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			if v, err := c.Cookie(opts.CookieName); err == nil {
				token = v
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errs.ErrAuthFailed.Msg})
			return
		}

		userID, err := opts.Verifier.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errs.ErrAuthFailed.Msg})
			return
		}
		user, err := opts.Store.UserByID(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errs.ErrUserNotFound.Msg})
			return
		}

		c.Set(CtxUserKey, user)
		c.Set(CtxTokenKey, token)
		c.Next()
	}
}

// User returns the authenticated user stored by Middleware.
func User(c *gin.Context) *store.User {
	if v, ok := c.Get(CtxUserKey); ok {
		if u, ok := v.(*store.User); ok {
			return u
		}
	}
	return nil
}

// Token returns the raw session token stored by Middleware.
func Token(c *gin.Context) string {
	return c.GetString(CtxTokenKey)
}

func bearerToken(c *gin.Context) string {
	authz := strings.TrimSpace(c.GetHeader("Authorization"))
	if authz == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	return ""
}
