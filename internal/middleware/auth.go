package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const ContextUserEmailKey = "user_email"

// Identity resolves the authenticated email of a request, if any.
type Identity interface {
	Current(c *gin.Context) (string, bool)
}

// Session attaches the session's email to the context. It never rejects a
// request; RequireAuth does that.
func Session(identity Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		if email, ok := identity.Current(c); ok {
			c.Set(ContextUserEmailKey, email)
		}
		c.Next()
	}
}

// RequireAuth redirects anonymous requests to the login page.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (string, bool) {
	email := c.GetString(ContextUserEmailKey)
	return email, email != ""
}
