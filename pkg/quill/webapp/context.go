package webapp

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/quill/pkg/quill/auth"
	"github.com/mikepea/quill/pkg/quill/models"
)

const contextKeyUser = "webapp_user"

// LoginURL is where anonymous users are sent for login-only pages
const LoginURL = "/accounts/login/"

// loadUser resolves the session user; inactive or deleted accounts browse anonymously
func (h *Handler) loadUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, ok := auth.GetUserID(c); ok {
			var user models.User
			if err := h.db.First(&user, userID).Error; err == nil && user.Active {
				c.Set(contextKeyUser, &user)
			}
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(contextKeyUser); ok {
		return v.(*models.User)
	}
	return nil
}

func currentUserID(c *gin.Context) uint {
	if user := currentUser(c); user != nil {
		return user.ID
	}
	return 0
}

// loginRequired redirects anonymous users to the login page with a next parameter
func (h *Handler) loginRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) == nil {
			c.Redirect(http.StatusFound, LoginURL+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Next()
	}
}

// safeNext keeps post-login redirects on this site
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
