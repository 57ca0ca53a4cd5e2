// Package webapp serves the server-rendered article pages.
package webapp

import (
	"html/template"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/quill/pkg/quill/articles"
	"github.com/mikepea/quill/pkg/quill/auth"
	"github.com/mikepea/quill/pkg/quill/comments"
	"github.com/mikepea/quill/pkg/quill/i18n"
	"github.com/mikepea/quill/pkg/quill/likes"
	"github.com/mikepea/quill/pkg/quill/models"
	"github.com/mikepea/quill/pkg/quill/validation"
	"gorm.io/gorm"
)

// Handler serves the HTML pages
type Handler struct {
	db           *gorm.DB
	articles     *articles.Service
	comments     *comments.Service
	likes        *likes.Service
	pages        map[string]*template.Template
	cookieSecure bool
}

// NewHandler creates a webapp handler and parses its templates
func NewHandler(db *gorm.DB, articleSvc *articles.Service, commentSvc *comments.Service, likeSvc *likes.Service) (*Handler, error) {
	validation.Setup()
	pages, err := parsePages(templateFS)
	if err != nil {
		return nil, err
	}
	return &Handler{
		db:       db,
		articles: articleSvc,
		comments: commentSvc,
		likes:    likeSvc,
		pages:    pages,
	}, nil
}

// WithSecureCookies marks session cookies as Secure
func (h *Handler) WithSecureCookies(secure bool) *Handler {
	h.cookieSecure = secure
	return h
}

// hasPerm checks a permission for the session user
func (h *Handler) hasPerm(c *gin.Context, perm string) bool {
	user := currentUser(c)
	if user == nil {
		return false
	}
	ok, err := auth.UserHasPermission(h.db, user, perm)
	if err != nil {
		log.Printf("Failed to check permission %s for user %d: %v", perm, user.ID, err)
		return false
	}
	return ok
}

// page returns the data every template expects
func (h *Handler) page(c *gin.Context, title string) gin.H {
	return gin.H{
		"L":      localizer{p: i18n.FromContext(c)},
		"Lang":   i18n.TagFromContext(c).String(),
		"User":   currentUser(c),
		"Title":  title,
		"CanAdd": h.hasPerm(c, models.PermAddArticle),
		"Errors": validation.FieldErrors{},
	}
}

func (h *Handler) render(c *gin.Context, status int, name string, data gin.H) {
	c.Render(status, h.renderer(name, data))
}

func (h *Handler) renderError(c *gin.Context, status int, title, message string) {
	data := h.page(c, i18n.T(c, title))
	data["Message"] = i18n.T(c, message)
	h.render(c, status, "error.html", data)
}

func (h *Handler) notFound(c *gin.Context) {
	h.renderError(c, http.StatusNotFound, "Page not found", i18n.MsgNotFound)
}

func (h *Handler) forbidden(c *gin.Context) {
	h.renderError(c, http.StatusForbidden, "Access denied", i18n.MsgPermissionDenied)
}

func (h *Handler) serverError(c *gin.Context, err error) {
	log.Printf("Request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	h.renderError(c, http.StatusInternalServerError, i18n.MsgServerError, i18n.MsgServerError)
}

// requirePerm renders 403 unless the session user holds perm
func (h *Handler) requirePerm(perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.hasPerm(c, perm) {
			h.forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RegisterRoutes registers the page routes. The engine must already run
// auth.OptionalAuth and i18n.Middleware.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	pages := r.Group("", h.loadUser())
	login := pages.Group("", h.loginRequired())

	pages.GET("/", h.Index)
	pages.GET("/articles/", h.Index)
	pages.GET("/articles/:id/", h.View)

	login.GET("/articles/add/", h.requirePerm(models.PermAddArticle), h.CreateForm)
	login.POST("/articles/add/", h.requirePerm(models.PermAddArticle), h.Create)
	login.GET("/articles/:id/update/", h.UpdateForm)
	login.POST("/articles/:id/update/", h.Update)
	login.GET("/articles/:id/delete/", h.ConfirmDelete)
	login.POST("/articles/:id/delete/", h.Delete)

	login.POST("/articles/:id/comments/", h.requirePerm(models.PermAddComment), h.AddComment)
	login.POST("/comments/:id/delete/", h.DeleteComment)

	likes.NewHandler(h.likes).RegisterRoutes(login)

	pages.GET("/accounts/login/", h.LoginPage)
	pages.POST("/accounts/login/", h.Login)
	pages.POST("/accounts/logout/", h.Logout)
	pages.GET("/accounts/register/", h.RegisterPage)
	pages.POST("/accounts/register/", h.Register)
}
