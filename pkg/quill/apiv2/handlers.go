// Package apiv2 is the JSON API over articles, mounted at /api/v2.
// Reads are public; writes need a JWT or API key.
package apiv2

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/quill/pkg/quill/apikeys"
	"github.com/mikepea/quill/pkg/quill/articles"
	"github.com/mikepea/quill/pkg/quill/auth"
	"github.com/mikepea/quill/pkg/quill/comments"
	"github.com/mikepea/quill/pkg/quill/i18n"
	"github.com/mikepea/quill/pkg/quill/likes"
	"github.com/mikepea/quill/pkg/quill/models"
	"github.com/mikepea/quill/pkg/quill/validation"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// Ranking sizes for the top endpoint
const (
	DefaultTop = 10
	MaxTop     = 100
)

// Handler serves the JSON API
type Handler struct {
	db       *gorm.DB
	articles *articles.Service
	comments *comments.Service
	likes    *likes.Service
}

// NewHandler creates an API handler
func NewHandler(db *gorm.DB, articleSvc *articles.Service, commentSvc *comments.Service, likeSvc *likes.Service) *Handler {
	validation.Setup()
	return &Handler{db: db, articles: articleSvc, comments: commentSvc, likes: likeSvc}
}

func detail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"detail": msg})
}

func serverError(c *gin.Context, err error) {
	log.Printf("API %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	detail(c, http.StatusInternalServerError, i18n.MsgServerError)
}

// fieldErrors answers 400 with {"field": ["message"]}
func fieldErrors(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, validation.FromError(err, i18n.Printer(language.English)))
}

// loadArticle resolves :id or answers 404
func (h *Handler) loadArticle(c *gin.Context) (*models.Article, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		detail(c, http.StatusNotFound, i18n.MsgNotFound)
		return nil, false
	}
	article, err := h.articles.Get(c.Request.Context(), uint(id), 0)
	if err != nil {
		if errors.Is(err, articles.ErrNotFound) {
			detail(c, http.StatusNotFound, i18n.MsgNotFound)
		} else {
			serverError(c, err)
		}
		return nil, false
	}
	return article, true
}

// List returns every article, most recently updated first
// @Summary List articles
// @Tags articles
// @Produce json
// @Param search query string false "Title or author username contains"
// @Param tag query string false "Tag name"
// @Success 200 {array} ArticleResponse
// @Router /api/v2/articles/ [get]
func (h *Handler) List(c *gin.Context) {
	list, err := h.articles.All(c.Request.Context(), articles.Filter{
		Search: c.Query("search"),
		Tag:    c.Query("tag"),
	})
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, serializeArticles(list))
}

// Create stores a new article authored by the caller
// @Summary Create an article
// @Tags articles
// @Accept json
// @Produce json
// @Param request body ArticleRequest true "Article"
// @Success 201 {object} ArticleResponse
// @Failure 400 {object} map[string][]string "Field errors"
// @Security BearerAuth
// @Router /api/v2/articles/ [post]
func (h *Handler) Create(c *gin.Context) {
	var req ArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fieldErrors(c, err)
		return
	}

	userID, _ := auth.GetUserID(c)
	article, err := h.articles.Create(c.Request.Context(), userID, articles.Input{
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusCreated, serializeArticle(*article))
}

// Get returns one article
// @Summary Get an article
// @Tags articles
// @Produce json
// @Param id path int true "Article ID"
// @Success 200 {object} ArticleResponse
// @Failure 404 {object} map[string]string
// @Router /api/v2/articles/{id}/ [get]
func (h *Handler) Get(c *gin.Context) {
	article, ok := h.loadArticle(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, serializeArticle(*article))
}

// authorize loads the article and applies a change or delete rule
func (h *Handler) authorize(c *gin.Context, rule func(uint, *models.Article) (bool, error)) (*models.Article, bool) {
	article, ok := h.loadArticle(c)
	if !ok {
		return nil, false
	}
	userID, _ := auth.GetUserID(c)
	allowed, err := rule(userID, article)
	if err != nil {
		serverError(c, err)
		return nil, false
	}
	if !allowed {
		detail(c, http.StatusForbidden, i18n.MsgPermissionDenied)
		return nil, false
	}
	return article, true
}

// Update replaces every writable field
// @Summary Update an article
// @Tags articles
// @Accept json
// @Produce json
// @Param id path int true "Article ID"
// @Param request body ArticleRequest true "Article"
// @Success 200 {object} ArticleResponse
// @Failure 400 {object} map[string][]string "Field errors"
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /api/v2/articles/{id}/ [put]
func (h *Handler) Update(c *gin.Context) {
	article, ok := h.authorize(c, h.articles.CanChange)
	if !ok {
		return
	}

	var req ArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fieldErrors(c, err)
		return
	}

	h.save(c, article, articles.Input{Title: req.Title, Content: req.Content, Tags: req.Tags})
}

// Patch changes only the fields present in the body
// @Summary Partially update an article
// @Tags articles
// @Accept json
// @Produce json
// @Param id path int true "Article ID"
// @Param request body ArticlePatch true "Changed fields"
// @Success 200 {object} ArticleResponse
// @Failure 400 {object} map[string][]string "Field errors"
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /api/v2/articles/{id}/ [patch]
func (h *Handler) Patch(c *gin.Context) {
	article, ok := h.authorize(c, h.articles.CanChange)
	if !ok {
		return
	}

	var req ArticlePatch
	if err := c.ShouldBindJSON(&req); err != nil {
		fieldErrors(c, err)
		return
	}

	in := articles.Input{Title: article.Title, Content: article.Content, Tags: article.TagNames()}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.Content != nil {
		in.Content = *req.Content
	}
	if req.Tags != nil {
		in.Tags = *req.Tags
	}
	h.save(c, article, in)
}

func (h *Handler) save(c *gin.Context, article *models.Article, in articles.Input) {
	userID, _ := auth.GetUserID(c)
	updated, err := h.articles.Update(c.Request.Context(), article, in, userID)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, serializeArticle(*updated))
}

// Delete removes an article
// @Summary Delete an article
// @Tags articles
// @Param id path int true "Article ID"
// @Success 204
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /api/v2/articles/{id}/ [delete]
func (h *Handler) Delete(c *gin.Context) {
	article, ok := h.authorize(c, h.articles.CanDelete)
	if !ok {
		return
	}

	userID, _ := auth.GetUserID(c)
	if err := h.articles.Delete(c.Request.Context(), article, userID); err != nil {
		serverError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Comments lists an article's comments, newest first
// @Summary List comments
// @Tags articles
// @Produce json
// @Param id path int true "Article ID"
// @Success 200 {array} CommentResponse
// @Failure 404 {object} map[string]string
// @Router /api/v2/articles/{id}/comments/ [get]
func (h *Handler) Comments(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		detail(c, http.StatusNotFound, i18n.MsgNotFound)
		return
	}

	list, err := h.comments.ListByArticle(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, comments.ErrArticleNotFound) {
			detail(c, http.StatusNotFound, i18n.MsgNotFound)
			return
		}
		serverError(c, err)
		return
	}

	out := make([]CommentResponse, len(list))
	for i, cm := range list {
		out[i] = serializeComment(cm)
	}
	c.JSON(http.StatusOK, out)
}

// Top returns the most liked articles
// @Summary Like ranking
// @Tags articles
// @Produce json
// @Param top query int false "Number of entries (default 10, max 100)"
// @Success 200 {array} TopEntry
// @Router /api/v2/articles/top/ [get]
func (h *Handler) Top(c *gin.Context) {
	n := DefaultTop
	if raw := c.Query("top"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"top": []string{"A valid positive integer is required."}})
			return
		}
		n = parsed
	}
	if n > MaxTop {
		n = MaxTop
	}

	entries, err := h.likes.Ranking().Top(c.Request.Context(), n)
	if err != nil {
		serverError(c, err)
		return
	}

	ids := make([]uint, len(entries))
	for i, e := range entries {
		ids[i] = e.ArticleID
	}
	byID, err := h.articles.ByIDs(c.Request.Context(), ids, 0)
	if err != nil {
		serverError(c, err)
		return
	}

	// Entries for deleted articles can linger in an external ranking
	out := make([]TopEntry, 0, len(entries))
	for _, e := range entries {
		article, ok := byID[e.ArticleID]
		if !ok {
			continue
		}
		out = append(out, TopEntry{Article: serializeArticle(article), Likes: e.Score})
	}
	c.JSON(http.StatusOK, out)
}

// RegisterRoutes registers the API routes on rg
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/articles/", h.List)
	rg.GET("/articles/top/", h.Top)
	rg.GET("/articles/:id/", h.Get)
	rg.GET("/articles/:id/comments/", h.Comments)

	write := rg.Group("", apikeys.CombinedAuthMiddleware(h.db))
	write.POST("/articles/", auth.RequirePermission(h.db, models.PermAddArticle), h.Create)
	write.PUT("/articles/:id/", h.Update)
	write.PATCH("/articles/:id/", h.Patch)
	write.DELETE("/articles/:id/", h.Delete)
	write.PUT("/articles/:id/update/", h.Update)
	write.PATCH("/articles/:id/update/", h.Patch)
}
