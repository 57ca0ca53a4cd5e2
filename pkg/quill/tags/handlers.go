package tags

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/quill/pkg/quill/articles"
	"github.com/mikepea/quill/pkg/quill/auth"
	"github.com/mikepea/quill/pkg/quill/models"
	"gorm.io/gorm"
)

// Handler handles tag-related requests
type Handler struct {
	db       *gorm.DB
	articles *articles.Service
}

// NewHandler creates a new tags handler
func NewHandler(db *gorm.DB, articleSvc *articles.Service) *Handler {
	return &Handler{db: db, articles: articleSvc}
}

// TagResponse represents a tag in API responses
type TagResponse struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	ArticleCount int    `json:"article_count,omitempty"`
}

// SetTagsRequest represents the request to set tags on an article
type SetTagsRequest struct {
	Tags []string `json:"tags" binding:"required"`
}

func toResponses(tags []models.Tag) []TagResponse {
	out := make([]TagResponse, len(tags))
	for i, t := range tags {
		out[i] = TagResponse{ID: t.ID, Name: t.Name}
	}
	return out
}

// loadArticle resolves :id, writing 404 when it does not exist
func (h *Handler) loadArticle(c *gin.Context) (*models.Article, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid article ID"})
		return nil, false
	}

	var article models.Article
	if err := h.db.Preload("Tags").First(&article, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch article"})
		}
		return nil, false
	}
	return &article, true
}

// loadEditableArticle also requires the caller to be the author or hold change_article
func (h *Handler) loadEditableArticle(c *gin.Context) (*models.Article, bool) {
	article, ok := h.loadArticle(c)
	if !ok {
		return nil, false
	}

	userID, _ := auth.GetUserID(c)
	allowed, err := h.articles.CanChange(userID, article)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check permissions"})
		return nil, false
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You cannot change this article"})
		return nil, false
	}
	return article, true
}

// List returns every tag in use with its article count
func (h *Handler) List(c *gin.Context) {
	type tagWithCount struct {
		ID           uint
		Name         string
		ArticleCount int
	}

	var results []tagWithCount
	err := h.db.Table("tags").
		Select("tags.id, tags.name, COUNT(DISTINCT article_tags.article_id) as article_count").
		Joins("INNER JOIN article_tags ON tags.id = article_tags.tag_id").
		Group("tags.id, tags.name").
		Order("article_count DESC, tags.name ASC").
		Find(&results).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
		return
	}

	tags := make([]TagResponse, len(results))
	for i, r := range results {
		tags[i] = TagResponse{
			ID:           r.ID,
			Name:         r.Name,
			ArticleCount: r.ArticleCount,
		}
	}

	c.JSON(http.StatusOK, tags)
}

// GetArticleTags returns the tags of an article
func (h *Handler) GetArticleTags(c *gin.Context) {
	article, ok := h.loadArticle(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toResponses(article.Tags))
}

// SetArticleTags replaces the tags of an article
func (h *Handler) SetArticleTags(c *gin.Context) {
	article, ok := h.loadEditableArticle(c)
	if !ok {
		return
	}

	var req SetTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.articles.ReplaceTags(c.Request.Context(), article, req.Tags); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update tags"})
		return
	}

	c.JSON(http.StatusOK, toResponses(article.Tags))
}

// AddArticleTag adds a single tag to an article
func (h *Handler) AddArticleTag(c *gin.Context) {
	article, ok := h.loadEditableArticle(c)
	if !ok {
		return
	}

	tags, err := articles.GetOrCreateTags(h.db, []string{c.Param("tag")})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create tag"})
		return
	}
	if len(tags) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tag name is empty"})
		return
	}

	if err := h.db.Model(article).Association("Tags").Append(&tags[0]); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add tag"})
		return
	}

	c.JSON(http.StatusOK, TagResponse{ID: tags[0].ID, Name: tags[0].Name})
}

// RemoveArticleTag removes a tag from an article
func (h *Handler) RemoveArticleTag(c *gin.Context) {
	article, ok := h.loadEditableArticle(c)
	if !ok {
		return
	}

	var tag models.Tag
	if err := h.db.Where("name = ?", c.Param("tag")).First(&tag).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		return
	}

	if err := h.db.Model(article).Association("Tags").Delete(&tag); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove tag"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tag removed"})
}

// RegisterRoutes registers tag routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tags", h.List)

	rg.GET("/articles/:id/tags", h.GetArticleTags)
	rg.PUT("/articles/:id/tags", h.SetArticleTags)
	rg.POST("/articles/:id/tags/:tag", h.AddArticleTag)
	rg.DELETE("/articles/:id/tags/:tag", h.RemoveArticleTag)
}
