package importexport

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/quill/pkg/quill/articles"
	"github.com/mikepea/quill/pkg/quill/auth"
	"github.com/mikepea/quill/pkg/quill/models"
	"gorm.io/gorm"
)

// Field limits mirrored from the article form
const (
	maxTitleLength   = 200
	maxContentLength = 3000
)

// Handler handles import/export requests
type Handler struct {
	db       *gorm.DB
	articles *articles.Service
}

// NewHandler creates a new import/export handler
func NewHandler(db *gorm.DB, articleSvc *articles.Service) *Handler {
	return &Handler{db: db, articles: articleSvc}
}

// ExportedArticle is the interchange form of an article. Tags are space separated.
type ExportedArticle struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Tags    string `json:"tags"`
	Author  string `json:"author,omitempty"`
	Time    string `json:"time,omitempty"`
}

// ImportRequest represents an import request
type ImportRequest struct {
	Articles []ExportedArticle `json:"articles" binding:"required"`
}

// ImportResult represents the result of an import operation
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

func toExported(a models.Article) ExportedArticle {
	return ExportedArticle{
		Title:   a.Title,
		Content: a.Content,
		Tags:    strings.Join(a.TagNames(), " "),
		Author:  a.Author.Username,
		Time:    a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func validateEntry(e ExportedArticle) error {
	switch {
	case strings.TrimSpace(e.Title) == "":
		return errors.New("title is required")
	case utf8.RuneCountInString(e.Title) > maxTitleLength:
		return fmt.Errorf("title is longer than %d characters", maxTitleLength)
	case strings.TrimSpace(e.Content) == "":
		return errors.New("content is required")
	case utf8.RuneCountInString(e.Content) > maxContentLength:
		return fmt.Errorf("content is longer than %d characters", maxContentLength)
	}
	return nil
}

// Import creates the given articles authored by the caller. Entries whose
// title the caller already used are skipped.
// @Summary Import articles
// @Tags import-export
// @Accept json
// @Produce json
// @Param request body ImportRequest true "Articles"
// @Success 200 {object} ImportResult
// @Security BearerAuth
// @Router /api/import [post]
func (h *Handler) Import(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := ImportResult{
		Errors: []string{},
	}

	for i, entry := range req.Articles {
		label := "article " + strconv.Itoa(i)

		if err := validateEntry(entry); err != nil {
			result.Errors = append(result.Errors, label+": "+err.Error())
			result.Skipped++
			continue
		}

		var createdAt time.Time
		if entry.Time != "" {
			parsed, err := time.Parse(time.RFC3339, entry.Time)
			if err != nil {
				result.Errors = append(result.Errors, label+": invalid time format")
				result.Skipped++
				continue
			}
			createdAt = parsed
		}

		var existing int64
		h.db.Model(&models.Article{}).Where("author_id = ? AND title = ?", userID, strings.TrimSpace(entry.Title)).Count(&existing)
		if existing > 0 {
			result.Skipped++
			continue
		}

		article, err := h.articles.Create(c.Request.Context(), userID, articles.Input{
			Title:   entry.Title,
			Content: entry.Content,
			Tags:    articles.ParseTags(entry.Tags),
		})
		if err != nil {
			result.Errors = append(result.Errors, label+": "+err.Error())
			result.Skipped++
			continue
		}

		if !createdAt.IsZero() {
			h.db.Model(article).UpdateColumns(map[string]interface{}{
				"created_at": createdAt,
				"updated_at": createdAt,
			})
		}

		result.Imported++
	}

	c.JSON(http.StatusOK, result)
}

// Export returns every article, or those of one author with ?author_id=
// @Summary Export articles
// @Tags import-export
// @Produce json
// @Param author_id query int false "Only this author's articles"
// @Param download query bool false "Send as attachment"
// @Success 200 {array} ExportedArticle
// @Security BearerAuth
// @Router /api/export [get]
func (h *Handler) Export(c *gin.Context) {
	query := h.db.Preload("Tags").Preload("Author").Order("created_at DESC, id DESC")

	if raw := c.Query("author_id"); raw != "" {
		authorID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid author ID"})
			return
		}
		query = query.Where("author_id = ?", authorID)
	}

	var list []models.Article
	if err := query.Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch articles"})
		return
	}

	exported := make([]ExportedArticle, len(list))
	for i, a := range list {
		exported[i] = toExported(a)
	}

	if c.Query("download") == "true" {
		c.Header("Content-Disposition", "attachment; filename=quill-export.json")
	}

	c.JSON(http.StatusOK, exported)
}

// ExportSingle exports one article
// @Summary Export one article
// @Tags import-export
// @Produce json
// @Param id path int true "Article ID"
// @Success 200 {object} ExportedArticle
// @Security BearerAuth
// @Router /api/export/{id} [get]
func (h *Handler) ExportSingle(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid article ID"})
		return
	}

	var article models.Article
	if err := h.db.Preload("Tags").Preload("Author").First(&article, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return
	}

	c.JSON(http.StatusOK, toExported(article))
}

// RegisterRoutes registers import/export routes. Import also requires
// the add_article permission.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/import", auth.RequirePermission(h.db, models.PermAddArticle), h.Import)
	rg.GET("/export", h.Export)
	rg.GET("/export/:id", h.ExportSingle)
}
