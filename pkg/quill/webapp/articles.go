package webapp

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/quill/pkg/quill/articles"
	"github.com/mikepea/quill/pkg/quill/i18n"
	"github.com/mikepea/quill/pkg/quill/models"
	"github.com/mikepea/quill/pkg/quill/pagination"
	"github.com/mikepea/quill/pkg/quill/validation"
)

// ArticleForm is the create/update form body
type ArticleForm struct {
	Title   string `form:"title" binding:"required,notblank,max=200"`
	Content string `form:"content" binding:"required,notblank,max=3000"`
	Tags    string `form:"tags"`
}

func (f ArticleForm) input() articles.Input {
	return articles.Input{Title: f.Title, Content: f.Content, Tags: articles.ParseTags(f.Tags)}
}

// DeleteConfirmation confirms deletion by repeating the article title
type DeleteConfirmation struct {
	Title string `form:"title"`
}

func articleURL(id uint) string {
	return "/articles/" + strconv.FormatUint(uint64(id), 10) + "/"
}

// loadArticle resolves :id or renders 404
func (h *Handler) loadArticle(c *gin.Context) (*models.Article, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		h.notFound(c)
		return nil, false
	}
	article, err := h.articles.Get(c.Request.Context(), uint(id), currentUserID(c))
	if err != nil {
		if errors.Is(err, articles.ErrNotFound) {
			h.notFound(c)
		} else {
			h.serverError(c, err)
		}
		return nil, false
	}
	return article, true
}

// Index lists articles, three per page
func (h *Handler) Index(c *gin.Context) {
	filter := articles.Filter{
		Search:   c.Query("search"),
		Tag:      c.Query("tag"),
		ViewerID: currentUserID(c),
	}

	result, err := h.articles.List(c.Request.Context(), filter, c.Query("page"))
	if err != nil {
		if errors.Is(err, pagination.ErrEmptyPage) || errors.Is(err, pagination.ErrPageNotAnInteger) {
			h.notFound(c)
			return
		}
		h.serverError(c, err)
		return
	}

	query := url.Values{}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}
	if filter.Tag != "" {
		query.Set("tag", filter.Tag)
	}
	prefix := ""
	if len(query) > 0 {
		prefix = query.Encode() + "&"
	}

	data := h.page(c, i18n.T(c, "Articles"))
	data["Articles"] = result.Articles
	data["Page"] = result.Page
	data["Search"] = filter.Search
	data["Tag"] = filter.Tag
	data["Query"] = template.URL(prefix)
	h.render(c, http.StatusOK, "index.html", data)
}

// View shows one article with its comments
func (h *Handler) View(c *gin.Context) {
	article, ok := h.loadArticle(c)
	if !ok {
		return
	}
	h.renderView(c, http.StatusOK, article, validation.FieldErrors{}, "")
}

func (h *Handler) renderView(c *gin.Context, status int, article *models.Article, errs validation.FieldErrors, commentText string) {
	userID := currentUserID(c)
	canChange, err := h.articles.CanChange(userID, article)
	if err != nil {
		h.serverError(c, err)
		return
	}
	canDelete, err := h.articles.CanDelete(userID, article)
	if err != nil {
		h.serverError(c, err)
		return
	}

	data := h.page(c, article.Title)
	data["Article"] = article
	data["CanChange"] = canChange
	data["CanDelete"] = canDelete
	data["CanComment"] = h.hasPerm(c, models.PermAddComment)
	data["CanDeleteComments"] = h.hasPerm(c, models.PermDeleteComment)
	data["Errors"] = errs
	data["CommentText"] = commentText
	h.render(c, status, "view.html", data)
}

func (h *Handler) renderForm(c *gin.Context, status int, title, action, cancel string, form ArticleForm, errs validation.FieldErrors) {
	data := h.page(c, title)
	data["Action"] = action
	data["Cancel"] = cancel
	data["Form"] = form
	data["Errors"] = errs
	h.render(c, status, "form.html", data)
}

// CreateForm shows an empty article form
func (h *Handler) CreateForm(c *gin.Context) {
	h.renderForm(c, http.StatusOK, i18n.T(c, "Add article"), "/articles/add/", "/", ArticleForm{}, validation.FieldErrors{})
}

// Create stores a new article authored by the session user
func (h *Handler) Create(c *gin.Context) {
	var form ArticleForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderForm(c, http.StatusBadRequest, i18n.T(c, "Add article"), "/articles/add/", "/", form,
			validation.FromError(err, i18n.FromContext(c)))
		return
	}

	article, err := h.articles.Create(c.Request.Context(), currentUserID(c), form.input())
	if err != nil {
		h.serverError(c, err)
		return
	}

	c.Redirect(http.StatusFound, articleURL(article.ID))
}

// authorizeChange loads the article and checks the change rule
func (h *Handler) authorizeChange(c *gin.Context) (*models.Article, bool) {
	article, ok := h.loadArticle(c)
	if !ok {
		return nil, false
	}
	allowed, err := h.articles.CanChange(currentUserID(c), article)
	if err != nil {
		h.serverError(c, err)
		return nil, false
	}
	if !allowed {
		h.forbidden(c)
		return nil, false
	}
	return article, true
}

// UpdateForm shows the article form prefilled
func (h *Handler) UpdateForm(c *gin.Context) {
	article, ok := h.authorizeChange(c)
	if !ok {
		return
	}
	form := ArticleForm{
		Title:   article.Title,
		Content: article.Content,
		Tags:    articles.FormatTags(article.TagNames()),
	}
	action := articleURL(article.ID) + "update/"
	h.renderForm(c, http.StatusOK, i18n.T(c, "Edit article"), action, articleURL(article.ID), form, validation.FieldErrors{})
}

// Update saves the edited article
func (h *Handler) Update(c *gin.Context) {
	article, ok := h.authorizeChange(c)
	if !ok {
		return
	}

	var form ArticleForm
	if err := c.ShouldBind(&form); err != nil {
		action := articleURL(article.ID) + "update/"
		h.renderForm(c, http.StatusBadRequest, i18n.T(c, "Edit article"), action, articleURL(article.ID), form,
			validation.FromError(err, i18n.FromContext(c)))
		return
	}

	if _, err := h.articles.Update(c.Request.Context(), article, form.input(), currentUserID(c)); err != nil {
		h.serverError(c, err)
		return
	}

	c.Redirect(http.StatusFound, articleURL(article.ID))
}

// authorizeDelete loads the article and checks the delete rule
func (h *Handler) authorizeDelete(c *gin.Context) (*models.Article, bool) {
	article, ok := h.loadArticle(c)
	if !ok {
		return nil, false
	}
	allowed, err := h.articles.CanDelete(currentUserID(c), article)
	if err != nil {
		h.serverError(c, err)
		return nil, false
	}
	if !allowed {
		h.forbidden(c)
		return nil, false
	}
	return article, true
}

func (h *Handler) renderDelete(c *gin.Context, status int, article *models.Article, confirm string, errs validation.FieldErrors) {
	data := h.page(c, i18n.T(c, "Delete article"))
	data["Article"] = article
	data["Confirm"] = confirm
	data["Errors"] = errs
	h.render(c, status, "delete.html", data)
}

// ConfirmDelete asks the user to confirm by typing the title
func (h *Handler) ConfirmDelete(c *gin.Context) {
	article, ok := h.authorizeDelete(c)
	if !ok {
		return
	}
	h.renderDelete(c, http.StatusOK, article, "", validation.FieldErrors{})
}

// Delete removes the article once the typed title matches
func (h *Handler) Delete(c *gin.Context) {
	article, ok := h.authorizeDelete(c)
	if !ok {
		return
	}

	var form DeleteConfirmation
	_ = c.ShouldBind(&form)
	if form.Title != article.Title {
		errs := validation.FieldErrors{}
		errs.Add("title", i18n.T(c, i18n.MsgTitleMismatch))
		h.renderDelete(c, http.StatusBadRequest, article, form.Title, errs)
		return
	}

	if err := h.articles.Delete(c.Request.Context(), article, currentUserID(c)); err != nil {
		h.serverError(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/")
}
