package webapp

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/quill/pkg/quill/comments"
	"github.com/mikepea/quill/pkg/quill/i18n"
	"github.com/mikepea/quill/pkg/quill/validation"
)

// AddComment posts a comment on an article
func (h *Handler) AddComment(c *gin.Context) {
	article, ok := h.loadArticle(c)
	if !ok {
		return
	}

	var form comments.Form
	if err := c.ShouldBind(&form); err != nil {
		h.renderView(c, http.StatusBadRequest, article, validation.FromError(err, i18n.FromContext(c)), form.Text)
		return
	}

	comment, err := h.comments.Create(c.Request.Context(), article.ID, currentUserID(c), form.Text)
	if err != nil {
		h.serverError(c, err)
		return
	}

	c.Redirect(http.StatusFound, articleURL(article.ID)+"#comment-"+strconv.FormatUint(uint64(comment.ID), 10))
}

// DeleteComment removes a comment by its author or a moderator
func (h *Handler) DeleteComment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		h.notFound(c)
		return
	}

	comment, err := h.comments.Get(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, comments.ErrNotFound) {
			h.notFound(c)
		} else {
			h.serverError(c, err)
		}
		return
	}

	allowed, err := h.comments.CanDelete(currentUserID(c), comment)
	if err != nil {
		h.serverError(c, err)
		return
	}
	if !allowed {
		h.forbidden(c)
		return
	}

	if err := h.comments.Delete(c.Request.Context(), comment); err != nil {
		h.serverError(c, err)
		return
	}

	c.Redirect(http.StatusFound, articleURL(comment.ArticleID))
}
