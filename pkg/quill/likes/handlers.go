package likes

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/quill/pkg/quill/auth"
	"github.com/mikepea/quill/pkg/quill/i18n"
	"golang.org/x/text/language"
)

// Handler serves like and unlike requests
type Handler struct {
	svc *Service
}

// NewHandler creates a new likes handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Response is the body returned after a like or unlike
type Response struct {
	Count  int64  `json:"count"`
	Action string `json:"action"`
	PK     uint   `json:"pk"`
}

// refusal renders a 403 body. Clients match on the Russian text, so it does
// not follow the request language.
func refusal(key string) string {
	return i18n.Printer(language.Russian).Sprintf(key)
}

func parseArticleID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.String(http.StatusNotFound, i18n.T(c, i18n.MsgNotFound))
		return 0, false
	}
	return uint(id), true
}

// Like records a like from the current user
func (h *Handler) Like(c *gin.Context) {
	articleID, ok := parseArticleID(c)
	if !ok {
		return
	}
	userID, _ := auth.GetUserID(c)

	count, err := h.svc.Like(c.Request.Context(), userID, articleID)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyLiked):
			c.String(http.StatusForbidden, refusal(i18n.MsgAlreadyLiked))
		case errors.Is(err, ErrArticleNotFound):
			c.String(http.StatusNotFound, i18n.T(c, i18n.MsgNotFound))
		default:
			log.Printf("Failed to like article %d: %v", articleID, err)
			c.String(http.StatusInternalServerError, i18n.T(c, i18n.MsgServerError))
		}
		return
	}

	c.JSON(http.StatusOK, Response{Count: count, Action: "like", PK: articleID})
}

// Unlike removes the current user's like
func (h *Handler) Unlike(c *gin.Context) {
	articleID, ok := parseArticleID(c)
	if !ok {
		return
	}
	userID, _ := auth.GetUserID(c)

	count, err := h.svc.Unlike(c.Request.Context(), userID, articleID)
	if err != nil {
		if errors.Is(err, ErrNotLiked) {
			c.String(http.StatusForbidden, refusal(i18n.MsgNotLiked))
			return
		}
		log.Printf("Failed to unlike article %d: %v", articleID, err)
		c.String(http.StatusInternalServerError, i18n.T(c, i18n.MsgServerError))
		return
	}

	c.JSON(http.StatusOK, Response{Count: count, Action: "unlike", PK: articleID})
}

// RegisterRoutes registers like routes; rg must already require a login
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/articles/:id/like/", h.Like)
	rg.DELETE("/articles/:id/unlike/", h.Unlike)
}
