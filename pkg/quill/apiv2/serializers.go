package apiv2

import (
	"time"

	"github.com/mikepea/quill/pkg/quill/models"
)

// ArticleResponse is the serialized article
type ArticleResponse struct {
	ID         uint      `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Author     uint      `json:"author"`
	AuthorName string    `json:"author_name"`
	Tags       []string  `json:"tags"`
	LikeCount  int64     `json:"like_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ArticleRequest is the body of create and full update. Every field is required
// except tags.
type ArticleRequest struct {
	Title   string   `json:"title" binding:"required,notblank,max=200"`
	Content string   `json:"content" binding:"required,notblank,max=3000"`
	Tags    []string `json:"tags" binding:"omitempty,dive,max=50"`
}

// ArticlePatch is the body of a partial update; absent fields keep their value
type ArticlePatch struct {
	Title   *string   `json:"title" binding:"omitempty,notblank,max=200"`
	Content *string   `json:"content" binding:"omitempty,notblank,max=3000"`
	Tags    *[]string `json:"tags" binding:"omitempty,dive,max=50"`
}

// CommentResponse is the serialized comment
type CommentResponse struct {
	ID         uint      `json:"id"`
	Article    uint      `json:"article"`
	Author     uint      `json:"author"`
	AuthorName string    `json:"author_name"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

// TopEntry is one article in the like ranking
type TopEntry struct {
	Article ArticleResponse `json:"article"`
	Likes   int64           `json:"likes"`
}

func serializeArticle(a models.Article) ArticleResponse {
	tags := a.TagNames()
	return ArticleResponse{
		ID:         a.ID,
		Title:      a.Title,
		Content:    a.Content,
		Author:     a.AuthorID,
		AuthorName: a.Author.Username,
		Tags:       tags,
		LikeCount:  a.LikeCount,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func serializeArticles(list []models.Article) []ArticleResponse {
	out := make([]ArticleResponse, len(list))
	for i, a := range list {
		out[i] = serializeArticle(a)
	}
	return out
}

func serializeComment(cm models.Comment) CommentResponse {
	return CommentResponse{
		ID:         cm.ID,
		Article:    cm.ArticleID,
		Author:     cm.AuthorID,
		AuthorName: cm.Author.Username,
		Text:       cm.Text,
		CreatedAt:  cm.CreatedAt,
	}
}
