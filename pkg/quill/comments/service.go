// Package comments stores reader comments on articles.
package comments

import (
	"context"
	"errors"
	"strings"

	"github.com/mikepea/quill/pkg/quill/auth"
	"github.com/mikepea/quill/pkg/quill/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxTextLength is the longest comment accepted
const MaxTextLength = 400

var (
	ErrNotFound        = errors.New("comment not found")
	ErrArticleNotFound = errors.New("article not found")
)

// Form is the comment form body
type Form struct {
	Text string `json:"text" form:"text" binding:"required,notblank,max=400"`
}

// Service reads and writes comments
type Service struct {
	db *gorm.DB
}

// NewService creates a comment service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ListByArticle returns an article's comments, newest first
func (s *Service) ListByArticle(ctx context.Context, articleID uint) ([]models.Comment, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Article{}).Where("id = ?", articleID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrArticleNotFound
	}

	list := []models.Comment{}
	err := s.db.WithContext(ctx).
		Preload("Author").
		Where("article_id = ?", articleID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

// Get loads a comment
func (s *Service) Get(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).Preload("Author").First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &comment, nil
}

// Create adds a comment by authorID to articleID
func (s *Service) Create(ctx context.Context, articleID, authorID uint, text string) (*models.Comment, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Article{}).Where("id = ?", articleID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrArticleNotFound
	}

	comment := models.Comment{
		ArticleID: articleID,
		AuthorID:  authorID,
		Text:      strings.TrimSpace(text),
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&comment).Error; err != nil {
		return nil, err
	}
	return s.Get(ctx, comment.ID)
}

// Delete removes a comment
func (s *Service) Delete(ctx context.Context, comment *models.Comment) error {
	return s.db.WithContext(ctx).Delete(comment).Error
}

// CanDelete reports whether the user may delete the comment
func (s *Service) CanDelete(userID uint, comment *models.Comment) (bool, error) {
	return auth.OwnerOrPermission(s.db, userID, comment.AuthorID, models.PermDeleteComment)
}
