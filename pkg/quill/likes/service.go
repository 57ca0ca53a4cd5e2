// Package likes records per-user likes on articles and keeps a like ranking.
package likes

import (
	"context"
	"errors"
	"log"

	"github.com/mikepea/quill/pkg/quill/events"
	"github.com/mikepea/quill/pkg/quill/models"
	"gorm.io/gorm"
)

var (
	ErrAlreadyLiked    = errors.New("article already liked")
	ErrNotLiked        = errors.New("article not liked")
	ErrArticleNotFound = errors.New("article not found")
)

// Service likes and unlikes articles
type Service struct {
	db      *gorm.DB
	ranking Ranking
	events  events.Publisher
}

// NewService creates a like service. A nil ranking falls back to the
// database ranking; a nil publisher disables events.
func NewService(db *gorm.DB, ranking Ranking, publisher events.Publisher) *Service {
	if ranking == nil {
		ranking = NewDBRanking(db)
	}
	return &Service{db: db, ranking: ranking, events: publisher}
}

// Ranking returns the ranking the service updates
func (s *Service) Ranking() Ranking {
	return s.ranking
}

// Count returns the number of likes on an article
func (s *Service) Count(ctx context.Context, articleID uint) (int64, error) {
	return countLikes(s.db.WithContext(ctx), articleID)
}

func countLikes(tx *gorm.DB, articleID uint) (int64, error) {
	var count int64
	err := tx.Model(&models.LikeArticle{}).Where("article_id = ?", articleID).Count(&count).Error
	return count, err
}

// Like records userID's like on articleID and returns the new like count
func (s *Service) Like(ctx context.Context, userID, articleID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var article models.Article
		if err := tx.Select("id").First(&article, articleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrArticleNotFound
			}
			return err
		}

		var existing int64
		if err := tx.Model(&models.LikeArticle{}).
			Where("user_id = ? AND article_id = ?", userID, articleID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyLiked
		}

		like := models.LikeArticle{UserID: userID, ArticleID: articleID}
		if err := tx.Create(&like).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyLiked
			}
			return err
		}

		var err error
		count, err = countLikes(tx, articleID)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.afterChange(ctx, events.ArticleLiked, userID, articleID, 1, count)
	return count, nil
}

// Unlike removes userID's like on articleID and returns the new like count
func (s *Service) Unlike(ctx context.Context, userID, articleID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ? AND article_id = ?", userID, articleID).Delete(&models.LikeArticle{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotLiked
		}

		var err error
		count, err = countLikes(tx, articleID)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.afterChange(ctx, events.ArticleUnliked, userID, articleID, -1, count)
	return count, nil
}

// Liked reports whether userID has liked articleID
func (s *Service) Liked(ctx context.Context, userID, articleID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.LikeArticle{}).
		Where("user_id = ? AND article_id = ?", userID, articleID).
		Count(&count).Error
	return count > 0, err
}

func (s *Service) afterChange(ctx context.Context, eventType string, userID, articleID uint, delta, count int64) {
	if err := s.ranking.Add(ctx, articleID, delta); err != nil {
		log.Printf("Failed to update like ranking for article %d: %v", articleID, err)
	}
	events.Emit(ctx, s.events, events.New(eventType, articleID, userID).WithLikeCount(count))
}
