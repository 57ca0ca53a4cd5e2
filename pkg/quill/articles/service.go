// Package articles holds the article queries and write rules shared by the
// HTML pages and the JSON API.
package articles

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/mikepea/quill/pkg/quill/auth"
	"github.com/mikepea/quill/pkg/quill/events"
	"github.com/mikepea/quill/pkg/quill/likes"
	"github.com/mikepea/quill/pkg/quill/models"
	"github.com/mikepea/quill/pkg/quill/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Listing page size
const (
	PerPage = 3
	Orphans = 0
)

// ErrNotFound is returned when an article does not exist
var ErrNotFound = errors.New("article not found")

// Filter narrows an article listing
type Filter struct {
	Search   string
	Tag      string
	ViewerID uint
}

// Input carries the writable article fields
type Input struct {
	Title   string
	Content string
	Tags    []string
}

// Page is one page of an article listing
type Page struct {
	Articles []models.Article
	pagination.Page
}

// Service reads and writes articles
type Service struct {
	db      *gorm.DB
	events  events.Publisher
	ranking likes.Ranking
}

// NewService creates an article service. A nil publisher disables events.
func NewService(db *gorm.DB, publisher events.Publisher) *Service {
	return &Service{db: db, events: publisher}
}

// WithRanking makes Delete drop articles from the like ranking
func (s *Service) WithRanking(r likes.Ranking) *Service {
	s.ranking = r
	return s
}

// DB returns the underlying connection
func (s *Service) DB() *gorm.DB {
	return s.db
}

func (s *Service) filtered(ctx context.Context, f Filter) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Article{})

	if search := strings.TrimSpace(f.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.
			Joins("JOIN users ON users.id = articles.author_id").
			Where("LOWER(articles.title) LIKE ? OR LOWER(users.username) LIKE ?", like, like)
	}

	if tag := strings.TrimSpace(f.Tag); tag != "" {
		query = query.Where("articles.id IN (?)",
			s.db.WithContext(ctx).Table(models.TagsTable).
				Select("article_tags.article_id").
				Joins("JOIN tags ON tags.id = article_tags.tag_id").
				Where("tags.name = ?", tag))
	}

	return query
}

// Count returns the number of articles matching the filter
func (s *Service) Count(ctx context.Context, f Filter) (int64, error) {
	var count int64
	err := s.filtered(ctx, f).Count(&count).Error
	return count, err
}

// List returns one page of articles, most recently updated first.
// rawPage accepts a page number, "last", or "" for the first page;
// invalid pages return pagination errors.
func (s *Service) List(ctx context.Context, f Filter, rawPage string) (*Page, error) {
	count, err := s.Count(ctx, f)
	if err != nil {
		return nil, err
	}

	page, err := pagination.New(count, PerPage, Orphans).ParsePage(rawPage)
	if err != nil {
		return nil, err
	}

	var list []models.Article
	if page.Limit > 0 {
		err = s.filtered(ctx, f).
			Select("articles.*").
			Preload("Author").
			Preload("Tags").
			Order("articles.updated_at DESC, articles.id DESC").
			Offset(page.Offset).
			Limit(page.Limit).
			Find(&list).Error
		if err != nil {
			return nil, err
		}
	}

	if err := s.annotate(ctx, list, f.ViewerID); err != nil {
		return nil, err
	}

	return &Page{Articles: list, Page: page}, nil
}

// All returns every matching article, most recently updated first
func (s *Service) All(ctx context.Context, f Filter) ([]models.Article, error) {
	var list []models.Article
	err := s.filtered(ctx, f).
		Select("articles.*").
		Preload("Author").
		Preload("Tags").
		Order("articles.updated_at DESC, articles.id DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	if err := s.annotate(ctx, list, f.ViewerID); err != nil {
		return nil, err
	}
	return list, nil
}

// Get loads an article with its author, tags and comments (newest first)
func (s *Service) Get(ctx context.Context, id uint, viewerID uint) (*models.Article, error) {
	var article models.Article
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Tags").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_at DESC, comments.id DESC")
		}).
		Preload("Comments.Author").
		First(&article, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	list := []models.Article{article}
	if err := s.annotate(ctx, list, viewerID); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// ByIDs loads the given articles keyed by id; missing ids are absent
func (s *Service) ByIDs(ctx context.Context, ids []uint, viewerID uint) (map[uint]models.Article, error) {
	byID := make(map[uint]models.Article, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}
	var list []models.Article
	if err := s.db.WithContext(ctx).Preload("Author").Preload("Tags").Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	if err := s.annotate(ctx, list, viewerID); err != nil {
		return nil, err
	}
	for _, a := range list {
		byID[a.ID] = a
	}
	return byID, nil
}

// Exists reports whether an article with id exists
func (s *Service) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Article{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// annotate fills LikeCount, and Liked when viewerID is set
func (s *Service) annotate(ctx context.Context, list []models.Article, viewerID uint) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]uint, len(list))
	for i, a := range list {
		ids[i] = a.ID
	}

	type likeCount struct {
		ArticleID uint
		Total     int64
	}
	var counts []likeCount
	err := s.db.WithContext(ctx).Model(&models.LikeArticle{}).
		Select("article_id, COUNT(*) AS total").
		Where("article_id IN ?", ids).
		Group("article_id").
		Scan(&counts).Error
	if err != nil {
		return err
	}
	byID := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byID[c.ArticleID] = c.Total
	}

	liked := map[uint]bool{}
	if viewerID != 0 {
		var likedIDs []uint
		err := s.db.WithContext(ctx).Model(&models.LikeArticle{}).
			Where("user_id = ? AND article_id IN ?", viewerID, ids).
			Pluck("article_id", &likedIDs).Error
		if err != nil {
			return err
		}
		for _, id := range likedIDs {
			liked[id] = true
		}
	}

	for i := range list {
		list[i].LikeCount = byID[list[i].ID]
		list[i].Liked = liked[list[i].ID]
	}
	return nil
}

// Create stores a new article authored by authorID
func (s *Service) Create(ctx context.Context, authorID uint, in Input) (*models.Article, error) {
	article := models.Article{
		Title:    strings.TrimSpace(in.Title),
		Content:  in.Content,
		AuthorID: authorID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&article).Error; err != nil {
			return err
		}
		tags, err := GetOrCreateTags(tx, in.Tags)
		if err != nil {
			return err
		}
		article.Tags = tags
		if len(tags) == 0 {
			return nil
		}
		return tx.Model(&article).Association("Tags").Replace(tags)
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.events, events.New(events.ArticleCreated, article.ID, authorID))
	return s.Get(ctx, article.ID, authorID)
}

// Update replaces the article's writable fields and tags
func (s *Service) Update(ctx context.Context, article *models.Article, in Input, actorID uint) (*models.Article, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(article).Omit(clause.Associations).Updates(map[string]interface{}{
			"title":   strings.TrimSpace(in.Title),
			"content": in.Content,
		}).Error; err != nil {
			return err
		}
		return replaceTags(tx, article, in.Tags)
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.events, events.New(events.ArticleUpdated, article.ID, actorID))
	return s.Get(ctx, article.ID, actorID)
}

// Delete removes the article with its comments, likes and tag links
func (s *Service) Delete(ctx context.Context, article *models.Article, actorID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("article_id = ?", article.ID).Delete(&models.LikeArticle{}).Error; err != nil {
			return err
		}
		if err := tx.Where("article_id = ?", article.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Model(article).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(article).Error
	})
	if err != nil {
		return err
	}

	if s.ranking != nil {
		if err := s.ranking.Remove(ctx, article.ID); err != nil {
			log.Printf("Failed to remove article %d from like ranking: %v", article.ID, err)
		}
	}

	events.Emit(ctx, s.events, events.New(events.ArticleDeleted, article.ID, actorID))
	return nil
}

func replaceTags(tx *gorm.DB, article *models.Article, names []string) error {
	tags, err := GetOrCreateTags(tx, names)
	if err != nil {
		return err
	}
	if len(tags) == 0 {
		article.Tags = nil
		return tx.Model(article).Association("Tags").Clear()
	}
	article.Tags = tags
	return tx.Model(article).Association("Tags").Replace(tags)
}

// ReplaceTags sets the article's tags by name
func (s *Service) ReplaceTags(ctx context.Context, article *models.Article, names []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceTags(tx, article, names)
	})
}

// CanChange reports whether the user may edit the article
func (s *Service) CanChange(userID uint, article *models.Article) (bool, error) {
	return auth.OwnerOrPermission(s.db, userID, article.AuthorID, models.PermChangeArticle)
}

// CanDelete reports whether the user may delete the article
func (s *Service) CanDelete(userID uint, article *models.Article) (bool, error) {
	return auth.OwnerOrPermission(s.db, userID, article.AuthorID, models.PermDeleteArticle)
}
