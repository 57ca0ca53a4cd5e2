package models

import "time"

// LikeArticle records a user's like on an article.
// One row per (user, article); unlike removes the row.
type LikeArticle struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_like_user_article" json:"user_id"`
	ArticleID uint      `gorm:"not null;uniqueIndex:idx_like_user_article;index" json:"article_id"`

	// Relationships
	User    User    `gorm:"foreignKey:UserID" json:"-"`
	Article Article `gorm:"foreignKey:ArticleID" json:"-"`
}

// TableName keeps the table name stable regardless of naming strategy
func (LikeArticle) TableName() string {
	return "like_articles"
}
