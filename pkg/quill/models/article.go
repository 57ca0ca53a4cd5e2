package models

import (
	"time"
)

// Article is the primary content entity of the site
type Article struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Content   string    `gorm:"size:3000;not null" json:"content"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`

	// Computed per request, never stored
	Liked     bool  `gorm:"-" json:"liked"`
	LikeCount int64 `gorm:"-" json:"like_count"`

	// Relationships
	Author   User          `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Tags     []Tag         `gorm:"many2many:article_tags;" json:"tags,omitempty"`
	Comments []Comment     `gorm:"foreignKey:ArticleID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
	Likes    []LikeArticle `gorm:"foreignKey:ArticleID;constraint:OnDelete:CASCADE" json:"-"`
}

// TagNames returns the article's tag names in stored order
func (a Article) TagNames() []string {
	names := make([]string, len(a.Tags))
	for i, t := range a.Tags {
		names[i] = t.Name
	}
	return names
}
