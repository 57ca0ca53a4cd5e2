package models

import (
	"time"
)

// Tag represents a tag that can be applied to articles
type Tag struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"size:50;uniqueIndex;not null" json:"name"`

	// Relationships
	Articles []Article `gorm:"many2many:article_tags;" json:"articles,omitempty"`
}
