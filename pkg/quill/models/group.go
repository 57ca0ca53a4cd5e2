package models

import (
	"time"

	"gorm.io/gorm"
)

// DefaultGroupName is the group new registrations join
const DefaultGroupName = "authors"

// Group is a named permission group; members inherit its permissions
type Group struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Name        string         `gorm:"uniqueIndex;not null" json:"name"`
	Description string         `json:"description"`

	// Relationships
	Members     []GroupMembership `gorm:"foreignKey:GroupID" json:"members,omitempty"`
	Permissions []GroupPermission `gorm:"foreignKey:GroupID" json:"permissions,omitempty"`
}

// GroupMembership represents the many-to-many relationship between users and groups
type GroupMembership struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_group" json:"user_id"`
	GroupID   uint      `gorm:"not null;uniqueIndex:idx_user_group" json:"group_id"`

	// Relationships
	User  User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Group Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}
