package models

import "time"

// Permission strings have the form "<app>.<codename>"
const (
	PermAddArticle    = "webapp.add_article"
	PermChangeArticle = "webapp.change_article"
	PermDeleteArticle = "webapp.delete_article"
	PermViewArticle   = "webapp.view_article"
	PermAddComment    = "webapp.add_comment"
	PermChangeComment = "webapp.change_comment"
	PermDeleteComment = "webapp.delete_comment"
)

// AllPermissions is the catalog of grantable permissions
var AllPermissions = []string{
	PermAddArticle,
	PermChangeArticle,
	PermDeleteArticle,
	PermViewArticle,
	PermAddComment,
	PermChangeComment,
	PermDeleteComment,
}

// DefaultGroupPermissions are granted to the default group on bootstrap
var DefaultGroupPermissions = []string{PermAddArticle, PermAddComment}

// IsKnownPermission reports whether perm is in the catalog
func IsKnownPermission(perm string) bool {
	for _, p := range AllPermissions {
		if p == perm {
			return true
		}
	}
	return false
}

// UserPermission is a permission granted directly to a user
type UserPermission struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_codename" json:"user_id"`
	Codename  string    `gorm:"not null;uniqueIndex:idx_user_codename" json:"codename"`
}

// GroupPermission is a permission granted to every member of a group
type GroupPermission struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	GroupID   uint      `gorm:"not null;uniqueIndex:idx_group_codename" json:"group_id"`
	Codename  string    `gorm:"not null;uniqueIndex:idx_group_codename" json:"codename"`
}
