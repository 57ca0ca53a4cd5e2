package auth

import (
	"errors"
	"log"

	"github.com/mikepea/quill/pkg/quill/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnsureDefaultGroup returns the default group, creating it with its
// permissions when it does not exist yet
func EnsureDefaultGroup(db *gorm.DB) (*models.Group, error) {
	var group models.Group
	err := db.Where("name = ?", models.DefaultGroupName).First(&group).Error
	if err == nil {
		return &group, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	group = models.Group{
		Name:        models.DefaultGroupName,
		Description: "Registered users who may write articles and comments",
	}
	if err := db.Create(&group).Error; err != nil {
		return nil, err
	}
	for _, perm := range models.DefaultGroupPermissions {
		if err := db.Create(&models.GroupPermission{GroupID: group.ID, Codename: perm}).Error; err != nil {
			return nil, err
		}
	}
	return &group, nil
}

// JoinDefaultGroup adds a user to the default group
func JoinDefaultGroup(db *gorm.DB, userID uint) error {
	group, err := EnsureDefaultGroup(db)
	if err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.GroupMembership{UserID: userID, GroupID: group.ID}).Error
}

// CreateSuperuser creates an active admin account
func CreateSuperuser(db *gorm.DB, email, username, name, password string) (*models.User, error) {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:        email,
		Username:     username,
		Name:         name,
		PasswordHash: hashedPassword,
		Active:       true,
		SystemRole:   models.SystemRoleAdmin,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureAdminExists creates a default admin user if no admin exists in the database
func EnsureAdminExists(db *gorm.DB, email, password string) error {
	var count int64
	if err := db.Model(&models.User{}).Where("system_role = ?", models.SystemRoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if _, err := CreateSuperuser(db, email, "admin", "Admin", password); err != nil {
		return err
	}

	log.Printf("Created default admin user: %s", email)
	return nil
}
