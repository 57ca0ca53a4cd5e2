package auth

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mikepea/quill/pkg/quill/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrUnknownPermission is returned when granting a permission outside the catalog
var ErrUnknownPermission = errors.New("unknown permission")

// HasPermission reports whether the user holds perm. Superusers hold every
// permission; others hold it directly or through any of their groups.
// Inactive and missing users hold nothing.
func HasPermission(db *gorm.DB, userID uint, perm string) (bool, error) {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return UserHasPermission(db, &user, perm)
}

// OwnerOrPermission reports whether the user owns an object or holds perm.
// Inactive and missing users are refused even for their own objects.
func OwnerOrPermission(db *gorm.DB, userID, ownerID uint, perm string) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if !user.Active {
		return false, nil
	}
	if ownerID == userID {
		return true, nil
	}
	return UserHasPermission(db, &user, perm)
}

// UserHasPermission is HasPermission for an already loaded user
func UserHasPermission(db *gorm.DB, user *models.User, perm string) (bool, error) {
	if user == nil || !user.Active {
		return false, nil
	}
	if user.IsSuperuser() {
		return true, nil
	}

	var count int64
	if err := db.Model(&models.UserPermission{}).
		Where("user_id = ? AND codename = ?", user.ID, perm).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	err := db.Model(&models.GroupPermission{}).
		Joins("JOIN group_memberships ON group_memberships.group_id = group_permissions.group_id").
		Where("group_memberships.user_id = ? AND group_permissions.codename = ?", user.ID, perm).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UserPermissions returns the sorted set of permissions the user holds
func UserPermissions(db *gorm.DB, userID uint) ([]string, error) {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return nil, err
	}
	if !user.Active {
		return []string{}, nil
	}
	if user.IsSuperuser() {
		perms := append([]string(nil), models.AllPermissions...)
		sort.Strings(perms)
		return perms, nil
	}

	var direct []string
	if err := db.Model(&models.UserPermission{}).
		Where("user_id = ?", userID).
		Pluck("codename", &direct).Error; err != nil {
		return nil, err
	}

	var inherited []string
	if err := db.Model(&models.GroupPermission{}).
		Joins("JOIN group_memberships ON group_memberships.group_id = group_permissions.group_id").
		Where("group_memberships.user_id = ?", userID).
		Pluck("group_permissions.codename", &inherited).Error; err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	perms := []string{}
	for _, p := range append(direct, inherited...) {
		if !seen[p] {
			seen[p] = true
			perms = append(perms, p)
		}
	}
	sort.Strings(perms)
	return perms, nil
}

// GrantPermission grants perm directly to a user. Granting twice is a no-op.
func GrantPermission(db *gorm.DB, userID uint, perm string) error {
	if !models.IsKnownPermission(perm) {
		return fmt.Errorf("%w: %s", ErrUnknownPermission, perm)
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserPermission{UserID: userID, Codename: perm}).Error
}

// SetUserPermissions replaces the user's direct permissions
func SetUserPermissions(db *gorm.DB, userID uint, perms []string) error {
	for _, p := range perms {
		if !models.IsKnownPermission(p) {
			return fmt.Errorf("%w: %s", ErrUnknownPermission, p)
		}
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserPermission{}).Error; err != nil {
			return err
		}
		for _, p := range perms {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.UserPermission{UserID: userID, Codename: p}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SetGroupPermissions replaces the permissions carried by a group
func SetGroupPermissions(db *gorm.DB, groupID uint, perms []string) error {
	for _, p := range perms {
		if !models.IsKnownPermission(p) {
			return fmt.Errorf("%w: %s", ErrUnknownPermission, p)
		}
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupPermission{}).Error; err != nil {
			return err
		}
		for _, p := range perms {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.GroupPermission{GroupID: groupID, Codename: p}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
