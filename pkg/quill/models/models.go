package models

import "gorm.io/gorm"

// AllModels returns all models for migration
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Group{},
		&GroupMembership{},
		&UserPermission{},
		&GroupPermission{},
		&Tag{},
		&Article{},
		&Comment{},
		&LikeArticle{},
		&APIKey{},
		&SchemaMigration{},
	}
}

// AutoMigrate runs GORM auto-migration for all models and then the
// recorded data migrations that have not been applied yet
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return err
	}
	return ApplyDataMigrations(db)
}
