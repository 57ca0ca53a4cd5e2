package models

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
)

const (
	// LegacyTagsTable is the join table of the historical "tags_old" relation
	LegacyTagsTable = "article_tags_old"
	// TagsTable is the join table of Article.Tags
	TagsTable = "article_tags"

	// MigrationTransferTags moves legacy tag links into TagsTable
	MigrationTransferTags = "0008_transfer_tags"
)

// SchemaMigration records a data migration that has run
type SchemaMigration struct {
	Name      string    `gorm:"primarykey;size:100"`
	AppliedAt time.Time `gorm:"not null"`
}

// DataMigration is a forward/backward pair run once, in order
type DataMigration struct {
	Name     string
	Forward  func(tx *gorm.DB) error
	Backward func(tx *gorm.DB) error
}

// DataMigrations lists the data migrations in application order
func DataMigrations() []DataMigration {
	return []DataMigration{
		{Name: MigrationTransferTags, Forward: TransferLegacyTags, Backward: RollbackLegacyTags},
	}
}

// ApplyDataMigrations runs every data migration that is not yet recorded
func ApplyDataMigrations(db *gorm.DB) error {
	for _, m := range DataMigrations() {
		var existing SchemaMigration
		err := db.Where("name = ?", m.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check migration %s: %w", m.Name, err)
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := m.Forward(tx); err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{Name: m.Name, AppliedAt: time.Now()}).Error
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
		log.Printf("Applied data migration %s", m.Name)
	}
	return nil
}

// RevertDataMigration runs the backward step of a recorded migration and
// forgets it, so the next ApplyDataMigrations runs it again
func RevertDataMigration(db *gorm.DB, name string) error {
	for _, m := range DataMigrations() {
		if m.Name != name {
			continue
		}
		return db.Transaction(func(tx *gorm.DB) error {
			if err := m.Backward(tx); err != nil {
				return err
			}
			return tx.Where("name = ?", name).Delete(&SchemaMigration{}).Error
		})
	}
	return fmt.Errorf("unknown migration %q", name)
}

// TransferLegacyTags sets every article's tags to its legacy tags.
// Databases created without the legacy table are left untouched.
func TransferLegacyTags(tx *gorm.DB) error {
	if !tx.Migrator().HasTable(LegacyTagsTable) {
		return nil
	}
	return copyTagLinks(tx, LegacyTagsTable, TagsTable)
}

// RollbackLegacyTags sets every article's legacy tags to its current tags
func RollbackLegacyTags(tx *gorm.DB) error {
	if !tx.Migrator().HasTable(LegacyTagsTable) {
		return nil
	}
	return copyTagLinks(tx, TagsTable, LegacyTagsTable)
}

func copyTagLinks(tx *gorm.DB, from, to string) error {
	if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE article_id IN (SELECT id FROM articles)", to)).Error; err != nil {
		return fmt.Errorf("clear %s: %w", to, err)
	}
	insert := fmt.Sprintf(
		"INSERT INTO %s (article_id, tag_id) SELECT DISTINCT article_id, tag_id FROM %s WHERE article_id IN (SELECT id FROM articles)",
		to, from)
	if err := tx.Exec(insert).Error; err != nil {
		return fmt.Errorf("copy %s into %s: %w", from, to, err)
	}
	return nil
}
