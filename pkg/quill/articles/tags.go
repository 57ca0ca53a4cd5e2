package articles

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mikepea/quill/pkg/quill/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxTagLength is the longest tag name stored
const MaxTagLength = 50

// ParseTags splits a comma or whitespace separated tag string.
// Duplicates are dropped and order is kept.
func ParseTags(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	return NormalizeTags(fields)
}

// NormalizeTags trims names, drops empties and duplicates, and truncates
// names longer than MaxTagLength
func NormalizeTags(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if utf8.RuneCountInString(name) > MaxTagLength {
			name = string([]rune(name)[:MaxTagLength])
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// FormatTags joins tag names for a form field
func FormatTags(names []string) string {
	return strings.Join(names, ", ")
}

// GetOrCreateTags returns the tags with the given names, creating missing ones
func GetOrCreateTags(tx *gorm.DB, names []string) ([]models.Tag, error) {
	names = NormalizeTags(names)
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		tag := models.Tag{Name: name}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tag).Error; err != nil {
			return nil, err
		}
		if err := tx.Where("name = ?", name).First(&tag).Error; err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
