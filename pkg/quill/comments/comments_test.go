package comments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mikepea/quill/pkg/quill/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

func TestCreateAndList(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := models.User{Email: "c@example.com", Username: "commenter", Name: "C", Active: true}
	db.Create(&user)
	article := models.Article{Title: "T", Content: "x", AuthorID: user.ID}
	db.Create(&article)

	first, err := svc.Create(ctx, article.ID, user.ID, " first ")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if first.Text != "first" || first.Author.Username != "commenter" {
		t.Errorf("Unexpected comment %+v", first)
	}
	db.Model(first).UpdateColumn("created_at", time.Now().Add(-time.Hour))

	if _, err := svc.Create(ctx, article.ID, user.ID, "second"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	list, err := svc.ListByArticle(ctx, article.ID)
	if err != nil {
		t.Fatalf("ListByArticle failed: %v", err)
	}
	if len(list) != 2 || list[0].Text != "second" {
		t.Errorf("Expected newest first, got %+v", list)
	}
}

func TestCreateOnMissingArticle(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	if _, err := svc.Create(context.Background(), 42, 1, "hi"); !errors.Is(err, ErrArticleNotFound) {
		t.Errorf("Expected ErrArticleNotFound, got %v", err)
	}
	if _, err := svc.ListByArticle(context.Background(), 42); !errors.Is(err, ErrArticleNotFound) {
		t.Errorf("Expected ErrArticleNotFound, got %v", err)
	}
}

func TestCanDelete(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	author := models.User{Email: "a@example.com", Username: "author", Name: "A", Active: true}
	moderator := models.User{Email: "m@example.com", Username: "moderator", Name: "M", Active: true}
	stranger := models.User{Email: "s@example.com", Username: "stranger", Name: "S", Active: true}
	db.Create(&author)
	db.Create(&moderator)
	db.Create(&stranger)
	db.Create(&models.UserPermission{UserID: moderator.ID, Codename: models.PermDeleteComment})

	comment := models.Comment{ArticleID: 1, AuthorID: author.ID, Text: "x"}

	for _, tc := range []struct {
		userID uint
		want   bool
	}{{author.ID, true}, {moderator.ID, true}, {stranger.ID, false}, {0, false}} {
		got, err := svc.CanDelete(tc.userID, &comment)
		if err != nil {
			t.Fatalf("CanDelete failed: %v", err)
		}
		if got != tc.want {
			t.Errorf("CanDelete(%d) = %v, want %v", tc.userID, got, tc.want)
		}
	}
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := models.User{Email: "c@example.com", Username: "commenter", Name: "C", Active: true}
	db.Create(&user)
	article := models.Article{Title: "T", Content: "x", AuthorID: user.ID}
	db.Create(&article)
	comment, _ := svc.Create(ctx, article.ID, user.ID, "bye")

	if err := svc.Delete(ctx, comment); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := svc.Get(ctx, comment.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}
