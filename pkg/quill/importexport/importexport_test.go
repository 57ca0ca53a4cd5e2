package importexport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/quill/pkg/quill/articles"
	"github.com/mikepea/quill/pkg/quill/auth"
	"github.com/mikepea/quill/pkg/quill/events"
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

func createTestUser(t *testing.T, db *gorm.DB, username string, perms ...string) models.User {
	hash, _ := auth.HashPassword("password123")
	user := models.User{
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: hash,
		Name:         "Test User",
		Active:       true,
		SystemRole:   models.SystemRoleUser,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	for _, p := range perms {
		auth.GrantPermission(db, user.ID, p)
	}
	return user
}

func setupTestRouter(db *gorm.DB, publisher events.Publisher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db, articles.NewService(db, publisher))

	api := r.Group("/api")
	api.Use(auth.AuthMiddleware())
	handler.RegisterRoutes(api)

	return r
}

func getAuthHeader(user models.User) string {
	token, _ := auth.GenerateToken(user.ID, user.Email, string(user.SystemRole))
	return "Bearer " + token
}

func postImport(router *gin.Engine, user models.User, req ImportRequest) *httptest.ResponseRecorder {
	jsonBody, _ := json.Marshal(req)
	httpReq, _ := http.NewRequest("POST", "/api/import", bytes.NewBuffer(jsonBody))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httpReq)
	return resp
}

func TestImportArticles(t *testing.T) {
	db := setupTestDB(t)
	recorder := &events.Recorder{}
	router := setupTestRouter(db, recorder)
	user := createTestUser(t, db, "writer", models.PermAddArticle)

	resp := postImport(router, user, ImportRequest{
		Articles: []ExportedArticle{
			{Title: "First", Content: "One", Tags: "go web", Time: "2024-01-15T10:30:00Z"},
			{Title: "Second", Content: "Two"},
		},
	})

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var result ImportResult
	json.Unmarshal(resp.Body.Bytes(), &result)

	if result.Imported != 2 || result.Skipped != 0 {
		t.Errorf("Expected 2 imported, got %+v", result)
	}

	var first models.Article
	db.Preload("Tags").Where("title = ?", "First").First(&first)
	if first.AuthorID != user.ID {
		t.Errorf("Expected import to be authored by caller")
	}
	if len(first.Tags) != 2 {
		t.Errorf("Expected 2 tags, got %d", len(first.Tags))
	}
	if !first.CreatedAt.Equal(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)) {
		t.Errorf("Expected original time to be kept, got %v", first.CreatedAt)
	}
	if got := len(recorder.Types()); got != 2 {
		t.Errorf("Expected 2 created events, got %d", got)
	}
}

func TestImportSkipsInvalidAndDuplicates(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, nil)
	user := createTestUser(t, db, "writer", models.PermAddArticle)
	db.Create(&models.Article{Title: "Existing", Content: "Body", AuthorID: user.ID})

	resp := postImport(router, user, ImportRequest{
		Articles: []ExportedArticle{
			{Title: "", Content: "No title"},
			{Title: strings.Repeat("x", 201), Content: "Long"},
			{Title: "Bad time", Content: "Body", Time: "yesterday"},
			{Title: "Existing", Content: "Again"},
			{Title: "Fresh", Content: "New"},
		},
	})

	var result ImportResult
	json.Unmarshal(resp.Body.Bytes(), &result)

	if result.Imported != 1 || result.Skipped != 4 {
		t.Errorf("Expected 1 imported and 4 skipped, got %+v", result)
	}
	if len(result.Errors) != 3 {
		t.Errorf("Expected 3 errors, got %v", result.Errors)
	}
}

func TestImportRequiresPermission(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, nil)
	user := createTestUser(t, db, "reader")

	resp := postImport(router, user, ImportRequest{Articles: []ExportedArticle{{Title: "T", Content: "C"}}})
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", resp.Code)
	}
}

func TestExportArticles(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, nil)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	tag := models.Tag{Name: "golang"}
	db.Create(&tag)
	article := models.Article{Title: "Alice's", Content: "A", AuthorID: alice.ID}
	db.Create(&article)
	db.Model(&article).Association("Tags").Append(&tag)
	db.Create(&models.Article{Title: "Bob's", Content: "B", AuthorID: bob.ID})

	req, _ := http.NewRequest("GET", "/api/export?download=true", nil)
	req.Header.Set("Authorization", getAuthHeader(alice))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Header().Get("Content-Disposition"), "quill-export.json") {
		t.Error("Expected attachment header")
	}

	var exported []ExportedArticle
	json.Unmarshal(resp.Body.Bytes(), &exported)
	if len(exported) != 2 {
		t.Errorf("Expected 2 articles, got %d", len(exported))
	}

	req, _ = http.NewRequest("GET", "/api/export?author_id=1", nil)
	req.Header.Set("Authorization", getAuthHeader(alice))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	json.Unmarshal(resp.Body.Bytes(), &exported)
	if len(exported) != 1 || exported[0].Tags != "golang" || exported[0].Author != "alice" {
		t.Errorf("Unexpected export %+v", exported)
	}
}

func TestExportRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, nil)
	source := createTestUser(t, db, "source")
	target := createTestUser(t, db, "target", models.PermAddArticle)

	article := models.Article{Title: "Travelling", Content: "Body", AuthorID: source.ID}
	db.Create(&article)

	req, _ := http.NewRequest("GET", "/api/export/1", nil)
	req.Header.Set("Authorization", getAuthHeader(source))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var single ExportedArticle
	json.Unmarshal(resp.Body.Bytes(), &single)

	resp = postImport(router, target, ImportRequest{Articles: []ExportedArticle{single}})
	var result ImportResult
	json.Unmarshal(resp.Body.Bytes(), &result)
	if result.Imported != 1 {
		t.Errorf("Expected exported article to import, got %+v", result)
	}
}
