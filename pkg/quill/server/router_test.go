package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/quill/pkg/quill/auth"
	"github.com/mikepea/quill/pkg/quill/events"
	"github.com/mikepea/quill/pkg/quill/likes"
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
	if _, err := auth.EnsureDefaultGroup(db); err != nil {
		t.Fatalf("Failed to create default group: %v", err)
	}
	return db
}

func setupTestServer(t *testing.T, db *gorm.DB, recorder *events.Recorder) http.Handler {
	gin.SetMode(gin.TestMode)
	engine, err := New(db, Options{Publisher: recorder, Quiet: true})
	if err != nil {
		t.Fatalf("Failed to build router: %v", err)
	}
	return Handler(engine)
}

func createTestUser(t *testing.T, db *gorm.DB, username string, role models.SystemRole) models.User {
	hash, _ := auth.HashPassword("password123")
	user := models.User{
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: hash,
		Name:         "Test User",
		Active:       true,
		SystemRole:   role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func token(user models.User) string {
	t, _ := auth.GenerateToken(user.ID, user.Email, string(user.SystemRole))
	return t
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestHealth(t *testing.T) {
	h := setupTestServer(t, setupTestDB(t), nil)

	for _, path := range []string{"/health", "/api/health"} {
		req, _ := http.NewRequest("GET", path, nil)
		resp := serve(h, req)
		if resp.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", path, resp.Code)
		}
	}
}

func TestSecureHeaders(t *testing.T) {
	h := setupTestServer(t, setupTestDB(t), nil)

	req, _ := http.NewRequest("GET", "/", nil)
	resp := serve(h, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	if resp.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("Expected nosniff header, got %q", resp.Header().Get("X-Content-Type-Options"))
	}
}

func TestCORSOnlyOnAPI(t *testing.T) {
	h := setupTestServer(t, setupTestDB(t), nil)

	req, _ := http.NewRequest("OPTIONS", "/api/v2/articles/", nil)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp := serve(h, req)
	if resp.Code != http.StatusNoContent {
		t.Errorf("Expected preflight status 204, got %d", resp.Code)
	}
	if resp.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Expected allow-origin *, got %q", resp.Header().Get("Access-Control-Allow-Origin"))
	}

	req, _ = http.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://example.org")
	resp = serve(h, req)
	if resp.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("Expected no CORS headers on HTML pages")
	}
}

func TestSwaggerDocs(t *testing.T) {
	h := setupTestServer(t, setupTestDB(t), nil)

	req, _ := http.NewRequest("GET", "/swagger/doc.json", nil)
	resp := serve(h, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "/api/v2/articles/") {
		t.Error("Expected the API paths in the swagger document")
	}
}

func TestRegisterThenCreateThroughAPI(t *testing.T) {
	db := setupTestDB(t)
	recorder := &events.Recorder{}
	h := setupTestServer(t, db, recorder)

	body, _ := json.Marshal(map[string]string{
		"email":    "new@example.com",
		"username": "newbie",
		"password": "password123",
		"name":     "New User",
	})
	req, _ := http.NewRequest("POST", "/api/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := serve(h, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var registered auth.AuthResponse
	json.Unmarshal(resp.Body.Bytes(), &registered)

	body, _ = json.Marshal(map[string]interface{}{"title": "First", "content": "Hello", "tags": []string{"intro"}})
	req, _ = http.NewRequest("POST", "/api/v2/articles/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+registered.Token)
	resp = serve(h, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	req, _ = http.NewRequest("GET", "/api/tags", nil)
	req.Header.Set("Authorization", "Bearer "+registered.Token)
	resp = serve(h, req)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "intro") {
		t.Errorf("Expected tag listing to contain intro, got %d: %s", resp.Code, resp.Body.String())
	}

	if types := recorder.Types(); len(types) != 1 || types[0] != events.ArticleCreated {
		t.Errorf("Expected one article.created event, got %v", types)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	db := setupTestDB(t)
	h := setupTestServer(t, db, nil)
	user := createTestUser(t, db, "plain", models.SystemRoleUser)
	admin := createTestUser(t, db, "boss", models.SystemRoleAdmin)

	tests := []struct {
		name   string
		path   string
		user   *models.User
		status int
	}{
		{"stats anonymous", "/api/admin/stats", nil, http.StatusUnauthorized},
		{"stats user", "/api/admin/stats", &user, http.StatusForbidden},
		{"stats admin", "/api/admin/stats", &admin, http.StatusOK},
		{"groups user", "/api/groups", &user, http.StatusForbidden},
		{"groups admin", "/api/groups", &admin, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", tt.path, nil)
			if tt.user != nil {
				req.Header.Set("Authorization", "Bearer "+token(*tt.user))
			}
			resp := serve(h, req)
			if resp.Code != tt.status {
				t.Errorf("Expected status %d, got %d: %s", tt.status, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestLikeAndUnlikeFromForms(t *testing.T) {
	db := setupTestDB(t)
	recorder := &events.Recorder{}
	h := setupTestServer(t, db, recorder)
	user := createTestUser(t, db, "reader", models.SystemRoleUser)
	article := models.Article{AuthorID: user.ID, Title: "Liked", Content: "Body"}
	db.Create(&article)
	cookie := &http.Cookie{Name: auth.SessionCookieName, Value: token(user)}

	post := func(path string, form url.Values) *httptest.ResponseRecorder {
		req, _ := http.NewRequest("POST", path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(cookie)
		return serve(h, req)
	}

	path := fmt.Sprintf("/articles/%d/", article.ID)
	resp := post(path+"like/", url.Values{})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected like status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body likes.Response
	json.Unmarshal(resp.Body.Bytes(), &body)
	if body.Count != 1 || body.Action != "like" || body.PK != article.ID {
		t.Errorf("Unexpected like response: %+v", body)
	}

	resp = post(path+"unlike/", url.Values{"_method": {"DELETE"}})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected unlike status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	json.Unmarshal(resp.Body.Bytes(), &body)
	if body.Count != 0 || body.Action != "unlike" {
		t.Errorf("Unexpected unlike response: %+v", body)
	}

	resp = post(path+"unlike/", url.Values{"_method": {"DELETE"}})
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected second unlike to be 403, got %d", resp.Code)
	}

	types := recorder.Types()
	if len(types) != 2 || types[0] != events.ArticleLiked || types[1] != events.ArticleUnliked {
		t.Errorf("Expected liked and unliked events, got %v", types)
	}
}

func TestRankingOption(t *testing.T) {
	db := setupTestDB(t)
	gin.SetMode(gin.TestMode)
	ranking := &countingRanking{Ranking: likes.NewDBRanking(db)}
	engine, err := New(db, Options{Ranking: ranking, Quiet: true})
	if err != nil {
		t.Fatalf("Failed to build router: %v", err)
	}

	req, _ := http.NewRequest("GET", "/api/v2/articles/top/", nil)
	resp := serve(engine, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	if ranking.tops != 1 {
		t.Errorf("Expected the configured ranking to be used, got %d calls", ranking.tops)
	}
}

type countingRanking struct {
	likes.Ranking
	tops int
}

func (r *countingRanking) Top(ctx context.Context, n int) ([]likes.RankEntry, error) {
	r.tops++
	return r.Ranking.Top(ctx, n)
}
