package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
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

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db)
	auth := r.Group("/auth")
	handler.RegisterRoutes(auth)
	return r
}

func createUser(t *testing.T, db *gorm.DB, username string, role models.SystemRole) models.User {
	hash, _ := HashPassword("password123")
	user := models.User{
		Email:        username + "@example.com",
		Username:     username,
		Name:         username,
		PasswordHash: hash,
		Active:       true,
		SystemRole:   role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

func doJSON(router *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	jsonBody, _ := json.Marshal(body)
	req, _ := http.NewRequest(method, path, bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestPasswordHashing(t *testing.T) {
	password := "testpassword123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if hash == password {
		t.Error("Hash should not equal plain password")
	}

	if !CheckPassword(password, hash) {
		t.Error("CheckPassword should return true for correct password")
	}

	if CheckPassword("wrongpassword", hash) {
		t.Error("CheckPassword should return false for incorrect password")
	}
}

func TestJWTToken(t *testing.T) {
	token, err := GenerateToken(1, "test@example.com", "user")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}

	if claims.UserID != 1 {
		t.Errorf("Expected UserID 1, got %d", claims.UserID)
	}
	if claims.Email != "test@example.com" {
		t.Errorf("Expected email test@example.com, got %s", claims.Email)
	}
	if claims.SystemRole != "user" {
		t.Errorf("Expected role user, got %s", claims.SystemRole)
	}
}

func TestInvalidToken(t *testing.T) {
	_, err := ValidateToken("invalid-token")
	if err == nil {
		t.Error("Expected error for invalid token")
	}
}

func TestConfigureSecret(t *testing.T) {
	token, _ := GenerateToken(1, "test@example.com", "user")

	Configure("another-secret", time.Hour)
	defer Configure(defaultJWTSecret, 24*time.Hour)

	if _, err := ValidateToken(token); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken after secret change, got %v", err)
	}
	if TokenDuration() != time.Hour {
		t.Errorf("Expected token duration 1h, got %v", TokenDuration())
	}
}

func TestRegister(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	resp := doJSON(router, "POST", "/auth/register", RegisterRequest{
		Email:    "test@example.com",
		Username: "tester",
		Password: "password123",
		Name:     "Test User",
	}, "")

	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var response AuthResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if response.Token == "" {
		t.Error("Expected token in response")
	}
	if response.User.Username != "tester" {
		t.Errorf("Expected username tester, got %s", response.User.Username)
	}
}

func TestRegisterJoinsDefaultGroup(t *testing.T) {
	db := setupTestDB(t)

	user, err := RegisterUser(db, RegisterRequest{
		Email:    "writer@example.com",
		Username: "writer",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}

	for _, perm := range []string{models.PermAddArticle, models.PermAddComment} {
		ok, err := HasPermission(db, user.ID, perm)
		if err != nil {
			t.Fatalf("HasPermission failed: %v", err)
		}
		if !ok {
			t.Errorf("Expected registered user to hold %s", perm)
		}
	}

	ok, _ := HasPermission(db, user.ID, models.PermChangeArticle)
	if ok {
		t.Error("Registered user should not hold change_article")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	body := RegisterRequest{
		Email:    "test@example.com",
		Username: "tester",
		Password: "password123",
	}
	doJSON(router, "POST", "/auth/register", body, "")

	body.Username = "tester2"
	resp := doJSON(router, "POST", "/auth/register", body, "")
	if resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", resp.Code)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	body := RegisterRequest{
		Email:    "test@example.com",
		Username: "tester",
		Password: "password123",
	}
	doJSON(router, "POST", "/auth/register", body, "")

	body.Email = "other@example.com"
	resp := doJSON(router, "POST", "/auth/register", body, "")
	if resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", resp.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	resp := doJSON(router, "POST", "/auth/register", gin.H{"email": "not-an-email", "username": "x"}, "")
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.Code)
	}
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	createUser(t, db, "tester", models.SystemRoleUser)

	resp := doJSON(router, "POST", "/auth/login", LoginRequest{
		Email:    "tester@example.com",
		Password: "password123",
	}, "")

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var response AuthResponse
	json.Unmarshal(resp.Body.Bytes(), &response)
	if response.Token == "" {
		t.Error("Expected token in response")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	createUser(t, db, "tester", models.SystemRoleUser)

	resp := doJSON(router, "POST", "/auth/login", LoginRequest{
		Email:    "tester@example.com",
		Password: "wrongpassword",
	}, "")

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, "tester", models.SystemRoleUser)
	db.Model(&user).Update("active", false)

	if _, err := Authenticate(db, "tester@example.com", "password123"); err != ErrInvalidCredentials {
		t.Errorf("Expected ErrInvalidCredentials for inactive user, got %v", err)
	}
}

func TestMe(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createUser(t, db, "tester", models.SystemRoleUser)
	GrantPermission(db, user.ID, models.PermChangeArticle)

	token, _ := GenerateToken(user.ID, user.Email, string(user.SystemRole))
	resp := doJSON(router, "GET", "/auth/me", nil, token)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var response UserResponse
	json.Unmarshal(resp.Body.Bytes(), &response)
	if response.Email != "tester@example.com" {
		t.Errorf("Expected email tester@example.com, got %s", response.Email)
	}
	if len(response.Permissions) != 1 || response.Permissions[0] != models.PermChangeArticle {
		t.Errorf("Expected [%s], got %v", models.PermChangeArticle, response.Permissions)
	}
}

func TestMeUnauthorized(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	resp := doJSON(router, "GET", "/auth/me", nil, "")
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	resp := doJSON(router, "POST", "/auth/logout", nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	cookies := resp.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionCookieName || cookies[0].MaxAge >= 0 {
		t.Errorf("Expected expired session cookie, got %v", cookies)
	}
}

func TestOptionalAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(OptionalAuth())
	r.GET("/whoami", func(c *gin.Context) {
		userID, ok := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok, "user_id": userID})
	})

	token, _ := GenerateToken(7, "u@example.com", "user")

	tests := []struct {
		name   string
		header string
		cookie string
		want   bool
	}{
		{"anonymous", "", "", false},
		{"bearer", "Bearer " + token, "", true},
		{"cookie", "", token, true},
		{"bad token", "Bearer nope", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, req)

			if resp.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", resp.Code)
			}
			var body struct {
				Authenticated bool `json:"authenticated"`
			}
			json.Unmarshal(resp.Body.Bytes(), &body)
			if body.Authenticated != tt.want {
				t.Errorf("Expected authenticated=%v, got %v", tt.want, body.Authenticated)
			}
		})
	}
}

func TestHasPermission(t *testing.T) {
	db := setupTestDB(t)

	admin := createUser(t, db, "admin", models.SystemRoleAdmin)
	direct := createUser(t, db, "direct", models.SystemRoleUser)
	grouped := createUser(t, db, "grouped", models.SystemRoleUser)
	nobody := createUser(t, db, "nobody", models.SystemRoleUser)

	if err := GrantPermission(db, direct.ID, models.PermChangeArticle); err != nil {
		t.Fatalf("GrantPermission failed: %v", err)
	}
	// Granting twice is harmless
	if err := GrantPermission(db, direct.ID, models.PermChangeArticle); err != nil {
		t.Fatalf("GrantPermission repeat failed: %v", err)
	}

	editors := models.Group{Name: "editors"}
	db.Create(&editors)
	db.Create(&models.GroupMembership{UserID: grouped.ID, GroupID: editors.ID})
	if err := SetGroupPermissions(db, editors.ID, []string{models.PermChangeArticle}); err != nil {
		t.Fatalf("SetGroupPermissions failed: %v", err)
	}

	tests := []struct {
		name   string
		userID uint
		want   bool
	}{
		{"superuser", admin.ID, true},
		{"direct grant", direct.ID, true},
		{"group grant", grouped.ID, true},
		{"no grant", nobody.ID, false},
		{"missing user", 9999, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HasPermission(db, tt.userID, models.PermChangeArticle)
			if err != nil {
				t.Fatalf("HasPermission failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestInactiveUserHasNoPermissions(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, "sleeper", models.SystemRoleAdmin)
	db.Model(&user).Update("active", false)

	ok, err := HasPermission(db, user.ID, models.PermAddArticle)
	if err != nil {
		t.Fatalf("HasPermission failed: %v", err)
	}
	if ok {
		t.Error("Inactive user should hold no permissions")
	}
}

func TestGrantUnknownPermission(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, "tester", models.SystemRoleUser)

	if err := GrantPermission(db, user.ID, "webapp.fly"); err == nil {
		t.Error("Expected error for unknown permission")
	}
}

func TestRequirePermission(t *testing.T) {
	db := setupTestDB(t)
	allowed := createUser(t, db, "allowed", models.SystemRoleUser)
	denied := createUser(t, db, "denied", models.SystemRoleUser)
	GrantPermission(db, allowed.ID, models.PermAddArticle)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/things", AuthMiddleware(), RequirePermission(db, models.PermAddArticle), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	allowedToken, _ := GenerateToken(allowed.ID, allowed.Email, "user")
	deniedToken, _ := GenerateToken(denied.ID, denied.Email, "user")

	if resp := doJSON(r, "POST", "/things", nil, allowedToken); resp.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", resp.Code)
	}
	if resp := doJSON(r, "POST", "/things", nil, deniedToken); resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", resp.Code)
	}
	if resp := doJSON(r, "POST", "/things", nil, ""); resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}

func TestEnsureAdminExists(t *testing.T) {
	db := setupTestDB(t)

	if err := EnsureAdminExists(db, "admin@quill.local", "changeme"); err != nil {
		t.Fatalf("EnsureAdminExists failed: %v", err)
	}
	if err := EnsureAdminExists(db, "admin@quill.local", "changeme"); err != nil {
		t.Fatalf("EnsureAdminExists second call failed: %v", err)
	}

	var count int64
	db.Model(&models.User{}).Where("system_role = ?", models.SystemRoleAdmin).Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 admin, got %d", count)
	}

	if _, err := Authenticate(db, "admin@quill.local", "changeme"); err != nil {
		t.Errorf("Expected default admin to authenticate, got %v", err)
	}
}
