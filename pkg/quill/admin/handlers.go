package admin

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/quill/pkg/quill/auth"
	"github.com/mikepea/quill/pkg/quill/likes"
	"github.com/mikepea/quill/pkg/quill/models"
	"gorm.io/gorm"
)

// Handler handles admin requests
type Handler struct {
	db      *gorm.DB
	ranking likes.Ranking
}

// NewHandler creates a new admin handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// WithRanking keeps the like ranking in step with user deletion
func (h *Handler) WithRanking(r likes.Ranking) *Handler {
	h.ranking = r
	return h
}

// UserResponse represents user data in admin responses
type UserResponse struct {
	ID           uint     `json:"id"`
	Email        string   `json:"email"`
	Username     string   `json:"username"`
	Name         string   `json:"name"`
	SystemRole   string   `json:"system_role"`
	Active       bool     `json:"active"`
	CreatedAt    string   `json:"created_at"`
	ArticleCount int64    `json:"article_count"`
	GroupCount   int64    `json:"group_count"`
	Permissions  []string `json:"permissions,omitempty"`
}

// UpdateUserRequest represents the request to update a user
type UpdateUserRequest struct {
	Name       *string `json:"name"`
	SystemRole *string `json:"system_role"`
	Active     *bool   `json:"active"`
}

// SetPermissionsRequest replaces a user's direct permissions
type SetPermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

// StatsResponse represents system statistics
type StatsResponse struct {
	TotalUsers    int64 `json:"total_users"`
	ActiveUsers   int64 `json:"active_users"`
	AdminUsers    int64 `json:"admin_users"`
	TotalArticles int64 `json:"total_articles"`
	TotalLikes    int64 `json:"total_likes"`
	TotalComments int64 `json:"total_comments"`
	TotalTags     int64 `json:"total_tags"`
	TotalGroups   int64 `json:"total_groups"`
	ActiveAPIKeys int64 `json:"active_api_keys"` // unrevoked keys of active users
}

func (h *Handler) toResponse(user models.User) UserResponse {
	var articleCount, groupCount int64
	h.db.Model(&models.Article{}).Where("author_id = ?", user.ID).Count(&articleCount)
	h.db.Model(&models.GroupMembership{}).Where("user_id = ?", user.ID).Count(&groupCount)

	return UserResponse{
		ID:           user.ID,
		Email:        user.Email,
		Username:     user.Username,
		Name:         user.Name,
		SystemRole:   string(user.SystemRole),
		Active:       user.Active,
		CreatedAt:    user.CreatedAt.UTC().Format(time.RFC3339),
		ArticleCount: articleCount,
		GroupCount:   groupCount,
	}
}

// loadUser resolves :id, writing an error response when it fails
func (h *Handler) loadUser(c *gin.Context) (*models.User, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return nil, false
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		}
		return nil, false
	}
	return &user, true
}

func (h *Handler) detail(c *gin.Context, user models.User) {
	resp := h.toResponse(user)
	perms, err := auth.UserPermissions(h.db, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch permissions"})
		return
	}
	resp.Permissions = perms
	c.JSON(http.StatusOK, resp)
}

// ListUsers returns all users
// @Summary List users
// @Tags admin
// @Produce json
// @Param q query string false "Search email, username or name"
// @Param role query string false "Filter by system role"
// @Success 200 {array} UserResponse
// @Security BearerAuth
// @Router /api/admin/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	var users []models.User

	query := h.db.Order("created_at DESC, id DESC")

	if search := c.Query("q"); search != "" {
		like := "%" + search + "%"
		query = query.Where("email LIKE ? OR username LIKE ? OR name LIKE ?", like, like, like)
	}

	if role := c.Query("role"); role != "" {
		query = query.Where("system_role = ?", role)
	}

	if err := query.Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	responses := make([]UserResponse, len(users))
	for i, user := range users {
		responses[i] = h.toResponse(user)
	}

	c.JSON(http.StatusOK, responses)
}

// GetUser returns a single user with their effective permissions
// @Summary Get a user
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} UserResponse
// @Security BearerAuth
// @Router /api/admin/users/{id} [get]
func (h *Handler) GetUser(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	h.detail(c, *user)
}

// UpdateUser updates a user's name, role or active flag
// @Summary Update a user
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body UpdateUserRequest true "Fields to change"
// @Success 200 {object} UserResponse
// @Security BearerAuth
// @Router /api/admin/users/{id} [put]
func (h *Handler) UpdateUser(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	currentUserID, _ := auth.GetUserID(c)
	if user.ID == currentUserID {
		if req.SystemRole != nil && *req.SystemRole != string(models.SystemRoleAdmin) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot demote yourself"})
			return
		}
		if req.Active != nil && !*req.Active {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot deactivate yourself"})
			return
		}
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.SystemRole != nil {
		if *req.SystemRole != string(models.SystemRoleAdmin) && *req.SystemRole != string(models.SystemRoleUser) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid system role"})
			return
		}
		updates["system_role"] = *req.SystemRole
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}

	if len(updates) > 0 {
		if err := h.db.Model(user).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}
	}

	h.db.First(user, user.ID)
	h.detail(c, *user)
}

// SetUserPermissions replaces the permissions granted directly to a user
// @Summary Set user permissions
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body SetPermissionsRequest true "Permissions"
// @Success 200 {object} UserResponse
// @Security BearerAuth
// @Router /api/admin/users/{id}/permissions [put]
func (h *Handler) SetUserPermissions(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}

	var req SetPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := auth.SetUserPermissions(h.db, user.ID, req.Permissions); err != nil {
		if errors.Is(err, auth.ErrUnknownPermission) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set permissions"})
		return
	}

	h.detail(c, *user)
}

// ListPermissions returns the permission catalog
// @Summary List grantable permissions
// @Tags admin
// @Produce json
// @Success 200 {array} string
// @Security BearerAuth
// @Router /api/admin/permissions [get]
func (h *Handler) ListPermissions(c *gin.Context) {
	c.JSON(http.StatusOK, models.AllPermissions)
}

// DeleteUser removes a user with their articles, likes, comments and keys
// @Summary Delete a user
// @Tags admin
// @Param id path int true "User ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /api/admin/users/{id} [delete]
func (h *Handler) DeleteUser(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}

	currentUserID, _ := auth.GetUserID(c)
	if user.ID == currentUserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete yourself"})
		return
	}

	var ownedIDs, likedIDs []uint
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Article{}).Where("author_id = ?", user.ID).Pluck("id", &ownedIDs).Error; err != nil {
			return err
		}
		err := tx.Model(&models.LikeArticle{}).
			Joins("JOIN articles ON articles.id = like_articles.article_id").
			Where("like_articles.user_id = ? AND articles.author_id <> ?", user.ID, user.ID).
			Pluck("like_articles.article_id", &likedIDs).Error
		if err != nil {
			return err
		}

		owned := tx.Model(&models.Article{}).Select("id").Where("author_id = ?", user.ID)
		if err := tx.Where("article_id IN (?)", owned).Delete(&models.LikeArticle{}).Error; err != nil {
			return err
		}
		if err := tx.Where("article_id IN (?)", owned).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM "+models.TagsTable+" WHERE article_id IN (?)", owned).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", user.ID).Delete(&models.Article{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.LikeArticle{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", user.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.APIKey{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.GroupMembership{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.UserPermission{}).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	h.unrank(c, ownedIDs, likedIDs)
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// unrank drops deleted articles from the ranking and takes back the
// deleted user's likes on everyone else's
func (h *Handler) unrank(c *gin.Context, ownedIDs, likedIDs []uint) {
	if h.ranking == nil {
		return
	}
	ctx := c.Request.Context()
	for _, id := range ownedIDs {
		if err := h.ranking.Remove(ctx, id); err != nil {
			log.Printf("Failed to remove article %d from like ranking: %v", id, err)
		}
	}
	for _, id := range likedIDs {
		if err := h.ranking.Add(ctx, id, -1); err != nil {
			log.Printf("Failed to update like ranking for article %d: %v", id, err)
		}
	}
}

// GetStats returns system-wide statistics
// @Summary System statistics
// @Tags admin
// @Produce json
// @Success 200 {object} StatsResponse
// @Security BearerAuth
// @Router /api/admin/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	var stats StatsResponse

	counts := []struct {
		query *gorm.DB
		dest  *int64
	}{
		{h.db.Model(&models.User{}), &stats.TotalUsers},
		{h.db.Model(&models.User{}).Where("active = ?", true), &stats.ActiveUsers},
		{h.db.Model(&models.User{}).Where("system_role = ?", models.SystemRoleAdmin), &stats.AdminUsers},
		{h.db.Model(&models.Article{}), &stats.TotalArticles},
		{h.db.Model(&models.LikeArticle{}), &stats.TotalLikes},
		{h.db.Model(&models.Comment{}), &stats.TotalComments},
		{h.db.Model(&models.Tag{}), &stats.TotalTags},
		{h.db.Model(&models.Group{}), &stats.TotalGroups},
		{h.db.Model(&models.APIKey{}).
			Joins("JOIN users ON users.id = api_keys.user_id").
			Where("users.active = ? AND users.deleted_at IS NULL", true), &stats.ActiveAPIKeys},
	}
	for _, q := range counts {
		if err := q.query.WithContext(c.Request.Context()).Count(q.dest).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute statistics"})
			return
		}
	}

	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes registers admin routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.GetStats)
	rg.GET("/permissions", h.ListPermissions)
	rg.GET("/users", h.ListUsers)
	rg.GET("/users/:id", h.GetUser)
	rg.PUT("/users/:id", h.UpdateUser)
	rg.PUT("/users/:id/permissions", h.SetUserPermissions)
	rg.DELETE("/users/:id", h.DeleteUser)
}
