package groups

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/quill/pkg/quill/models"
	"gorm.io/gorm"
)

// MemberResponse represents a group member in API responses
type MemberResponse struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// AddMemberRequest identifies the user to add by email or username
type AddMemberRequest struct {
	Email    string `json:"email" binding:"omitempty,email"`
	Username string `json:"username"`
}

func toMember(u models.User) MemberResponse {
	return MemberResponse{ID: u.ID, Email: u.Email, Username: u.Username, Name: u.Name}
}

// ListMembers returns all members of a group
func (h *Handler) ListMembers(c *gin.Context) {
	group, ok := h.loadGroup(c)
	if !ok {
		return
	}

	var memberships []models.GroupMembership
	if err := h.db.Preload("User").Where("group_id = ?", group.ID).Order("id").Find(&memberships).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch members"})
		return
	}

	members := make([]MemberResponse, len(memberships))
	for i, m := range memberships {
		members[i] = toMember(m.User)
	}

	c.JSON(http.StatusOK, members)
}

// AddMember adds a user to a group
func (h *Handler) AddMember(c *gin.Context) {
	group, ok := h.loadGroup(c)
	if !ok {
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Email == "" && req.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email or username is required"})
		return
	}

	query := h.db.Where("email = ?", req.Email)
	if req.Email == "" {
		query = h.db.Where("username = ?", req.Username)
	}
	var targetUser models.User
	if err := query.First(&targetUser).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		}
		return
	}

	var existing int64
	h.db.Model(&models.GroupMembership{}).Where("user_id = ? AND group_id = ?", targetUser.ID, group.ID).Count(&existing)
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "User is already a member"})
		return
	}

	membership := models.GroupMembership{UserID: targetUser.ID, GroupID: group.ID}
	if err := h.db.Create(&membership).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add member"})
		return
	}

	c.JSON(http.StatusCreated, toMember(targetUser))
}

// RemoveMember removes a user from a group
func (h *Handler) RemoveMember(c *gin.Context) {
	groupID, ok := h.groupID(c)
	if !ok {
		return
	}
	memberID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	result := h.db.Where("user_id = ? AND group_id = ?", memberID, groupID).Delete(&models.GroupMembership{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove member"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

// RegisterMemberRoutes registers member management routes
func (h *Handler) RegisterMemberRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/members", h.ListMembers)
	rg.POST("/:id/members", h.AddMember)
	rg.DELETE("/:id/members/:userId", h.RemoveMember)
}
