// Package groups manages permission groups. Every route here is admin only.
package groups

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/quill/pkg/quill/auth"
	"github.com/mikepea/quill/pkg/quill/models"
	"gorm.io/gorm"
)

// Handler handles group-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new groups handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateGroupRequest represents the request to create a group
type CreateGroupRequest struct {
	Name        string   `json:"name" binding:"required,max=150"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

// UpdateGroupRequest represents the request to update a group
type UpdateGroupRequest struct {
	Name        string `json:"name" binding:"omitempty,max=150"`
	Description string `json:"description"`
}

// SetPermissionsRequest replaces a group's permissions
type SetPermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

// GroupResponse represents a group in API responses
type GroupResponse struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	MemberCount int      `json:"member_count"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) groupID(c *gin.Context) (uint, bool) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return 0, false
	}
	return uint(groupID), true
}

// loadGroup resolves :id, writing 404 when the group does not exist
func (h *Handler) loadGroup(c *gin.Context) (*models.Group, bool) {
	groupID, ok := h.groupID(c)
	if !ok {
		return nil, false
	}
	var group models.Group
	if err := h.db.First(&group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch group"})
		}
		return nil, false
	}
	return &group, true
}

func (h *Handler) toResponse(group models.Group) (GroupResponse, error) {
	var memberCount int64
	if err := h.db.Model(&models.GroupMembership{}).Where("group_id = ?", group.ID).Count(&memberCount).Error; err != nil {
		return GroupResponse{}, err
	}
	perms := []string{}
	if err := h.db.Model(&models.GroupPermission{}).Where("group_id = ?", group.ID).
		Order("codename").Pluck("codename", &perms).Error; err != nil {
		return GroupResponse{}, err
	}
	return GroupResponse{
		ID:          group.ID,
		Name:        group.Name,
		Description: group.Description,
		MemberCount: int(memberCount),
		Permissions: perms,
	}, nil
}

func (h *Handler) respond(c *gin.Context, status int, group models.Group) {
	resp, err := h.toResponse(group)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch group"})
		return
	}
	c.JSON(status, resp)
}

// List returns every group
// @Summary List groups
// @Tags groups
// @Produce json
// @Success 200 {array} GroupResponse
// @Security BearerAuth
// @Router /api/groups [get]
func (h *Handler) List(c *gin.Context) {
	var groups []models.Group
	if err := h.db.Order("name").Find(&groups).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch groups"})
		return
	}

	responses := make([]GroupResponse, len(groups))
	for i, g := range groups {
		resp, err := h.toResponse(g)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch groups"})
			return
		}
		responses[i] = resp
	}

	c.JSON(http.StatusOK, responses)
}

// Create creates a group with an optional initial permission set
// @Summary Create a group
// @Tags groups
// @Accept json
// @Produce json
// @Param request body CreateGroupRequest true "Group details"
// @Success 201 {object} GroupResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 409 {object} map[string]string "Name taken"
// @Security BearerAuth
// @Router /api/groups [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for _, p := range req.Permissions {
		if !models.IsKnownPermission(p) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown permission: " + p})
			return
		}
	}

	var existing int64
	h.db.Model(&models.Group{}).Where("name = ?", req.Name).Count(&existing)
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Group name already taken"})
		return
	}

	group := models.Group{Name: req.Name, Description: req.Description}
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		return auth.SetGroupPermissions(tx, group.ID, req.Permissions)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create group"})
		return
	}

	h.respond(c, http.StatusCreated, group)
}

// Get returns a specific group
// @Summary Get a group
// @Tags groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} GroupResponse
// @Failure 404 {object} map[string]string "Group not found"
// @Security BearerAuth
// @Router /api/groups/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	group, ok := h.loadGroup(c)
	if !ok {
		return
	}
	h.respond(c, http.StatusOK, *group)
}

// Update renames or redescribes a group
// @Summary Update a group
// @Tags groups
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param request body UpdateGroupRequest true "Updated group details"
// @Success 200 {object} GroupResponse
// @Security BearerAuth
// @Router /api/groups/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	group, ok := h.loadGroup(c)
	if !ok {
		return
	}

	var req UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != "" && req.Name != group.Name {
		var existing int64
		h.db.Model(&models.Group{}).Where("name = ? AND id <> ?", req.Name, group.ID).Count(&existing)
		if existing > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "Group name already taken"})
			return
		}
		group.Name = req.Name
	}
	if req.Description != "" {
		group.Description = req.Description
	}

	if err := h.db.Save(group).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update group"})
		return
	}

	h.respond(c, http.StatusOK, *group)
}

// Delete removes a group together with its memberships and permissions
// @Summary Delete a group
// @Tags groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} map[string]string "Group deleted"
// @Security BearerAuth
// @Router /api/groups/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	group, ok := h.loadGroup(c)
	if !ok {
		return
	}
	if group.Name == models.DefaultGroupName {
		c.JSON(http.StatusBadRequest, gin.H{"error": "The default group cannot be deleted"})
		return
	}

	// Hard delete so the name can be reused and permission checks never see stale rows
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", group.ID).Delete(&models.GroupMembership{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", group.ID).Delete(&models.GroupPermission{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(group).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete group"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Group deleted"})
}

// SetPermissions replaces the permissions carried by a group
// @Summary Set group permissions
// @Tags groups
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param request body SetPermissionsRequest true "Permissions"
// @Success 200 {object} GroupResponse
// @Security BearerAuth
// @Router /api/groups/{id}/permissions [put]
func (h *Handler) SetPermissions(c *gin.Context) {
	group, ok := h.loadGroup(c)
	if !ok {
		return
	}

	var req SetPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := auth.SetGroupPermissions(h.db, group.ID, req.Permissions); err != nil {
		if errors.Is(err, auth.ErrUnknownPermission) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set permissions"})
		return
	}

	h.respond(c, http.StatusOK, *group)
}

// RegisterRoutes registers group routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.PUT("/:id/permissions", h.SetPermissions)
}
