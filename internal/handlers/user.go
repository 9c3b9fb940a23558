package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/deifi86/TeamChat/internal/events"
	"github.com/deifi86/TeamChat/internal/models"
	"github.com/deifi86/TeamChat/internal/repositories"
	"github.com/deifi86/TeamChat/internal/telemetry"
	"github.com/deifi86/TeamChat/internal/ws"
)

// UserHandler manages the caller's own presence state.
type UserHandler struct {
	userRepo    repositories.UserRepository
	companyRepo repositories.CompanyRepository
	hub         ws.Broadcaster
	audit       *telemetry.AuditEmitter
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(userRepo repositories.UserRepository, companyRepo repositories.CompanyRepository, hub ws.Broadcaster, audit *telemetry.AuditEmitter) *UserHandler {
	return &UserHandler{userRepo: userRepo, companyRepo: companyRepo, hub: hub, audit: audit}
}

// Me returns the authenticated user's profile.
func (h *UserHandler) Me(c *gin.Context) {
	userID := c.GetInt("userID")

	user, err := h.userRepo.GetUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// Search finds other users by username, for starting direct conversations.
func (h *UserHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if len(query) < 2 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "query must be at least 2 characters"})
		return
	}

	userID := c.GetInt("userID")
	users, err := h.userRepo.SearchUsers(c.Request.Context(), query, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

// UpdateProfile changes the caller's username or status text. Fields omitted
// from the request keep their value.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		Username   *string `json:"username" binding:"omitempty,min=3,max=100"`
		StatusText *string `json:"status_text" binding:"omitempty,max=255"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	user, err := h.userRepo.UpdateProfile(c.Request.Context(), userID, req.Username, req.StatusText)
	if err != nil {
		if errors.Is(err, repositories.ErrUsernameTaken) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "username already taken"})
			return
		}
		emitAudit(c, h.audit, telemetry.AuditPresence, "ERROR", "profile update failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}

	emitAudit(c, h.audit, telemetry.AuditPresence, "INFO", "Profile updated")
	c.JSON(http.StatusOK, user)
}

// UpdateStatus sets the caller's presence status and announces it to every
// company the caller belongs to, including their own other connections.
func (h *UserHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status     string `json:"status" binding:"required"`
		StatusText string `json:"status_text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidStatus(req.Status) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown status"})
		return
	}

	userID := c.GetInt("userID")
	user, err := h.userRepo.UpdateStatus(c.Request.Context(), userID, req.Status, req.StatusText)
	if err != nil {
		emitAudit(c, h.audit, telemetry.AuditPresence, "ERROR", "status update failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update status"})
		return
	}

	companyIDs, err := h.companyRepo.CompanyIDsForUser(c.Request.Context(), userID)
	if err == nil {
		event := events.UserStatusChanged(user)
		for _, companyID := range companyIDs {
			h.hub.Publish(events.CompanyTopic(companyID), event)
		}
	}

	emitAudit(c, h.audit, telemetry.AuditPresence, "INFO", "Status updated")
	c.JSON(http.StatusOK, user)
}
