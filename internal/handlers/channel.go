package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/deifi86/TeamChat/internal/models"
	"github.com/deifi86/TeamChat/internal/repositories"
	"github.com/deifi86/TeamChat/internal/telemetry"
)

// ChannelHandler manages channel lifecycle, membership, and join requests.
type ChannelHandler struct {
	channelRepo repositories.ChannelRepository
	companyRepo repositories.CompanyRepository
	audit       *telemetry.AuditEmitter
}

// NewChannelHandler builds a ChannelHandler.
func NewChannelHandler(channelRepo repositories.ChannelRepository, companyRepo repositories.CompanyRepository, audit *telemetry.AuditEmitter) *ChannelHandler {
	return &ChannelHandler{channelRepo: channelRepo, companyRepo: companyRepo, audit: audit}
}

// CreateChannel creates a channel in a company. Admin only.
func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	companyID, err := strconv.Atoi(c.Param("company_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid company id"})
		return
	}

	userID := c.GetInt("userID")
	if !h.requireAdmin(c, companyID, userID) {
		return
	}

	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		IsPrivate   bool   `json:"is_private"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	channel, err := h.channelRepo.CreateChannel(c.Request.Context(), companyID, req.Name, req.Description, req.IsPrivate, userID)
	if err != nil {
		emitAudit(c, h.audit, telemetry.AuditChannel, "ERROR", "channel create failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create channel"})
		return
	}

	emitAudit(c, h.audit, telemetry.AuditChannel, "INFO", "Channel created")
	c.JSON(http.StatusCreated, channel)
}

// ListChannels returns the channels of a company visible to the caller:
// every public channel plus the private ones the caller belongs to.
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	companyID, err := strconv.Atoi(c.Param("company_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid company id"})
		return
	}

	userID := c.GetInt("userID")
	if !h.requireCompanyMember(c, companyID, userID) {
		return
	}

	channels, err := h.channelRepo.ListChannels(c.Request.Context(), companyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load channels"})
		return
	}

	visible := make([]models.Channel, 0, len(channels))
	for _, channel := range channels {
		if channel.IsPrivate {
			member, err := h.channelRepo.IsMemberOfChannel(c.Request.Context(), channel, userID)
			if err != nil || !member {
				continue
			}
		}
		visible = append(visible, channel)
	}

	c.JSON(http.StatusOK, gin.H{"channels": visible})
}

// GetChannel returns one channel the caller can see.
func (h *ChannelHandler) GetChannel(c *gin.Context) {
	channel, ok := h.visibleChannel(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, channel)
}

// UpdateChannel renames a channel. Admin only.
func (h *ChannelHandler) UpdateChannel(c *gin.Context) {
	channel, ok := h.visibleChannel(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")
	if !h.requireAdmin(c, channel.CompanyID, userID) {
		return
	}

	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.channelRepo.UpdateChannel(c.Request.Context(), channel.ID, req.Name, req.Description)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update channel"})
		return
	}

	emitAudit(c, h.audit, telemetry.AuditChannel, "INFO", "Channel updated")
	c.JSON(http.StatusOK, updated)
}

// DeleteChannel removes a channel and its contents. Admin only; a company
// always keeps at least one channel.
func (h *ChannelHandler) DeleteChannel(c *gin.Context) {
	channel, ok := h.visibleChannel(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")
	if !h.requireAdmin(c, channel.CompanyID, userID) {
		return
	}

	if err := h.channelRepo.DeleteChannel(c.Request.Context(), channel.ID); err != nil {
		if errors.Is(err, repositories.ErrLastChannel) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "cannot delete the last channel"})
			return
		}
		emitAudit(c, h.audit, telemetry.AuditChannel, "ERROR", "channel delete failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete channel"})
		return
	}

	emitAudit(c, h.audit, telemetry.AuditChannel, "INFO", "Channel deleted")
	c.Status(http.StatusNoContent)
}

// ListMembers returns a channel's member list.
func (h *ChannelHandler) ListMembers(c *gin.Context) {
	channel, ok := h.visibleChannel(c)
	if !ok {
		return
	}

	members, err := h.channelRepo.ListChannelMembers(c.Request.Context(), channel.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load members"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

// AddMember adds a company member to a private channel. Admin only.
func (h *ChannelHandler) AddMember(c *gin.Context) {
	channel, ok := h.visibleChannel(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")
	if !h.requireAdmin(c, channel.CompanyID, userID) {
		return
	}

	var req struct {
		UserID int `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.companyRepo.IsMember(c.Request.Context(), channel.CompanyID, req.UserID)
	if err != nil || !member {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "user is not a company member"})
		return
	}

	if err := h.channelRepo.AddMember(c.Request.Context(), channel.ID, req.UserID, &userID); err != nil {
		if errors.Is(err, repositories.ErrAlreadyMember) {
			c.JSON(http.StatusConflict, gin.H{"error": "already a member"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add member"})
		return
	}

	emitAudit(c, h.audit, telemetry.AuditChannel, "INFO", "Channel member added")
	c.Status(http.StatusCreated)
}

// RemoveMember removes a member from a channel. Admins can remove anyone;
// members can remove themselves.
func (h *ChannelHandler) RemoveMember(c *gin.Context) {
	channel, ok := h.visibleChannel(c)
	if !ok {
		return
	}
	targetID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	userID := c.GetInt("userID")
	if targetID != userID {
		admin, err := h.companyRepo.IsAdmin(c.Request.Context(), channel.CompanyID, userID)
		if err != nil || !admin {
			c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
			return
		}
	}

	if err := h.channelRepo.RemoveMember(c.Request.Context(), channel.ID, targetID); err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove member"})
		return
	}

	emitAudit(c, h.audit, telemetry.AuditChannel, "INFO", "Channel member removed")
	c.Status(http.StatusNoContent)
}

// CreateJoinRequest asks to join a private channel. At most one pending
// request per (channel, user).
func (h *ChannelHandler) CreateJoinRequest(c *gin.Context) {
	channel, ok := h.channelForJoinRequest(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	if !channel.IsPrivate {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "channel is public"})
		return
	}
	member, err := h.channelRepo.IsMemberOfChannel(c.Request.Context(), channel, userID)
	if err == nil && member {
		c.JSON(http.StatusConflict, gin.H{"error": "already a member"})
		return
	}

	request, err := h.channelRepo.CreateJoinRequest(c.Request.Context(), channel.ID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateJoinRequest) {
			c.JSON(http.StatusConflict, gin.H{"error": "join request already pending"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create join request"})
		return
	}

	emitAudit(c, h.audit, telemetry.AuditChannel, "INFO", "Join request created")
	c.JSON(http.StatusCreated, request)
}

// ListJoinRequests returns pending join requests for a channel. Admin only.
func (h *ChannelHandler) ListJoinRequests(c *gin.Context) {
	channel, ok := h.visibleChannel(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")
	if !h.requireAdmin(c, channel.CompanyID, userID) {
		return
	}

	requests, err := h.channelRepo.ListPendingJoinRequests(c.Request.Context(), channel.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load join requests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"join_requests": requests})
}

// ResolveJoinRequest approves or rejects a pending join request. Admin only;
// resolved requests never change again.
func (h *ChannelHandler) ResolveJoinRequest(c *gin.Context) {
	channel, ok := h.visibleChannel(c)
	if !ok {
		return
	}
	requestID, err := strconv.Atoi(c.Param("request_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}
	userID := c.GetInt("userID")
	if !h.requireAdmin(c, channel.CompanyID, userID) {
		return
	}

	var req struct {
		Approve *bool `json:"approve" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.channelRepo.GetJoinRequest(c.Request.Context(), requestID)
	if err != nil || request.ChannelID != channel.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "join request not found"})
		return
	}

	resolved, err := h.channelRepo.ResolveJoinRequest(c.Request.Context(), requestID, *req.Approve, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrJoinRequestResolved) {
			c.JSON(http.StatusConflict, gin.H{"error": "join request already resolved"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve join request"})
		return
	}

	emitAudit(c, h.audit, telemetry.AuditChannel, "INFO", "Join request resolved")
	c.JSON(http.StatusOK, resolved)
}

// visibleChannel loads the channel from the path and enforces visibility:
// unknown channels and channels the caller cannot see both answer 404.
func (h *ChannelHandler) visibleChannel(c *gin.Context) (models.Channel, bool) {
	channel, ok := h.channelFromPath(c)
	if !ok {
		return models.Channel{}, false
	}

	userID := c.GetInt("userID")
	member, err := h.channelRepo.IsMemberOfChannel(c.Request.Context(), channel, userID)
	if err != nil || !member {
		c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		return models.Channel{}, false
	}
	return channel, true
}

// channelForJoinRequest is the looser lookup used when asking to join: the
// caller need only be a company member to know the private channel exists.
func (h *ChannelHandler) channelForJoinRequest(c *gin.Context) (models.Channel, bool) {
	channel, ok := h.channelFromPath(c)
	if !ok {
		return models.Channel{}, false
	}

	userID := c.GetInt("userID")
	member, err := h.companyRepo.IsMember(c.Request.Context(), channel.CompanyID, userID)
	if err != nil || !member {
		c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		return models.Channel{}, false
	}
	return channel, true
}

func (h *ChannelHandler) channelFromPath(c *gin.Context) (models.Channel, bool) {
	channelID, err := strconv.Atoi(c.Param("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return models.Channel{}, false
	}

	channel, err := h.channelRepo.GetChannel(c.Request.Context(), channelID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrChannelNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "channel not found"})
		return models.Channel{}, false
	}
	return channel, true
}

func (h *ChannelHandler) requireCompanyMember(c *gin.Context, companyID, userID int) bool {
	member, err := h.companyRepo.IsMember(c.Request.Context(), companyID, userID)
	if err != nil && !errors.Is(err, repositories.ErrCompanyNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return false
	}
	if !member {
		c.JSON(http.StatusNotFound, gin.H{"error": "company not found"})
		return false
	}
	return true
}

func (h *ChannelHandler) requireAdmin(c *gin.Context, companyID, userID int) bool {
	member, err := h.companyRepo.IsMember(c.Request.Context(), companyID, userID)
	if err != nil || !member {
		c.JSON(http.StatusNotFound, gin.H{"error": "company not found"})
		return false
	}
	admin, err := h.companyRepo.IsAdmin(c.Request.Context(), companyID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify role"})
		return false
	}
	if !admin {
		emitAudit(c, h.audit, telemetry.AuditAccessDenied, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
		return false
	}
	return true
}
