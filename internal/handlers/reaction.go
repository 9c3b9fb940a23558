package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/deifi86/TeamChat/internal/events"
	"github.com/deifi86/TeamChat/internal/models"
	"github.com/deifi86/TeamChat/internal/repositories"
	"github.com/deifi86/TeamChat/internal/telemetry"
	"github.com/deifi86/TeamChat/internal/ws"
)

// ReactionHandler manages emoji reactions on messages.
type ReactionHandler struct {
	reactionRepo     repositories.ReactionRepository
	messageRepo      repositories.MessageRepository
	userRepo         repositories.UserRepository
	channelRepo      repositories.ChannelRepository
	conversationRepo repositories.ConversationRepository
	hub              ws.Broadcaster
	audit            *telemetry.AuditEmitter
}

// NewReactionHandler builds a ReactionHandler.
func NewReactionHandler(
	reactionRepo repositories.ReactionRepository,
	messageRepo repositories.MessageRepository,
	userRepo repositories.UserRepository,
	channelRepo repositories.ChannelRepository,
	conversationRepo repositories.ConversationRepository,
	hub ws.Broadcaster,
	audit *telemetry.AuditEmitter,
) *ReactionHandler {
	return &ReactionHandler{
		reactionRepo:     reactionRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
		channelRepo:      channelRepo,
		conversationRepo: conversationRepo,
		hub:              hub,
		audit:            audit,
	}
}

// AddReaction records a reaction. Adding the same emoji twice is a no-op
// answered with the existing reaction.
func (h *ReactionHandler) AddReaction(c *gin.Context) {
	msg, emoji, ok := h.reactionTarget(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	reaction, created, err := h.reactionRepo.AddReaction(c.Request.Context(), msg.ID, userID, emoji)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add reaction"})
		return
	}

	if created {
		h.broadcastAdded(c, msg, reaction, userID)
		emitAudit(c, h.audit, telemetry.AuditReaction, "INFO", "Reaction added")
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, reaction)
}

// RemoveReaction deletes the caller's reaction.
func (h *ReactionHandler) RemoveReaction(c *gin.Context) {
	msg, ok := h.visibleMessage(c)
	if !ok {
		return
	}
	emoji := c.Param("emoji")
	if emoji == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing emoji"})
		return
	}
	userID := c.GetInt("userID")

	if err := h.reactionRepo.RemoveReaction(c.Request.Context(), msg.ID, userID, emoji); err != nil {
		if errors.Is(err, repositories.ErrReactionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "reaction not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove reaction"})
		return
	}

	h.hub.PublishToOthers(events.TopicFor(msg.Owner()), events.ReactionRemoved(msg.ID, emoji, userID), socketID(c))
	emitAudit(c, h.audit, telemetry.AuditReaction, "INFO", "Reaction removed")
	c.Status(http.StatusNoContent)
}

// ToggleReaction adds the reaction when absent and removes it when present.
func (h *ReactionHandler) ToggleReaction(c *gin.Context) {
	msg, emoji, ok := h.reactionTarget(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	reaction, result, err := h.reactionRepo.ToggleReaction(c.Request.Context(), msg.ID, userID, emoji)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to toggle reaction"})
		return
	}

	switch result {
	case repositories.ToggleAdded:
		h.broadcastAdded(c, msg, reaction, userID)
	case repositories.ToggleRemoved:
		h.hub.PublishToOthers(events.TopicFor(msg.Owner()), events.ReactionRemoved(msg.ID, emoji, userID), socketID(c))
	}

	emitAudit(c, h.audit, telemetry.AuditReaction, "INFO", "Reaction toggled")
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// ListReactions returns the per-emoji aggregate for a message.
func (h *ReactionHandler) ListReactions(c *gin.Context) {
	msg, ok := h.visibleMessage(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	reactions, err := h.reactionRepo.ListReactions(c.Request.Context(), msg.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reactions": models.AggregateReactions(reactions, userID)})
}

func (h *ReactionHandler) broadcastAdded(c *gin.Context, msg models.Message, reaction models.MessageReaction, userID int) {
	user, err := h.userRepo.GetUser(c.Request.Context(), userID)
	if err != nil {
		return
	}
	h.hub.PublishToOthers(events.TopicFor(msg.Owner()), events.ReactionAdded(msg.ID, reaction, user), socketID(c))
}

func (h *ReactionHandler) reactionTarget(c *gin.Context) (models.Message, string, bool) {
	msg, ok := h.visibleMessage(c)
	if !ok {
		return models.Message{}, "", false
	}

	var req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return models.Message{}, "", false
	}
	return msg, req.Emoji, true
}

// visibleMessage mirrors the message handler's shaping: a message the caller
// cannot see answers 404.
func (h *ReactionHandler) visibleMessage(c *gin.Context) (models.Message, bool) {
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return models.Message{}, false
	}

	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil || msg.IsDeleted() {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return models.Message{}, false
	}

	ok, err := canAccessOwner(c.Request.Context(), h.channelRepo, h.conversationRepo, msg.Owner(), c.GetInt("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify access"})
		return models.Message{}, false
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return models.Message{}, false
	}
	return msg, true
}
