package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deifi86/TeamChat/internal/encryption"
	"github.com/deifi86/TeamChat/internal/events"
	"github.com/deifi86/TeamChat/internal/models"
	"github.com/deifi86/TeamChat/internal/observability"
	"github.com/deifi86/TeamChat/internal/repositories"
	"github.com/deifi86/TeamChat/internal/telemetry"
	"github.com/deifi86/TeamChat/internal/ws"
)

// ConversationHandler manages the direct-conversation lifecycle: request,
// accept, reject, delete. Both sides must accept before messages flow.
type ConversationHandler struct {
	conversationRepo repositories.ConversationRepository
	messageRepo      repositories.MessageRepository
	userRepo         repositories.UserRepository
	companyRepo      repositories.CompanyRepository
	encryptor        *encryption.Encryptor
	hub              ws.Broadcaster
	audit            *telemetry.AuditEmitter
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(
	conversationRepo repositories.ConversationRepository,
	messageRepo repositories.MessageRepository,
	userRepo repositories.UserRepository,
	companyRepo repositories.CompanyRepository,
	encryptor *encryption.Encryptor,
	hub ws.Broadcaster,
	audit *telemetry.AuditEmitter,
) *ConversationHandler {
	return &ConversationHandler{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
		companyRepo:      companyRepo,
		encryptor:        encryptor,
		hub:              hub,
		audit:            audit,
	}
}

type conversationResponse struct {
	ID           int                 `json:"id"`
	OtherUser    models.User         `json:"other_user"`
	Accepted     bool                `json:"accepted"`
	AcceptedByMe bool                `json:"accepted_by_me"`
	UnreadCount  int                 `json:"unread_count"`
	LastMessage  *lastMessagePreview `json:"last_message,omitempty"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

type lastMessagePreview struct {
	ID          int       `json:"id"`
	Content     string    `json:"content"`
	ContentType string    `json:"content_type"`
	SenderID    int       `json:"sender_id"`
	Unreadable  bool      `json:"unreadable,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListConversations returns the caller's conversations, most recently
// active first, with unread counts and a decrypted last-message preview.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	userID := c.GetInt("userID")

	conversations, err := h.conversationRepo.ListForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}

	otherIDs := make([]int, 0, len(conversations))
	for _, conv := range conversations {
		otherIDs = append(otherIDs, conv.OtherUserID(userID))
	}
	others, err := h.userRepo.GetUsers(c.Request.Context(), otherIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}
	userByID := make(map[int]models.User, len(others))
	for _, u := range others {
		userByID[u.ID] = u
	}

	responses := make([]conversationResponse, 0, len(conversations))
	for _, conv := range conversations {
		responses = append(responses, h.formatConversation(c, conv, userID, userByID[conv.OtherUserID(userID)]))
	}

	c.JSON(http.StatusOK, gin.H{"conversations": responses})
}

// CreateConversation starts (or returns) the conversation with another user
// in a shared company. A newly created conversation notifies the receiver.
func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	var req struct {
		UserID int `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if req.UserID == userID {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "cannot start a conversation with yourself"})
		return
	}

	receiver, err := h.userRepo.GetUser(c.Request.Context(), req.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	shared, err := h.shareCompany(c, userID, req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !shared {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	conversation, created, err := h.conversationRepo.FindOrCreate(c.Request.Context(), userID, req.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrSelfConversation) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "cannot start a conversation with yourself"})
			return
		}
		emitAudit(c, h.audit, telemetry.AuditConversation, "ERROR", "conversation create failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create conversation"})
		return
	}

	if created {
		initiator, err := h.userRepo.GetUser(c.Request.Context(), userID)
		if err == nil {
			h.hub.Publish(events.UserTopic(req.UserID), events.ConversationRequest(conversation.ID, initiator))
		}
		emitAudit(c, h.audit, telemetry.AuditConversation, "INFO", "Conversation requested")
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, h.formatConversation(c, conversation, userID, receiver))
}

// GetConversation returns one conversation for a participant.
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	conversation, ok := h.participantConversation(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	other, err := h.userRepo.GetUser(c.Request.Context(), conversation.OtherUserID(userID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	c.JSON(http.StatusOK, h.formatConversation(c, conversation, userID, other))
}

// AcceptConversation records the caller's acceptance and notifies both
// participants on their user topics, own connections included.
func (h *ConversationHandler) AcceptConversation(c *gin.Context) {
	conversation, ok := h.participantConversation(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	accepted, err := h.conversationRepo.AcceptBy(c.Request.Context(), conversation.ID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrAlreadyAccepted) {
			c.JSON(http.StatusConflict, gin.H{"error": "conversation already accepted"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to accept conversation"})
		return
	}

	user, err := h.userRepo.GetUser(c.Request.Context(), userID)
	if err == nil {
		event := events.ConversationAccepted(accepted.ID, user)
		h.hub.Publish(events.UserTopic(accepted.UserOneID), event)
		h.hub.Publish(events.UserTopic(accepted.UserTwoID), event)
	}

	emitAudit(c, h.audit, telemetry.AuditConversation, "INFO", "Conversation accepted")
	c.JSON(http.StatusOK, accepted)
}

// RejectConversation declines a pending conversation and removes it with its
// contents. Accepted conversations cannot be rejected, only deleted.
func (h *ConversationHandler) RejectConversation(c *gin.Context) {
	conversation, ok := h.participantConversation(c)
	if !ok {
		return
	}

	if conversation.IsAccepted() {
		c.JSON(http.StatusConflict, gin.H{"error": "conversation already accepted"})
		return
	}

	if err := h.conversationRepo.Delete(c.Request.Context(), conversation.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reject conversation"})
		return
	}

	emitAudit(c, h.audit, telemetry.AuditConversation, "INFO", "Conversation rejected")
	c.Status(http.StatusNoContent)
}

// DeleteConversation removes a conversation and its contents for both sides.
func (h *ConversationHandler) DeleteConversation(c *gin.Context) {
	conversation, ok := h.participantConversation(c)
	if !ok {
		return
	}

	if err := h.conversationRepo.Delete(c.Request.Context(), conversation.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete conversation"})
		return
	}

	emitAudit(c, h.audit, telemetry.AuditConversation, "INFO", "Conversation deleted")
	c.Status(http.StatusNoContent)
}

func (h *ConversationHandler) participantConversation(c *gin.Context) (models.DirectConversation, bool) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return models.DirectConversation{}, false
	}

	conversation, err := h.conversationRepo.GetConversation(c.Request.Context(), conversationID)
	if err != nil || !conversation.HasUser(c.GetInt("userID")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return models.DirectConversation{}, false
	}
	return conversation, true
}

// shareCompany reports whether two users have at least one company in common.
func (h *ConversationHandler) shareCompany(c *gin.Context, userID, otherID int) (bool, error) {
	mine, err := h.companyRepo.CompanyIDsForUser(c.Request.Context(), userID)
	if err != nil {
		return false, err
	}
	theirs, err := h.companyRepo.CompanyIDsForUser(c.Request.Context(), otherID)
	if err != nil {
		return false, err
	}

	seen := make(map[int]struct{}, len(mine))
	for _, id := range mine {
		seen[id] = struct{}{}
	}
	for _, id := range theirs {
		if _, ok := seen[id]; ok {
			return true, nil
		}
	}
	return false, nil
}

func (h *ConversationHandler) formatConversation(c *gin.Context, conversation models.DirectConversation, userID int, other models.User) conversationResponse {
	resp := conversationResponse{
		ID:           conversation.ID,
		OtherUser:    other,
		Accepted:     conversation.IsAccepted(),
		AcceptedByMe: conversation.AcceptedBy(userID),
		UpdatedAt:    conversation.UpdatedAt,
	}

	owner := models.ConversationRef(conversation.ID)
	if unread, err := h.messageRepo.UnreadCount(c.Request.Context(), owner, userID); err == nil {
		resp.UnreadCount = unread
	}

	latest, err := h.messageRepo.LatestMessage(c.Request.Context(), owner)
	if err != nil {
		return resp
	}
	preview := &lastMessagePreview{
		ID:          latest.ID,
		ContentType: latest.ContentType,
		SenderID:    latest.SenderID,
		CreatedAt:   latest.CreatedAt,
	}
	plaintext, err := h.encryptor.DecryptFromStorage(latest.Content, latest.ContentIV)
	if err != nil {
		observability.IncDecryptionError()
		preview.Unreadable = true
	} else {
		preview.Content = plaintext
	}
	resp.LastMessage = preview
	return resp
}
