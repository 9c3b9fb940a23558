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

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// MessageHandler manages message history, posting, editing, deletion, typing
// signals, and read receipts for channels and direct conversations.
type MessageHandler struct {
	messageRepo      repositories.MessageRepository
	channelRepo      repositories.ChannelRepository
	conversationRepo repositories.ConversationRepository
	companyRepo      repositories.CompanyRepository
	userRepo         repositories.UserRepository
	receiptRepo      repositories.ReceiptRepository
	encryptor        *encryption.Encryptor
	hub              ws.Broadcaster
	audit            *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(
	messageRepo repositories.MessageRepository,
	channelRepo repositories.ChannelRepository,
	conversationRepo repositories.ConversationRepository,
	companyRepo repositories.CompanyRepository,
	userRepo repositories.UserRepository,
	receiptRepo repositories.ReceiptRepository,
	encryptor *encryption.Encryptor,
	hub ws.Broadcaster,
	audit *telemetry.AuditEmitter,
) *MessageHandler {
	return &MessageHandler{
		messageRepo:      messageRepo,
		channelRepo:      channelRepo,
		conversationRepo: conversationRepo,
		companyRepo:      companyRepo,
		userRepo:         userRepo,
		receiptRepo:      receiptRepo,
		encryptor:        encryptor,
		hub:              hub,
		audit:            audit,
	}
}

// messageResponse is the message projection returned over HTTP. Content is
// decrypted; rows that no longer decrypt carry an unreadable marker instead
// of failing the whole request.
type messageResponse struct {
	ID          int                    `json:"id"`
	Content     string                 `json:"content"`
	ContentType string                 `json:"content_type"`
	Unreadable  bool                   `json:"unreadable,omitempty"`
	Sender      events.SenderRef       `json:"sender"`
	ParentID    *int                   `json:"parent_id,omitempty"`
	Reactions   []models.ReactionGroup `json:"reactions"`
	EditedAt    *time.Time             `json:"edited_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// ListChannelMessages returns a page of channel history.
func (h *MessageHandler) ListChannelMessages(c *gin.Context) {
	owner, ok := h.channelOwner(c)
	if !ok {
		return
	}
	h.listMessages(c, owner)
}

// PostChannelMessage stores a channel message and fans it out.
func (h *MessageHandler) PostChannelMessage(c *gin.Context) {
	owner, ok := h.channelOwner(c)
	if !ok {
		return
	}
	h.postMessage(c, owner)
}

// ChannelTyping relays a typing signal to the other channel subscribers.
func (h *MessageHandler) ChannelTyping(c *gin.Context) {
	owner, ok := h.channelOwner(c)
	if !ok {
		return
	}
	h.typing(c, owner)
}

// ChannelRead moves the caller's read watermark for a channel.
func (h *MessageHandler) ChannelRead(c *gin.Context) {
	owner, ok := h.channelOwner(c)
	if !ok {
		return
	}
	h.markRead(c, owner)
}

// ListConversationMessages returns a page of direct-conversation history.
func (h *MessageHandler) ListConversationMessages(c *gin.Context) {
	owner, ok := h.conversationOwner(c, true)
	if !ok {
		return
	}
	h.listMessages(c, owner)
}

// PostConversationMessage stores a direct message and fans it out.
func (h *MessageHandler) PostConversationMessage(c *gin.Context) {
	owner, ok := h.conversationOwner(c, true)
	if !ok {
		return
	}
	h.postMessage(c, owner)
}

// ConversationTyping relays a typing signal to the other participant.
func (h *MessageHandler) ConversationTyping(c *gin.Context) {
	owner, ok := h.conversationOwner(c, true)
	if !ok {
		return
	}
	h.typing(c, owner)
}

// ConversationRead moves the caller's read watermark for a conversation.
func (h *MessageHandler) ConversationRead(c *gin.Context) {
	owner, ok := h.conversationOwner(c, false)
	if !ok {
		return
	}
	h.markRead(c, owner)
}

// EditMessage re-encrypts a message's content. Sender only, within the edit
// window, and never on deleted messages.
func (h *MessageHandler) EditMessage(c *gin.Context) {
	msg, ok := h.visibleMessage(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	if msg.SenderID != userID {
		emitAudit(c, h.audit, telemetry.AuditAccessDenied, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "only the sender can edit"})
		return
	}
	if time.Since(msg.CreatedAt) > repositories.EditWindow {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": repositories.ErrEditWindowExpired.Error()})
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	content, iv, err := h.encryptor.Encrypt(req.Content)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	updated, err := h.messageRepo.UpdateContent(c.Request.Context(), msg.ID, content, iv)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) || errors.Is(err, repositories.ErrMessageDeleted) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update message"})
		return
	}

	h.hub.PublishToOthers(events.TopicFor(msg.Owner()), events.MessageEdited(updated, req.Content), socketID(c))
	emitAudit(c, h.audit, telemetry.AuditMessage, "INFO", "Message edited")

	c.JSON(http.StatusOK, gin.H{
		"id":        updated.ID,
		"content":   req.Content,
		"edited_at": updated.EditedAt,
	})
}

// DeleteMessage soft-deletes a message. The sender can always delete their
// own; company admins can additionally delete channel messages.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	msg, ok := h.visibleMessage(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	if msg.SenderID != userID {
		allowed := false
		if msg.MessageableType == models.MessageableChannel {
			if channel, err := h.channelRepo.GetChannel(c.Request.Context(), msg.MessageableID); err == nil {
				if admin, err := h.companyRepo.IsAdmin(c.Request.Context(), channel.CompanyID, userID); err == nil {
					allowed = admin
				}
			}
		}
		if !allowed {
			emitAudit(c, h.audit, telemetry.AuditAccessDenied, "ERROR", "not allowed")
			c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
			return
		}
	}

	if err := h.messageRepo.SoftDelete(c.Request.Context(), msg.ID); err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) || errors.Is(err, repositories.ErrMessageDeleted) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete message"})
		return
	}

	h.hub.PublishToOthers(events.TopicFor(msg.Owner()), events.MessageDeleted(msg.ID), socketID(c))
	emitAudit(c, h.audit, telemetry.AuditMessage, "INFO", "Message deleted")
	c.Status(http.StatusNoContent)
}

func (h *MessageHandler) listMessages(c *gin.Context, owner models.Messageable) {
	userID := c.GetInt("userID")

	limit := defaultPageSize
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
		if limit > maxPageSize {
			limit = maxPageSize
		}
	}

	var before *models.Message
	if raw := c.Query("before"); raw != "" {
		beforeID, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
			return
		}
		cursor, err := h.messageRepo.GetMessage(c.Request.Context(), beforeID)
		if err != nil || cursor.Owner() != owner {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "cursor does not belong here"})
			return
		}
		before = &cursor
	}

	page, err := h.messageRepo.ListMessages(c.Request.Context(), owner, before, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	messageIDs := make([]int, 0, len(page.Messages))
	for _, m := range page.Messages {
		messageIDs = append(messageIDs, m.ID)
	}
	reactions, err := h.messageRepo.ListReactionsForMessages(c.Request.Context(), messageIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reactions"})
		return
	}

	responses := make([]messageResponse, 0, len(page.Messages))
	for _, m := range page.Messages {
		responses = append(responses, h.formatMessage(m, reactions[m.ID], userID))
	}

	c.JSON(http.StatusOK, gin.H{"messages": responses, "has_more": page.HasMore})
}

func (h *MessageHandler) postMessage(c *gin.Context, owner models.Messageable) {
	userID := c.GetInt("userID")

	var req struct {
		Content     string `json:"content" binding:"required"`
		ContentType string `json:"content_type"`
		ParentID    *int   `json:"parent_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ContentType == "" {
		req.ContentType = models.ContentTypeText
	}
	if !models.ValidContentType(req.ContentType) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown content type"})
		return
	}

	if req.ParentID != nil {
		parent, err := h.messageRepo.GetMessage(c.Request.Context(), *req.ParentID)
		if err != nil || parent.Owner() != owner || parent.IsDeleted() {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid parent message"})
			return
		}
		// replies stay single-level
		if parent.ParentID != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "cannot reply to a reply"})
			return
		}
	}

	content, iv, err := h.encryptor.Encrypt(req.Content)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), repositories.CreateMessageParams{
		Owner:       owner,
		SenderID:    userID,
		Content:     content,
		ContentIV:   iv,
		ContentType: req.ContentType,
		ParentID:    req.ParentID,
	})
	if err != nil {
		emitAudit(c, h.audit, telemetry.AuditMessage, "ERROR", "message create failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.hub.PublishToOthers(events.TopicFor(owner), events.NewMessage(msg, req.Content), socketID(c))
	emitAudit(c, h.audit, telemetry.AuditMessage, "INFO", "Message sent")

	resp := h.formatMessage(msg, nil, userID)
	resp.Content = req.Content
	resp.Unreadable = false
	c.JSON(http.StatusCreated, resp)
}

func (h *MessageHandler) typing(c *gin.Context, owner models.Messageable) {
	userID := c.GetInt("userID")
	user, err := h.userRepo.GetUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	h.hub.PublishToOthers(events.TopicFor(owner), events.UserTyping(user), socketID(c))
	c.Status(http.StatusNoContent)
}

func (h *MessageHandler) markRead(c *gin.Context, owner models.Messageable) {
	userID := c.GetInt("userID")

	var req struct {
		LastReadMessageID int `json:"last_read_message_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messageRepo.GetMessage(c.Request.Context(), req.LastReadMessageID)
	if err != nil || msg.Owner() != owner {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "message does not belong here"})
		return
	}

	receipt, err := h.receiptRepo.UpsertReceipt(c.Request.Context(), userID, owner, req.LastReadMessageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save receipt"})
		return
	}

	c.JSON(http.StatusOK, receipt)
}

// channelOwner resolves the channel path param and enforces membership;
// failures answer 404 so hidden channels stay invisible.
func (h *MessageHandler) channelOwner(c *gin.Context) (models.Messageable, bool) {
	channelID, err := strconv.Atoi(c.Param("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return models.Messageable{}, false
	}

	channel, err := h.channelRepo.GetChannel(c.Request.Context(), channelID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrChannelNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "channel not found"})
		return models.Messageable{}, false
	}

	userID := c.GetInt("userID")
	member, err := h.channelRepo.IsMemberOfChannel(c.Request.Context(), channel, userID)
	if err != nil || !member {
		c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		return models.Messageable{}, false
	}
	return models.ChannelRef(channelID), true
}

// conversationOwner resolves the conversation path param for a participant.
// When requireAccepted is set, pending conversations answer 403.
func (h *MessageHandler) conversationOwner(c *gin.Context, requireAccepted bool) (models.Messageable, bool) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return models.Messageable{}, false
	}

	conversation, err := h.conversationRepo.GetConversation(c.Request.Context(), conversationID)
	if err != nil || !conversation.HasUser(c.GetInt("userID")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return models.Messageable{}, false
	}
	if requireAccepted && !conversation.IsAccepted() {
		c.JSON(http.StatusForbidden, gin.H{"error": "conversation not accepted"})
		return models.Messageable{}, false
	}
	return models.ConversationRef(conversationID), true
}

// visibleMessage loads a message by path id and checks the caller can see
// its channel or conversation. Deleted and inaccessible messages read as
// not found.
func (h *MessageHandler) visibleMessage(c *gin.Context) (models.Message, bool) {
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

func (h *MessageHandler) formatMessage(msg models.MessageWithSender, reactions []models.MessageReaction, viewerID int) messageResponse {
	sender := msg.Sender()
	resp := messageResponse{
		ID:          msg.ID,
		ContentType: msg.ContentType,
		Sender: events.SenderRef{
			ID:        sender.ID,
			Username:  sender.Username,
			AvatarURL: sender.AvatarURL(),
		},
		ParentID:  msg.ParentID,
		Reactions: models.AggregateReactions(reactions, viewerID),
		EditedAt:  msg.EditedAt,
		CreatedAt: msg.CreatedAt,
	}

	plaintext, err := h.encryptor.DecryptFromStorage(msg.Content, msg.ContentIV)
	if err != nil {
		observability.IncDecryptionError()
		resp.Unreadable = true
		return resp
	}
	resp.Content = plaintext
	return resp
}
