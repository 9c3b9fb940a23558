package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/deifi86/TeamChat/internal/models"
	"github.com/deifi86/TeamChat/internal/repositories"
	"github.com/deifi86/TeamChat/internal/telemetry"
)

// FileHandler records file metadata for channels and conversations. The
// bytes themselves live in external storage; this service only tracks the
// catalog entries.
type FileHandler struct {
	fileRepo         repositories.FileRepository
	messageRepo      repositories.MessageRepository
	channelRepo      repositories.ChannelRepository
	conversationRepo repositories.ConversationRepository
	audit            *telemetry.AuditEmitter
}

// NewFileHandler builds a FileHandler.
func NewFileHandler(
	fileRepo repositories.FileRepository,
	messageRepo repositories.MessageRepository,
	channelRepo repositories.ChannelRepository,
	conversationRepo repositories.ConversationRepository,
	audit *telemetry.AuditEmitter,
) *FileHandler {
	return &FileHandler{
		fileRepo:         fileRepo,
		messageRepo:      messageRepo,
		channelRepo:      channelRepo,
		conversationRepo: conversationRepo,
		audit:            audit,
	}
}

// CreateChannelFile records a file uploaded into a channel.
func (h *FileHandler) CreateChannelFile(c *gin.Context) {
	owner, ok := h.channelOwner(c)
	if !ok {
		return
	}
	h.createFile(c, owner)
}

// ListChannelFiles returns the files of a channel.
func (h *FileHandler) ListChannelFiles(c *gin.Context) {
	owner, ok := h.channelOwner(c)
	if !ok {
		return
	}
	h.listFiles(c, owner)
}

// CreateConversationFile records a file uploaded into a conversation.
func (h *FileHandler) CreateConversationFile(c *gin.Context) {
	owner, ok := h.conversationOwner(c, true)
	if !ok {
		return
	}
	h.createFile(c, owner)
}

// ListConversationFiles returns the files of a conversation.
func (h *FileHandler) ListConversationFiles(c *gin.Context) {
	owner, ok := h.conversationOwner(c, false)
	if !ok {
		return
	}
	h.listFiles(c, owner)
}

func (h *FileHandler) createFile(c *gin.Context, owner models.Messageable) {
	userID := c.GetInt("userID")

	var req struct {
		MessageID     *int    `json:"message_id"`
		OriginalName  string  `json:"original_name" binding:"required"`
		StoredName    string  `json:"stored_name" binding:"required"`
		MimeType      string  `json:"mime_type" binding:"required"`
		SizeBytes     int64   `json:"size_bytes" binding:"required"`
		IsCompressed  bool    `json:"is_compressed"`
		ThumbnailPath *string `json:"thumbnail_path"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.MessageID != nil {
		msg, err := h.messageRepo.GetMessage(c.Request.Context(), *req.MessageID)
		if err != nil || msg.Owner() != owner {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "message does not belong here"})
			return
		}
	}

	file, err := h.fileRepo.CreateFile(c.Request.Context(), repositories.CreateFileParams{
		Owner:         owner,
		MessageID:     req.MessageID,
		UploadedBy:    userID,
		OriginalName:  req.OriginalName,
		StoredName:    req.StoredName,
		MimeType:      req.MimeType,
		SizeBytes:     req.SizeBytes,
		IsCompressed:  req.IsCompressed,
		ThumbnailPath: req.ThumbnailPath,
	})
	if err != nil {
		emitAudit(c, h.audit, telemetry.AuditFile, "ERROR", "file record failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record file"})
		return
	}

	emitAudit(c, h.audit, telemetry.AuditFile, "INFO", "File recorded")
	c.JSON(http.StatusCreated, file)
}

func (h *FileHandler) listFiles(c *gin.Context, owner models.Messageable) {
	files, err := h.fileRepo.ListFiles(c.Request.Context(), owner)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load files"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (h *FileHandler) channelOwner(c *gin.Context) (models.Messageable, bool) {
	channelID, err := strconv.Atoi(c.Param("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return models.Messageable{}, false
	}

	channel, err := h.channelRepo.GetChannel(c.Request.Context(), channelID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		return models.Messageable{}, false
	}
	member, err := h.channelRepo.IsMemberOfChannel(c.Request.Context(), channel, c.GetInt("userID"))
	if err != nil || !member {
		c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		return models.Messageable{}, false
	}
	return models.ChannelRef(channelID), true
}

func (h *FileHandler) conversationOwner(c *gin.Context, requireAccepted bool) (models.Messageable, bool) {
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
