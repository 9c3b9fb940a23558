package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/deifi86/TeamChat/internal/mocks"
	"github.com/deifi86/TeamChat/internal/models"
	"github.com/deifi86/TeamChat/internal/repositories"
	"github.com/deifi86/TeamChat/internal/ws"
)

type reactionDeps struct {
	reactionRepo     *mocks.ReactionRepositoryMock
	messageRepo      *mocks.MessageRepositoryMock
	userRepo         *mocks.UserRepositoryMock
	channelRepo      *mocks.ChannelRepositoryMock
	conversationRepo *mocks.ConversationRepositoryMock
	handler          *ReactionHandler
}

func newReactionDeps() *reactionDeps {
	d := &reactionDeps{
		reactionRepo:     new(mocks.ReactionRepositoryMock),
		messageRepo:      new(mocks.MessageRepositoryMock),
		userRepo:         new(mocks.UserRepositoryMock),
		channelRepo:      new(mocks.ChannelRepositoryMock),
		conversationRepo: new(mocks.ConversationRepositoryMock),
	}
	d.handler = NewReactionHandler(
		d.reactionRepo, d.messageRepo, d.userRepo, d.channelRepo, d.conversationRepo,
		ws.NewHub(), nil,
	)
	return d
}

func setupReactionRouter(handler *ReactionHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.POST("/messages/:message_id/reactions", handler.AddReaction)
	r.GET("/messages/:message_id/reactions", handler.ListReactions)
	r.POST("/messages/:message_id/reactions/toggle", handler.ToggleReaction)
	r.DELETE("/messages/:message_id/reactions/:emoji", handler.RemoveReaction)
	return r
}

func (d *reactionDeps) expectVisibleChannelMessage(messageID int) {
	msg := models.Message{ID: messageID, MessageableType: models.MessageableChannel, MessageableID: 5, SenderID: 2}
	channel := models.Channel{ID: 5, CompanyID: 2}
	d.messageRepo.On("GetMessage", mock.Anything, messageID).Return(msg, nil).Once()
	d.channelRepo.On("GetChannel", mock.Anything, 5).Return(channel, nil).Once()
	d.channelRepo.On("IsMemberOfChannel", mock.Anything, channel, 1).Return(true, nil).Once()
}

func TestAddReactionCreated(t *testing.T) {
	d := newReactionDeps()
	router := setupReactionRouter(d.handler)

	d.expectVisibleChannelMessage(10)
	d.reactionRepo.On("AddReaction", mock.Anything, 10, 1, "👍").
		Return(models.MessageReaction{ID: 3, MessageID: 10, UserID: 1, Emoji: "👍"}, true, nil).Once()
	d.userRepo.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1, Username: "alice"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/messages/10/reactions", bytes.NewBufferString(`{"emoji":"👍"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	d.reactionRepo.AssertExpectations(t)
}

func TestAddReactionTwiceIsIdempotent(t *testing.T) {
	d := newReactionDeps()
	router := setupReactionRouter(d.handler)

	d.expectVisibleChannelMessage(10)
	d.reactionRepo.On("AddReaction", mock.Anything, 10, 1, "👍").
		Return(models.MessageReaction{ID: 3, MessageID: 10, UserID: 1, Emoji: "👍"}, false, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/messages/10/reactions", bytes.NewBufferString(`{"emoji":"👍"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	d.userRepo.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
}

func TestRemoveMissingReactionNotFound(t *testing.T) {
	d := newReactionDeps()
	router := setupReactionRouter(d.handler)

	d.expectVisibleChannelMessage(10)
	d.reactionRepo.On("RemoveReaction", mock.Anything, 10, 1, "👍").
		Return(repositories.ErrReactionNotFound).Once()

	req := httptest.NewRequest(http.MethodDelete, "/messages/10/reactions/👍", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestToggleReactionReportsResult(t *testing.T) {
	d := newReactionDeps()
	router := setupReactionRouter(d.handler)

	d.expectVisibleChannelMessage(10)
	d.reactionRepo.On("ToggleReaction", mock.Anything, 10, 1, "🎉").
		Return(models.MessageReaction{}, repositories.ToggleRemoved, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/messages/10/reactions/toggle", bytes.NewBufferString(`{"emoji":"🎉"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Result string `json:"result"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, repositories.ToggleRemoved, resp.Result)
}

func TestReactionOnInvisibleMessageReads404(t *testing.T) {
	d := newReactionDeps()
	router := setupReactionRouter(d.handler)

	msg := models.Message{ID: 10, MessageableType: models.MessageableChannel, MessageableID: 5, SenderID: 2}
	channel := models.Channel{ID: 5, CompanyID: 2, IsPrivate: true}
	d.messageRepo.On("GetMessage", mock.Anything, 10).Return(msg, nil).Once()
	d.channelRepo.On("GetChannel", mock.Anything, 5).Return(channel, nil).Once()
	d.channelRepo.On("IsMemberOfChannel", mock.Anything, channel, 1).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/messages/10/reactions", bytes.NewBufferString(`{"emoji":"👍"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	d.reactionRepo.AssertNotCalled(t, "AddReaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListReactionsAggregated(t *testing.T) {
	d := newReactionDeps()
	router := setupReactionRouter(d.handler)

	d.expectVisibleChannelMessage(10)
	d.reactionRepo.On("ListReactions", mock.Anything, 10).Return([]models.MessageReaction{
		{ID: 1, MessageID: 10, UserID: 1, Emoji: "👍"},
		{ID: 2, MessageID: 10, UserID: 2, Emoji: "👍"},
		{ID: 3, MessageID: 10, UserID: 2, Emoji: "🎉"},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages/10/reactions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Reactions []models.ReactionGroup `json:"reactions"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Reactions, 2)
	assert.Equal(t, "👍", resp.Reactions[0].Emoji)
	assert.Equal(t, 2, resp.Reactions[0].Count)
	assert.True(t, resp.Reactions[0].HasReacted)
	assert.False(t, resp.Reactions[1].HasReacted)
}
