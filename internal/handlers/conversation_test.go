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

type conversationDeps struct {
	conversationRepo *mocks.ConversationRepositoryMock
	messageRepo      *mocks.MessageRepositoryMock
	userRepo         *mocks.UserRepositoryMock
	companyRepo      *mocks.CompanyRepositoryMock
	handler          *ConversationHandler
}

func newConversationDeps(t *testing.T) *conversationDeps {
	d := &conversationDeps{
		conversationRepo: new(mocks.ConversationRepositoryMock),
		messageRepo:      new(mocks.MessageRepositoryMock),
		userRepo:         new(mocks.UserRepositoryMock),
		companyRepo:      new(mocks.CompanyRepositoryMock),
	}
	d.handler = NewConversationHandler(
		d.conversationRepo, d.messageRepo, d.userRepo, d.companyRepo,
		testEncryptor(t), ws.NewHub(), nil,
	)
	return d
}

func setupConversationRouter(handler *ConversationHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.GET("/conversations", handler.ListConversations)
	r.POST("/conversations", handler.CreateConversation)
	r.GET("/conversations/:conversation_id", handler.GetConversation)
	r.POST("/conversations/:conversation_id/accept", handler.AcceptConversation)
	r.POST("/conversations/:conversation_id/reject", handler.RejectConversation)
	r.DELETE("/conversations/:conversation_id", handler.DeleteConversation)
	return r
}

func TestCreateConversationWithSelfRejected(t *testing.T) {
	d := newConversationDeps(t)
	router := setupConversationRouter(d.handler)

	req := httptest.NewRequest(http.MethodPost, "/conversations", bytes.NewBufferString(`{"user_id":1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	d.conversationRepo.AssertNotCalled(t, "FindOrCreate", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateConversationNewlyCreated(t *testing.T) {
	d := newConversationDeps(t)
	router := setupConversationRouter(d.handler)

	conversation := models.DirectConversation{ID: 3, UserOneID: 1, UserTwoID: 2, UserOneAccepted: true}

	d.userRepo.On("GetUser", mock.Anything, 2).Return(models.User{ID: 2, Username: "bob"}, nil).Once()
	d.companyRepo.On("CompanyIDsForUser", mock.Anything, 1).Return([]int{4, 7}, nil).Once()
	d.companyRepo.On("CompanyIDsForUser", mock.Anything, 2).Return([]int{7}, nil).Once()
	d.conversationRepo.On("FindOrCreate", mock.Anything, 1, 2).Return(conversation, true, nil).Once()
	d.userRepo.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1, Username: "alice"}, nil).Once()
	d.messageRepo.On("UnreadCount", mock.Anything, models.ConversationRef(3), 1).Return(0, nil).Once()
	d.messageRepo.On("LatestMessage", mock.Anything, models.ConversationRef(3)).
		Return(models.MessageWithSender{}, repositories.ErrMessageNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations", bytes.NewBufferString(`{"user_id":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		ID           int  `json:"id"`
		Accepted     bool `json:"accepted"`
		AcceptedByMe bool `json:"accepted_by_me"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 3, resp.ID)
	assert.False(t, resp.Accepted)
	assert.True(t, resp.AcceptedByMe)
	d.conversationRepo.AssertExpectations(t)
}

func TestCreateConversationExistingReturned(t *testing.T) {
	d := newConversationDeps(t)
	router := setupConversationRouter(d.handler)

	conversation := models.DirectConversation{ID: 3, UserOneID: 1, UserTwoID: 2, UserOneAccepted: true, UserTwoAccepted: true}

	d.userRepo.On("GetUser", mock.Anything, 2).Return(models.User{ID: 2, Username: "bob"}, nil).Once()
	d.companyRepo.On("CompanyIDsForUser", mock.Anything, 1).Return([]int{7}, nil).Once()
	d.companyRepo.On("CompanyIDsForUser", mock.Anything, 2).Return([]int{7}, nil).Once()
	d.conversationRepo.On("FindOrCreate", mock.Anything, 1, 2).Return(conversation, false, nil).Once()
	d.messageRepo.On("UnreadCount", mock.Anything, models.ConversationRef(3), 1).Return(2, nil).Once()
	d.messageRepo.On("LatestMessage", mock.Anything, models.ConversationRef(3)).
		Return(models.MessageWithSender{}, repositories.ErrMessageNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations", bytes.NewBufferString(`{"user_id":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	d.userRepo.AssertNotCalled(t, "GetUser", mock.Anything, 1)
}

func TestCreateConversationWithoutSharedCompanyReads404(t *testing.T) {
	d := newConversationDeps(t)
	router := setupConversationRouter(d.handler)

	d.userRepo.On("GetUser", mock.Anything, 2).Return(models.User{ID: 2}, nil).Once()
	d.companyRepo.On("CompanyIDsForUser", mock.Anything, 1).Return([]int{4}, nil).Once()
	d.companyRepo.On("CompanyIDsForUser", mock.Anything, 2).Return([]int{9}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations", bytes.NewBufferString(`{"user_id":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	d.conversationRepo.AssertNotCalled(t, "FindOrCreate", mock.Anything, mock.Anything, mock.Anything)
}

func TestAcceptConversationConflictWhenFullyAccepted(t *testing.T) {
	d := newConversationDeps(t)
	router := setupConversationRouter(d.handler)

	d.conversationRepo.On("GetConversation", mock.Anything, 3).Return(models.DirectConversation{
		ID: 3, UserOneID: 1, UserTwoID: 2, UserOneAccepted: true, UserTwoAccepted: true,
	}, nil).Once()
	d.conversationRepo.On("AcceptBy", mock.Anything, 3, 1).
		Return(models.DirectConversation{}, repositories.ErrAlreadyAccepted).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/3/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestAcceptConversationSuccess(t *testing.T) {
	d := newConversationDeps(t)
	router := setupConversationRouter(d.handler)

	pending := models.DirectConversation{ID: 3, UserOneID: 1, UserTwoID: 2, UserTwoAccepted: true}
	accepted := pending
	accepted.UserOneAccepted = true

	d.conversationRepo.On("GetConversation", mock.Anything, 3).Return(pending, nil).Once()
	d.conversationRepo.On("AcceptBy", mock.Anything, 3, 1).Return(accepted, nil).Once()
	d.userRepo.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1, Username: "alice"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/3/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	d.conversationRepo.AssertExpectations(t)
}

func TestRejectAcceptedConversationConflicts(t *testing.T) {
	d := newConversationDeps(t)
	router := setupConversationRouter(d.handler)

	d.conversationRepo.On("GetConversation", mock.Anything, 3).Return(models.DirectConversation{
		ID: 3, UserOneID: 1, UserTwoID: 2, UserOneAccepted: true, UserTwoAccepted: true,
	}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/3/reject", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	d.conversationRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestRejectPendingConversationDeletes(t *testing.T) {
	d := newConversationDeps(t)
	router := setupConversationRouter(d.handler)

	d.conversationRepo.On("GetConversation", mock.Anything, 3).Return(models.DirectConversation{
		ID: 3, UserOneID: 1, UserTwoID: 2, UserTwoAccepted: true,
	}, nil).Once()
	d.conversationRepo.On("Delete", mock.Anything, 3).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/3/reject", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	d.conversationRepo.AssertExpectations(t)
}

func TestGetConversationAsOutsiderReads404(t *testing.T) {
	d := newConversationDeps(t)
	router := setupConversationRouter(d.handler)

	d.conversationRepo.On("GetConversation", mock.Anything, 3).Return(models.DirectConversation{
		ID: 3, UserOneID: 5, UserTwoID: 2,
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
