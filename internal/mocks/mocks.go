package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/deifi86/TeamChat/internal/models"
	"github.com/deifi86/TeamChat/internal/repositories"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetUsers(ctx context.Context, userIDs []int) ([]models.User, error) {
	args := m.Called(ctx, userIDs)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) SearchUsers(ctx context.Context, query string, excludeUserID int) ([]models.User, error) {
	args := m.Called(ctx, query, excludeUserID)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) UpdateProfile(ctx context.Context, userID int, username, statusText *string) (models.User, error) {
	args := m.Called(ctx, userID, username, statusText)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) UpdateStatus(ctx context.Context, userID int, status string, statusText string) (models.User, error) {
	args := m.Called(ctx, userID, status, statusText)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

type CompanyRepositoryMock struct {
	mock.Mock
}

func (m *CompanyRepositoryMock) CreateCompany(ctx context.Context, name, joinPasswordHash string, ownerID int) (models.Company, error) {
	args := m.Called(ctx, name, joinPasswordHash, ownerID)
	var company models.Company
	if val := args.Get(0); val != nil {
		company = val.(models.Company)
	}
	return company, args.Error(1)
}

func (m *CompanyRepositoryMock) SearchCompanies(ctx context.Context, query string) ([]models.Company, error) {
	args := m.Called(ctx, query)
	var companies []models.Company
	if val := args.Get(0); val != nil {
		companies = val.([]models.Company)
	}
	return companies, args.Error(1)
}

func (m *CompanyRepositoryMock) ListCompaniesForUser(ctx context.Context, userID int) ([]models.CompanyOverview, error) {
	args := m.Called(ctx, userID)
	var companies []models.CompanyOverview
	if val := args.Get(0); val != nil {
		companies = val.([]models.CompanyOverview)
	}
	return companies, args.Error(1)
}

func (m *CompanyRepositoryMock) JoinCompany(ctx context.Context, companyID, userID int) error {
	args := m.Called(ctx, companyID, userID)
	return args.Error(0)
}

func (m *CompanyRepositoryMock) LeaveCompany(ctx context.Context, companyID, userID int) error {
	args := m.Called(ctx, companyID, userID)
	return args.Error(0)
}

func (m *CompanyRepositoryMock) UpdateMemberRole(ctx context.Context, companyID, userID int, role string) error {
	args := m.Called(ctx, companyID, userID, role)
	return args.Error(0)
}

func (m *CompanyRepositoryMock) RemoveCompanyMember(ctx context.Context, companyID, userID int) error {
	args := m.Called(ctx, companyID, userID)
	return args.Error(0)
}

func (m *CompanyRepositoryMock) GetCompany(ctx context.Context, companyID int) (models.Company, error) {
	args := m.Called(ctx, companyID)
	var company models.Company
	if val := args.Get(0); val != nil {
		company = val.(models.Company)
	}
	return company, args.Error(1)
}

func (m *CompanyRepositoryMock) IsMember(ctx context.Context, companyID int, userID int) (bool, error) {
	args := m.Called(ctx, companyID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *CompanyRepositoryMock) IsAdmin(ctx context.Context, companyID int, userID int) (bool, error) {
	args := m.Called(ctx, companyID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *CompanyRepositoryMock) ListMembers(ctx context.Context, companyID int) ([]repositories.CompanyMemberInfo, error) {
	args := m.Called(ctx, companyID)
	var members []repositories.CompanyMemberInfo
	if val := args.Get(0); val != nil {
		members = val.([]repositories.CompanyMemberInfo)
	}
	return members, args.Error(1)
}

func (m *CompanyRepositoryMock) CompanyIDsForUser(ctx context.Context, userID int) ([]int, error) {
	args := m.Called(ctx, userID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

type ChannelRepositoryMock struct {
	mock.Mock
}

func (m *ChannelRepositoryMock) CreateChannel(ctx context.Context, companyID int, name, description string, isPrivate bool, createdBy int) (models.Channel, error) {
	args := m.Called(ctx, companyID, name, description, isPrivate, createdBy)
	var channel models.Channel
	if val := args.Get(0); val != nil {
		channel = val.(models.Channel)
	}
	return channel, args.Error(1)
}

func (m *ChannelRepositoryMock) GetChannel(ctx context.Context, channelID int) (models.Channel, error) {
	args := m.Called(ctx, channelID)
	var channel models.Channel
	if val := args.Get(0); val != nil {
		channel = val.(models.Channel)
	}
	return channel, args.Error(1)
}

func (m *ChannelRepositoryMock) ListChannels(ctx context.Context, companyID int) ([]models.Channel, error) {
	args := m.Called(ctx, companyID)
	var channels []models.Channel
	if val := args.Get(0); val != nil {
		channels = val.([]models.Channel)
	}
	return channels, args.Error(1)
}

func (m *ChannelRepositoryMock) UpdateChannel(ctx context.Context, channelID int, name, description string) (models.Channel, error) {
	args := m.Called(ctx, channelID, name, description)
	var channel models.Channel
	if val := args.Get(0); val != nil {
		channel = val.(models.Channel)
	}
	return channel, args.Error(1)
}

func (m *ChannelRepositoryMock) DeleteChannel(ctx context.Context, channelID int) error {
	args := m.Called(ctx, channelID)
	return args.Error(0)
}

func (m *ChannelRepositoryMock) IsMemberOfChannel(ctx context.Context, channel models.Channel, userID int) (bool, error) {
	args := m.Called(ctx, channel, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ChannelRepositoryMock) ListChannelMembers(ctx context.Context, channelID int) ([]repositories.ChannelMemberInfo, error) {
	args := m.Called(ctx, channelID)
	var members []repositories.ChannelMemberInfo
	if val := args.Get(0); val != nil {
		members = val.([]repositories.ChannelMemberInfo)
	}
	return members, args.Error(1)
}

func (m *ChannelRepositoryMock) AddMember(ctx context.Context, channelID, userID int, addedBy *int) error {
	args := m.Called(ctx, channelID, userID, addedBy)
	return args.Error(0)
}

func (m *ChannelRepositoryMock) RemoveMember(ctx context.Context, channelID, userID int) error {
	args := m.Called(ctx, channelID, userID)
	return args.Error(0)
}

func (m *ChannelRepositoryMock) CreateJoinRequest(ctx context.Context, channelID, userID int) (models.ChannelJoinRequest, error) {
	args := m.Called(ctx, channelID, userID)
	var request models.ChannelJoinRequest
	if val := args.Get(0); val != nil {
		request = val.(models.ChannelJoinRequest)
	}
	return request, args.Error(1)
}

func (m *ChannelRepositoryMock) GetJoinRequest(ctx context.Context, requestID int) (models.ChannelJoinRequest, error) {
	args := m.Called(ctx, requestID)
	var request models.ChannelJoinRequest
	if val := args.Get(0); val != nil {
		request = val.(models.ChannelJoinRequest)
	}
	return request, args.Error(1)
}

func (m *ChannelRepositoryMock) ListPendingJoinRequests(ctx context.Context, channelID int) ([]models.ChannelJoinRequest, error) {
	args := m.Called(ctx, channelID)
	var requests []models.ChannelJoinRequest
	if val := args.Get(0); val != nil {
		requests = val.([]models.ChannelJoinRequest)
	}
	return requests, args.Error(1)
}

func (m *ChannelRepositoryMock) ResolveJoinRequest(ctx context.Context, requestID int, approve bool, resolvedBy int) (models.ChannelJoinRequest, error) {
	args := m.Called(ctx, requestID, approve, resolvedBy)
	var request models.ChannelJoinRequest
	if val := args.Get(0); val != nil {
		request = val.(models.ChannelJoinRequest)
	}
	return request, args.Error(1)
}

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) FindOrCreate(ctx context.Context, initiatorID, receiverID int) (models.DirectConversation, bool, error) {
	args := m.Called(ctx, initiatorID, receiverID)
	var conversation models.DirectConversation
	if val := args.Get(0); val != nil {
		conversation = val.(models.DirectConversation)
	}
	return conversation, args.Bool(1), args.Error(2)
}

func (m *ConversationRepositoryMock) GetConversation(ctx context.Context, conversationID int) (models.DirectConversation, error) {
	args := m.Called(ctx, conversationID)
	var conversation models.DirectConversation
	if val := args.Get(0); val != nil {
		conversation = val.(models.DirectConversation)
	}
	return conversation, args.Error(1)
}

func (m *ConversationRepositoryMock) ListForUser(ctx context.Context, userID int) ([]models.DirectConversation, error) {
	args := m.Called(ctx, userID)
	var conversations []models.DirectConversation
	if val := args.Get(0); val != nil {
		conversations = val.([]models.DirectConversation)
	}
	return conversations, args.Error(1)
}

func (m *ConversationRepositoryMock) AcceptBy(ctx context.Context, conversationID, userID int) (models.DirectConversation, error) {
	args := m.Called(ctx, conversationID, userID)
	var conversation models.DirectConversation
	if val := args.Get(0); val != nil {
		conversation = val.(models.DirectConversation)
	}
	return conversation, args.Error(1)
}

func (m *ConversationRepositoryMock) Delete(ctx context.Context, conversationID int) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, params repositories.CreateMessageParams) (models.MessageWithSender, error) {
	args := m.Called(ctx, params)
	var msg models.MessageWithSender
	if val := args.Get(0); val != nil {
		msg = val.(models.MessageWithSender)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessageWithSender(ctx context.Context, messageID int) (models.MessageWithSender, error) {
	args := m.Called(ctx, messageID)
	var msg models.MessageWithSender
	if val := args.Get(0); val != nil {
		msg = val.(models.MessageWithSender)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, owner models.Messageable, before *models.Message, limit int) (repositories.MessagePage, error) {
	args := m.Called(ctx, owner, before, limit)
	var page repositories.MessagePage
	if val := args.Get(0); val != nil {
		page = val.(repositories.MessagePage)
	}
	return page, args.Error(1)
}

func (m *MessageRepositoryMock) UpdateContent(ctx context.Context, messageID int, content, contentIV string) (models.Message, error) {
	args := m.Called(ctx, messageID, content, contentIV)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) SoftDelete(ctx context.Context, messageID int) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) LatestMessage(ctx context.Context, owner models.Messageable) (models.MessageWithSender, error) {
	args := m.Called(ctx, owner)
	var msg models.MessageWithSender
	if val := args.Get(0); val != nil {
		msg = val.(models.MessageWithSender)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) UnreadCount(ctx context.Context, owner models.Messageable, userID int) (int, error) {
	args := m.Called(ctx, owner, userID)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) ListReactionsForMessages(ctx context.Context, messageIDs []int) (map[int][]models.MessageReaction, error) {
	args := m.Called(ctx, messageIDs)
	var reactions map[int][]models.MessageReaction
	if val := args.Get(0); val != nil {
		reactions = val.(map[int][]models.MessageReaction)
	}
	return reactions, args.Error(1)
}

type ReactionRepositoryMock struct {
	mock.Mock
}

func (m *ReactionRepositoryMock) AddReaction(ctx context.Context, messageID, userID int, emoji string) (models.MessageReaction, bool, error) {
	args := m.Called(ctx, messageID, userID, emoji)
	var reaction models.MessageReaction
	if val := args.Get(0); val != nil {
		reaction = val.(models.MessageReaction)
	}
	return reaction, args.Bool(1), args.Error(2)
}

func (m *ReactionRepositoryMock) RemoveReaction(ctx context.Context, messageID, userID int, emoji string) error {
	args := m.Called(ctx, messageID, userID, emoji)
	return args.Error(0)
}

func (m *ReactionRepositoryMock) ToggleReaction(ctx context.Context, messageID, userID int, emoji string) (models.MessageReaction, string, error) {
	args := m.Called(ctx, messageID, userID, emoji)
	var reaction models.MessageReaction
	if val := args.Get(0); val != nil {
		reaction = val.(models.MessageReaction)
	}
	return reaction, args.String(1), args.Error(2)
}

func (m *ReactionRepositoryMock) ListReactions(ctx context.Context, messageID int) ([]models.MessageReaction, error) {
	args := m.Called(ctx, messageID)
	var reactions []models.MessageReaction
	if val := args.Get(0); val != nil {
		reactions = val.([]models.MessageReaction)
	}
	return reactions, args.Error(1)
}

type FileRepositoryMock struct {
	mock.Mock
}

func (m *FileRepositoryMock) CreateFile(ctx context.Context, params repositories.CreateFileParams) (models.File, error) {
	args := m.Called(ctx, params)
	var file models.File
	if val := args.Get(0); val != nil {
		file = val.(models.File)
	}
	return file, args.Error(1)
}

func (m *FileRepositoryMock) GetFile(ctx context.Context, fileID int) (models.File, error) {
	args := m.Called(ctx, fileID)
	var file models.File
	if val := args.Get(0); val != nil {
		file = val.(models.File)
	}
	return file, args.Error(1)
}

func (m *FileRepositoryMock) ListFiles(ctx context.Context, owner models.Messageable) ([]models.File, error) {
	args := m.Called(ctx, owner)
	var files []models.File
	if val := args.Get(0); val != nil {
		files = val.([]models.File)
	}
	return files, args.Error(1)
}

type ReceiptRepositoryMock struct {
	mock.Mock
}

func (m *ReceiptRepositoryMock) UpsertReceipt(ctx context.Context, userID int, owner models.Messageable, lastReadMessageID int) (models.ReadReceipt, error) {
	args := m.Called(ctx, userID, owner, lastReadMessageID)
	var receipt models.ReadReceipt
	if val := args.Get(0); val != nil {
		receipt = val.(models.ReadReceipt)
	}
	return receipt, args.Error(1)
}

func (m *ReceiptRepositoryMock) GetReceipt(ctx context.Context, userID int, owner models.Messageable) (models.ReadReceipt, error) {
	args := m.Called(ctx, userID, owner)
	var receipt models.ReadReceipt
	if val := args.Get(0); val != nil {
		receipt = val.(models.ReadReceipt)
	}
	return receipt, args.Error(1)
}
