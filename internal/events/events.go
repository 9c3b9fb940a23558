// Package events defines the broadcast wire contract: topic names, event
// names, and payload shapes. A separate client depends on these verbatim.
package events

import (
	"fmt"
	"time"

	"github.com/deifi86/TeamChat/internal/models"
)

// Topic is a subscription channel name, one of four families:
// user.{id}, channel.{id}, conversation.{id}, company.{id}.
type Topic string

func UserTopic(userID int) Topic {
	return Topic(fmt.Sprintf("user.%d", userID))
}

func ChannelTopic(channelID int) Topic {
	return Topic(fmt.Sprintf("channel.%d", channelID))
}

func ConversationTopic(conversationID int) Topic {
	return Topic(fmt.Sprintf("conversation.%d", conversationID))
}

func CompanyTopic(companyID int) Topic {
	return Topic(fmt.Sprintf("company.%d", companyID))
}

// TopicFor resolves the topic carrying message-scoped events for an owner.
func TopicFor(owner models.Messageable) Topic {
	if owner.Type == models.MessageableChannel {
		return ChannelTopic(owner.ID)
	}
	return ConversationTopic(owner.ID)
}

// Event names.
const (
	EventMessageNew           = "message.new"
	EventMessageEdited        = "message.edited"
	EventMessageDeleted       = "message.deleted"
	EventReactionAdded        = "reaction.added"
	EventReactionRemoved      = "reaction.removed"
	EventUserTyping           = "user.typing"
	EventConversationRequest  = "conversation.request"
	EventConversationAccepted = "conversation.accepted"
	EventUserStatusChanged    = "user.status_changed"
	EventPresenceJoin         = "presence.join"
	EventPresenceLeave        = "presence.leave"
	EventPresenceState        = "presence.state"

	// EventConnectionEstablished is the first frame on every subscription.
	// Clients echo its socket_id in the X-Socket-ID header on mutating
	// requests so broadcasts skip only the originating connection.
	EventConnectionEstablished = "connection.established"
)

// Event is the envelope delivered to subscribers.
type Event struct {
	Name string      `json:"event"`
	Data interface{} `json:"data"`
}

// UserRef is the light user shape used in message-scoped payloads.
type UserRef struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// SenderRef extends UserRef with the avatar for message sender payloads.
type SenderRef struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// RosterMember is the heavier member shape exposed on presence topics.
type RosterMember struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	Status    string `json:"status"`
}

type NewMessagePayload struct {
	ID          int       `json:"id"`
	Content     string    `json:"content"`
	ContentType string    `json:"content_type"`
	Sender      SenderRef `json:"sender"`
	ParentID    *int      `json:"parent_id"`
	CreatedAt   string    `json:"created_at"`
}

type MessageEditedPayload struct {
	ID       int    `json:"id"`
	Content  string `json:"content"`
	EditedAt string `json:"edited_at"`
}

// MessageDeletedPayload carries the id only; content is never re-sent.
type MessageDeletedPayload struct {
	ID int `json:"id"`
}

type ReactionRef struct {
	ID    int     `json:"id"`
	Emoji string  `json:"emoji"`
	User  UserRef `json:"user"`
}

type ReactionAddedPayload struct {
	MessageID int         `json:"message_id"`
	Reaction  ReactionRef `json:"reaction"`
}

type RemovedReactionRef struct {
	Emoji  string `json:"emoji"`
	UserID int    `json:"user_id"`
}

type ReactionRemovedPayload struct {
	MessageID int                `json:"message_id"`
	Reaction  RemovedReactionRef `json:"reaction"`
}

type TypingPayload struct {
	User      UserRef `json:"user"`
	Timestamp string  `json:"timestamp"`
}

type ConversationRequestPayload struct {
	ConversationID int       `json:"conversation_id"`
	Initiator      SenderRef `json:"initiator"`
}

type ConversationAcceptedPayload struct {
	ConversationID int     `json:"conversation_id"`
	AcceptedBy     UserRef `json:"accepted_by"`
}

type StatusChangedPayload struct {
	UserID     int    `json:"user_id"`
	Status     string `json:"status"`
	StatusText string `json:"status_text"`
}

type PresenceJoinPayload struct {
	Member RosterMember `json:"member"`
}

type PresenceLeavePayload struct {
	Member RosterMember `json:"member"`
}

// ConnectionEstablishedPayload carries the socket id of a new subscription.
type ConnectionEstablishedPayload struct {
	SocketID string `json:"socket_id"`
}

// PresenceStatePayload is sent to a subscriber on joining a presence topic.
type PresenceStatePayload struct {
	Members []RosterMember `json:"members"`
}

// NewMessage builds the message.new event from a stored message and its
// already-decrypted content.
func NewMessage(msg models.MessageWithSender, plaintext string) Event {
	sender := msg.Sender()
	return Event{Name: EventMessageNew, Data: NewMessagePayload{
		ID:          msg.ID,
		Content:     plaintext,
		ContentType: msg.ContentType,
		Sender: SenderRef{
			ID:        sender.ID,
			Username:  sender.Username,
			AvatarURL: sender.AvatarURL(),
		},
		ParentID:  msg.ParentID,
		CreatedAt: msg.CreatedAt.Format(time.RFC3339),
	}}
}

func MessageEdited(msg models.Message, plaintext string) Event {
	editedAt := ""
	if msg.EditedAt != nil {
		editedAt = msg.EditedAt.Format(time.RFC3339)
	}
	return Event{Name: EventMessageEdited, Data: MessageEditedPayload{
		ID:       msg.ID,
		Content:  plaintext,
		EditedAt: editedAt,
	}}
}

func MessageDeleted(messageID int) Event {
	return Event{Name: EventMessageDeleted, Data: MessageDeletedPayload{ID: messageID}}
}

func ReactionAdded(messageID int, reaction models.MessageReaction, user models.User) Event {
	return Event{Name: EventReactionAdded, Data: ReactionAddedPayload{
		MessageID: messageID,
		Reaction: ReactionRef{
			ID:    reaction.ID,
			Emoji: reaction.Emoji,
			User:  UserRef{ID: user.ID, Username: user.Username},
		},
	}}
}

func ReactionRemoved(messageID int, emoji string, userID int) Event {
	return Event{Name: EventReactionRemoved, Data: ReactionRemovedPayload{
		MessageID: messageID,
		Reaction:  RemovedReactionRef{Emoji: emoji, UserID: userID},
	}}
}

func UserTyping(user models.User) Event {
	return Event{Name: EventUserTyping, Data: TypingPayload{
		User:      UserRef{ID: user.ID, Username: user.Username},
		Timestamp: time.Now().Format(time.RFC3339),
	}}
}

func ConversationRequest(conversationID int, initiator models.User) Event {
	return Event{Name: EventConversationRequest, Data: ConversationRequestPayload{
		ConversationID: conversationID,
		Initiator: SenderRef{
			ID:        initiator.ID,
			Username:  initiator.Username,
			AvatarURL: initiator.AvatarURL(),
		},
	}}
}

func ConversationAccepted(conversationID int, acceptedBy models.User) Event {
	return Event{Name: EventConversationAccepted, Data: ConversationAcceptedPayload{
		ConversationID: conversationID,
		AcceptedBy:     UserRef{ID: acceptedBy.ID, Username: acceptedBy.Username},
	}}
}

func UserStatusChanged(user models.User) Event {
	return Event{Name: EventUserStatusChanged, Data: StatusChangedPayload{
		UserID:     user.ID,
		Status:     user.Status,
		StatusText: user.StatusText,
	}}
}

// ConnectionEstablished announces a subscription's socket id to its owner.
func ConnectionEstablished(socketID string) Event {
	return Event{Name: EventConnectionEstablished, Data: ConnectionEstablishedPayload{SocketID: socketID}}
}

// Roster converts a user to its presence-roster projection.
func Roster(user models.User) RosterMember {
	return RosterMember{
		ID:        user.ID,
		Username:  user.Username,
		AvatarURL: user.AvatarURL(),
		Status:    user.Status,
	}
}
