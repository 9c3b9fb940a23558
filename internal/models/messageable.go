package models

import "fmt"

// MessageableType identifies the owner kind of a message or file. The set is
// closed: messages live either in a channel or in a direct conversation.
type MessageableType string

const (
	MessageableChannel MessageableType = "channel"
	MessageableDirect  MessageableType = "direct"
)

// Valid reports whether t is one of the two known owner kinds.
func (t MessageableType) Valid() bool {
	return t == MessageableChannel || t == MessageableDirect
}

// Messageable is the (type, id) pair identifying a channel or conversation.
type Messageable struct {
	Type MessageableType
	ID   int
}

func ChannelRef(channelID int) Messageable {
	return Messageable{Type: MessageableChannel, ID: channelID}
}

func ConversationRef(conversationID int) Messageable {
	return Messageable{Type: MessageableDirect, ID: conversationID}
}

func (m Messageable) String() string {
	return fmt.Sprintf("%s/%d", m.Type, m.ID)
}
