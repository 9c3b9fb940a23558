package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deifi86/TeamChat/internal/models"
)

func TestTopicNames(t *testing.T) {
	assert.Equal(t, Topic("user.7"), UserTopic(7))
	assert.Equal(t, Topic("channel.3"), ChannelTopic(3))
	assert.Equal(t, Topic("conversation.9"), ConversationTopic(9))
	assert.Equal(t, Topic("company.2"), CompanyTopic(2))
}

func TestTopicForOwner(t *testing.T) {
	assert.Equal(t, ChannelTopic(3), TopicFor(models.ChannelRef(3)))
	assert.Equal(t, ConversationTopic(9), TopicFor(models.ConversationRef(9)))
}

func TestNewMessageEventShape(t *testing.T) {
	avatar := "avatars/a.png"
	msg := models.MessageWithSender{
		Message: models.Message{
			ID: 5, MessageableType: models.MessageableChannel, MessageableID: 3,
			SenderID: 7, ContentType: models.ContentTypeText, CreatedAt: time.Now(),
		},
		SenderUsername:   "alice",
		SenderAvatarPath: &avatar,
	}

	payload, err := json.Marshal(NewMessage(msg, "hello"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "message.new", decoded["event"])

	data := decoded["data"].(map[string]any)
	assert.Equal(t, "hello", data["content"])
	sender := data["sender"].(map[string]any)
	assert.Equal(t, "alice", sender["username"])
	assert.Equal(t, "/storage/avatars/a.png", sender["avatar_url"])
}

func TestReactionRemovedEventShape(t *testing.T) {
	payload, err := json.Marshal(ReactionRemoved(5, "👍", 7))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "reaction.removed", decoded["event"])

	data := decoded["data"].(map[string]any)
	assert.Equal(t, float64(5), data["message_id"])
	reaction := data["reaction"].(map[string]any)
	assert.Equal(t, "👍", reaction["emoji"])
	assert.Equal(t, float64(7), reaction["user_id"])
}
