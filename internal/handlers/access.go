package handlers

import (
	"context"
	"errors"

	"github.com/deifi86/TeamChat/internal/models"
	"github.com/deifi86/TeamChat/internal/repositories"
)

// canAccessOwner reports whether userID may see the channel or conversation a
// message belongs to. A missing owner reads as no access; callers translate
// both cases to 404 so hidden entities stay indistinguishable from absent
// ones.
func canAccessOwner(
	ctx context.Context,
	channelRepo repositories.ChannelRepository,
	conversationRepo repositories.ConversationRepository,
	owner models.Messageable,
	userID int,
) (bool, error) {
	switch owner.Type {
	case models.MessageableChannel:
		channel, err := channelRepo.GetChannel(ctx, owner.ID)
		if errors.Is(err, repositories.ErrChannelNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return channelRepo.IsMemberOfChannel(ctx, channel, userID)
	case models.MessageableDirect:
		conversation, err := conversationRepo.GetConversation(ctx, owner.ID)
		if errors.Is(err, repositories.ErrConversationNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return conversation.HasUser(userID), nil
	}
	return false, nil
}
