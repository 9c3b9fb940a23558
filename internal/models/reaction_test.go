package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateReactionsGroupsByEmoji(t *testing.T) {
	reactions := []MessageReaction{
		{ID: 1, MessageID: 9, UserID: 1, Emoji: "👍"},
		{ID: 2, MessageID: 9, UserID: 2, Emoji: "🎉"},
		{ID: 3, MessageID: 9, UserID: 3, Emoji: "👍"},
	}

	groups := AggregateReactions(reactions, 3)

	require.Len(t, groups, 2)
	assert.Equal(t, "👍", groups[0].Emoji)
	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, []int{1, 3}, groups[0].UserIDs)
	assert.True(t, groups[0].HasReacted)

	assert.Equal(t, "🎉", groups[1].Emoji)
	assert.Equal(t, 1, groups[1].Count)
	assert.False(t, groups[1].HasReacted)
}

func TestAggregateReactionsEmpty(t *testing.T) {
	assert.Empty(t, AggregateReactions(nil, 1))
}

func TestAggregateReactionsNoViewer(t *testing.T) {
	groups := AggregateReactions([]MessageReaction{{UserID: 2, Emoji: "👍"}}, 0)
	require.Len(t, groups, 1)
	assert.False(t, groups[0].HasReacted)
}
