package models

import "time"

// MessageReaction is a (message, user, emoji) triple, unique per combination.
type MessageReaction struct {
	ID        int       `db:"id" json:"id"`
	MessageID int       `db:"message_id" json:"message_id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Emoji     string    `db:"emoji" json:"emoji"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ReactionGroup is the per-emoji aggregate projection of a message's reactions.
type ReactionGroup struct {
	Emoji      string `json:"emoji"`
	Count      int    `json:"count"`
	UserIDs    []int  `json:"user_ids"`
	HasReacted bool   `json:"has_reacted"`
}

// AggregateReactions groups raw reaction rows by emoji. Group order follows
// first appearance; HasReacted is computed for viewerID (0 means no viewer).
func AggregateReactions(reactions []MessageReaction, viewerID int) []ReactionGroup {
	byEmoji := make(map[string]*ReactionGroup)
	order := make([]string, 0)
	for _, r := range reactions {
		group, ok := byEmoji[r.Emoji]
		if !ok {
			group = &ReactionGroup{Emoji: r.Emoji}
			byEmoji[r.Emoji] = group
			order = append(order, r.Emoji)
		}
		group.Count++
		group.UserIDs = append(group.UserIDs, r.UserID)
		if viewerID != 0 && r.UserID == viewerID {
			group.HasReacted = true
		}
	}

	groups := make([]ReactionGroup, 0, len(order))
	for _, emoji := range order {
		groups = append(groups, *byEmoji[emoji])
	}
	return groups
}
