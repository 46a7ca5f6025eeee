package repository

import (
	"context"

	"casalivre/internal/domain/entity"
)

// MessageRepository is the message store adapter contract. Insert publishes
// the canonical row onto the realtime change feed after the write succeeds.
type MessageRepository interface {
	// Insert persists a new message and returns the canonical row.
	Insert(ctx context.Context, message *entity.Message) (*entity.Message, error)

	// ListConversation returns every message of the conversation ascending by
	// createdAt. Returns NOT_AUTHORIZED when userID is not a participant.
	ListConversation(ctx context.Context, userID string, key entity.ConversationKey) ([]*entity.Message, error)

	// ListForUser returns all messages the user sent or received, descending
	// by createdAt. Feeds the conversation summary aggregation.
	ListForUser(ctx context.Context, userID string) ([]*entity.Message, error)
}
