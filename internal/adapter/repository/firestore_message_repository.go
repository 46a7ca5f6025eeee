package repository

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"casalivre/internal/domain/entity"
	"casalivre/internal/domain/repository"
	"casalivre/internal/infrastructure/realtime"
	"casalivre/pkg/errors"
	"casalivre/pkg/logger"
)

type firestoreMessageRepository struct {
	client *firestore.Client
	feed   *realtime.Feed
	log    *logger.Logger
}

func NewFirestoreMessageRepository(client *firestore.Client, feed *realtime.Feed, log *logger.Logger) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
		feed:   feed,
		log:    log.WithComponent("repository.message"),
	}
}

func (r *firestoreMessageRepository) Insert(ctx context.Context, message *entity.Message) (*entity.Message, error) {
	if message.SenderID == message.ReceiverID {
		return nil, errors.BadRequest("sender and receiver must differ", nil)
	}
	if message.ListingID == "" {
		return nil, errors.BadRequest("message requires a listing", nil)
	}

	row := *message
	row.ID = uuid.New().String()
	row.PairKey = row.Key().PairKey()
	row.CreatedAt = time.Now()
	row.Local = false

	if _, err := r.client.Collection("messages").Doc(row.ID).Set(ctx, &row); err != nil {
		return nil, errors.TransientFetch("failed to insert message", err)
	}

	// The row is persisted even when the feed publish fails; subscribers fall
	// back to fetch-on-mount.
	if err := r.feed.PublishMessage(&row); err != nil {
		r.log.Warn("failed to publish message insert", zap.String("message_id", row.ID), zap.Error(err))
	}

	return &row, nil
}

func (r *firestoreMessageRepository) ListConversation(ctx context.Context, userID string, key entity.ConversationKey) ([]*entity.Message, error) {
	if !key.Has(userID) {
		return nil, errors.NotAuthorized("user is not a participant in this conversation", nil)
	}

	query := r.client.Collection("messages").
		Where("listingId", "==", key.ListingID).
		Where("pairKey", "==", key.PairKey()).
		OrderBy("createdAt", firestore.Asc)

	iter := query.Documents(ctx)
	var messages []*entity.Message

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			r.log.Error("failed to iterate conversation messages",
				zap.String("listing_id", key.ListingID), zap.Error(err))
			return nil, errors.TransientFetch("failed to fetch conversation history", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			r.log.Warn("skipping unparsable message row", zap.String("doc", doc.Ref.ID), zap.Error(err))
			continue
		}
		messages = append(messages, &message)
	}

	return messages, nil
}

func (r *firestoreMessageRepository) ListForUser(ctx context.Context, userID string) ([]*entity.Message, error) {
	var messages []*entity.Message

	for _, field := range []string{"senderId", "receiverId"} {
		docs, err := r.client.Collection("messages").Where(field, "==", userID).Documents(ctx).GetAll()
		if err != nil {
			return nil, errors.TransientFetch("failed to fetch user messages", err)
		}
		for _, doc := range docs {
			var message entity.Message
			if err := doc.DataTo(&message); err != nil {
				r.log.Warn("skipping unparsable message row", zap.String("doc", doc.Ref.ID), zap.Error(err))
				continue
			}
			messages = append(messages, &message)
		}
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.After(messages[j].CreatedAt)
	})

	return messages, nil
}
