package repository

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"casalivre/internal/domain/entity"
	"casalivre/internal/domain/repository"
	"casalivre/internal/infrastructure/realtime"
	"casalivre/pkg/errors"
	"casalivre/pkg/logger"
	"casalivre/pkg/metrics"
)

type firestoreNotificationRepository struct {
	client *firestore.Client
	feed   *realtime.Feed
	log    *logger.Logger
}

func NewFirestoreNotificationRepository(client *firestore.Client, feed *realtime.Feed, log *logger.Logger) repository.NotificationRepository {
	return &firestoreNotificationRepository{
		client: client,
		feed:   feed,
		log:    log.WithComponent("repository.notification"),
	}
}

func (r *firestoreNotificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}
	notification.IsRead = false
	notification.CreatedAt = time.Now()

	if _, err := r.client.Collection("notifications").Doc(notification.ID).Set(ctx, notification); err != nil {
		return errors.TransientFetch("failed to create notification", err)
	}

	metrics.NotificationsCreated.Inc()

	if err := r.feed.PublishNotification(notification); err != nil {
		r.log.Warn("failed to publish notification insert",
			zap.String("notification_id", notification.ID), zap.Error(err))
	}

	return nil
}

func (r *firestoreNotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	docs, err := r.unreadQuery(userID).Documents(ctx).GetAll()
	if err != nil {
		return 0, errors.TransientFetch("failed to count unread notifications", err)
	}
	return len(docs), nil
}

func (r *firestoreNotificationRepository) ListUnread(ctx context.Context, userID string) ([]*entity.Notification, error) {
	docs, err := r.unreadQuery(userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.TransientFetch("failed to fetch unread notifications", err)
	}

	var notifications []*entity.Notification
	for _, doc := range docs {
		var n entity.Notification
		if err := doc.DataTo(&n); err != nil {
			r.log.Warn("skipping unparsable notification row", zap.String("doc", doc.Ref.ID), zap.Error(err))
			continue
		}
		notifications = append(notifications, &n)
	}

	return notifications, nil
}

// MarkRead flips matching unread rows to read. isRead only ever moves false
// to true; already-read rows are never touched, so the transition stays
// monotonic.
func (r *firestoreNotificationRepository) MarkRead(ctx context.Context, userID, linkSubstr string) (int, error) {
	docs, err := r.unreadQuery(userID).Documents(ctx).GetAll()
	if err != nil {
		return 0, errors.TransientFetch("failed to fetch notifications to mark read", err)
	}

	affected := 0
	for _, doc := range docs {
		var n entity.Notification
		if err := doc.DataTo(&n); err != nil {
			continue
		}
		if linkSubstr != "" && !strings.Contains(n.Link, linkSubstr) {
			continue
		}

		if _, err := doc.Ref.Update(ctx, []firestore.Update{{Path: "isRead", Value: true}}); err != nil {
			r.log.Warn("failed to mark notification read", zap.String("doc", doc.Ref.ID), zap.Error(err))
			continue
		}
		affected++
	}

	return affected, nil
}

func (r *firestoreNotificationRepository) unreadQuery(userID string) firestore.Query {
	return r.client.Collection("notifications").
		Where("userId", "==", userID).
		Where("isRead", "==", false)
}
