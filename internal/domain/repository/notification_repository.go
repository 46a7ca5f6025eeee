package repository

import (
	"context"

	"casalivre/internal/domain/entity"
)

// NotificationRepository stores per-user notification rows. Rows are never
// deleted; isRead transitions false to true only.
type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error

	CountUnread(ctx context.Context, userID string) (int, error)

	ListUnread(ctx context.Context, userID string) ([]*entity.Notification, error)

	// MarkRead sets isRead on every unread row for the user whose link
	// contains linkSubstr; an empty linkSubstr matches all. Returns the number
	// of rows actually flipped.
	MarkRead(ctx context.Context, userID, linkSubstr string) (int, error)
}
