package realtime

import (
	"encoding/json"

	"casalivre/internal/domain/entity"
	"casalivre/pkg/logger"
)

const (
	messageSubjectPrefix      = "messages.listing."
	notificationSubjectPrefix = "notifications.user."
)

// MessageSubject is the server-side filter: one subject per listing.
func MessageSubject(listingID string) string {
	return messageSubjectPrefix + listingID
}

func NotificationSubject(userID string) string {
	return notificationSubjectPrefix + userID
}

// Feed publishes inserted rows onto the bus. Store adapters call it after a
// successful write so subscribers see the canonical row.
type Feed struct {
	bus Bus
	log *logger.Logger
}

func NewFeed(bus Bus, log *logger.Logger) *Feed {
	return &Feed{bus: bus, log: log.WithComponent("realtime.feed")}
}

func (f *Feed) PublishMessage(message *entity.Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return f.bus.Publish(MessageSubject(message.ListingID), data)
}

func (f *Feed) PublishNotification(notification *entity.Notification) error {
	data, err := json.Marshal(notification)
	if err != nil {
		return err
	}
	return f.bus.Publish(NotificationSubject(notification.UserID), data)
}
