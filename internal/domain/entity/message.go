package entity

import "time"

// Message is one chat message inside a conversation. Rows are immutable after
// insert; there is no edit or delete.
type Message struct {
	ID            string    `json:"id" firestore:"id"`
	ListingID     string    `json:"listing_id" firestore:"listingId"`
	SenderID      string    `json:"sender_id" firestore:"senderId"`
	ReceiverID    string    `json:"receiver_id" firestore:"receiverId"`
	PairKey       string    `json:"-" firestore:"pairKey"`
	Content       string    `json:"content" firestore:"content"`
	AttachmentURL string    `json:"attachment_url,omitempty" firestore:"attachmentUrl,omitempty"`
	CreatedAt     time.Time `json:"created_at" firestore:"createdAt"`

	// Local marks an optimistic entry shown before server confirmation.
	// Never persisted.
	Local bool `json:"local,omitempty" firestore:"-"`
}

// Key returns the conversation key this message belongs to.
func (m *Message) Key() ConversationKey {
	return NewConversationKey(m.ListingID, m.SenderID, m.ReceiverID)
}
