package entity

import "time"

// ConversationKey addresses one conversation: an unordered participant pair
// scoped to a single listing. The pair is normalized so that UserA < UserB,
// which makes keys comparable and usable as map keys and feed subjects.
type ConversationKey struct {
	ListingID string `json:"listing_id"`
	UserA     string `json:"user_a"`
	UserB     string `json:"user_b"`
}

// NewConversationKey builds a normalized key from any participant order.
func NewConversationKey(listingID, u1, u2 string) ConversationKey {
	if u2 < u1 {
		u1, u2 = u2, u1
	}
	return ConversationKey{ListingID: listingID, UserA: u1, UserB: u2}
}

// Has reports whether userID is one of the two participants.
func (k ConversationKey) Has(userID string) bool {
	return userID == k.UserA || userID == k.UserB
}

// Counterparty returns the other participant for userID. Empty when userID
// is not a participant.
func (k ConversationKey) Counterparty(userID string) string {
	switch userID {
	case k.UserA:
		return k.UserB
	case k.UserB:
		return k.UserA
	}
	return ""
}

// PairKey is the stored representation of the normalized pair, used for
// equality filters on the message table.
func (k ConversationKey) PairKey() string {
	return k.UserA + "|" + k.UserB
}

// ConversationSummary is a derived, denormalized row describing the latest
// state of one conversation for the current user. Navigation only; never
// written back.
type ConversationSummary struct {
	ListingID          string    `json:"listing_id"`
	ListingTitle       string    `json:"listing_title"`
	ListingImage       string    `json:"listing_image,omitempty"`
	CounterpartyID     string    `json:"counterparty_id"`
	CounterpartyName   string    `json:"counterparty_name,omitempty"`
	CounterpartyAvatar string    `json:"counterparty_avatar,omitempty"`
	LastMessage        string    `json:"last_message"`
	LastMessageAt      time.Time `json:"last_message_at"`
}

// ListingThread groups a listing's conversations for the navigation sidebar.
// In-memory and derived; rebuilt on load, discarded on navigation.
type ListingThread struct {
	ListingID     string                `json:"listing_id"`
	ListingTitle  string                `json:"listing_title"`
	ListingImage  string                `json:"listing_image,omitempty"`
	Conversations []ConversationSummary `json:"conversations"`
}
