package entity

import "time"

// Report is an abuse report filed against a listing.
type Report struct {
	ID          string    `json:"id" firestore:"id"`
	UserID      string    `json:"user_id" firestore:"userId"`
	ListingID   string    `json:"listing_id" firestore:"listingId"`
	Reason      string    `json:"reason" firestore:"reason"`
	Description string    `json:"description,omitempty" firestore:"description,omitempty"`
	Status      string    `json:"status" firestore:"status"` // "pending", "resolved"
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt"`
	ResolvedAt  time.Time `json:"resolved_at,omitempty" firestore:"resolvedAt,omitempty"`
}
