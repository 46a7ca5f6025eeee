package entity

import "time"

// Listing is a real-estate advert. CRUD on listings lives outside this
// service; the messaging core only reads them for conversation context.
type Listing struct {
	ID        string    `json:"id" firestore:"id"`
	OwnerID   string    `json:"owner_id" firestore:"ownerId"`
	Title     string    `json:"title" firestore:"title"`
	City      string    `json:"city,omitempty" firestore:"city,omitempty"`
	Price     float64   `json:"price,omitempty" firestore:"price,omitempty"`
	Photos    []string  `json:"photos,omitempty" firestore:"photos,omitempty"`
	Status    string    `json:"status" firestore:"status"` // "active", "pending", "deleted"
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// CoverPhoto returns the first photo, or empty when the listing has none.
func (l *Listing) CoverPhoto() string {
	if len(l.Photos) == 0 {
		return ""
	}
	return l.Photos[0]
}
