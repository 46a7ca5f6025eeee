package entity

import "time"

// Notification is one event requiring the recipient's attention. IsRead moves
// false to true exactly once and never back; rows accumulate until read.
type Notification struct {
	ID        string    `json:"id" firestore:"id"`
	UserID    string    `json:"user_id" firestore:"userId"`
	IsRead    bool      `json:"is_read" firestore:"isRead"`
	Content   string    `json:"content" firestore:"content"`
	Link      string    `json:"link,omitempty" firestore:"link,omitempty"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}
