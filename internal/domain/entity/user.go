package entity

import "time"

// User is a marketplace account profile.
type User struct {
	ID        string    `json:"id" firestore:"id"`
	Email     string    `json:"email" firestore:"email"`
	Username  string    `json:"username" firestore:"username"`
	AvatarURL string    `json:"avatar_url,omitempty" firestore:"avatarUrl,omitempty"`
	Role      string    `json:"role" firestore:"role"` // "user", "admin"
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}
