package entity

import "time"

// Subscription is a newsletter sign-up. Email is stored lower-cased and trimmed.
type Subscription struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
