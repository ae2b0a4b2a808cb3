package entity

import "time"

// Contact is a "contact us" form submission.
type Contact struct {
	ID        string    `json:"id" db:"id"`
	FullName  string    `json:"fullname" db:"full_name"`
	Phone     string    `json:"phone" db:"phone"`
	Email     string    `json:"email" db:"email"`
	Comments  string    `json:"comments" db:"comments"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Submission is the public form payload. FullName wins over FirstName+LastName.
type Submission struct {
	FullName  string `json:"fullname"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Comments  string `json:"comments"`
}

// Patch is an explicit partial update; nil fields are left unchanged.
type Patch struct {
	FullName  *string `json:"fullname"`
	FirstName *string `json:"firstname"`
	LastName  *string `json:"lastname"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
	Comments  *string `json:"comments"`
}
