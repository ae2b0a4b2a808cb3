package entity

import "time"

type Status string

const (
	StatusPending     Status = "pending"
	StatusNotReceived Status = "not received"
	StatusDone        Status = "done"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusNotReceived, StatusDone:
		return true
	}
	return false
}

// Request is a visitor's ask to be phoned back by the outreach team.
type Request struct {
	ID           string    `json:"id" db:"id"`
	FullName     string    `json:"fullName" db:"full_name"`
	PhoneNumber  string    `json:"phoneNumber" db:"phone_number"`
	Description  string    `json:"description" db:"description"`
	Status       Status    `json:"status" db:"status"`
	AdminComment string    `json:"adminComment" db:"admin_comment"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// Review is the staff update: a new status and an optional comment.
type Review struct {
	Status       *Status `json:"status"`
	AdminComment *string `json:"adminComment"`
}
