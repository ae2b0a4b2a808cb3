package repo

import "errors"

var (
	ErrNotFound  = errors.New("subscription not found")
	ErrDuplicate = errors.New("email already subscribed")
)
