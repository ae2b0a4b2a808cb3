package repo

import "errors"

var ErrNotFound = errors.New("contact submission not found")
