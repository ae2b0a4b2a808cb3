package repo

import "errors"

var ErrNotFound = errors.New("callback request not found")
