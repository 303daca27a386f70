package domain

import "errors"

// ErrNotFound is returned (wrapped) when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned (wrapped) when a write collides with an existing
// record, such as a second day with the same day number.
var ErrConflict = errors.New("conflict")
