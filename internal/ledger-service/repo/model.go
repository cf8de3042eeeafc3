package repo

import (
	"errors"
	"time"
)

// User is the persisted account model.
type User struct {
	ID        string
	Email     string
	FullName  string
	CreatedAt time.Time
}

// ErrNotFound is returned when a row does not exist or is owned by another
// user.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when registering an already-known email.
var ErrDuplicateEmail = errors.New("email already registered")
