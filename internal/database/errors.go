package database

import "errors"

var (
	// ErrNotFound is returned when a database file, session or page does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguousID is returned when a session ID prefix matches more than
	// one session.
	ErrAmbiguousID = errors.New("ambiguous session ID prefix")
)
