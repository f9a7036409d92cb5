package database

import "errors"

var (
	// ErrNotFound is returned when a requested run does not exist.
	ErrNotFound = errors.New("profiling run not found")

	// ErrDatabaseMissing is returned by Open when the database file does
	// not exist and CreateIfNotExists is false.
	ErrDatabaseMissing = errors.New("history database not found")
)
