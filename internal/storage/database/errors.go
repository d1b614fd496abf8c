package database

import "errors"

var (
	// ErrDBClosed is returned when trying to operate on a closed database
	ErrDBClosed = errors.New("database is closed")

	// ErrKeyNotFound is returned when a key doesn't exist in the database
	ErrKeyNotFound = errors.New("key not found")

	// ErrDBNotOpen is returned when closing a database the manager never opened
	ErrDBNotOpen = errors.New("database not open")

	// ErrUnknownBatchOp is returned for a batch operation with an unknown type
	ErrUnknownBatchOp = errors.New("unknown batch operation type")
)
