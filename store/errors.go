package store

import "errors"

// ErrNotFound is returned when the named artifact does not exist on disk.
var ErrNotFound = errors.New("store: artifact not found")

// ErrInvalidName is returned when a name fails the filename grammar check.
// This also guards against path traversal: a valid name never contains a
// path separator.
var ErrInvalidName = errors.New("store: invalid artifact name")
