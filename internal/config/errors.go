package config

import "errors"

// ErrNotFound is returned when a requested resource does not exist in the store.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an operation would break a reference held by
// another record, e.g. deleting an admin type that is still assigned.
var ErrConflict = errors.New("conflict")

// ErrUnknownFunction is returned when a privilege names a function that does
// not exist.
var ErrUnknownFunction = errors.New("unknown function")
