package qdrant

import (
	"errors"
	"fmt"
)

// ErrCollectionNotFound is returned when the index answers 404 for a collection.
var ErrCollectionNotFound = errors.New("qdrant: collection not found")

// Op names the REST call for error context.
const (
	OpSearch           = "search"
	OpCreateCollection = "create_collection"
	OpDeleteCollection = "delete_collection"
	OpUpsert           = "upsert"
	OpCount            = "count"
	OpHealthz          = "healthz"
)

// Error wraps an underlying error with the operation and HTTP status for diagnostics.
type Error struct {
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("qdrant %s: status %d: %s", e.Op, e.Status, e.Err.Error())
	}
	return "qdrant " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
