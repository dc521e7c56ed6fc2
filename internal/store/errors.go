package store

import "errors"

// ErrNotFound is returned when an update or delete targets a document id
// that does not exist in the collection.
var ErrNotFound = errors.New("record not found")
