package store

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateKey is returned when a Put would violate the (owner, key)
// uniqueness constraint. The constraint lives in the database schema, so this
// holds even when two writers race past an application-level existence check.
var ErrDuplicateKey = errors.New("duplicate owner/key")

// Record is the atomic persisted unit: an owner-scoped key with an opaque
// JSON payload. LocationTag and RecordType are denormalized indexing hints
// that must agree with information already encoded in Key.
type Record struct {
	ID          string
	Owner       string
	Key         string
	Payload     json.RawMessage
	LocationTag string
	RecordType  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Hints carries the optional secondary-index columns for a write.
type Hints struct {
	LocationTag string
	RecordType  string
}
