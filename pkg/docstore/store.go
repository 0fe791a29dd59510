// Package docstore is the document database adapter. Documents live in
// collections keyed by arbitrary string IDs; collection names may be
// slash-separated paths such as "users/a@b.com/conversations".
package docstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no document exists at the requested path
	ErrNotFound = errors.New("docstore: document not found")
	// ErrConflict is returned when a transaction kept losing its optimistic check
	ErrConflict = errors.New("docstore: transaction conflict")
)

// Snapshot is a read-only view of a stored document
type Snapshot interface {
	ID() string
	DataTo(v interface{}) error
}

// Filter selects documents whose top-level Field equals Value
type Filter struct {
	Field string
	Value interface{}
}

// Tx is the handle passed to a transaction function. All reads must happen
// before the first write, matching Firestore's transaction rules.
type Tx interface {
	Get(collection, id string) (Snapshot, error)
	Set(collection, id string, v interface{}) error
	Update(collection, id string, fields map[string]interface{}) error
	Delete(collection, id string) error
}

// Store is implemented by the Firestore, SQLite and memory backends
type Store interface {
	// NewID reserves a fresh unique document ID in collection
	NewID(collection string) string

	Get(ctx context.Context, collection, id string) (Snapshot, error)

	// Set writes the whole document, replacing any previous content
	Set(ctx context.Context, collection, id string, v interface{}) error

	// Update merges top-level fields into an existing document.
	// Returns ErrNotFound when the document does not exist.
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) error

	// Delete removes the document; deleting a missing document is not an error
	Delete(ctx context.Context, collection, id string) error

	// ArrayUnion appends values to an array field, skipping values already present
	ArrayUnion(ctx context.Context, collection, id, field string, values ...interface{}) error

	// List returns all documents of collection matching every filter
	List(ctx context.Context, collection string, filters ...Filter) ([]Snapshot, error)

	// RunTransaction runs fn atomically, retrying it when a concurrent
	// writer touched a document fn read.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Close() error
}

// IsNotFound reports whether err means the document is absent
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
