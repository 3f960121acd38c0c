package encounter

import (
	"context"
	"io"
)

// MutateFunc inspects and mutates an encounter inside a store's critical
// section. Returning an error aborts the update and leaves the store unchanged.
type MutateFunc func(enc *Encounter) error

type Repository interface {
	// Create assigns the next id and stores enc with its history.
	Create(ctx context.Context, enc *Encounter) error
	GetByID(ctx context.Context, id int64) (*Encounter, error)
	// List returns every encounter in creation order.
	List(ctx context.Context) ([]*Encounter, error)
	// UpdateStatus runs fn against the current record and persists the
	// status, exam type and any appended history entries atomically.
	UpdateStatus(ctx context.Context, id int64, fn MutateFunc) (*Encounter, error)
}

// ClosableRepository is a Repository that holds a resource, such as an open
// database file, which must be released on shutdown.
type ClosableRepository interface {
	Repository
	io.Closer
}
