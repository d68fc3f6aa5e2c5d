package types

import (
	"context"
	"errors"
)

// DAO provides create, read, update, delete and query operations on
// map-shaped entities stored in a single table.
// Every method that touches the database takes a context; the DAO imposes no
// timeout of its own.
type DAO interface {
	// ConnectTo returns the connection descriptor the DAO was built with.
	ConnectTo() string

	// Table returns the table name.
	Table() string

	// Fields returns a copy of the configured field list.
	Fields() []string

	// Save inserts the entity and returns a new entity holding the identity
	// assigned on creation plus every configured field. The input is not
	// modified; an identity present in the input is ignored.
	Save(ctx context.Context, e Entity) (Entity, error)

	// Update writes every configured field of e to the row matching its
	// identity. Returns ErrInvalidArgument when the identity is missing.
	// Matching zero rows is not an error.
	Update(ctx context.Context, e Entity) error

	// Delete removes the row matching the identity of e. Matching zero rows
	// is not an error.
	Delete(ctx context.Context, e Entity) error

	// Find returns the entity with the given identity, or nil with a nil
	// error when no row matches.
	Find(ctx context.Context, id any) (Entity, error)

	// All returns the entities selected by q. A nil query is an unfiltered,
	// unsorted, unpaged scan.
	All(ctx context.Context, q *Query) ([]Entity, error)

	// Count returns the number of rows matching f. A nil filter counts the
	// whole table.
	Count(ctx context.Context, f Filter) (int64, error)

	// Close releases the DAO's pooled connection handle.
	Close() error
}

// DAO errors. Callers match them with errors.Is; the returned errors wrap
// them with detail.
var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrInvalidFilter        = errors.New("invalid filter")
	ErrInvalidSort          = errors.New("invalid sort")
	ErrInvalidPaging        = errors.New("invalid paging")
	ErrMissingField         = errors.New("missing field")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrPersistence          = errors.New("persistence failure")
	ErrProviderClosed       = errors.New("connection provider is closed")
)
