// Package mapper converts between positional rows and entities and owns the
// identity strategy of a table.
package mapper

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/gdao/pkg/types"
)

// RowToEntity zips values with columns. The lengths must match.
func RowToEntity(columns []string, values []any) (types.Entity, error) {
	if len(columns) != len(values) {
		return nil, fmt.Errorf("row has %d values for %d columns", len(values), len(columns))
	}
	e := make(types.Entity, len(columns))
	for i, c := range columns {
		e[c] = values[i]
	}
	return e, nil
}

// EntityToRow extracts the values of fields from e in field order. A field
// absent from e is ErrMissingField; a present nil value binds as NULL.
func EntityToRow(e types.Entity, fields []string) ([]any, error) {
	values := make([]any, len(fields))
	for i, f := range fields {
		if !e.Has(f) {
			return nil, fmt.Errorf("%w: %q", types.ErrMissingField, f)
		}
		values[i] = e[f]
	}
	return values, nil
}

// Project returns a new entity holding id under idField and the values of
// fields taken from e. Keys of e outside fields are dropped.
func Project(e types.Entity, idField string, id any, fields []string) types.Entity {
	out := make(types.Entity, len(fields)+1)
	out[idField] = id
	for _, f := range fields {
		out[f] = e[f]
	}
	return out
}

// Identity generates and validates identity values for one table.
type Identity struct {
	Field    string
	Strategy string
}

// NewIdentity returns the Identity of a DAO configuration.
func NewIdentity(cfg types.Config) Identity {
	return Identity{Field: cfg.IdentityField(), Strategy: cfg.Strategy()}
}

// Generate returns the identity to insert with a new row: a UUID v7 string
// under the uuid strategy, nil when storage assigns it.
func (i Identity) Generate() (any, error) {
	if i.Strategy != types.IDStrategyUUID {
		return nil, nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating identity: %w", err)
	}
	return id.String(), nil
}

// Validate checks an identity supplied by a caller. Nil is always rejected;
// under the uuid strategy the value must be a parseable UUID.
func (i Identity) Validate(id any) error {
	if id == nil {
		return fmt.Errorf("%w: %q must not be null", types.ErrInvalidArgument, i.Field)
	}
	if i.Strategy == types.IDStrategyUUID {
		s, ok := id.(string)
		if !ok {
			return fmt.Errorf("%w: %q must be a UUID string, got %T", types.ErrInvalidArgument, i.Field, id)
		}
		if _, err := uuid.Parse(s); err != nil {
			return fmt.Errorf("%w: %q: %v", types.ErrInvalidArgument, i.Field, err)
		}
	}
	return nil
}

// From extracts and validates the identity of e.
func (i Identity) From(e types.Entity) (any, error) {
	id, ok := e[i.Field]
	if !ok {
		return nil, fmt.Errorf("%w: entity has no %q", types.ErrInvalidArgument, i.Field)
	}
	if err := i.Validate(id); err != nil {
		return nil, err
	}
	return id, nil
}
