package types

import "maps"

// Entity is one row of a table keyed by field name. Values are scalars as
// returned by the database driver: strings, integers, floats, booleans, nil,
// time.Time or []byte.
type Entity map[string]any

// Clone returns a shallow copy of e. A nil entity clones to nil.
func (e Entity) Clone() Entity {
	return maps.Clone(e)
}

// Has reports whether field is present in e, even with a nil value.
func (e Entity) Has(field string) bool {
	_, ok := e[field]
	return ok
}
