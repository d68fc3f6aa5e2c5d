package types

import (
	"fmt"
	"slices"
)

// Config describes the table a DAO serves and where it lives.
type Config struct {
	// ConnectTo is the connection descriptor, see ParseDescriptor.
	ConnectTo string `json:"connect_to" yaml:"connect_to" mapstructure:"connect_to"`
	// Table is the table name.
	Table string `json:"table" yaml:"table" mapstructure:"table"`
	// Fields lists the columns in SELECT and INSERT order. The identity
	// field may be listed; it is never written.
	Fields []string `json:"fields" yaml:"fields" mapstructure:"fields"`
	// IDField names the identity column. Defaults to DefaultIDField.
	IDField string `json:"id_field" yaml:"id_field" mapstructure:"id_field"`
	// IDStrategy selects who assigns identities: IDStrategyStorage (default)
	// or IDStrategyUUID.
	IDStrategy string `json:"id_strategy" yaml:"id_strategy" mapstructure:"id_strategy"`
	// PageIndexBase is the index of the first page, 0 (default) or 1.
	PageIndexBase int `json:"page_index_base" yaml:"page_index_base" mapstructure:"page_index_base"`
}

// DefaultIDField is the identity column used when Config.IDField is empty.
const DefaultIDField = "id"

// Identity strategies.
const (
	IDStrategyStorage = "storage" // the database assigns the identity (serial, autoincrement)
	IDStrategyUUID    = "uuid"    // the DAO generates a UUID v7 before inserting
)

// IdentityField returns the identity column name.
func (c Config) IdentityField() string {
	if c.IDField == "" {
		return DefaultIDField
	}
	return c.IDField
}

// Strategy returns the identity strategy, defaulting to IDStrategyStorage.
func (c Config) Strategy() string {
	if c.IDStrategy == "" {
		return IDStrategyStorage
	}
	return c.IDStrategy
}

// DataFields returns the configured fields without the identity field, in
// configured order. These are the columns a DAO writes.
func (c Config) DataFields() []string {
	id := c.IdentityField()
	out := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		if f != id {
			out = append(out, f)
		}
	}
	return out
}

// Columns returns the identity field followed by DataFields: the SELECT list
// and the filter whitelist.
func (c Config) Columns() []string {
	return append([]string{c.IdentityField()}, c.DataFields()...)
}

// Validate checks that the Config is well-formed. Every failure wraps
// ErrInvalidConfiguration.
func (c Config) Validate() error {
	if _, err := ParseDescriptor(c.ConnectTo); err != nil {
		return err
	}
	if c.Table == "" {
		return fmt.Errorf("%w: table must not be empty", ErrInvalidConfiguration)
	}
	data := c.DataFields()
	if len(data) == 0 {
		return fmt.Errorf("%w: field list must not be empty", ErrInvalidConfiguration)
	}
	seen := make(map[string]bool, len(data))
	for _, f := range data {
		if f == "" {
			return fmt.Errorf("%w: empty field name", ErrInvalidConfiguration)
		}
		if seen[f] {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidConfiguration, f)
		}
		seen[f] = true
	}
	if !slices.Contains([]string{IDStrategyStorage, IDStrategyUUID}, c.Strategy()) {
		return fmt.Errorf("%w: unknown id strategy %q", ErrInvalidConfiguration, c.IDStrategy)
	}
	if c.PageIndexBase != 0 && c.PageIndexBase != 1 {
		return fmt.Errorf("%w: page index base must be 0 or 1, got %d", ErrInvalidConfiguration, c.PageIndexBase)
	}
	return nil
}
