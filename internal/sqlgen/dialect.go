// Package sqlgen compiles filter trees, sort lists and paging windows into
// parameterized SQL for one table.
//
// Values never appear in the generated text. Each bound value gets a
// placeholder whose ordinal is its 1-based position in the statement's
// argument list, numbered left to right and depth first through the filter
// tree, so the arguments can be handed positionally to database/sql.
package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/gdao/pkg/types"
)

// Dialect renders the parts of a statement that differ between databases.
type Dialect interface {
	// Name returns the dialect identifier.
	Name() types.Dialect
	// Quote returns ident as a quoted identifier.
	Quote(ident string) string
	// Placeholder returns the placeholder for the n-th (1-based) argument.
	Placeholder(n int) string
	// Returning reports whether INSERT ... RETURNING is available.
	Returning() bool
}

type dialect struct {
	name      types.Dialect
	quote     string
	numbered  bool
	returning bool
}

func (d dialect) Name() types.Dialect { return d.name }

func (d dialect) Quote(ident string) string {
	return d.quote + strings.ReplaceAll(ident, d.quote, d.quote+d.quote) + d.quote
}

func (d dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (d dialect) Returning() bool { return d.returning }

// Built-in dialects.
var (
	Postgres Dialect = dialect{name: types.DialectPostgres, quote: `"`, numbered: true, returning: true}
	MySQL    Dialect = dialect{name: types.DialectMySQL, quote: "`"}
	SQLite   Dialect = dialect{name: types.DialectSQLite, quote: `"`, returning: true}
)

// DialectFor returns the built-in dialect with the given name.
func DialectFor(name types.Dialect) (Dialect, error) {
	switch name {
	case types.DialectPostgres:
		return Postgres, nil
	case types.DialectMySQL:
		return MySQL, nil
	case types.DialectSQLite:
		return SQLite, nil
	}
	return nil, fmt.Errorf("%w: unsupported dialect %q", types.ErrInvalidConfiguration, name)
}
