package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/gdao/pkg/types"
)

// Statement is compiled SQL text with its positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Table describes the table statements are compiled for.
type Table struct {
	Name     string
	IDField  string
	Fields   []string // written columns, identity excluded
	PageBase int      // index of the first page, 0 or 1
}

// TableFor builds the Table of a DAO configuration.
func TableFor(cfg types.Config) Table {
	return Table{
		Name:     cfg.Table,
		IDField:  cfg.IdentityField(),
		Fields:   cfg.DataFields(),
		PageBase: cfg.PageIndexBase,
	}
}

// Columns returns the identity field followed by the written fields. It is
// both the SELECT list and the whitelist for filters and sorts.
func (t Table) Columns() []string {
	return append([]string{t.IDField}, t.Fields...)
}

func (t Table) check() error {
	switch {
	case t.Name == "":
		return fmt.Errorf("%w: table must not be empty", types.ErrInvalidConfiguration)
	case t.IDField == "":
		return fmt.Errorf("%w: identity field must not be empty", types.ErrInvalidConfiguration)
	case len(t.Fields) == 0:
		return fmt.Errorf("%w: field list must not be empty", types.ErrInvalidConfiguration)
	}
	return nil
}

func (t Table) quotedColumns(d Dialect, cols []string) string {
	q := make([]string, len(cols))
	for i, c := range cols {
		q[i] = d.Quote(c)
	}
	return strings.Join(q, ", ")
}

// Select compiles
//
//	SELECT <id, fields> FROM <table> [WHERE …] [ORDER BY …] [LIMIT n OFFSET m]
//
// A nil query selects every row in storage order.
func Select(d Dialect, t Table, q *types.Query) (Statement, error) {
	if err := t.check(); err != nil {
		return Statement{}, err
	}
	if q == nil {
		q = &types.Query{}
	}
	cols := t.Columns()
	b := newBuilder(d, cols)

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(t.quotedColumns(d, cols))
	sb.WriteString(" FROM ")
	sb.WriteString(d.Quote(t.Name))

	if q.Filter != nil {
		where, err := b.filter(q.Filter, false)
		if err != nil {
			return Statement{}, err
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}

	if len(q.Sorting) > 0 {
		keys := make([]string, len(q.Sorting))
		for i, s := range q.Sorting {
			if !b.allowed[s.Field] {
				return Statement{}, fmt.Errorf("%w: unknown field %q", types.ErrInvalidSort, s.Field)
			}
			dir, ok := types.ParseDirection(string(s.Direction))
			if !ok {
				return Statement{}, fmt.Errorf("%w: unknown direction %q for field %q", types.ErrInvalidSort, s.Direction, s.Field)
			}
			keys[i] = d.Quote(s.Field) + " " + string(dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(keys, ", "))
	}

	if q.Paging != nil {
		if err := q.Paging.Validate(t.PageBase); err != nil {
			return Statement{}, err
		}
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(q.Paging.Size))
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.Itoa(q.Paging.Offset(t.PageBase)))
	}

	return Statement{SQL: sb.String(), Args: b.args}, nil
}

// FindByID compiles a SELECT matching the identity field.
func FindByID(d Dialect, t Table, id any) (Statement, error) {
	return Select(d, t, &types.Query{Filter: types.Where(t.IDField, types.OpEq, id)})
}

// Count compiles SELECT COUNT(*) FROM <table> [WHERE …].
func Count(d Dialect, t Table, f types.Filter) (Statement, error) {
	if err := t.check(); err != nil {
		return Statement{}, err
	}
	b := newBuilder(d, t.Columns())
	text := "SELECT COUNT(*) FROM " + d.Quote(t.Name)
	if f != nil {
		where, err := b.filter(f, false)
		if err != nil {
			return Statement{}, err
		}
		text += " WHERE " + where
	}
	return Statement{SQL: text, Args: b.args}, nil
}

// Insert compiles
//
//	INSERT INTO <table> (<fields>) VALUES (<placeholders>) [RETURNING <id>]
//
// values align with t.Fields. A non-nil id is written first, for identities
// generated before the insert. RETURNING is emitted when the dialect has it.
func Insert(d Dialect, t Table, values []any, id any) (Statement, error) {
	if err := t.check(); err != nil {
		return Statement{}, err
	}
	if len(values) != len(t.Fields) {
		return Statement{}, fmt.Errorf("%w: %d values for %d fields", types.ErrMissingField, len(values), len(t.Fields))
	}
	b := newBuilder(d, nil)
	cols := t.Fields
	var phs []string
	if id != nil {
		cols = t.Columns()
		phs = append(phs, b.bind(id))
	}
	for _, v := range values {
		phs = append(phs, b.bind(v))
	}

	text := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(t.Name), t.quotedColumns(d, cols), strings.Join(phs, ", "))
	if d.Returning() {
		text += " RETURNING " + d.Quote(t.IDField)
	}
	return Statement{SQL: text, Args: b.args}, nil
}

// Update compiles
//
//	UPDATE <table> SET <f1> = $1, … WHERE <id> = $n
//
// with arguments in field order followed by the identity.
func Update(d Dialect, t Table, values []any, id any) (Statement, error) {
	if err := t.check(); err != nil {
		return Statement{}, err
	}
	if len(values) != len(t.Fields) {
		return Statement{}, fmt.Errorf("%w: %d values for %d fields", types.ErrMissingField, len(values), len(t.Fields))
	}
	b := newBuilder(d, nil)
	sets := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		sets[i] = d.Quote(f) + " = " + b.bind(values[i])
	}
	text := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		d.Quote(t.Name), strings.Join(sets, ", "), d.Quote(t.IDField), b.bind(id))
	return Statement{SQL: text, Args: b.args}, nil
}

// Delete compiles DELETE FROM <table> WHERE <id> = $1.
func Delete(d Dialect, t Table, id any) (Statement, error) {
	if t.Name == "" || t.IDField == "" {
		return Statement{}, fmt.Errorf("%w: table and identity field must not be empty", types.ErrInvalidConfiguration)
	}
	b := newBuilder(d, nil)
	text := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", d.Quote(t.Name), d.Quote(t.IDField), b.bind(id))
	return Statement{SQL: text, Args: b.args}, nil
}
