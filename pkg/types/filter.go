package types

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Op is a comparison operator of a Condition.
type Op string

// Supported comparison operators.
const (
	OpEq        Op = "="
	OpNe        Op = "!="
	OpLt        Op = "<"
	OpLte       Op = "<="
	OpGt        Op = ">"
	OpGte       Op = ">="
	OpLike      Op = "LIKE"
	OpNotLike   Op = "NOT LIKE"
	OpIn        Op = "IN"
	OpNotIn     Op = "NOT IN"
	OpIsNull    Op = "IS NULL"
	OpIsNotNull Op = "IS NOT NULL"
)

var knownOps = map[Op]bool{
	OpEq: true, OpNe: true, OpLt: true, OpLte: true, OpGt: true, OpGte: true,
	OpLike: true, OpNotLike: true, OpIn: true, OpNotIn: true,
	OpIsNull: true, OpIsNotNull: true,
}

// ParseOp normalizes an operator token: case and inner whitespace are
// ignored and "<>" is accepted for "!=".
func ParseOp(s string) (Op, bool) {
	norm := strings.ToUpper(strings.Join(strings.Fields(s), " "))
	if norm == "<>" {
		return OpNe, true
	}
	op := Op(norm)
	return op, knownOps[op]
}

// Unary reports whether the operator takes no value.
func (o Op) Unary() bool {
	return o == OpIsNull || o == OpIsNotNull
}

// List reports whether the operator takes a list of values.
func (o Op) List() bool {
	return o == OpIn || o == OpNotIn
}

// Combinator joins the children of a Group.
type Combinator string

// Supported combinators.
const (
	CombinatorAnd Combinator = "AND"
	CombinatorOr  Combinator = "OR"
	CombinatorNot Combinator = "NOT"
)

// Filter is a boolean condition over the fields of a table. It is either a
// Condition or a Group.
type Filter interface {
	filter()
}

// Condition is a leaf of a filter tree comparing one field with a value.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// Group combines child filters with AND, OR or NOT.
type Group struct {
	Combinator Combinator
	Children   []Filter
}

func (Condition) filter() {}
func (Group) filter()     {}

// Where builds a Condition.
func Where(field string, op Op, value any) Condition {
	return Condition{Field: field, Op: op, Value: value}
}

// IsNull builds an IS NULL condition on field.
func IsNull(field string) Condition {
	return Condition{Field: field, Op: OpIsNull}
}

// IsNotNull builds an IS NOT NULL condition on field.
func IsNotNull(field string) Condition {
	return Condition{Field: field, Op: OpIsNotNull}
}

// And builds a conjunction of children.
func And(children ...Filter) Group {
	return Group{Combinator: CombinatorAnd, Children: children}
}

// Or builds a disjunction of children.
func Or(children ...Filter) Group {
	return Group{Combinator: CombinatorOr, Children: children}
}

// Not negates child.
func Not(child Filter) Group {
	return Group{Combinator: CombinatorNot, Children: []Filter{child}}
}

// Check validates the condition's own shape: a field name, a known operator
// and a value matching the operator's arity. Field whitelisting is left to
// the compiler, which knows the table.
func (c Condition) Check() error {
	if c.Field == "" {
		return fmt.Errorf("%w: condition has no field", ErrInvalidFilter)
	}
	if !knownOps[c.Op] {
		return fmt.Errorf("%w: unknown operator %q on field %q", ErrInvalidFilter, c.Op, c.Field)
	}
	switch {
	case c.Op.Unary():
		if c.Value != nil {
			return fmt.Errorf("%w: %s on field %q takes no value", ErrInvalidFilter, c.Op, c.Field)
		}
	case c.Op.List():
		if _, err := ListValues(c.Value); err != nil {
			return fmt.Errorf("%w: %s on field %q: %v", ErrInvalidFilter, c.Op, c.Field, err)
		}
	default:
		if c.Value == nil {
			return fmt.Errorf("%w: %s on field %q needs a value (use IS NULL for nulls)", ErrInvalidFilter, c.Op, c.Field)
		}
		if !IsScalar(c.Value) {
			return fmt.Errorf("%w: %s on field %q: value of type %T is not a scalar", ErrInvalidFilter, c.Op, c.Field, c.Value)
		}
	}
	return nil
}

// Check validates the group's own shape: a known combinator, at least one
// child for AND and OR, exactly one for NOT, and no nil children.
func (g Group) Check() error {
	switch g.Combinator {
	case CombinatorAnd, CombinatorOr:
		if len(g.Children) == 0 {
			return fmt.Errorf("%w: empty %s", ErrInvalidFilter, g.Combinator)
		}
	case CombinatorNot:
		if len(g.Children) != 1 {
			return fmt.Errorf("%w: NOT takes exactly one child, got %d", ErrInvalidFilter, len(g.Children))
		}
	default:
		return fmt.Errorf("%w: unknown combinator %q", ErrInvalidFilter, g.Combinator)
	}
	for i, child := range g.Children {
		if child == nil {
			return fmt.Errorf("%w: %s child %d is nil", ErrInvalidFilter, g.Combinator, i)
		}
	}
	return nil
}

var (
	timeType   = reflect.TypeOf(time.Time{})
	valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
)

// IsScalar reports whether v can be bound as a single SQL parameter.
func IsScalar(v any) bool {
	if v == nil {
		return false
	}
	t := reflect.TypeOf(v)
	if t == timeType || t.Implements(valuerType) {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice:
		return t.Elem().Kind() == reflect.Uint8
	}
	return false
}

// ListValues expands the value of an IN or NOT IN condition. It must be a
// non-empty slice or array of scalars; []byte counts as a scalar, not a list.
func ListValues(v any) ([]any, error) {
	if v == nil {
		return nil, fmt.Errorf("list value is nil")
	}
	if vals, ok := v.([]any); ok {
		return checkList(vals)
	}
	rv := reflect.ValueOf(v)
	if (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) || IsScalar(v) {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	vals := make([]any, rv.Len())
	for i := range vals {
		vals[i] = rv.Index(i).Interface()
	}
	return checkList(vals)
}

func checkList(vals []any) ([]any, error) {
	if len(vals) == 0 {
		return nil, fmt.Errorf("list is empty")
	}
	for i, v := range vals {
		if !IsScalar(v) {
			return nil, fmt.Errorf("list element %d of type %T is not a scalar", i, v)
		}
	}
	return vals, nil
}
