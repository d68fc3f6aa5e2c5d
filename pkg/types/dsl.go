package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ParseFilter converts the nested-list filter DSL into a Filter tree:
//
//	["$and", expr, expr, ...]
//	["$or", expr, expr, ...]
//	["$not", expr]
//	[field, op, value]
//	[field, "IS NULL"]
//
// Only "$and", "$or" and "$not" (in any case) start a group; any other head,
// including one that begins with "$", names a field. A nil input is an
// absent filter and yields nil. A value that already is a
// Filter is checked and returned as is. Shape errors wrap ErrInvalidFilter.
func ParseFilter(v any) (Filter, error) {
	if v == nil {
		return nil, nil
	}
	return parseFilter(v, "filter")
}

func parseFilter(v any, path string) (Filter, error) {
	switch f := v.(type) {
	case Condition:
		return f, f.Check()
	case Group:
		return f, f.Check()
	case []any:
		return parseList(f, path)
	case nil:
		return nil, fmt.Errorf("%w: %s is null", ErrInvalidFilter, path)
	default:
		return nil, fmt.Errorf("%w: %s: expected a list, got %T", ErrInvalidFilter, path, v)
	}
}

func parseList(list []any, path string) (Filter, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrInvalidFilter, path)
	}
	head, ok := list[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s: first element must be a combinator or field name, got %T", ErrInvalidFilter, path, list[0])
	}

	if comb, ok := parseCombinator(head); ok {
		g := Group{Combinator: comb}
		for i, raw := range list[1:] {
			child, err := parseFilter(raw, fmt.Sprintf("%s[%d]", path, i+1))
			if err != nil {
				return nil, err
			}
			g.Children = append(g.Children, child)
		}
		if err := g.Check(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return g, nil
	}

	if len(list) != 2 && len(list) != 3 {
		return nil, fmt.Errorf("%w: %s: condition needs [field, op] or [field, op, value], got %d elements", ErrInvalidFilter, path, len(list))
	}
	opToken, ok := list[1].(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s: operator must be a string, got %T", ErrInvalidFilter, path, list[1])
	}
	op, ok := ParseOp(opToken)
	if !ok {
		return nil, fmt.Errorf("%w: %s: unknown operator %q", ErrInvalidFilter, path, opToken)
	}
	c := Condition{Field: head, Op: op}
	if len(list) == 3 {
		c.Value = normalizeValue(list[2])
	}
	if err := c.Check(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func parseCombinator(head string) (Combinator, bool) {
	name, ok := strings.CutPrefix(head, "$")
	if !ok {
		return "", false
	}
	switch c := Combinator(strings.ToUpper(name)); c {
	case CombinatorAnd, CombinatorOr, CombinatorNot:
		return c, true
	}
	return "", false
}

// normalizeValue turns json.Number into int64 or float64 and recurses into
// lists, so decoded DSL values bind like their Go counterparts.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalizeValue(e)
		}
		return out
	}
	return v
}

// queryDoc is the JSON form of a Query.
type queryDoc struct {
	Filter  any     `json:"filter"`
	Sorting []Sort  `json:"sorting"`
	Paging  *Paging `json:"paging"`
}

// ParseQuery decodes a JSON query document with the optional keys "filter",
// "sorting" and "paging". Sort directions are normalized; paging is checked
// later against the DAO's page base.
func ParseQuery(data []byte) (*Query, error) {
	var doc queryDoc
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decoding query: %v", ErrInvalidArgument, err)
	}
	f, err := ParseFilter(doc.Filter)
	if err != nil {
		return nil, err
	}
	q := &Query{Filter: f, Paging: doc.Paging}
	for i, s := range doc.Sorting {
		dir, ok := ParseDirection(string(s.Direction))
		if !ok {
			return nil, fmt.Errorf("%w: sorting[%d]: unknown direction %q", ErrInvalidSort, i, s.Direction)
		}
		q.Sorting = append(q.Sorting, Sort{Field: s.Field, Direction: dir})
	}
	return q, nil
}

// ParseEntity decodes a JSON object into an Entity, with numbers normalized
// as in ParseFilter.
func ParseEntity(data []byte) (Entity, error) {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decoding entity: %v", ErrInvalidArgument, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: entity is null", ErrInvalidArgument)
	}
	e := make(Entity, len(raw))
	for k, v := range raw {
		e[k] = normalizeValue(v)
	}
	return e, nil
}
