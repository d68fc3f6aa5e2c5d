package sqlgen

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/gdao/pkg/types"
)

// builder accumulates the arguments of one statement.
type builder struct {
	d       Dialect
	allowed map[string]bool
	args    []any
}

func newBuilder(d Dialect, whitelist []string) *builder {
	allowed := make(map[string]bool, len(whitelist))
	for _, f := range whitelist {
		allowed[f] = true
	}
	return &builder{d: d, allowed: allowed}
}

// bind appends v to the arguments and returns its placeholder.
func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	return b.d.Placeholder(len(b.args))
}

// CompileFilter compiles f into a boolean SQL fragment and its arguments.
// Every field referenced by f must appear in whitelist. A nil filter
// compiles to an empty fragment.
func CompileFilter(d Dialect, f types.Filter, whitelist []string) (string, []any, error) {
	if f == nil {
		return "", nil, nil
	}
	b := newBuilder(d, whitelist)
	frag, err := b.filter(f, false)
	if err != nil {
		return "", nil, err
	}
	return frag, b.args, nil
}

// filter compiles one node. nested is true below a combinator.
func (b *builder) filter(f types.Filter, nested bool) (string, error) {
	switch n := f.(type) {
	case types.Condition:
		return b.condition(n)
	case *types.Condition:
		if n == nil {
			return "", fmt.Errorf("%w: nil condition", types.ErrInvalidFilter)
		}
		return b.condition(*n)
	case types.Group:
		return b.group(n, nested)
	case *types.Group:
		if n == nil {
			return "", fmt.Errorf("%w: nil group", types.ErrInvalidFilter)
		}
		return b.group(*n, nested)
	default:
		return "", fmt.Errorf("%w: unsupported filter node %T", types.ErrInvalidFilter, f)
	}
}

func (b *builder) group(g types.Group, nested bool) (string, error) {
	if err := g.Check(); err != nil {
		return "", err
	}
	parts := make([]string, 0, len(g.Children))
	for _, child := range g.Children {
		frag, err := b.filter(child, true)
		if err != nil {
			return "", err
		}
		parts = append(parts, frag)
	}
	if g.Combinator == types.CombinatorNot {
		return "NOT (" + parts[0] + ")", nil
	}
	joined := strings.Join(parts, " "+string(g.Combinator)+" ")
	if len(parts) > 1 || nested {
		return "(" + joined + ")", nil
	}
	return joined, nil
}

func (b *builder) condition(c types.Condition) (string, error) {
	if err := c.Check(); err != nil {
		return "", err
	}
	if !b.allowed[c.Field] {
		return "", fmt.Errorf("%w: unknown field %q", types.ErrInvalidFilter, c.Field)
	}
	col := b.d.Quote(c.Field)
	switch {
	case c.Op.Unary():
		return col + " " + string(c.Op), nil
	case c.Op.List():
		vals, _ := types.ListValues(c.Value)
		phs := make([]string, len(vals))
		for i, v := range vals {
			phs[i] = b.bind(v)
		}
		return fmt.Sprintf("%s %s (%s)", col, c.Op, strings.Join(phs, ", ")), nil
	default:
		return fmt.Sprintf("%s %s %s", col, c.Op, b.bind(c.Value)), nil
	}
}
