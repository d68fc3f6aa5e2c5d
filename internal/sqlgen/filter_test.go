package sqlgen

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/gdao/pkg/types"
)

var whitelist = []string{"id", "veryLongName", "shortname"}

func TestCompileFilter(t *testing.T) {
	tests := []struct {
		name     string
		filter   types.Filter
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "nil filter",
			filter:  nil,
			wantSQL: "",
		},
		{
			name:     "single condition",
			filter:   types.Where("veryLongName", types.OpEq, "abc"),
			wantSQL:  `"veryLongName" = $1`,
			wantArgs: []any{"abc"},
		},
		{
			name: "conjunction",
			filter: types.And(
				types.Where("veryLongName", types.OpEq, "abc"),
				types.Where("shortname", types.OpEq, "efg"),
			),
			wantSQL:  `("veryLongName" = $1 AND "shortname" = $2)`,
			wantArgs: []any{"abc", "efg"},
		},
		{
			name:     "single-child conjunction at top level is not wrapped",
			filter:   types.And(types.Where("id", types.OpGt, 3)),
			wantSQL:  `"id" > $1`,
			wantArgs: []any{3},
		},
		{
			name: "nested single-child group is wrapped",
			filter: types.Or(
				types.And(types.Where("id", types.OpGt, 3)),
				types.IsNull("shortname"),
			),
			wantSQL:  `(("id" > $1) OR "shortname" IS NULL)`,
			wantArgs: []any{3},
		},
		{
			name: "depth first numbering",
			filter: types.Or(
				types.And(
					types.Where("veryLongName", types.OpLike, "a%"),
					types.Where("id", types.OpIn, []int{1, 2, 3}),
				),
				types.Not(types.Where("shortname", types.OpNe, "x")),
				types.Where("id", types.OpLte, 9),
			),
			wantSQL:  `(("veryLongName" LIKE $1 AND "id" IN ($2, $3, $4)) OR NOT ("shortname" != $5) OR "id" <= $6)`,
			wantArgs: []any{"a%", 1, 2, 3, "x", 9},
		},
		{
			name:     "null checks bind nothing",
			filter:   types.And(types.IsNull("shortname"), types.IsNotNull("veryLongName"), types.Where("id", types.OpNotIn, []any{7})),
			wantSQL:  `("shortname" IS NULL AND "veryLongName" IS NOT NULL AND "id" NOT IN ($1))`,
			wantArgs: []any{7},
		},
		{
			name:     "pointer nodes",
			filter:   &types.Group{Combinator: types.CombinatorNot, Children: []types.Filter{&types.Condition{Field: "id", Op: types.OpGte, Value: 1}}},
			wantSQL:  `NOT ("id" >= $1)`,
			wantArgs: []any{1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := CompileFilter(Postgres, tt.filter, whitelist)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestCompileFilter_Dialects(t *testing.T) {
	f := types.And(
		types.Where("veryLongName", types.OpEq, "abc"),
		types.Where("shortname", types.OpIn, []string{"d", "e"}),
	)

	sql, args, err := CompileFilter(SQLite, f, whitelist)
	require.NoError(t, err)
	assert.Equal(t, `("veryLongName" = ? AND "shortname" IN (?, ?))`, sql)
	assert.Equal(t, []any{"abc", "d", "e"}, args)

	sql, _, err = CompileFilter(MySQL, f, whitelist)
	require.NoError(t, err)
	assert.Equal(t, "(`veryLongName` = ? AND `shortname` IN (?, ?))", sql)
}

func TestCompileFilter_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		filter types.Filter
	}{
		{"field outside whitelist", types.Where("password", types.OpEq, "x")},
		{"nested field outside whitelist", types.And(types.Where("id", types.OpEq, 1), types.Or(types.IsNull("secret")))},
		{"empty and", types.And()},
		{"not with two children", types.Group{Combinator: types.CombinatorNot, Children: []types.Filter{types.IsNull("id"), types.IsNull("id")}}},
		{"unknown combinator", types.Group{Combinator: "XOR", Children: []types.Filter{types.IsNull("id")}}},
		{"unknown operator", types.Where("id", types.Op("BETWEEN"), 1)},
		{"in without list", types.Where("id", types.OpIn, 1)},
		{"is null with value", types.Condition{Field: "id", Op: types.OpIsNull, Value: 1}},
		{"nil pointer", (*types.Condition)(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := CompileFilter(Postgres, tt.filter, whitelist)
			assert.ErrorIs(t, err, types.ErrInvalidFilter)
		})
	}
}

func TestQuoteEscapesIdentifiers(t *testing.T) {
	assert.Equal(t, `"we""ird"`, Postgres.Quote(`we"ird`))
	assert.Equal(t, "`we``ird`", MySQL.Quote("we`ird"))
	assert.Equal(t, `"select"`, SQLite.Quote("select"))
}

// randomFilter builds a random tree over the whitelist.
func randomFilter(r *rand.Rand, depth int) types.Filter {
	if depth == 0 || r.Intn(3) == 0 {
		field := whitelist[r.Intn(len(whitelist))]
		switch r.Intn(4) {
		case 0:
			return types.IsNull(field)
		case 1:
			n := 1 + r.Intn(4)
			vals := make([]any, n)
			for i := range vals {
				vals[i] = r.Intn(100)
			}
			return types.Where(field, types.OpIn, vals)
		default:
			return types.Where(field, types.OpLt, r.Intn(100))
		}
	}
	switch r.Intn(3) {
	case 0:
		return types.Not(randomFilter(r, depth-1))
	default:
		n := 1 + r.Intn(4)
		children := make([]types.Filter, n)
		for i := range children {
			children[i] = randomFilter(r, depth-1)
		}
		if r.Intn(2) == 0 {
			return types.And(children...)
		}
		return types.Or(children...)
	}
}

var placeholderRe = regexp.MustCompile(`\$(\d+)`)

func TestCompileFilter_PlaceholderOrdinals(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		f := randomFilter(r, 4)
		t.Run(fmt.Sprintf("tree%d", i), func(t *testing.T) {
			sql, args, err := CompileFilter(Postgres, f, whitelist)
			require.NoError(t, err)

			matches := placeholderRe.FindAllStringSubmatch(sql, -1)
			require.Len(t, matches, len(args), sql)
			for pos, m := range matches {
				n, err := strconv.Atoi(m[1])
				require.NoError(t, err)
				assert.Equal(t, pos+1, n, sql)
			}

			qsql, qargs, err := CompileFilter(SQLite, f, whitelist)
			require.NoError(t, err)
			assert.Equal(t, len(args), strings.Count(qsql, "?"))
			assert.Equal(t, args, qargs)
		})
	}
}
