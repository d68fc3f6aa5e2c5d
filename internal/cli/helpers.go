package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/gdao/internal/dao"
	"github.com/mesh-intelligence/gdao/pkg/types"
)

// openDAO validates the loaded configuration and returns a DAO over it. The
// caller must Close it.
func (a *app) openDAO() (*dao.DAO, error) {
	if a.config.Table == "" {
		return nil, fmt.Errorf("%w: no table configured, use --table or set table in config.yaml", types.ErrInvalidConfiguration)
	}
	return dao.New(a.config, dao.WithLogger(a.logger))
}

// withDAO opens a DAO, runs fn and closes the DAO.
func (a *app) withDAO(fn func(d *dao.DAO) error) (err error) {
	d, err := a.openDAO()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := d.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(d)
}

// writeJSON prints v as indented JSON.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseID reads an identity argument: integers become int64, anything else
// stays a string.
func parseID(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

// readEntity parses the entity argument; "-" reads it from stdin.
func readEntity(cmd *cobra.Command, arg string) (types.Entity, error) {
	data := []byte(arg)
	if arg == "-" {
		var err error
		if data, err = io.ReadAll(cmd.InOrStdin()); err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
	}
	e, err := types.ParseEntity(data)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("%w: entity must be a JSON object", types.ErrInvalidArgument)
	}
	return e, nil
}

// queryFlags are the selection flags shared by list, count and dump.
type queryFlags struct {
	query  string
	filter string
	sort   []string
	size   int
	index  int
}

func (q *queryFlags) register(cmd *cobra.Command, withOrder bool) {
	cmd.Flags().StringVar(&q.filter, "filter", "", `filter expression, e.g. '["$and", ["name", "=", "abc"], ["size", ">", 2]]'`)
	if !withOrder {
		return
	}
	cmd.Flags().StringVar(&q.query, "query", "", `full query document: {"filter": ..., "sorting": [...], "paging": {...}}`)
	cmd.Flags().StringSliceVar(&q.sort, "sort", nil, "sort keys as field[:asc|desc], first is primary")
	cmd.Flags().IntVar(&q.size, "size", 0, "page size")
	cmd.Flags().IntVar(&q.index, "index", 0, "page index")
}

// build assembles the query. --query excludes the other flags.
func (q *queryFlags) build(cmd *cobra.Command) (*types.Query, error) {
	if q.query != "" {
		for _, other := range []string{"filter", "sort", "size", "index"} {
			if cmd.Flags().Changed(other) {
				return nil, fmt.Errorf("%w: --query cannot be combined with --%s", errUsage, other)
			}
		}
		return types.ParseQuery([]byte(q.query))
	}

	out := &types.Query{}
	if q.filter != "" {
		parsed, err := types.ParseQuery([]byte(`{"filter":` + q.filter + `}`))
		if err != nil {
			return nil, err
		}
		out.Filter = parsed.Filter
	}
	for _, key := range q.sort {
		field, dir, _ := strings.Cut(key, ":")
		d, ok := types.ParseDirection(dir)
		if !ok {
			return nil, fmt.Errorf("%w: unknown direction %q in --sort %s", types.ErrInvalidSort, dir, key)
		}
		out.Sorting = append(out.Sorting, types.Sort{Field: field, Direction: d})
	}
	if cmd.Flags().Changed("size") || cmd.Flags().Changed("index") {
		out.Paging = &types.Paging{Size: q.size, Index: q.index}
	}
	return out, nil
}
