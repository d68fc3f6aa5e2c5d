package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/gdao/internal/dao"
	"github.com/mesh-intelligence/gdao/internal/fixture"
	"github.com/mesh-intelligence/gdao/internal/pool"
	"github.com/mesh-intelligence/gdao/pkg/types"
)

func newExecCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <sql> [param...]",
		Short: "Run a raw SQL statement and print its rows",
		Long: "Run SQL against the configured connection, bypassing the table definition.\n" +
			"Parameters bind in order; integers are passed as integers.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := pool.New(pool.DefaultConfig())
			defer provider.Close()

			params := make([]any, len(args)-1)
			for i, p := range args[1:] {
				params[i] = parseID(p)
			}
			a.logger.Debug("raw exec", "sql", args[0], "params", len(params))
			rows, err := dao.RawExec(cmd.Context(), provider, a.config.ConnectTo, args[0], params...)
			if err != nil {
				return err
			}
			return writeJSON(cmd, rows)
		},
	}
}

func newFindCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "find <id>",
		Short: "Print the entity with the given identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDAO(func(d *dao.DAO) error {
				e, err := d.Find(cmd.Context(), parseID(args[0]))
				if err != nil {
					return err
				}
				if e == nil {
					return fmt.Errorf("%w: %s %s", errNotFound, a.config.IdentityField(), args[0])
				}
				return writeJSON(cmd, e)
			})
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var qf queryFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the entities matching a query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := qf.build(cmd)
			if err != nil {
				return err
			}
			return a.withDAO(func(d *dao.DAO) error {
				entities, err := d.All(cmd.Context(), q)
				if err != nil {
					return err
				}
				return writeJSON(cmd, entities)
			})
		},
	}
	qf.register(cmd, true)
	return cmd
}

func newCountCmd(a *app) *cobra.Command {
	var qf queryFlags
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Print the number of entities matching a filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := qf.build(cmd)
			if err != nil {
				return err
			}
			return a.withDAO(func(d *dao.DAO) error {
				n, err := d.Count(cmd.Context(), q.Filter)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
	qf.register(cmd, false)
	return cmd
}

func newSaveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "save <json|->",
		Short: "Insert an entity and print it with its identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := readEntity(cmd, args[0])
			if err != nil {
				return err
			}
			return a.withDAO(func(d *dao.DAO) error {
				saved, err := d.Save(cmd.Context(), e)
				if err != nil {
					return err
				}
				return writeJSON(cmd, saved)
			})
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update <json|->",
		Short: "Overwrite the fields of the entity with the identity in the input",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := readEntity(cmd, args[0])
			if err != nil {
				return err
			}
			return a.withDAO(func(d *dao.DAO) error {
				return d.Update(cmd.Context(), e)
			})
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete the entity with the given identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDAO(func(d *dao.DAO) error {
				return d.Delete(cmd.Context(), types.Entity{a.config.IdentityField(): parseID(args[0])})
			})
		},
	}
}

func newDumpCmd(a *app) *cobra.Command {
	var qf queryFlags
	cmd := &cobra.Command{
		Use:   "dump <file.jsonl>",
		Short: "Write the entities matching a query to a JSON Lines file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := qf.build(cmd)
			if err != nil {
				return err
			}
			return a.withDAO(func(d *dao.DAO) error {
				n, err := fixture.Dump(cmd.Context(), d, args[0], q)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "dumped %d entities to %s\n", n, args[0])
				return nil
			})
		},
	}
	qf.register(cmd, true)
	return cmd
}

func newLoadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load <file.jsonl>",
		Short: "Save every entity of a JSON Lines file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDAO(func(d *dao.DAO) error {
				saved, err := fixture.Load(cmd.Context(), d, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "loaded %d entities from %s\n", len(saved), args[0])
				return nil
			})
		},
	}
}
