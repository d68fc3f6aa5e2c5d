// Package dao implements types.DAO on top of the statement compiler, the
// entity mapper and the connection provider.
package dao

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/mesh-intelligence/gdao/internal/logging"
	"github.com/mesh-intelligence/gdao/internal/mapper"
	"github.com/mesh-intelligence/gdao/internal/pool"
	"github.com/mesh-intelligence/gdao/internal/sqlgen"
	"github.com/mesh-intelligence/gdao/pkg/types"
)

// DAO serves one table through one connection descriptor. The handle is
// acquired from the provider on first use and released by Close.
type DAO struct {
	config   types.Config
	fields   []string
	dialect  sqlgen.Dialect
	table    sqlgen.Table
	identity mapper.Identity
	logger   *slog.Logger

	provider     *pool.Provider
	ownsProvider bool

	mu     sync.Mutex
	handle *pool.Handle
	closed bool
}

var _ types.DAO = (*DAO)(nil)

// Option configures a DAO.
type Option func(*DAO)

// WithProvider shares provider with other DAOs. Without it the DAO creates a
// private provider and closes it on Close.
func WithProvider(provider *pool.Provider) Option {
	return func(d *DAO) {
		d.provider = provider
	}
}

// WithLogger sets the logger statements and failures are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(d *DAO) {
		d.logger = logger
	}
}

// New validates cfg and returns a DAO for it. No connection is opened.
func New(cfg types.Config, opts ...Option) (*DAO, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	desc, err := types.ParseDescriptor(cfg.ConnectTo)
	if err != nil {
		return nil, err
	}
	dialect, err := sqlgen.DialectFor(desc.Dialect)
	if err != nil {
		return nil, err
	}

	d := &DAO{
		config:   cfg,
		fields:   slices.Clone(cfg.Fields),
		dialect:  dialect,
		table:    sqlgen.TableFor(cfg),
		identity: mapper.NewIdentity(cfg),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logging.Discard()
	}
	if d.provider == nil {
		d.provider = pool.New(pool.DefaultConfig())
		d.ownsProvider = true
	}
	d.logger = d.logger.With("table", cfg.Table, "dialect", string(desc.Dialect))
	return d, nil
}

// ConnectTo returns the connection descriptor.
func (d *DAO) ConnectTo() string { return d.config.ConnectTo }

// Table returns the table name.
func (d *DAO) Table() string { return d.config.Table }

// Fields returns a copy of the configured field list.
func (d *DAO) Fields() []string { return slices.Clone(d.fields) }

func (d *DAO) db(ctx context.Context) (*sql.DB, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, types.ErrProviderClosed
	}
	if d.handle == nil {
		h, err := d.provider.Acquire(ctx, d.config.ConnectTo)
		if err != nil {
			return nil, err
		}
		d.handle = h
	}
	return d.handle.DB, nil
}

// Save inserts e and returns a fresh entity holding the assigned identity and
// every written field.
func (d *DAO) Save(ctx context.Context, e types.Entity) (types.Entity, error) {
	values, err := mapper.EntityToRow(e, d.table.Fields)
	if err != nil {
		return nil, err
	}
	id, err := d.identity.Generate()
	if err != nil {
		return nil, err
	}
	st, err := sqlgen.Insert(d.dialect, d.table, values, id)
	if err != nil {
		return nil, err
	}
	db, err := d.db(ctx)
	if err != nil {
		return nil, err
	}

	d.logStatement(ctx, "save", st)
	if d.dialect.Returning() {
		var returned any
		if err := db.QueryRowContext(ctx, st.SQL, st.Args...).Scan(&returned); err != nil {
			return nil, d.persistence(ctx, "save", err)
		}
		if b, ok := returned.([]byte); ok {
			returned = string(b)
		}
		return mapper.Project(e, d.table.IDField, returned, d.table.Fields), nil
	}

	res, err := db.ExecContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, d.persistence(ctx, "save", err)
	}
	if id == nil {
		lastID, err := res.LastInsertId()
		if err != nil {
			return nil, d.persistence(ctx, "save", err)
		}
		id = lastID
	}
	return mapper.Project(e, d.table.IDField, id, d.table.Fields), nil
}

// Update writes every field of e to the row with e's identity. Matching no
// row is not an error.
func (d *DAO) Update(ctx context.Context, e types.Entity) error {
	id, err := d.identity.From(e)
	if err != nil {
		return err
	}
	values, err := mapper.EntityToRow(e, d.table.Fields)
	if err != nil {
		return err
	}
	st, err := sqlgen.Update(d.dialect, d.table, values, id)
	if err != nil {
		return err
	}
	return d.exec(ctx, "update", st)
}

// Delete removes the row with e's identity. Matching no row is not an error.
func (d *DAO) Delete(ctx context.Context, e types.Entity) error {
	id, err := d.identity.From(e)
	if err != nil {
		return err
	}
	st, err := sqlgen.Delete(d.dialect, d.table, id)
	if err != nil {
		return err
	}
	return d.exec(ctx, "delete", st)
}

// Find returns the entity with identity id, or nil when there is none.
func (d *DAO) Find(ctx context.Context, id any) (types.Entity, error) {
	if err := d.identity.Validate(id); err != nil {
		return nil, err
	}
	st, err := sqlgen.FindByID(d.dialect, d.table, id)
	if err != nil {
		return nil, err
	}
	entities, err := d.query(ctx, "find", st)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, nil
	}
	return entities[0], nil
}

// All returns the entities selected by q in the order the database returns
// them. A nil q selects every row.
func (d *DAO) All(ctx context.Context, q *types.Query) ([]types.Entity, error) {
	st, err := sqlgen.Select(d.dialect, d.table, q)
	if err != nil {
		return nil, err
	}
	return d.query(ctx, "all", st)
}

// Count returns the number of rows matching f; nil counts every row.
func (d *DAO) Count(ctx context.Context, f types.Filter) (int64, error) {
	st, err := sqlgen.Count(d.dialect, d.table, f)
	if err != nil {
		return 0, err
	}
	db, err := d.db(ctx)
	if err != nil {
		return 0, err
	}
	d.logStatement(ctx, "count", st)
	var n int64
	if err := db.QueryRowContext(ctx, st.SQL, st.Args...).Scan(&n); err != nil {
		return 0, d.persistence(ctx, "count", err)
	}
	return n, nil
}

// Close releases the DAO's handle. Operations after Close return
// ErrProviderClosed. Close is idempotent.
func (d *DAO) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	var err error
	if d.handle != nil {
		err = d.provider.Release(d.config.ConnectTo)
		d.handle = nil
	}
	if d.ownsProvider {
		err = errors.Join(err, d.provider.Close())
	}
	return err
}

func (d *DAO) exec(ctx context.Context, op string, st sqlgen.Statement) error {
	db, err := d.db(ctx)
	if err != nil {
		return err
	}
	d.logStatement(ctx, op, st)
	if _, err := db.ExecContext(ctx, st.SQL, st.Args...); err != nil {
		return d.persistence(ctx, op, err)
	}
	return nil
}

func (d *DAO) query(ctx context.Context, op string, st sqlgen.Statement) ([]types.Entity, error) {
	db, err := d.db(ctx)
	if err != nil {
		return nil, err
	}
	d.logStatement(ctx, op, st)
	rows, err := db.QueryContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, d.persistence(ctx, op, err)
	}
	defer rows.Close()

	columns, values, err := pool.ReadRows(rows)
	if err != nil {
		return nil, d.persistence(ctx, op, err)
	}
	return toEntities(columns, values)
}

func (d *DAO) logStatement(ctx context.Context, op string, st sqlgen.Statement) {
	d.logger.DebugContext(ctx, "executing statement", "op", op, "sql", st.SQL, "params", len(st.Args))
}

// persistence logs err and wraps it in ErrPersistence unless it already is.
func (d *DAO) persistence(ctx context.Context, op string, err error) error {
	attrs := append([]any{"op", op, "error", err}, pool.ErrorAttrs(err)...)
	d.logger.WarnContext(ctx, "statement failed", attrs...)
	if errors.Is(err, types.ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", types.ErrPersistence, op, err)
}

func toEntities(columns []string, rows [][]any) ([]types.Entity, error) {
	out := make([]types.Entity, 0, len(rows))
	for _, row := range rows {
		e, err := mapper.RowToEntity(columns, row)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrPersistence, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// RawExec runs query against descriptor through provider, bypassing the
// statement compiler. Rows come back as column-keyed entities; statements
// without result columns return an empty slice. A nil provider runs the
// statement on a handle opened and closed for this call alone.
func RawExec(ctx context.Context, provider *pool.Provider, descriptor, query string, params ...any) ([]types.Entity, error) {
	if provider == nil {
		provider = pool.New(pool.DefaultConfig())
		defer provider.Close()
	}
	columns, rows, err := provider.Exec(ctx, descriptor, query, params...)
	if err != nil {
		return nil, err
	}
	return toEntities(columns, rows)
}
