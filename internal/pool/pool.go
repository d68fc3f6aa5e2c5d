// Package pool owns the database handles shared by every DAO. Handles are
// keyed by connection descriptor, opened on first use and reference counted.
// A handle nobody references stays open for reuse until the Provider closes.
package pool

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/gdao/pkg/types"
)

// Config holds the limits applied to every opened *sql.DB.
type Config struct {
	// MaxOpenConns is the maximum number of open connections (0 = unlimited).
	// SQLite handles always use one.
	MaxOpenConns int
	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int
	// ConnMaxLifetime is the maximum lifetime of a connection.
	ConnMaxLifetime time.Duration
	// ConnMaxIdleTime is the maximum idle time of a connection.
	ConnMaxIdleTime time.Duration
}

// DefaultConfig returns the limits used when none are configured.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

// Handle is an acquired database handle. Callers must not close DB; they
// release the handle through the Provider instead.
type Handle struct {
	DB         *sql.DB
	Descriptor types.Descriptor
}

type entry struct {
	handle *Handle
	refs   int
}

// Provider maps connection descriptors to open handles. It is safe for
// concurrent use.
type Provider struct {
	config Config

	mu      sync.Mutex
	closed  bool
	handles map[string]*entry
}

// New creates an empty Provider. Nothing is opened until Acquire.
func New(config Config) *Provider {
	return &Provider{
		config:  config,
		handles: make(map[string]*entry),
	}
}

// Acquire returns the handle for descriptor, opening and pinging it if no
// handle is open yet. Each successful Acquire must be paired with a Release.
// Opening happens outside the provider lock, so a slow endpoint does not
// hold up acquisitions of other descriptors.
func (p *Provider) Acquire(ctx context.Context, descriptor string) (*Handle, error) {
	if h, ok, err := p.acquireOpen(descriptor); ok || err != nil {
		return h, err
	}

	d, err := types.ParseDescriptor(descriptor)
	if err != nil {
		return nil, err
	}
	db, err := p.open(ctx, d)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		db.Close()
		return nil, types.ErrProviderClosed
	}
	if e, ok := p.handles[descriptor]; ok {
		// Another caller opened the same descriptor first.
		db.Close()
		e.refs++
		return e.handle, nil
	}
	h := &Handle{DB: db, Descriptor: d}
	p.handles[descriptor] = &entry{handle: h, refs: 1}
	return h, nil
}

func (p *Provider) acquireOpen(descriptor string) (*Handle, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, false, types.ErrProviderClosed
	}
	e, ok := p.handles[descriptor]
	if !ok {
		return nil, false, nil
	}
	e.refs++
	return e.handle, true, nil
}

func (p *Provider) open(ctx context.Context, d types.Descriptor) (*sql.DB, error) {
	if d.Dialect == types.DialectMySQL {
		if _, err := mysql.ParseDSN(d.DSN); err != nil {
			return nil, fmt.Errorf("%w: mysql dsn: %v", types.ErrInvalidConfiguration, err)
		}
	}

	db, err := sql.Open(d.Driver, d.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", types.ErrPersistence, d.Redacted(), err)
	}

	maxOpen, maxIdle := p.config.MaxOpenConns, p.config.MaxIdleConns
	lifetime, idleTime := p.config.ConnMaxLifetime, p.config.ConnMaxIdleTime
	if d.Dialect == types.DialectSQLite {
		// SQLite serializes writers; one connection that never expires
		// also keeps in-memory databases alive across calls.
		maxOpen, maxIdle = 1, 1
		lifetime, idleTime = 0, 0
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)
	db.SetConnMaxIdleTime(idleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: connecting to %s: %w", types.ErrPersistence, d.Redacted(), err)
	}
	return db, nil
}

// Release drops one reference to the handle for descriptor. The handle stays
// open for the next Acquire until the Provider is closed. Releasing an unknown
// or unreferenced descriptor is a no-op.
func (p *Provider) Release(descriptor string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.handles[descriptor]; ok && e.refs > 0 {
		e.refs--
	}
	return nil
}

// Refs returns the number of outstanding references to the handle for
// descriptor, or zero when none is open.
func (p *Provider) Refs(descriptor string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.handles[descriptor]; ok {
		return e.refs
	}
	return 0
}

// Exec runs query against descriptor and returns the result columns and rows.
// Statements without result columns return nil columns and rows. Execution
// failures wrap ErrPersistence.
func (p *Provider) Exec(ctx context.Context, descriptor, query string, args ...any) ([]string, [][]any, error) {
	h, err := p.Acquire(ctx, descriptor)
	if err != nil {
		return nil, nil, err
	}
	defer p.Release(descriptor)

	rows, err := h.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", types.ErrPersistence, err)
	}
	defer rows.Close()

	return ReadRows(rows)
}

// ReadRows drains rows into column names and driver values. Text that a
// driver hands back as []byte is returned as string; binary columns keep
// their bytes. A statement without result columns yields nil for both.
func ReadRows(rows *sql.Rows) ([]string, [][]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", types.ErrPersistence, err)
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", types.ErrPersistence, err)
	}
	binary := make([]bool, len(colTypes))
	for i, ct := range colTypes {
		binary[i] = isBinary(ct.DatabaseTypeName())
	}

	var out [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("%w: scanning row: %w", types.ErrPersistence, err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok && !binary[i] {
				values[i] = string(b)
			}
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", types.ErrPersistence, err)
	}
	if len(columns) == 0 {
		return nil, nil, nil
	}
	return columns, out, nil
}

func isBinary(typeName string) bool {
	t := strings.ToUpper(typeName)
	return t == "BYTEA" || strings.Contains(t, "BLOB") || strings.Contains(t, "BINARY")
}

// Stats returns the database/sql statistics of every open handle, referenced
// or idle, keyed by redacted descriptor.
func (p *Provider) Stats() map[string]sql.DBStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]sql.DBStats, len(p.handles))
	for _, e := range p.handles {
		out[e.handle.Descriptor.Redacted()] = e.handle.DB.Stats()
	}
	return out
}

// Close closes every open handle regardless of outstanding references. Later
// calls to Acquire return ErrProviderClosed. Close is idempotent.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var firstErr error
	for key, e := range p.handles {
		if err := e.handle.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.handles, key)
	}
	return firstErr
}
