package pool

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/gdao/pkg/types"
)

func tempDescriptor(t *testing.T) string {
	t.Helper()
	return "sqlite://" + filepath.Join(t.TempDir(), "pool.db")
}

func TestAcquireRelease(t *testing.T) {
	ctx := context.Background()
	p := New(DefaultConfig())
	defer p.Close()
	desc := tempDescriptor(t)

	h1, err := p.Acquire(ctx, desc)
	require.NoError(t, err)
	h2, err := p.Acquire(ctx, desc)
	require.NoError(t, err)
	assert.Same(t, h1, h2, "same descriptor must share one handle")
	assert.Equal(t, types.DialectSQLite, h1.Descriptor.Dialect)
	assert.Len(t, p.Stats(), 1)

	assert.Equal(t, 2, p.Refs(desc))

	require.NoError(t, p.Release(desc))
	require.NoError(t, p.Release(desc))
	assert.Equal(t, 0, p.Refs(desc))
	assert.Len(t, p.Stats(), 1, "released handle stays open for reuse")
	assert.NoError(t, h1.DB.PingContext(ctx))

	h3, err := p.Acquire(ctx, desc)
	require.NoError(t, err)
	assert.Same(t, h1, h3, "reacquiring reuses the idle handle")
	assert.Equal(t, 1, p.Refs(desc))

	require.NoError(t, p.Release(desc))
	require.NoError(t, p.Release(desc), "releasing past zero is a no-op")
	assert.Equal(t, 0, p.Refs(desc))
	assert.NoError(t, p.Release("sqlite:///nowhere.db"), "releasing an unknown descriptor is a no-op")
}

func TestAcquire_InvalidDescriptor(t *testing.T) {
	p := New(DefaultConfig())
	defer p.Close()

	tests := []struct {
		name string
		desc string
	}{
		{"empty", ""},
		{"unknown scheme", "oracle://host/db"},
		{"bad mysql dsn", "mysql://user@tcp(host:3306"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Acquire(context.Background(), tt.desc)
			assert.ErrorIs(t, err, types.ErrInvalidConfiguration)
		})
	}
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	p := New(DefaultConfig())
	desc := tempDescriptor(t)

	h, err := p.Acquire(ctx, desc)
	require.NoError(t, err)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Error(t, h.DB.PingContext(ctx))

	_, err = p.Acquire(ctx, desc)
	assert.ErrorIs(t, err, types.ErrProviderClosed)
	_, _, err = p.Exec(ctx, desc, "SELECT 1")
	assert.ErrorIs(t, err, types.ErrProviderClosed)
}

func TestExec(t *testing.T) {
	ctx := context.Background()
	p := New(DefaultConfig())
	defer p.Close()
	desc := tempDescriptor(t)

	cols, rows, err := p.Exec(ctx, desc, `CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT, data BLOB)`)
	require.NoError(t, err)
	assert.Nil(t, cols)
	assert.Nil(t, rows)

	_, _, err = p.Exec(ctx, desc, `INSERT INTO t (name, data) VALUES (?, ?), (?, ?)`, "a", []byte{1, 2}, "b", nil)
	require.NoError(t, err)

	cols, rows, err = p.Exec(ctx, desc, `SELECT id, name, data FROM t ORDER BY id`)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "data"}, cols)
	require.Len(t, rows, 2)
	assert.Equal(t, []any{int64(1), "a", []byte{1, 2}}, rows[0])
	assert.Equal(t, []any{int64(2), "b", nil}, rows[1])

	_, _, err = p.Exec(ctx, desc, `SELECT * FROM missing`)
	assert.ErrorIs(t, err, types.ErrPersistence)
}

func TestConcurrentAcquire(t *testing.T) {
	ctx := context.Background()
	p := New(DefaultConfig())
	defer p.Close()
	desc := tempDescriptor(t)

	var wg sync.WaitGroup
	handles := make([]*Handle, 16)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := p.Acquire(ctx, desc)
			if err == nil {
				handles[i] = h
			}
		}(i)
	}
	wg.Wait()

	for _, h := range handles {
		require.NotNil(t, h)
		assert.Same(t, handles[0], h)
	}
	assert.Equal(t, len(handles), p.Refs(desc))
	for range handles {
		require.NoError(t, p.Release(desc))
	}
	assert.Equal(t, 0, p.Refs(desc))
	assert.Len(t, p.Stats(), 1)
}

func TestExec_ReusesHandle(t *testing.T) {
	ctx := context.Background()
	p := New(DefaultConfig())
	defer p.Close()
	desc := "sqlite://file:reuse?mode=memory"

	_, _, err := p.Exec(ctx, desc, `CREATE TABLE x (id INTEGER PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)
	_, _, err = p.Exec(ctx, desc, `INSERT INTO x (name) VALUES (?)`, "kept")
	require.NoError(t, err)

	stats := p.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[desc].OpenConnections)
	assert.Equal(t, 0, p.Refs(desc))

	cols, rows, err := p.Exec(ctx, desc, `SELECT name FROM x`)
	require.NoError(t, err, "in-memory table must survive between statements")
	assert.Equal(t, []string{"name"}, cols)
	assert.Equal(t, [][]any{{"kept"}}, rows)
}

func TestAcquire_SlowEndpointDoesNotBlockOthers(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	p := New(DefaultConfig())
	defer p.Close()

	slowDone := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		slow := "postgres://u@" + ln.Addr().String() + "/db?sslmode=disable&connect_timeout=2"
		_, err := p.Acquire(ctx, slow)
		slowDone <- err
	}()

	var conn net.Conn
	select {
	case conn = <-accepted:
		defer conn.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("slow endpoint was never dialed")
	}

	_, err = p.Acquire(context.Background(), tempDescriptor(t))
	require.NoError(t, err)
	select {
	case <-slowDone:
		t.Fatal("fast acquisition waited for the slow endpoint")
	default:
	}

	assert.ErrorIs(t, <-slowDone, types.ErrPersistence)
}

func TestErrorAttrs(t *testing.T) {
	assert.Nil(t, ErrorAttrs(errors.New("plain")))

	err := &pq.Error{Code: "23505"}
	attrs := ErrorAttrs(errors.Join(types.ErrPersistence, err))
	assert.Equal(t, []any{"sqlstate", "23505", "condition", "unique_violation"}, attrs)
}
