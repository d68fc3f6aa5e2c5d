package dao_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/gdao/pkg/dao"
	"github.com/mesh-intelligence/gdao/pkg/types"
)

func TestPublicAPI(t *testing.T) {
	ctx := context.Background()
	provider := dao.NewProvider(dao.DefaultPoolConfig())
	defer provider.Close()

	desc := "sqlite://" + filepath.Join(t.TempDir(), "public.db")
	_, err := dao.RawExec(ctx, provider, desc, `CREATE TABLE items (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT, size INTEGER)`)
	require.NoError(t, err)

	items, err := dao.New(types.Config{ConnectTo: desc, Table: "items", Fields: []string{"name", "size"}}, dao.WithProvider(provider))
	require.NoError(t, err)
	defer items.Close()

	saved, err := items.Save(ctx, types.Entity{"name": "bolt", "size": int64(3)})
	require.NoError(t, err)

	rows, err := dao.RawExec(ctx, provider, desc, `SELECT name FROM items WHERE id = ?`, saved["id"])
	require.NoError(t, err)
	assert.Equal(t, []types.Entity{{"name": "bolt"}}, rows)

	_, err = dao.New(types.Config{ConnectTo: desc, Table: "items"})
	assert.ErrorIs(t, err, types.ErrInvalidConfiguration)
}

func TestRawExec_WithoutProvider(t *testing.T) {
	ctx := context.Background()
	desc := "sqlite://" + filepath.Join(t.TempDir(), "raw.db")

	_, err := dao.RawExec(ctx, nil, desc, `CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`)
	require.NoError(t, err)
	_, err = dao.RawExec(ctx, nil, desc, `INSERT INTO kv (k, v) VALUES (?, ?)`, "a", "1")
	require.NoError(t, err)

	rows, err := dao.RawExec(ctx, nil, desc, `SELECT k, v FROM kv`)
	require.NoError(t, err)
	assert.Equal(t, []types.Entity{{"k": "a", "v": "1"}}, rows)

	rows, err = dao.RawExec(ctx, nil, "sqlite://:memory:", `SELECT 1 AS one`)
	require.NoError(t, err)
	assert.Equal(t, []types.Entity{{"one": int64(1)}}, rows)

	_, err = dao.RawExec(ctx, nil, "oracle://nowhere", `SELECT 1`)
	assert.ErrorIs(t, err, types.ErrInvalidConfiguration)
}
