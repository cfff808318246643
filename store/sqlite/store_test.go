package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/salesdoc/store"
	"github.com/xraph/salesdoc/store/sqlite"
	"github.com/xraph/salesdoc/store/storetest"
)

func open(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "salesdoc.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return open(t) })
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := open(t)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Migrate(ctx))

	var applied int
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM salesdoc_migrations`).Scan(&applied))
	assert.Equal(t, len(sqlite.Migrations), applied)

	var mode string
	require.NoError(t, s.DB().QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)
}
