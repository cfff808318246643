package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xraph/salesdoc/store"
	"github.com/xraph/salesdoc/store/postgres"
	"github.com/xraph/salesdoc/store/storetest"
)

// The suite needs a disposable database; every table is truncated between
// cases.
func TestConformance(t *testing.T) {
	dsn := os.Getenv("SALESDOC_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SALESDOC_POSTGRES_DSN not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		s, err := postgres.New(ctx, dsn)
		require.NoError(t, err)
		require.NoError(t, s.Migrate(ctx))
		_, err = s.Pool().Exec(ctx, `TRUNCATE salesdoc_audit, salesdoc_payments, salesdoc_invoices,
			salesdoc_contracts, salesdoc_estimates, salesdoc_sequences RESTART IDENTITY CASCADE`)
		require.NoError(t, err)
		return s
	})
}
