package mongo_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xraph/salesdoc/store"
	"github.com/xraph/salesdoc/store/mongo"
	"github.com/xraph/salesdoc/store/storetest"
)

// Transactions need a replica set, e.g. mongodb://localhost:27017/?replicaSet=rs0.
func TestConformance(t *testing.T) {
	uri := os.Getenv("SALESDOC_MONGO_URI")
	if uri == "" {
		t.Skip("SALESDOC_MONGO_URI not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		s, err := mongo.New(ctx, uri, "salesdoc_test")
		require.NoError(t, err)
		require.NoError(t, s.Database().Drop(ctx))
		require.NoError(t, s.Migrate(ctx))
		return s
	})
}
