package audit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPGStore runs against a real database when TEST_DATABASE_URL is set.
func TestPGStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	store := NewPGStore(pool)
	require.NoError(t, store.EnsureSchema(ctx))

	datasetID := uuid.NewString()
	old := time.Now().UTC().AddDate(-1, 0, 0).Truncate(time.Second)

	require.NoError(t, store.Insert(ctx, Entry{
		ID: uuid.NewString(), Action: ActionUploadValidate, Severity: SeverityMedium,
		DatasetID: datasetID, IPAddress: "10.1.2.3:80", RowsAffected: 3, CreatedAt: old,
	}))

	entries, err := store.List(ctx, Query{DatasetID: datasetID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "10.1.2.3", entries[0].IPAddress)
	assert.Equal(t, 3, entries[0].RowsAffected)

	n, err := store.Count(ctx, Query{DatasetID: datasetID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	purged, err := store.Purge(ctx, old.Add(time.Second), 100)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, purged, int64(1))
}
