package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sss-shared/internal/domain"
	"sss-shared/internal/idhash"
	"sss-shared/internal/storage"
)

func testIssuance(kind domain.IssuanceKind, sig, mint string, createdAt int64) *domain.Issuance {
	return &domain.Issuance{
		ID:        idhash.ComputeIssuanceID(string(kind), sig),
		Kind:      kind,
		Signature: sig,
		Mint:      mint,
		Owner:     "owner1",
		Cluster:   "devnet",
		CreatedAt: createdAt,
	}
}

func TestIssuanceStore_ClickHouse(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewIssuanceStore(conn)
	ctx := context.Background()

	create := testIssuance(domain.IssuanceCreate, "sig1", "mint1", 1000)
	create.Name = "Test Token"
	create.Decimals = 6
	mint := testIssuance(domain.IssuanceMint, "sig2", "mint1", 2000)
	mint.Amount = 1_000_000

	require.NoError(t, store.Insert(ctx, mint))
	require.NoError(t, store.Insert(ctx, create))

	t.Run("duplicate rejected", func(t *testing.T) {
		assert.ErrorIs(t, store.Insert(ctx, create), storage.ErrDuplicateKey)
	})

	t.Run("get by id", func(t *testing.T) {
		got, err := store.GetByID(ctx, mint.ID)
		require.NoError(t, err)
		assert.Equal(t, mint, got)
	})

	t.Run("get by mint ordered", func(t *testing.T) {
		recs, err := store.GetByMint(ctx, "mint1")
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, domain.IssuanceCreate, recs[0].Kind)
		assert.Equal(t, domain.IssuanceMint, recs[1].Kind)
	})

	t.Run("time range", func(t *testing.T) {
		recs, err := store.GetByTimeRange(ctx, 1500, 2500)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "sig2", recs[0].Signature)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := store.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}
