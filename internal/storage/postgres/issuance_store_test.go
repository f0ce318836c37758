package postgres

import (
	"context"
	"math"
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

func TestIssuanceStore_Postgres(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewIssuanceStore(pool)
	ctx := context.Background()

	t.Run("insert and get by id", func(t *testing.T) {
		rec := testIssuance(domain.IssuanceCreate, "sig-create", "mint1", 1000)
		rec.Name = "Test Token"
		rec.URI = "https://example.com/token-metadata.json"
		rec.Decimals = 6

		require.NoError(t, store.Insert(ctx, rec))

		got, err := store.GetByID(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec, got)
	})

	t.Run("duplicate rejected", func(t *testing.T) {
		rec := testIssuance(domain.IssuanceCreate, "sig-create", "mint1", 1000)
		err := store.Insert(ctx, rec)
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	})

	t.Run("full u64 amount", func(t *testing.T) {
		rec := testIssuance(domain.IssuanceMint, "sig-max", "mint1", 3000)
		rec.Amount = math.MaxUint64

		require.NoError(t, store.Insert(ctx, rec))

		got, err := store.GetByID(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(math.MaxUint64), got.Amount)
	})

	t.Run("get by mint ordered", func(t *testing.T) {
		require.NoError(t, store.Insert(ctx, testIssuance(domain.IssuanceMint, "sig-mint", "mint1", 2000)))

		recs, err := store.GetByMint(ctx, "mint1")
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, int64(1000), recs[0].CreatedAt)
		assert.Equal(t, int64(2000), recs[1].CreatedAt)
		assert.Equal(t, int64(3000), recs[2].CreatedAt)
	})

	t.Run("time range inclusive", func(t *testing.T) {
		recs, err := store.GetByTimeRange(ctx, 1000, 2000)
		require.NoError(t, err)
		assert.Len(t, recs, 2)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := store.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("invalid input", func(t *testing.T) {
		err := store.Insert(ctx, &domain.Issuance{ID: "x"})
		assert.ErrorIs(t, err, storage.ErrInvalidInput)
	})
}
