package memory

import (
	"context"
	"errors"
	"testing"

	"sss-shared/internal/domain"
	"sss-shared/internal/idhash"
	"sss-shared/internal/storage"
)

func newIssuance(kind domain.IssuanceKind, sig, mint string, createdAt int64) *domain.Issuance {
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

func TestIssuanceStore_InsertAndGetByID(t *testing.T) {
	store := NewIssuanceStore()
	ctx := context.Background()

	rec := newIssuance(domain.IssuanceCreate, "sig1", "mint1", 1704067200000)
	rec.Name = "Test Token"
	rec.Decimals = 6

	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	result, err := store.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if result.Name != "Test Token" || result.Decimals != 6 {
		t.Errorf("unexpected record %+v", result)
	}

	// Returned records are copies
	result.Name = "changed"
	again, _ := store.GetByID(ctx, rec.ID)
	if again.Name != "Test Token" {
		t.Error("store record was modified through returned pointer")
	}
}

func TestIssuanceStore_DuplicateKey(t *testing.T) {
	store := NewIssuanceStore()
	ctx := context.Background()

	rec := newIssuance(domain.IssuanceMint, "sig1", "mint1", 1)
	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	err := store.Insert(ctx, rec)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestIssuanceStore_InvalidInput(t *testing.T) {
	store := NewIssuanceStore()
	ctx := context.Background()

	cases := []*domain.Issuance{
		nil,
		{},
		{ID: "x", Kind: "burn", Signature: "s", Mint: "m"},
		{ID: "x", Kind: domain.IssuanceMint, Mint: "m"},
	}
	for _, rec := range cases {
		if err := store.Insert(ctx, rec); !errors.Is(err, storage.ErrInvalidInput) {
			t.Errorf("Expected ErrInvalidInput for %+v, got %v", rec, err)
		}
	}
}

func TestIssuanceStore_GetByID_NotFound(t *testing.T) {
	store := NewIssuanceStore()

	_, err := store.GetByID(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestIssuanceStore_GetByMint_Ordered(t *testing.T) {
	store := NewIssuanceStore()
	ctx := context.Background()

	for _, rec := range []*domain.Issuance{
		newIssuance(domain.IssuanceMint, "sig3", "mint1", 3000),
		newIssuance(domain.IssuanceCreate, "sig1", "mint1", 1000),
		newIssuance(domain.IssuanceMint, "sig2", "mint1", 2000),
		newIssuance(domain.IssuanceCreate, "other", "mint2", 1500),
	} {
		if err := store.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	results, err := store.GetByMint(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(results))
	}
	for i, want := range []string{"sig1", "sig2", "sig3"} {
		if results[i].Signature != want {
			t.Errorf("record %d: expected %s, got %s", i, want, results[i].Signature)
		}
	}

	empty, err := store.GetByMint(ctx, "unknown")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected no records, got %d", len(empty))
	}
}

func TestIssuanceStore_GetByTimeRange(t *testing.T) {
	store := NewIssuanceStore()
	ctx := context.Background()

	for i, ts := range []int64{1000, 2000, 3000, 4000} {
		rec := newIssuance(domain.IssuanceMint, string(rune('a'+i)), "mint1", ts)
		if err := store.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	results, err := store.GetByTimeRange(ctx, 2000, 3000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 records (inclusive bounds), got %d", len(results))
	}
	if results[0].CreatedAt != 2000 || results[1].CreatedAt != 3000 {
		t.Errorf("unexpected order: %d, %d", results[0].CreatedAt, results[1].CreatedAt)
	}
}
