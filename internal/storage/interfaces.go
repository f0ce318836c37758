package storage

import (
	"context"

	"sss-shared/internal/domain"
)

// IssuanceStore provides access to the issuance journal.
type IssuanceStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, rec *domain.Issuance) error

	// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Issuance, error)

	// GetByMint retrieves all records for a mint, ordered by created_at ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.Issuance, error)

	// GetByTimeRange retrieves records created within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Issuance, error)
}

// ValidateIssuance checks the fields every journal record must carry.
func ValidateIssuance(rec *domain.Issuance) error {
	if rec == nil || rec.ID == "" || rec.Signature == "" || rec.Mint == "" || !rec.Kind.Valid() {
		return ErrInvalidInput
	}
	return nil
}
