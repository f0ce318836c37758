package clickhouse

import (
	"context"
	"fmt"

	"sss-shared/internal/domain"
	"sss-shared/internal/storage"
)

// IssuanceStore implements storage.IssuanceStore using ClickHouse.
type IssuanceStore struct {
	conn *Conn
}

// NewIssuanceStore creates a new IssuanceStore.
func NewIssuanceStore(conn *Conn) *IssuanceStore {
	return &IssuanceStore{conn: conn}
}

// Compile-time interface check.
var _ storage.IssuanceStore = (*IssuanceStore)(nil)

const issuanceColumns = `
	issuance_id, kind, signature, mint, owner, name, uri,
	decimals, amount, cluster, created_at
`

// Insert adds a new record. MergeTree does not enforce uniqueness, so the
// ID is checked before the insert. Returns ErrDuplicateKey if it exists.
func (s *IssuanceStore) Insert(ctx context.Context, rec *domain.Issuance) error {
	if err := storage.ValidateIssuance(rec); err != nil {
		return err
	}

	exists, err := s.exists(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO issuances (`+issuanceColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		rec.ID, string(rec.Kind), rec.Signature, rec.Mint, rec.Owner,
		rec.Name, rec.URI, rec.Decimals, rec.Amount, rec.Cluster, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *IssuanceStore) GetByID(ctx context.Context, id string) (*domain.Issuance, error) {
	recs, err := s.query(ctx, `
		SELECT `+issuanceColumns+`
		FROM issuances
		WHERE issuance_id = ?
		LIMIT 1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get issuance by id: %w", err)
	}
	if len(recs) == 0 {
		return nil, storage.ErrNotFound
	}
	return recs[0], nil
}

// GetByMint retrieves all records for a mint, ordered by created_at ASC.
func (s *IssuanceStore) GetByMint(ctx context.Context, mint string) ([]*domain.Issuance, error) {
	recs, err := s.query(ctx, `
		SELECT `+issuanceColumns+`
		FROM issuances
		WHERE mint = ?
		ORDER BY created_at ASC, issuance_id ASC
	`, mint)
	if err != nil {
		return nil, fmt.Errorf("query issuances by mint: %w", err)
	}
	return recs, nil
}

// GetByTimeRange retrieves records created within [start, end] (inclusive).
func (s *IssuanceStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Issuance, error) {
	recs, err := s.query(ctx, `
		SELECT `+issuanceColumns+`
		FROM issuances
		WHERE created_at >= ? AND created_at <= ?
		ORDER BY created_at ASC, issuance_id ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("query issuances by time range: %w", err)
	}
	return recs, nil
}

func (s *IssuanceStore) query(ctx context.Context, query string, args ...interface{}) ([]*domain.Issuance, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Issuance
	for rows.Next() {
		var (
			rec  domain.Issuance
			kind string
		)
		if err := rows.Scan(
			&rec.ID, &kind, &rec.Signature, &rec.Mint, &rec.Owner,
			&rec.Name, &rec.URI, &rec.Decimals, &rec.Amount, &rec.Cluster, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan issuance: %w", err)
		}
		rec.Kind = domain.IssuanceKind(kind)
		result = append(result, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issuances: %w", err)
	}
	return result, nil
}

// exists checks if a record with the ID already exists.
func (s *IssuanceStore) exists(ctx context.Context, id string) (bool, error) {
	var count uint64
	row := s.conn.QueryRow(ctx, `SELECT count() FROM issuances WHERE issuance_id = ?`, id)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
