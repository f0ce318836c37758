package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"sss-shared/internal/domain"
	"sss-shared/internal/storage"
)

// IssuanceStore implements storage.IssuanceStore using PostgreSQL.
type IssuanceStore struct {
	pool *Pool
}

// NewIssuanceStore creates a new IssuanceStore.
func NewIssuanceStore(pool *Pool) *IssuanceStore {
	return &IssuanceStore{pool: pool}
}

// Compile-time interface check.
var _ storage.IssuanceStore = (*IssuanceStore)(nil)

const issuanceColumns = `
	issuance_id, kind, signature, mint, owner, name, uri,
	decimals, amount::text, cluster, created_at
`

// Insert adds a new record. Returns ErrDuplicateKey if issuance_id exists.
func (s *IssuanceStore) Insert(ctx context.Context, rec *domain.Issuance) error {
	if err := storage.ValidateIssuance(rec); err != nil {
		return err
	}

	query := `
		INSERT INTO issuances (
			issuance_id, kind, signature, mint, owner, name, uri,
			decimals, amount, cluster, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		rec.ID,
		string(rec.Kind),
		rec.Signature,
		rec.Mint,
		rec.Owner,
		rec.Name,
		rec.URI,
		int16(rec.Decimals),
		strconv.FormatUint(rec.Amount, 10),
		rec.Cluster,
		rec.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert issuance: %w", err)
	}
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *IssuanceStore) GetByID(ctx context.Context, id string) (*domain.Issuance, error) {
	query := `SELECT ` + issuanceColumns + ` FROM issuances WHERE issuance_id = $1`

	rec, err := scanIssuance(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get issuance by id: %w", err)
	}
	return rec, nil
}

// GetByMint retrieves all records for a mint, ordered by created_at ASC.
func (s *IssuanceStore) GetByMint(ctx context.Context, mint string) ([]*domain.Issuance, error) {
	query := `SELECT ` + issuanceColumns + `
		FROM issuances
		WHERE mint = $1
		ORDER BY created_at ASC, issuance_id ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query issuances by mint: %w", err)
	}
	defer rows.Close()

	return collectIssuances(rows)
}

// GetByTimeRange retrieves records created within [start, end] (inclusive).
func (s *IssuanceStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Issuance, error) {
	query := `SELECT ` + issuanceColumns + `
		FROM issuances
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at ASC, issuance_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query issuances by time range: %w", err)
	}
	defer rows.Close()

	return collectIssuances(rows)
}

func collectIssuances(rows pgx.Rows) ([]*domain.Issuance, error) {
	var result []*domain.Issuance
	for rows.Next() {
		rec, err := scanIssuance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issuance: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issuances: %w", err)
	}
	return result, nil
}

// scanIssuance scans a single row into Issuance.
func scanIssuance(row pgx.Row) (*domain.Issuance, error) {
	var (
		rec      domain.Issuance
		kind     string
		decimals int16
		amount   string
	)

	err := row.Scan(
		&rec.ID,
		&kind,
		&rec.Signature,
		&rec.Mint,
		&rec.Owner,
		&rec.Name,
		&rec.URI,
		&decimals,
		&amount,
		&rec.Cluster,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Kind = domain.IssuanceKind(kind)
	rec.Decimals = uint8(decimals)
	rec.Amount, err = strconv.ParseUint(amount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}

	return &rec, nil
}
