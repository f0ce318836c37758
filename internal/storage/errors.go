package storage

import "errors"

// Journal errors. The journal is append-only: records are never updated.
var (
	ErrNotFound     = errors.New("issuance not found")
	ErrDuplicateKey = errors.New("issuance already recorded")
	ErrInvalidInput = errors.New("invalid issuance record")
)
