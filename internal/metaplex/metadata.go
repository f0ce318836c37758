// Package metaplex builds Token Metadata program instructions.
package metaplex

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"sss-shared/internal/solana"
)

// ProgramID is the Token Metadata program.
var ProgramID = solana.MustPublicKey("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

// Field limits enforced by the program, in bytes.
const (
	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxURILength    = 200
)

// Validation errors.
var (
	ErrNameTooLong   = errors.New("name too long")
	ErrSymbolTooLong = errors.New("symbol too long")
	ErrURITooLong    = errors.New("uri too long")
	ErrInvalidUTF8   = errors.New("invalid utf-8")
)

// TokenStandard mirrors the program's TokenStandard enum.
type TokenStandard uint8

const (
	TokenStandardNonFungible TokenStandard = iota
	TokenStandardFungibleAsset
	TokenStandardFungible
	TokenStandardNonFungibleEdition
	TokenStandardProgrammableNonFungible
	TokenStandardProgrammableNonFungibleEdition
)

// ValidateFields checks name, symbol and uri against the program limits.
func ValidateFields(name, symbol, uri string) error {
	for _, f := range []struct {
		field string
		value string
		max   int
		err   error
	}{
		{"name", name, MaxNameLength, ErrNameTooLong},
		{"symbol", symbol, MaxSymbolLength, ErrSymbolTooLong},
		{"uri", uri, MaxURILength, ErrURITooLong},
	} {
		if !utf8.ValidString(f.value) {
			return fmt.Errorf("%s: %w", f.field, ErrInvalidUTF8)
		}
		if len(f.value) > f.max {
			return fmt.Errorf("%w: %s is %d bytes, max %d", f.err, f.field, len(f.value), f.max)
		}
	}
	return nil
}

// FindMetadataAddress derives the metadata account of mint.
func FindMetadataAddress(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("metadata"), ProgramID[:], mint[:]},
		ProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive metadata address: %w", err)
	}
	return addr, nil
}

// FindMasterEditionAddress derives the master edition account of mint.
// Fungible tokens have none.
func FindMasterEditionAddress(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("metadata"), ProgramID[:], mint[:], []byte("edition")},
		ProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive master edition address: %w", err)
	}
	return addr, nil
}

// optional returns the account or, when absent, the program ID, which the
// program reads as None.
func optional(pk *solana.PublicKey) solana.PublicKey {
	if pk == nil {
		return ProgramID
	}
	return *pk
}
