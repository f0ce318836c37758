package solana

import (
	"encoding/binary"
	"errors"
)

// MintAccountSize is the length of an SPL Token mint account.
const MintAccountSize = 82

// ErrNotMint is returned for data that is not an SPL Token mint.
var ErrNotMint = errors.New("not a mint account")

// MintAccount is a decoded SPL Token mint.
type MintAccount struct {
	MintAuthority   *PublicKey
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority *PublicKey
}

// DecodeMintAccount parses SPL Token mint data.
// Layout (82 bytes):
// - mintAuthority: COption<Pubkey> (4 + 32)
// - supply: u64
// - decimals: u8
// - isInitialized: bool
// - freezeAuthority: COption<Pubkey> (4 + 32)
func DecodeMintAccount(data []byte) (*MintAccount, error) {
	if len(data) < MintAccountSize {
		return nil, ErrNotMint
	}
	return &MintAccount{
		MintAuthority:   decodeCOption(data[0:36]),
		Supply:          binary.LittleEndian.Uint64(data[36:44]),
		Decimals:        data[44],
		IsInitialized:   data[45] != 0,
		FreezeAuthority: decodeCOption(data[46:82]),
	}, nil
}

func decodeCOption(b []byte) *PublicKey {
	if binary.LittleEndian.Uint32(b[:4]) == 0 {
		return nil
	}
	var pk PublicKey
	copy(pk[:], b[4:36])
	return &pk
}
