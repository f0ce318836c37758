package metaplex

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"sss-shared/internal/solana"
)

// keyMetadataV1 is the account discriminator of a metadata account.
const keyMetadataV1 = 4

// ErrNotMetadata is returned for data that is not a metadata account.
var ErrNotMetadata = errors.New("not a metadata account")

// Metadata is the leading part of an on-chain metadata account.
// Name, Symbol and URI have their NUL padding removed.
type Metadata struct {
	UpdateAuthority      solana.PublicKey
	Mint                 solana.PublicKey
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             []Creator
	PrimarySaleHappened  bool
	IsMutable            bool
}

// DecodeMetadata parses metadata account data.
// Layout: key u8, update authority, mint, name, symbol, uri (Borsh strings),
// seller fee u16, creators Option<Vec<Creator>>, primary sale bool,
// is mutable bool, then fields not decoded here.
func DecodeMetadata(data []byte) (*Metadata, error) {
	if len(data) < 1+2*solana.PublicKeySize || data[0] != keyMetadataV1 {
		return nil, ErrNotMetadata
	}
	r := &reader{buf: data, off: 1}

	var m Metadata
	copy(m.UpdateAuthority[:], r.bytes(solana.PublicKeySize))
	copy(m.Mint[:], r.bytes(solana.PublicKeySize))
	m.Name = r.paddedString()
	m.Symbol = r.paddedString()
	m.URI = r.paddedString()
	m.SellerFeeBasisPoints = r.u16()

	if r.bool() {
		n := r.u32()
		if n > maxCreators {
			return nil, fmt.Errorf("%w: %d creators", ErrNotMetadata, n)
		}
		m.Creators = make([]Creator, 0, n)
		for i := uint32(0); i < n && r.err == nil; i++ {
			var c Creator
			copy(c.Address[:], r.bytes(solana.PublicKeySize))
			c.Verified = r.bool()
			c.Share = r.u8()
			m.Creators = append(m.Creators, c)
		}
	}
	m.PrimarySaleHappened = r.bool()
	m.IsMutable = r.bool()

	if r.err != nil {
		return nil, fmt.Errorf("decode metadata: %w", r.err)
	}
	return &m, nil
}

// maxCreators is the program's limit on the creators list.
const maxCreators = 5

var errShortBuffer = errors.New("unexpected end of data")

// reader is a little-endian Borsh cursor that records the first error.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.buf) {
		r.err = errShortBuffer
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8() uint8 {
	b := r.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) bool() bool {
	return r.u8() != 0
}

func (r *reader) u16() uint16 {
	b := r.bytes(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// paddedString reads a Borsh string and strips the program's NUL padding.
func (r *reader) paddedString() string {
	n := r.u32()
	if r.err != nil {
		return ""
	}
	if uint64(n) > uint64(len(r.buf)) {
		r.err = errShortBuffer
		return ""
	}
	return strings.TrimRight(string(r.bytes(int(n))), "\x00")
}
