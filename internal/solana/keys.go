package solana

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// Sizes of Solana key material.
const (
	PublicKeySize = 32
	SignatureSize = 64

	// MaxPublicKeyLength is the longest base58 rendering of a public key.
	MaxPublicKeyLength = 44
	// MaxSignatureLength is the longest base58 rendering of a signature.
	MaxSignatureLength = 88
)

// ErrInvalidPublicKey is returned when text does not decode to a 32-byte key.
var ErrInvalidPublicKey = errors.New("invalid public key")

// Well-known program and sysvar addresses.
var (
	SystemProgramID          = MustPublicKey("11111111111111111111111111111111")
	TokenProgramID           = MustPublicKey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgramID = MustPublicKey("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	SysvarInstructionsID     = MustPublicKey("Sysvar1nstructions1111111111111111111111111")
)

// PublicKey is an ed25519 public key or program derived address.
type PublicKey [PublicKeySize]byte

// PublicKeyFromBase58 parses a base58 encoded public key.
func PublicKeyFromBase58(s string) (PublicKey, error) {
	var pk PublicKey
	decoded, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(decoded) != PublicKeySize {
		return pk, fmt.Errorf("%w: decoded length %d", ErrInvalidPublicKey, len(decoded))
	}
	copy(pk[:], decoded)
	return pk, nil
}

// MustPublicKey parses a base58 public key and panics on error.
// Intended for package-level constants.
func MustPublicKey(s string) PublicKey {
	pk, err := PublicKeyFromBase58(s)
	if err != nil {
		panic(fmt.Sprintf("solana: %s: %v", s, err))
	}
	return pk
}

// String returns the base58 form.
func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// IsZero reports whether the key is all zero bytes.
func (pk PublicKey) IsZero() bool {
	return pk == PublicKey{}
}

// Signature is an ed25519 transaction signature.
type Signature [SignatureSize]byte

// SignatureFromBase58 parses a base58 encoded signature.
func SignatureFromBase58(s string) (Signature, error) {
	var sig Signature
	decoded, err := base58.Decode(s)
	if err != nil {
		return sig, fmt.Errorf("decode signature: %w", err)
	}
	if len(decoded) != SignatureSize {
		return sig, fmt.Errorf("decode signature: length %d", len(decoded))
	}
	copy(sig[:], decoded)
	return sig, nil
}

// String returns the base58 form.
func (s Signature) String() string {
	return base58.Encode(s[:])
}

// IsZero reports whether the signature is unset.
func (s Signature) IsZero() bool {
	return s == Signature{}
}

// Keypair holds an ed25519 signing key.
type Keypair struct {
	private ed25519.PrivateKey
}

// NewKeypair generates a random keypair.
func NewKeypair() (Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Keypair{}, fmt.Errorf("generate keypair: %w", err)
	}
	return Keypair{private: priv}, nil
}

// KeypairFromSeed derives a keypair from the first 32 bytes of seed.
func KeypairFromSeed(seed []byte) (Keypair, error) {
	if len(seed) < ed25519.SeedSize {
		return Keypair{}, fmt.Errorf("seed too short: %d bytes", len(seed))
	}
	return Keypair{private: ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize])}, nil
}

// KeypairFromBytes restores a keypair from the 64-byte solana-keygen layout
// (secret seed followed by public key).
func KeypairFromBytes(b []byte) (Keypair, error) {
	if len(b) != ed25519.PrivateKeySize {
		return Keypair{}, fmt.Errorf("keypair must be %d bytes, got %d", ed25519.PrivateKeySize, len(b))
	}
	kp := Keypair{private: ed25519.NewKeyFromSeed(b[:ed25519.SeedSize])}
	if string(kp.private[ed25519.SeedSize:]) != string(b[ed25519.SeedSize:]) {
		return Keypair{}, errors.New("keypair public half does not match secret")
	}
	return kp, nil
}

// PublicKey returns the public half.
func (k Keypair) PublicKey() PublicKey {
	var pk PublicKey
	if len(k.private) == ed25519.PrivateKeySize {
		copy(pk[:], k.private[ed25519.SeedSize:])
	}
	return pk
}

// Bytes returns the 64-byte solana-keygen layout.
func (k Keypair) Bytes() []byte {
	out := make([]byte, len(k.private))
	copy(out, k.private)
	return out
}

// Sign signs message.
func (k Keypair) Sign(message []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(k.private, message))
	return sig
}

// Valid reports whether the keypair holds key material.
func (k Keypair) Valid() bool {
	return len(k.private) == ed25519.PrivateKeySize
}
