// Package bridge implements the C binding contract in plain Go: status
// codes, argument validation, capacity-bounded output writes and
// serialized access to one lazily built engine. cmd/sss-shared only
// converts C pointers to the types used here.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"unicode/utf8"

	"sss-shared/internal/observability"
	"sss-shared/internal/solana"
	"sss-shared/internal/token"
)

// StatusOK is returned by every export on success.
const StatusOK = 0

// create_token status codes.
const (
	CreateNullArgument            = -1
	CreateInvalidURI              = -2
	CreateInvalidName             = -3
	CreateSignatureBufferTooSmall = -6
	CreateMintBufferTooSmall      = -7
	CreateFailed                  = -8
)

// mint_token_ffi status codes.
const (
	MintNullArgument            = -1
	MintInvalidMint             = -2
	MintInvalidOwner            = -3
	MintSignatureBufferTooSmall = -4
	MintFailed                  = -5
)

// Output capacities that always fit a base58 value plus its NUL.
const (
	SignatureCapacity = solana.MaxSignatureLength + 1
	AddressCapacity   = solana.MaxPublicKeyLength + 1
)

// Engine is the part of token.Engine the binding drives.
type Engine interface {
	CreateToken(ctx context.Context, p token.CreateParams) (token.CreateResult, error)
	MintTokens(ctx context.Context, mint solana.PublicKey, to token.Recipient, amount uint64) (solana.Signature, error)
	Payer() solana.PublicKey
}

// Compile-time interface check.
var _ Engine = (*token.Engine)(nil)

// Factory builds the engine on first use.
type Factory func(ctx context.Context) (Engine, error)

// Bridge serializes every call through one mutex. The engine is built
// once; a construction failure is kept and returned by every later call.
type Bridge struct {
	mu      sync.Mutex
	factory Factory
	logger  *log.Logger

	built     bool
	engine    Engine
	engineErr error

	lastErr error
}

// New creates a Bridge. A nil logger discards output.
func New(factory Factory, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Bridge{factory: factory, logger: logger}
}

// CreateToken implements create_token. A nil string or buffer stands for a
// NULL pointer; the buffer length is the caller's capacity.
func (b *Bridge) CreateToken(uri, name *string, decimals uint8, sigOut, mintOut []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if uri == nil || name == nil || sigOut == nil || mintOut == nil {
		return b.fail("create", CreateNullArgument, errors.New("null pointer argument"))
	}
	if !utf8.ValidString(*uri) {
		return b.fail("create", CreateInvalidURI, errors.New("uri is not valid UTF-8"))
	}
	if !utf8.ValidString(*name) {
		return b.fail("create", CreateInvalidName, errors.New("name is not valid UTF-8"))
	}
	// An undersized buffer must fail before a token exists on chain.
	if len(sigOut) < SignatureCapacity {
		return b.fail("create", CreateSignatureBufferTooSmall, capacityError("signature", len(sigOut), SignatureCapacity))
	}
	if len(mintOut) < AddressCapacity {
		return b.fail("create", CreateMintBufferTooSmall, capacityError("mint address", len(mintOut), AddressCapacity))
	}

	engine, err := b.engineLocked()
	if err != nil {
		return b.engineFailed("create", CreateFailed, err)
	}

	res, err := engine.CreateToken(context.Background(), token.CreateParams{
		URI:      *uri,
		Name:     *name,
		Decimals: decimals,
	})
	if err != nil {
		b.lastErr = err
		b.logger.Printf("create_token failed: %v", err)
		return CreateFailed
	}

	sig := res.Signature.String()
	mint := res.Mint.String()
	switch {
	case !fits(sig, sigOut):
		return b.fail("create", CreateSignatureBufferTooSmall, capacityError("signature", len(sigOut), len(sig)+1))
	case !fits(mint, mintOut):
		return b.fail("create", CreateMintBufferTooSmall, capacityError("mint address", len(mintOut), len(mint)+1))
	}
	writeCString(sigOut, sig)
	writeCString(mintOut, mint)
	return StatusOK
}

// MintTokens implements mint_token_ffi. A nil owner selects the payer.
func (b *Bridge) MintTokens(mint, owner *string, amount uint64, sigOut []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if mint == nil || sigOut == nil {
		return b.fail("mint", MintNullArgument, errors.New("null pointer argument"))
	}
	mintKey, err := parsePublicKey(*mint)
	if err != nil {
		return b.fail("mint", MintInvalidMint, fmt.Errorf("mint address: %w", err))
	}
	to := token.DefaultPayer()
	if owner != nil {
		ownerKey, err := parsePublicKey(*owner)
		if err != nil {
			return b.fail("mint", MintInvalidOwner, fmt.Errorf("token owner: %w", err))
		}
		to = token.To(ownerKey)
	}
	if len(sigOut) < SignatureCapacity {
		return b.fail("mint", MintSignatureBufferTooSmall, capacityError("signature", len(sigOut), SignatureCapacity))
	}

	engine, err := b.engineLocked()
	if err != nil {
		return b.engineFailed("mint", MintFailed, err)
	}

	sig, err := engine.MintTokens(context.Background(), mintKey, to, amount)
	if err != nil {
		b.lastErr = err
		b.logger.Printf("mint_token_ffi failed: %v", err)
		return MintFailed
	}

	s := sig.String()
	if !fits(s, sigOut) {
		return b.fail("mint", MintSignatureBufferTooSmall, capacityError("signature", len(sigOut), len(s)+1))
	}
	writeCString(sigOut, s)
	return StatusOK
}

// PayerAddress returns the base58 payer address, building the engine if needed.
func (b *Bridge) PayerAddress() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	engine, err := b.engineLocked()
	if err != nil {
		b.engineFailed("payer", 0, err)
		return "", err
	}
	return engine.Payer().String(), nil
}

// LastError returns the most recent failure, or nil. Successful calls do
// not clear it.
func (b *Bridge) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

func (b *Bridge) engineLocked() (Engine, error) {
	if !b.built {
		b.built = true
		engine, err := b.factory(context.Background())
		switch {
		case err != nil:
			b.engineErr = err
		case engine == nil:
			b.engineErr = &token.Error{Kind: token.KindConfig, Op: "build engine", Err: errors.New("factory returned no engine")}
		default:
			b.engine = engine
		}
		if b.engineErr != nil {
			b.logger.Printf("Engine initialization failed: %v", b.engineErr)
		}
	}
	return b.engine, b.engineErr
}

// engineFailed records a failure to build the engine under the error's
// own kind, config when it carries none, and returns code.
func (b *Bridge) engineFailed(op string, code int, err error) int {
	kind := token.KindOf(err)
	if kind == 0 {
		kind = token.KindConfig
	}
	b.lastErr = err
	observability.RecordOperationFailure(op, kind.String())
	return code
}

// fail records a boundary failure and returns code.
func (b *Bridge) fail(op string, code int, err error) int {
	b.lastErr = &token.Error{Kind: token.KindFFI, Op: op, Err: err}
	observability.RecordOperationFailure(op, token.KindFFI.String())
	return code
}

func parsePublicKey(s string) (solana.PublicKey, error) {
	if !utf8.ValidString(s) {
		return solana.PublicKey{}, errors.New("not valid UTF-8")
	}
	return solana.PublicKeyFromBase58(s)
}

func capacityError(what string, have, need int) error {
	return fmt.Errorf("%s buffer too small: need %d bytes, have %d", what, need, have)
}

// fits reports whether s and its NUL terminator fit in buf.
func fits(s string, buf []byte) bool {
	return len(s)+1 <= len(buf)
}

// writeCString copies s and a NUL terminator into buf. Callers check fits first.
func writeCString(buf []byte, s string) {
	n := copy(buf, s)
	buf[n] = 0
}
