package token

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures.
type Kind int

const (
	// KindConfig: missing or malformed configuration.
	KindConfig Kind = iota + 1
	// KindKeypair: payer or signer key material.
	KindKeypair
	// KindRPC: node communication, submission or confirmation.
	KindRPC
	// KindToken: token parameters or on-chain program failure.
	KindToken
	// KindFFI: the C boundary.
	KindFFI
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindKeypair:
		return "keypair"
	case KindRPC:
		return "rpc"
	case KindToken:
		return "token"
	case KindFFI:
		return "ffi"
	default:
		return "unknown"
	}
}

func (k Kind) label() string {
	switch k {
	case KindConfig:
		return "Configuration error"
	case KindKeypair:
		return "Keypair error"
	case KindRPC:
		return "RPC error"
	case KindToken:
		return "Token error"
	case KindFFI:
		return "FFI error"
	default:
		return "Error"
	}
}

// Error is an engine failure with its kind and the failing step.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Sentinels for errors.Is matching by kind.
var (
	ErrConfig  = &Error{Kind: KindConfig}
	ErrKeypair = &Error{Kind: KindKeypair}
	ErrRPC     = &Error{Kind: KindRPC}
	ErrToken   = &Error{Kind: KindToken}
	ErrFFI     = &Error{Kind: KindFFI}
)

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind.label(), e.Op, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind.label(), e.Op)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind.label(), e.Err)
	default:
		return e.Kind.label()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind when target is a bare sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or zero.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
