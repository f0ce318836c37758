package token

import (
	"errors"
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger(w io.Writer) *log.Logger {
	return log.New(w, "", 0)
}

func TestError_Message(t *testing.T) {
	err := newError(KindRPC, "send transaction", errors.New("connection refused"))
	assert.Equal(t, "RPC error: send transaction: connection refused", err.Error())

	assert.Equal(t, "Configuration error", ErrConfig.Error())
	assert.Equal(t, "Token error: bad", (&Error{Kind: KindToken, Err: errors.New("bad")}).Error())
}

func TestError_IsByKind(t *testing.T) {
	cause := errors.New("cause")
	err := fmt.Errorf("wrapped: %w", newError(KindKeypair, "load payer", cause))

	assert.ErrorIs(t, err, ErrKeypair)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrRPC)
	assert.Equal(t, KindKeypair, KindOf(err))
	assert.Equal(t, Kind(0), KindOf(cause))
}

func TestKind_String(t *testing.T) {
	for kind, want := range map[Kind]string{
		KindConfig:  "config",
		KindKeypair: "keypair",
		KindRPC:     "rpc",
		KindToken:   "token",
		KindFFI:     "ffi",
		Kind(99):    "unknown",
	} {
		assert.Equal(t, want, kind.String())
	}
}
