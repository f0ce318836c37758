// Package payer loads the fee payer keypair from one of several sources.
package payer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sss-shared/internal/solana"
)

var (
	// ErrNoSource is returned when no payer source is configured.
	ErrNoSource = errors.New("no payer source configured")
	// ErrInvalidMnemonic is returned for phrases that fail BIP39 validation.
	ErrInvalidMnemonic = errors.New("invalid mnemonic phrase")
)

// Source selects where the payer keypair comes from. The first non-empty
// field wins, in declaration order.
type Source struct {
	Mnemonic           string
	KeypairPath        string
	KeystorePath       string
	KeystorePassphrase string
	SecretName         string
}

// Empty reports whether no source is set.
func (s Source) Empty() bool {
	return strings.TrimSpace(s.Mnemonic) == "" && s.KeypairPath == "" &&
		s.KeystorePath == "" && s.SecretName == ""
}

// Load resolves the payer keypair from src.
func Load(ctx context.Context, src Source) (solana.Keypair, error) {
	switch {
	case strings.TrimSpace(src.Mnemonic) != "":
		return FromMnemonic(src.Mnemonic)
	case src.KeypairPath != "":
		return FromFile(src.KeypairPath)
	case src.KeystorePath != "":
		if src.KeystorePassphrase == "" {
			return solana.Keypair{}, fmt.Errorf("keystore %s: passphrase is required", src.KeystorePath)
		}
		return FromKeystore(src.KeystorePath, src.KeystorePassphrase)
	case src.SecretName != "":
		return FromSecretManager(ctx, src.SecretName)
	default:
		return solana.Keypair{}, ErrNoSource
	}
}

// parseSecret accepts either keypair JSON or a mnemonic phrase.
func parseSecret(data []byte) (solana.Keypair, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		return ParseKeypairJSON([]byte(trimmed))
	}
	return FromMnemonic(trimmed)
}
