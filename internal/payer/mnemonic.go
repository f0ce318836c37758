package payer

import (
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"

	"sss-shared/internal/solana"
)

// FromMnemonic derives the keypair from a BIP39 English phrase with an empty
// passphrase. The ed25519 seed is the first 32 bytes of the BIP39 seed,
// without a derivation path.
func FromMnemonic(phrase string) (solana.Keypair, error) {
	phrase = strings.Join(strings.Fields(phrase), " ")
	if !bip39.IsMnemonicValid(phrase) {
		return solana.Keypair{}, ErrInvalidMnemonic
	}
	kp, err := solana.KeypairFromSeed(bip39.NewSeed(phrase, ""))
	if err != nil {
		return solana.Keypair{}, fmt.Errorf("derive keypair from seed: %w", err)
	}
	return kp, nil
}

// NewMnemonic returns a fresh 24-word phrase.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}
