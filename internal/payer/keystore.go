package payer

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"sss-shared/internal/solana"
)

const (
	keystoreVersion = 1
	keystorePrefix  = "SSSKEY1\n"
	saltSize        = 16

	kdfTime     = 2
	kdfMemoryKB = 64 * 1024
	kdfThreads  = 1
)

var (
	// ErrKeystoreAuth is returned for a wrong passphrase or tampered file.
	ErrKeystoreAuth = errors.New("keystore authentication failed")
	// ErrKeystoreInvalid is returned for malformed keystore files.
	ErrKeystoreInvalid = errors.New("keystore is invalid")
)

// keystore is the on-disk envelope. The plaintext is the 64-byte keypair.
type keystore struct {
	Version     uint32 `json:"version"`
	Pubkey      string `json:"pubkey"`
	KDF         string `json:"kdf"`
	KDFTime     uint32 `json:"kdf_time"`
	KDFMemoryKB uint32 `json:"kdf_memory_kb"`
	KDFThreads  uint8  `json:"kdf_threads"`
	Salt        []byte `json:"salt"`
	Nonce       []byte `json:"nonce"`
	Ciphertext  []byte `json:"ciphertext"`
}

// EncryptKeypair seals kp with an argon2id-derived XChaCha20-Poly1305 key.
func EncryptKeypair(passphrase string, kp solana.Keypair) ([]byte, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase is required")
	}
	if !kp.Valid() {
		return nil, errors.New("keypair has no key material")
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key := argon2.IDKey([]byte(passphrase), salt, kdfTime, kdfMemoryKB, kdfThreads, chacha20poly1305.KeySize)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	plaintext := kp.Bytes()
	defer zero(plaintext)

	pubkey := kp.PublicKey().String()
	raw, err := json.Marshal(keystore{
		Version:     keystoreVersion,
		Pubkey:      pubkey,
		KDF:         "argon2id",
		KDFTime:     kdfTime,
		KDFMemoryKB: kdfMemoryKB,
		KDFThreads:  kdfThreads,
		Salt:        salt,
		Nonce:       nonce,
		// the public key is bound as associated data
		Ciphertext: aead.Seal(nil, nonce, plaintext, []byte(pubkey)),
	})
	if err != nil {
		return nil, err
	}
	return append([]byte(keystorePrefix), raw...), nil
}

// DecryptKeypair opens a keystore produced by EncryptKeypair.
func DecryptKeypair(passphrase string, data []byte) (solana.Keypair, error) {
	if !strings.HasPrefix(string(data), keystorePrefix) {
		return solana.Keypair{}, ErrKeystoreInvalid
	}
	var ks keystore
	if err := json.Unmarshal(data[len(keystorePrefix):], &ks); err != nil {
		return solana.Keypair{}, ErrKeystoreInvalid
	}
	if ks.Version != keystoreVersion || ks.KDF != "argon2id" || ks.KDFThreads == 0 {
		return solana.Keypair{}, ErrKeystoreInvalid
	}

	key := argon2.IDKey([]byte(passphrase), ks.Salt, ks.KDFTime, ks.KDFMemoryKB, ks.KDFThreads, chacha20poly1305.KeySize)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return solana.Keypair{}, err
	}
	if len(ks.Nonce) != aead.NonceSize() {
		return solana.Keypair{}, ErrKeystoreInvalid
	}
	plaintext, err := aead.Open(nil, ks.Nonce, ks.Ciphertext, []byte(ks.Pubkey))
	if err != nil {
		return solana.Keypair{}, ErrKeystoreAuth
	}
	defer zero(plaintext)

	return solana.KeypairFromBytes(plaintext)
}

// FromKeystore reads and decrypts a keystore file.
func FromKeystore(path, passphrase string) (solana.Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return solana.Keypair{}, fmt.Errorf("read keystore: %w", err)
	}
	kp, err := DecryptKeypair(passphrase, data)
	if err != nil {
		return solana.Keypair{}, fmt.Errorf("keystore %s: %w", path, err)
	}
	return kp, nil
}

// WriteKeystore encrypts kp into a new file readable only by the owner.
func WriteKeystore(path, passphrase string, kp solana.Keypair) error {
	data, err := EncryptKeypair(passphrase, kp)
	if err != nil {
		return fmt.Errorf("encrypt keystore: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write keystore: %w", err)
	}
	return nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
