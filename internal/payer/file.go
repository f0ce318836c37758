package payer

import (
	"encoding/json"
	"fmt"
	"os"

	"sss-shared/internal/solana"
)

// FromFile reads a solana-keygen keypair file.
func FromFile(path string) (solana.Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return solana.Keypair{}, fmt.Errorf("read keypair file: %w", err)
	}
	kp, err := ParseKeypairJSON(data)
	if err != nil {
		return solana.Keypair{}, fmt.Errorf("keypair file %s: %w", path, err)
	}
	return kp, nil
}

// ParseKeypairJSON decodes the solana-keygen format: a JSON array of 64
// integers, secret seed followed by public key.
func ParseKeypairJSON(data []byte) (solana.Keypair, error) {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return solana.Keypair{}, fmt.Errorf("unmarshal keypair json: %w", err)
	}
	b := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return solana.Keypair{}, fmt.Errorf("keypair byte %d out of range: %d", i, v)
		}
		b[i] = byte(v)
	}
	return solana.KeypairFromBytes(b)
}

// MarshalKeypairJSON encodes kp in the solana-keygen format.
func MarshalKeypairJSON(kp solana.Keypair) ([]byte, error) {
	raw := kp.Bytes()
	ints := make([]int, len(raw))
	for i, v := range raw {
		ints[i] = int(v)
	}
	return json.Marshal(ints)
}
