package solana

import (
	"bytes"
	"encoding/base64"
	"fmt"
)

// SignedTransaction is a legacy transaction with all required signatures.
type SignedTransaction struct {
	Signatures []Signature
	Message    *Message
}

// NewSignedTransaction compiles instructions and signs the message with
// every required signer. The fee payer must be among signers.
func NewSignedTransaction(feePayer PublicKey, instructions []Instruction, blockhash Hash, signers ...Keypair) (*SignedTransaction, error) {
	msg, err := NewMessage(feePayer, instructions, blockhash)
	if err != nil {
		return nil, fmt.Errorf("compile message: %w", err)
	}

	byKey := make(map[PublicKey]Keypair, len(signers))
	for _, s := range signers {
		if !s.Valid() {
			return nil, fmt.Errorf("signer has no key material")
		}
		byKey[s.PublicKey()] = s
	}

	payload := msg.Serialize()
	required := msg.Signers()
	sigs := make([]Signature, len(required))
	for i, pk := range required {
		kp, ok := byKey[pk]
		if !ok {
			return nil, fmt.Errorf("missing signer %s", pk)
		}
		sigs[i] = kp.Sign(payload)
	}

	return &SignedTransaction{Signatures: sigs, Message: msg}, nil
}

// ID returns the fee payer signature, which identifies the transaction.
func (tx *SignedTransaction) ID() Signature {
	if len(tx.Signatures) == 0 {
		return Signature{}
	}
	return tx.Signatures[0]
}

// Serialize encodes the transaction in the wire format.
func (tx *SignedTransaction) Serialize() []byte {
	var buf bytes.Buffer
	writeCompactU16(&buf, len(tx.Signatures))
	for _, sig := range tx.Signatures {
		buf.Write(sig[:])
	}
	buf.Write(tx.Message.Serialize())
	return buf.Bytes()
}

// Base64 returns the serialized transaction as base64, the encoding
// accepted by sendTransaction.
func (tx *SignedTransaction) Base64() string {
	return base64.StdEncoding.EncodeToString(tx.Serialize())
}
