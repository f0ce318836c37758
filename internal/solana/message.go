package solana

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// maxAccountKeys bounds a legacy message (account indices are one byte).
const maxAccountKeys = 256

// Hash is a 32-byte blockhash.
type Hash [32]byte

// HashFromBase58 parses a base58 blockhash.
func HashFromBase58(s string) (Hash, error) {
	var h Hash
	decoded, err := base58.Decode(s)
	if err != nil {
		return h, fmt.Errorf("decode blockhash: %w", err)
	}
	if len(decoded) != len(h) {
		return h, fmt.Errorf("decode blockhash: length %d", len(decoded))
	}
	copy(h[:], decoded)
	return h, nil
}

// String returns the base58 form.
func (h Hash) String() string {
	return base58.Encode(h[:])
}

// AccountMeta describes one account referenced by an instruction.
type AccountMeta struct {
	PublicKey  PublicKey
	IsSigner   bool
	IsWritable bool
}

// Writable returns a writable, optionally signing, account meta.
func Writable(pk PublicKey, signer bool) AccountMeta {
	return AccountMeta{PublicKey: pk, IsSigner: signer, IsWritable: true}
}

// Readonly returns a read-only, optionally signing, account meta.
func Readonly(pk PublicKey, signer bool) AccountMeta {
	return AccountMeta{PublicKey: pk, IsSigner: signer}
}

// Instruction is a program invocation before compilation.
type Instruction struct {
	ProgramID PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// MessageHeader counts signer and read-only accounts.
type MessageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

// CompiledInstruction references accounts by index into the message keys.
type CompiledInstruction struct {
	ProgramIDIndex uint8
	Accounts       []uint8
	Data           []byte
}

// Message is a legacy transaction message.
type Message struct {
	Header          MessageHeader
	AccountKeys     []PublicKey
	RecentBlockhash Hash
	Instructions    []CompiledInstruction
}

// NewMessage compiles instructions into a legacy message paid by feePayer.
// Accounts are ordered writable signers, read-only signers, writable
// non-signers, read-only non-signers; the fee payer is always first and
// order of first appearance is kept inside each group.
func NewMessage(feePayer PublicKey, instructions []Instruction, blockhash Hash) (*Message, error) {
	if len(instructions) == 0 {
		return nil, errors.New("message has no instructions")
	}

	var order []PublicKey
	metas := map[PublicKey]*AccountMeta{}
	add := func(m AccountMeta) {
		if existing, ok := metas[m.PublicKey]; ok {
			existing.IsSigner = existing.IsSigner || m.IsSigner
			existing.IsWritable = existing.IsWritable || m.IsWritable
			return
		}
		cp := m
		metas[m.PublicKey] = &cp
		order = append(order, m.PublicKey)
	}

	add(Writable(feePayer, true))
	for _, ix := range instructions {
		for _, acc := range ix.Accounts {
			add(acc)
		}
		add(Readonly(ix.ProgramID, false))
	}

	var writableSigners, readonlySigners, writable, readonly []PublicKey
	for _, pk := range order {
		m := metas[pk]
		switch {
		case m.IsSigner && m.IsWritable:
			writableSigners = append(writableSigners, pk)
		case m.IsSigner:
			readonlySigners = append(readonlySigners, pk)
		case m.IsWritable:
			writable = append(writable, pk)
		default:
			readonly = append(readonly, pk)
		}
	}

	keys := make([]PublicKey, 0, len(order))
	keys = append(keys, writableSigners...)
	keys = append(keys, readonlySigners...)
	keys = append(keys, writable...)
	keys = append(keys, readonly...)
	if len(keys) > maxAccountKeys {
		return nil, fmt.Errorf("message references %d accounts, max %d", len(keys), maxAccountKeys)
	}

	index := make(map[PublicKey]uint8, len(keys))
	for i, pk := range keys {
		index[pk] = uint8(i)
	}

	compiled := make([]CompiledInstruction, len(instructions))
	for i, ix := range instructions {
		accounts := make([]uint8, len(ix.Accounts))
		for j, acc := range ix.Accounts {
			accounts[j] = index[acc.PublicKey]
		}
		compiled[i] = CompiledInstruction{
			ProgramIDIndex: index[ix.ProgramID],
			Accounts:       accounts,
			Data:           ix.Data,
		}
	}

	return &Message{
		Header: MessageHeader{
			NumRequiredSignatures:       uint8(len(writableSigners) + len(readonlySigners)),
			NumReadonlySignedAccounts:   uint8(len(readonlySigners)),
			NumReadonlyUnsignedAccounts: uint8(len(readonly)),
		},
		AccountKeys:     keys,
		RecentBlockhash: blockhash,
		Instructions:    compiled,
	}, nil
}

// Signers returns the account keys that must sign the message, in order.
func (m *Message) Signers() []PublicKey {
	return m.AccountKeys[:m.Header.NumRequiredSignatures]
}

// Serialize encodes the message in the legacy wire format.
func (m *Message) Serialize() []byte {
	var buf bytes.Buffer
	buf.WriteByte(m.Header.NumRequiredSignatures)
	buf.WriteByte(m.Header.NumReadonlySignedAccounts)
	buf.WriteByte(m.Header.NumReadonlyUnsignedAccounts)

	writeCompactU16(&buf, len(m.AccountKeys))
	for _, pk := range m.AccountKeys {
		buf.Write(pk[:])
	}
	buf.Write(m.RecentBlockhash[:])

	writeCompactU16(&buf, len(m.Instructions))
	for _, ix := range m.Instructions {
		buf.WriteByte(ix.ProgramIDIndex)
		writeCompactU16(&buf, len(ix.Accounts))
		buf.Write(ix.Accounts)
		writeCompactU16(&buf, len(ix.Data))
		buf.Write(ix.Data)
	}
	return buf.Bytes()
}

// writeCompactU16 writes n in Solana's shortvec encoding: seven bits per
// byte, least significant first, high bit set on all but the last byte.
func writeCompactU16(buf *bytes.Buffer, n int) {
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			buf.WriteByte(b)
			return
		}
		buf.WriteByte(b | 0x80)
	}
}
