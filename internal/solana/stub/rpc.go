package stub

import (
	"context"
	"errors"
	"sync"

	"sss-shared/internal/solana"
)

// ErrNotFound is returned when an account is not found.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
// Submitted transactions are recorded and reported as finalized.
type RPCClient struct {
	mu sync.Mutex

	Blockhash solana.Hash
	Accounts  map[string]*solana.AccountInfo
	Assets    map[string][]solana.Asset
	Sent      []*solana.SignedTransaction

	// Injected failures.
	BlockhashErr error
	SendErr      error
	StatusErr    error
	// TxErr marks every submitted transaction as failed on-chain.
	TxErr interface{}

	statuses map[solana.Signature]*solana.SignatureStatus
	slot     int64
}

// Compile-time interface check.
var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	var hash solana.Hash
	for i := range hash {
		hash[i] = byte(i + 1)
	}
	return &RPCClient{
		Blockhash: hash,
		Accounts:  make(map[string]*solana.AccountInfo),
		Assets:    make(map[string][]solana.Asset),
		statuses:  make(map[solana.Signature]*solana.SignatureStatus),
		slot:      1000,
	}
}

// GetLatestBlockhash returns the configured blockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (*solana.Blockhash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.BlockhashErr != nil {
		return nil, c.BlockhashErr
	}
	return &solana.Blockhash{Hash: c.Blockhash, LastValidBlockHeight: uint64(c.slot + 150)}, nil
}

// SendTransaction records the transaction and returns its signature.
func (c *RPCClient) SendTransaction(_ context.Context, tx *solana.SignedTransaction) (solana.Signature, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return solana.Signature{}, c.SendErr
	}
	c.Sent = append(c.Sent, tx)
	c.slot++
	c.statuses[tx.ID()] = &solana.SignatureStatus{
		Slot:               c.slot,
		Err:                c.TxErr,
		ConfirmationStatus: solana.CommitmentFinalized,
	}
	return tx.ID(), nil
}

// GetSignatureStatuses reports statuses of recorded transactions.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, sigs ...solana.Signature) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.StatusErr != nil {
		return nil, c.StatusErr
	}
	out := make([]*solana.SignatureStatus, len(sigs))
	for i, sig := range sigs {
		out[i] = c.statuses[sig]
	}
	return out, nil
}

// GetAccountInfo returns a stored account or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Accounts[pubkey], nil
}

// GetAssetsByOwner pages through stored assets. Pages start at 1.
func (c *RPCClient) GetAssetsByOwner(_ context.Context, owner string, page, limit int) (*solana.AssetPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	all := c.Assets[owner]
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = len(all)
	}
	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	items := make([]solana.Asset, end-start)
	copy(items, all[start:end])
	return &solana.AssetPage{Total: len(items), Limit: limit, Page: page, Items: items}, nil
}

// SentTransactions returns a copy of the recorded transactions.
func (c *RPCClient) SentTransactions() []*solana.SignedTransaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*solana.SignedTransaction, len(c.Sent))
	copy(out, c.Sent)
	return out
}
