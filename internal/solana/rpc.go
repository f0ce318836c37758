package solana

import "context"

// RPCClient defines the Solana JSON-RPC calls used for token issuance.
type RPCClient interface {
	// GetLatestBlockhash returns a recent blockhash for signing.
	GetLatestBlockhash(ctx context.Context) (*Blockhash, error)

	// SendTransaction submits a signed transaction exactly once.
	SendTransaction(ctx context.Context, tx *SignedTransaction) (Signature, error)

	// GetSignatureStatuses returns one status per signature; nil entries are unknown.
	GetSignatureStatuses(ctx context.Context, sigs ...Signature) ([]*SignatureStatus, error)

	// GetAccountInfo retrieves an account. Returns nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetAssetsByOwner retrieves one page of digital assets (DAS API).
	GetAssetsByOwner(ctx context.Context, owner string, page, limit int) (*AssetPage, error)
}
