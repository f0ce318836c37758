package domain

// IssuanceKind distinguishes token creation from supply minting.
type IssuanceKind string

const (
	IssuanceCreate IssuanceKind = "create"
	IssuanceMint   IssuanceKind = "mint"
)

// Valid reports whether k is a known kind.
func (k IssuanceKind) Valid() bool {
	return k == IssuanceCreate || k == IssuanceMint
}

// Issuance is one confirmed on-chain create or mint operation.
// Records are append-only.
type Issuance struct {
	ID        string       // idhash.ComputeIssuanceID(kind, signature)
	Kind      IssuanceKind // create | mint
	Signature string       // base58 transaction signature
	Mint      string       // base58 mint address
	Owner     string       // token owner; payer for create
	Name      string       // create only
	URI       string       // create only
	Decimals  uint8        // create only
	Amount    uint64       // mint only, base units
	Cluster   string       // devnet, mainnet-beta, ...
	CreatedAt int64        // unix ms
}
