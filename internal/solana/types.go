package solana

// Commitment is a ledger confirmation level.
type Commitment string

// Commitment levels, weakest first.
const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// Satisfies reports whether c is at least as strong as want.
func (c Commitment) Satisfies(want Commitment) bool {
	return commitmentRank(c) >= commitmentRank(want)
}

func commitmentRank(c Commitment) int {
	switch c {
	case CommitmentProcessed:
		return 1
	case CommitmentConfirmed:
		return 2
	case CommitmentFinalized:
		return 3
	default:
		return 0
	}
}

// Blockhash from getLatestBlockhash.
type Blockhash struct {
	Hash                 Hash
	LastValidBlockHeight uint64
}

// SignatureStatus from getSignatureStatuses.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *uint64 // nil once rooted
	Err                interface{}
	ConfirmationStatus Commitment
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// Asset is a digital asset returned by the DAS API.
type Asset struct {
	ID        string
	Interface string
	JSONURI   string
	Name      string
	Symbol    string
	Owner     string
}

// AssetPage is one page of getAssetsByOwner results.
type AssetPage struct {
	Total int
	Limit int
	Page  int
	Items []Asset
}
