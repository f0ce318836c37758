package metaplex

import (
	"fmt"

	"github.com/near/borsh-go"

	"sss-shared/internal/solana"
)

const (
	createDiscriminator uint8 = 42
	createV1Variant     uint8 = 0
)

// Creator is a verified or unverified creator share.
type Creator struct {
	Address  solana.PublicKey
	Verified bool
	Share    uint8
}

// Collection links an asset to a collection mint.
type Collection struct {
	Verified bool
	Key      solana.PublicKey
}

// Uses limits how often an asset can be used.
type Uses struct {
	UseMethod borsh.Enum
	Remaining uint64
	Total     uint64
}

// CollectionDetails is the V1 variant of the program's CollectionDetails.
type CollectionDetails struct {
	Variant borsh.Enum
	Size    uint64
}

// AssetData is the metadata stored by CreateV1. Field order is the wire order.
type AssetData struct {
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             *[]Creator
	PrimarySaleHappened  bool
	IsMutable            bool
	TokenStandard        TokenStandard
	Collection           *Collection
	Uses                 *Uses
	CollectionDetails    *CollectionDetails
	RuleSet              *solana.PublicKey
}

type createV1Data struct {
	Discriminator uint8
	Variant       uint8
	Asset         AssetData
	Decimals      *uint8
	// Option<PrintSupply>; fungible assets carry none.
	PrintSupply uint8
}

// CreateV1Accounts lists the accounts of a CreateV1 instruction.
type CreateV1Accounts struct {
	Metadata        solana.PublicKey
	MasterEdition   *solana.PublicKey
	Mint            solana.PublicKey
	MintIsSigner    bool
	Authority       solana.PublicKey
	Payer           solana.PublicKey
	UpdateAuthority solana.PublicKey
	// UpdateAuthorityIsSigner marks the update authority as a signer.
	UpdateAuthorityIsSigner bool
}

// NewCreateV1Instruction builds a CreateV1 instruction. Decimals is only
// meaningful for fungible standards; nil leaves it unset.
func NewCreateV1Instruction(accounts CreateV1Accounts, asset AssetData, decimals *uint8) (solana.Instruction, error) {
	if err := ValidateFields(asset.Name, asset.Symbol, asset.URI); err != nil {
		return solana.Instruction{}, err
	}

	data, err := borsh.Serialize(createV1Data{
		Discriminator: createDiscriminator,
		Variant:       createV1Variant,
		Asset:         asset,
		Decimals:      decimals,
	})
	if err != nil {
		return solana.Instruction{}, fmt.Errorf("encode create args: %w", err)
	}

	metas := []solana.AccountMeta{
		solana.Writable(accounts.Metadata, false),
	}
	if accounts.MasterEdition != nil {
		metas = append(metas, solana.Writable(*accounts.MasterEdition, false))
	} else {
		metas = append(metas, solana.Readonly(ProgramID, false))
	}
	metas = append(metas,
		solana.Writable(accounts.Mint, accounts.MintIsSigner),
		solana.Readonly(accounts.Authority, true),
		solana.Writable(accounts.Payer, true),
		solana.Readonly(accounts.UpdateAuthority, accounts.UpdateAuthorityIsSigner),
		solana.Readonly(solana.SystemProgramID, false),
		solana.Readonly(solana.SysvarInstructionsID, false),
		solana.Readonly(solana.TokenProgramID, false),
	)

	return solana.Instruction{
		ProgramID: ProgramID,
		Accounts:  metas,
		Data:      data,
	}, nil
}

// FungibleAsset returns asset data for a mutable fungible token without
// creators or royalties.
func FungibleAsset(name, symbol, uri string) AssetData {
	return AssetData{
		Name:          name,
		Symbol:        symbol,
		URI:           uri,
		IsMutable:     true,
		TokenStandard: TokenStandardFungible,
	}
}
