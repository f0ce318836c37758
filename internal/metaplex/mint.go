package metaplex

import (
	"fmt"

	"github.com/near/borsh-go"

	"sss-shared/internal/solana"
)

const (
	mintDiscriminator uint8 = 43
	mintV1Variant     uint8 = 0
)

type mintV1Data struct {
	Discriminator uint8
	Variant       uint8
	Amount        uint64
	// Option<AuthorizationData>; only programmable assets use it.
	AuthorizationData uint8
}

// MintV1Accounts lists the accounts of a MintV1 instruction. Nil optional
// accounts are passed as the program ID.
type MintV1Accounts struct {
	Token                     solana.PublicKey
	TokenOwner                *solana.PublicKey
	Metadata                  solana.PublicKey
	MasterEdition             *solana.PublicKey
	TokenRecord               *solana.PublicKey
	Mint                      solana.PublicKey
	Authority                 solana.PublicKey
	DelegateRecord            *solana.PublicKey
	Payer                     solana.PublicKey
	AuthorizationRulesProgram *solana.PublicKey
	AuthorizationRules        *solana.PublicKey
}

// NewMintV1Instruction builds a MintV1 instruction minting amount base units
// into the token account, creating it if needed.
func NewMintV1Instruction(accounts MintV1Accounts, amount uint64) (solana.Instruction, error) {
	data, err := borsh.Serialize(mintV1Data{
		Discriminator: mintDiscriminator,
		Variant:       mintV1Variant,
		Amount:        amount,
	})
	if err != nil {
		return solana.Instruction{}, fmt.Errorf("encode mint args: %w", err)
	}

	metas := []solana.AccountMeta{
		solana.Writable(accounts.Token, false),
		solana.Readonly(optional(accounts.TokenOwner), false),
		solana.Readonly(accounts.Metadata, false),
		solana.Readonly(optional(accounts.MasterEdition), false),
		optionalWritable(accounts.TokenRecord),
		solana.Writable(accounts.Mint, false),
		solana.Readonly(accounts.Authority, true),
		solana.Readonly(optional(accounts.DelegateRecord), false),
		solana.Writable(accounts.Payer, true),
		solana.Readonly(solana.SystemProgramID, false),
		solana.Readonly(solana.SysvarInstructionsID, false),
		solana.Readonly(solana.TokenProgramID, false),
		solana.Readonly(solana.AssociatedTokenProgramID, false),
		solana.Readonly(optional(accounts.AuthorizationRulesProgram), false),
		solana.Readonly(optional(accounts.AuthorizationRules), false),
	}

	return solana.Instruction{
		ProgramID: ProgramID,
		Accounts:  metas,
		Data:      data,
	}, nil
}

func optionalWritable(pk *solana.PublicKey) solana.AccountMeta {
	if pk == nil {
		return solana.Readonly(ProgramID, false)
	}
	return solana.Writable(*pk, false)
}
