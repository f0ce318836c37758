package token

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"sss-shared/internal/metaplex"
	"sss-shared/internal/solana"
)

// ErrMintNotFound is returned when the mint account does not exist.
var ErrMintNotFound = errors.New("mint account not found")

// Info is the on-chain state of a token: its SPL mint and, when present,
// its metadata account.
type Info struct {
	Mint            solana.PublicKey
	Decimals        uint8
	Supply          uint64 // base units
	MintAuthority   *solana.PublicKey
	FreezeAuthority *solana.PublicKey
	Metadata        *metaplex.Metadata // nil without a metadata account
}

// FetchToken reads the mint and metadata accounts of mint.
func (e *Engine) FetchToken(ctx context.Context, mint solana.PublicKey) (*Info, error) {
	mintInfo, err := e.rpc.GetAccountInfo(ctx, mint.String())
	if err != nil {
		e.recordFailure("info", KindRPC)
		return nil, newError(KindRPC, "get mint account", err)
	}
	if mintInfo == nil {
		return nil, newError(KindToken, mint.String(), ErrMintNotFound)
	}
	if mintInfo.Owner != solana.TokenProgramID.String() {
		return nil, newError(KindToken, mint.String(), fmt.Errorf("%w: owned by %s", solana.ErrNotMint, mintInfo.Owner))
	}
	data, err := base64.StdEncoding.DecodeString(mintInfo.Data)
	if err != nil {
		return nil, newError(KindRPC, "decode mint account", err)
	}
	acct, err := solana.DecodeMintAccount(data)
	if err != nil {
		return nil, newError(KindToken, mint.String(), err)
	}

	info := &Info{
		Mint:            mint,
		Decimals:        acct.Decimals,
		Supply:          acct.Supply,
		MintAuthority:   acct.MintAuthority,
		FreezeAuthority: acct.FreezeAuthority,
	}

	metadataAddr, err := metaplex.FindMetadataAddress(mint)
	if err != nil {
		return nil, newError(KindToken, "derive metadata account", err)
	}
	metaInfo, err := e.rpc.GetAccountInfo(ctx, metadataAddr.String())
	if err != nil {
		e.recordFailure("info", KindRPC)
		return nil, newError(KindRPC, "get metadata account", err)
	}
	if metaInfo == nil {
		return info, nil
	}
	raw, err := base64.StdEncoding.DecodeString(metaInfo.Data)
	if err != nil {
		return nil, newError(KindRPC, "decode metadata account", err)
	}
	md, err := metaplex.DecodeMetadata(raw)
	if err != nil {
		return nil, newError(KindToken, metadataAddr.String(), err)
	}
	info.Metadata = md
	return info, nil
}
