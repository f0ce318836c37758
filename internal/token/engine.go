// Package token issues fungible tokens with Metaplex Token Metadata.
package token

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"sss-shared/internal/domain"
	"sss-shared/internal/idhash"
	"sss-shared/internal/metaplex"
	"sss-shared/internal/observability"
	"sss-shared/internal/solana"
	"sss-shared/internal/storage"
)

// DefaultConfirmTimeout roughly matches the lifetime of a blockhash.
const DefaultConfirmTimeout = 90 * time.Second

// assetPageLimit is the DAS maximum page size.
const assetPageLimit = 1000

// CreateParams describes a new fungible token.
type CreateParams struct {
	URI      string
	Name     string
	Symbol   string
	Decimals uint8
}

// CreateResult identifies a created token.
type CreateResult struct {
	Signature solana.Signature
	Mint      solana.PublicKey
}

// Asset is a digital asset owned by an address.
type Asset = solana.Asset

// Options configures Engine.
type Options struct {
	// RPC is required.
	RPC solana.RPCClient
	// Payer pays fees and is mint, update and metadata authority. Required.
	Payer solana.Keypair

	// Confirmer defaults to polling getSignatureStatuses.
	Confirmer solana.Confirmer
	// Commitment defaults to confirmed.
	Commitment solana.Commitment
	// ConfirmTimeout bounds the default confirmer.
	ConfirmTimeout time.Duration

	// Journal records confirmed operations. Optional.
	Journal storage.IssuanceStore
	// Cluster labels journal records.
	Cluster string

	Logger *log.Logger

	// NewMintKeypair and Now are replaceable for tests.
	NewMintKeypair func() (solana.Keypair, error)
	Now            func() time.Time
}

// Engine creates tokens and mints supply. It is not safe for concurrent use.
type Engine struct {
	rpc        solana.RPCClient
	confirmer  solana.Confirmer
	payer      solana.Keypair
	commitment solana.Commitment
	journal    storage.IssuanceStore
	cluster    string
	logger     *log.Logger
	newMint    func() (solana.Keypair, error)
	now        func() time.Time
}

// NewEngine validates opts and creates an Engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.RPC == nil {
		return nil, newError(KindConfig, "create engine", errors.New("rpc client is required"))
	}
	if !opts.Payer.Valid() {
		return nil, newError(KindKeypair, "create engine", errors.New("payer keypair is required"))
	}

	e := &Engine{
		rpc:        opts.RPC,
		confirmer:  opts.Confirmer,
		payer:      opts.Payer,
		commitment: opts.Commitment,
		journal:    opts.Journal,
		cluster:    opts.Cluster,
		logger:     opts.Logger,
		newMint:    opts.NewMintKeypair,
		now:        opts.Now,
	}
	if e.commitment == "" {
		e.commitment = solana.CommitmentConfirmed
	}
	if e.confirmer == nil {
		timeout := opts.ConfirmTimeout
		if timeout <= 0 {
			timeout = DefaultConfirmTimeout
		}
		e.confirmer = solana.NewPollingConfirmer(opts.RPC, solana.DefaultPollInterval, timeout)
	}
	if e.logger == nil {
		e.logger = log.New(io.Discard, "", 0)
	}
	if e.newMint == nil {
		e.newMint = solana.NewKeypair
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// Close releases the journal connection and the confirmer's node
// connection when either holds one. The engine is unusable afterwards.
func (e *Engine) Close() error {
	var errs []error
	if c, ok := e.journal.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if c, ok := e.confirmer.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Payer returns the payer address.
func (e *Engine) Payer() solana.PublicKey {
	return e.payer.PublicKey()
}

// CreateToken creates a fungible token under a freshly generated mint.
func (e *Engine) CreateToken(ctx context.Context, p CreateParams) (CreateResult, error) {
	mint, err := e.newMint()
	if err != nil {
		e.recordFailure("create", KindKeypair)
		return CreateResult{}, newError(KindKeypair, "generate mint keypair", err)
	}

	sig, err := e.CreateTokenWithMint(ctx, mint, p)
	if err != nil {
		return CreateResult{}, err
	}
	return CreateResult{Signature: sig, Mint: mint.PublicKey()}, nil
}

// CreateTokenWithMint creates a fungible token under the given mint keypair,
// which must not exist on chain yet.
func (e *Engine) CreateTokenWithMint(ctx context.Context, mint solana.Keypair, p CreateParams) (solana.Signature, error) {
	if err := metaplex.ValidateFields(p.Name, p.Symbol, p.URI); err != nil {
		e.recordFailure("create", KindToken)
		return solana.Signature{}, newError(KindToken, "validate token fields", err)
	}

	start := e.now()

	bh, err := e.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		e.recordFailure("create", KindRPC)
		return solana.Signature{}, newError(KindRPC, "get latest blockhash", err)
	}

	tx, err := e.buildCreateTransaction(mint, p, bh.Hash)
	if err != nil {
		e.recordFailure("create", KindOf(err))
		return solana.Signature{}, err
	}

	sig, err := e.submit(ctx, "create", tx)
	if err != nil {
		return solana.Signature{}, err
	}

	done := e.now()
	observability.RecordTokenCreated(done.Sub(start).Seconds(), done.Unix())
	e.logger.Printf("Created token %s (%s) signature %s", mint.PublicKey(), p.Name, sig)

	e.writeJournal(ctx, &domain.Issuance{
		Kind:      domain.IssuanceCreate,
		Signature: sig.String(),
		Mint:      mint.PublicKey().String(),
		Owner:     e.Payer().String(),
		Name:      p.Name,
		URI:       p.URI,
		Decimals:  p.Decimals,
	})
	return sig, nil
}

// MintTokens mints amount base units of mint into the recipient's associated
// token account, creating the account if needed. The payer is the authority.
func (e *Engine) MintTokens(ctx context.Context, mint solana.PublicKey, to Recipient, amount uint64) (solana.Signature, error) {
	start := e.now()

	bh, err := e.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		e.recordFailure("mint", KindRPC)
		return solana.Signature{}, newError(KindRPC, "get latest blockhash", err)
	}

	tx, err := e.buildMintTransaction(mint, to, amount, bh.Hash)
	if err != nil {
		e.recordFailure("mint", KindOf(err))
		return solana.Signature{}, err
	}

	sig, err := e.submit(ctx, "mint", tx)
	if err != nil {
		return solana.Signature{}, err
	}

	done := e.now()
	owner := to.resolve(e.Payer())
	observability.RecordTokensMinted(amount, done.Sub(start).Seconds(), done.Unix())
	e.logger.Printf("Minted %d of %s to %s signature %s", amount, mint, owner, sig)

	e.writeJournal(ctx, &domain.Issuance{
		Kind:      domain.IssuanceMint,
		Signature: sig.String(),
		Mint:      mint.String(),
		Owner:     owner.String(),
		Amount:    amount,
	})
	return sig, nil
}

// FetchAssetsByOwner returns every digital asset owned by owner, reading
// all DAS pages. The RPC endpoint must support the DAS API.
func (e *Engine) FetchAssetsByOwner(ctx context.Context, owner solana.PublicKey) ([]Asset, error) {
	var assets []Asset
	for page := 1; ; page++ {
		res, err := e.rpc.GetAssetsByOwner(ctx, owner.String(), page, assetPageLimit)
		if err != nil {
			e.recordFailure("assets", KindRPC)
			return nil, newError(KindRPC, "get assets by owner", err)
		}
		assets = append(assets, res.Items...)
		if len(res.Items) < assetPageLimit {
			return assets, nil
		}
	}
}

func (e *Engine) buildCreateTransaction(mint solana.Keypair, p CreateParams, blockhash solana.Hash) (*solana.SignedTransaction, error) {
	if !mint.Valid() {
		return nil, newError(KindKeypair, "mint keypair", errors.New("no key material"))
	}

	metadata, err := metaplex.FindMetadataAddress(mint.PublicKey())
	if err != nil {
		return nil, newError(KindToken, "derive metadata account", err)
	}

	payer := e.Payer()
	decimals := p.Decimals
	ix, err := metaplex.NewCreateV1Instruction(metaplex.CreateV1Accounts{
		Metadata:        metadata,
		Mint:            mint.PublicKey(),
		MintIsSigner:    true,
		Authority:       payer,
		Payer:           payer,
		UpdateAuthority: payer,
	}, metaplex.FungibleAsset(p.Name, p.Symbol, p.URI), &decimals)
	if err != nil {
		return nil, newError(KindToken, "build create instruction", err)
	}

	tx, err := solana.NewSignedTransaction(payer, []solana.Instruction{ix}, blockhash, mint, e.payer)
	if err != nil {
		return nil, newError(KindKeypair, "sign create transaction", err)
	}
	return tx, nil
}

func (e *Engine) buildMintTransaction(mint solana.PublicKey, to Recipient, amount uint64, blockhash solana.Hash) (*solana.SignedTransaction, error) {
	payer := e.Payer()
	owner := to.resolve(payer)

	metadata, err := metaplex.FindMetadataAddress(mint)
	if err != nil {
		return nil, newError(KindToken, "derive metadata account", err)
	}
	ata, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, newError(KindToken, "derive token account", err)
	}

	ix, err := metaplex.NewMintV1Instruction(metaplex.MintV1Accounts{
		Token:      ata,
		TokenOwner: &owner,
		Metadata:   metadata,
		Mint:       mint,
		Authority:  payer,
		Payer:      payer,
	}, amount)
	if err != nil {
		return nil, newError(KindToken, "build mint instruction", err)
	}

	tx, err := solana.NewSignedTransaction(payer, []solana.Instruction{ix}, blockhash, e.payer)
	if err != nil {
		return nil, newError(KindKeypair, "sign mint transaction", err)
	}
	return tx, nil
}

// submit sends tx once and waits for confirmation.
func (e *Engine) submit(ctx context.Context, op string, tx *solana.SignedTransaction) (solana.Signature, error) {
	sig, err := e.rpc.SendTransaction(ctx, tx)
	if err != nil {
		e.recordFailure(op, KindRPC)
		return solana.Signature{}, newError(KindRPC, "send transaction", err)
	}

	sent := e.now()
	if err := e.confirmer.Confirm(ctx, sig, e.commitment); err != nil {
		var txErr *solana.TransactionError
		if errors.As(err, &txErr) {
			e.recordFailure(op, KindToken)
			return solana.Signature{}, newError(KindToken, "transaction failed", err)
		}
		e.recordFailure(op, KindRPC)
		return solana.Signature{}, newError(KindRPC, fmt.Sprintf("confirm transaction %s", sig), err)
	}
	observability.RecordConfirmationLatency(e.now().Sub(sent).Seconds())

	return sig, nil
}

func (e *Engine) recordFailure(op string, kind Kind) {
	observability.RecordOperationFailure(op, kind.String())
}

// writeJournal stores rec. Failures are logged and never returned: the
// operation is already confirmed on chain.
func (e *Engine) writeJournal(ctx context.Context, rec *domain.Issuance) {
	if e.journal == nil {
		return
	}
	rec.ID = idhash.ComputeIssuanceID(string(rec.Kind), rec.Signature)
	rec.Cluster = e.cluster
	rec.CreatedAt = e.now().UnixMilli()

	err := e.journal.Insert(ctx, rec)
	observability.RecordJournalWrite(err)
	if err != nil {
		e.logger.Printf("Journal write failed for %s %s: %v", rec.Kind, rec.Signature, err)
	}
}
