package bridge

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"sss-shared/internal/config"
	"sss-shared/internal/payer"
	"sss-shared/internal/solana"
	"sss-shared/internal/storage/journal"
	"sss-shared/internal/token"
)

// EnvFactory builds a token.Engine from config.Load: .env, the optional
// YAML file and the environment.
func EnvFactory(logger *log.Logger) Factory {
	return func(ctx context.Context) (Engine, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, &token.Error{Kind: token.KindConfig, Op: "load config", Err: err}
		}
		engine, err := NewEngine(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return engine, nil
	}
}

// NewEngine wires the payer, RPC client, confirmer and journal described by cfg.
func NewEngine(ctx context.Context, cfg *config.Config, logger *log.Logger) (*token.Engine, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[sss-shared] ", log.LstdFlags)
	}

	kp, err := payer.Load(ctx, cfg.Payer)
	if err != nil {
		return nil, &token.Error{Kind: token.KindKeypair, Op: "load payer", Err: err}
	}

	rpc := solana.NewHTTPClient(cfg.RPCURL,
		solana.WithTimeout(cfg.RPCTimeout),
		solana.WithRateLimit(cfg.RPCRateLimit, 1),
		solana.WithCommitment(cfg.Commitment),
	)

	j, err := journal.Open(ctx, journal.Options{
		PostgresDSN:   cfg.JournalPostgresDSN,
		ClickHouseDSN: cfg.JournalClickHouseDSN,
		Logger:        logger,
	})
	if err != nil {
		return nil, &token.Error{Kind: token.KindConfig, Op: "open journal", Err: err}
	}

	var confirmer solana.Confirmer
	if cfg.WSURL != "" {
		ws, err := solana.NewSignatureSubscriber(ctx, cfg.WSURL, &solana.SubscriberConfig{Logger: logger})
		if err != nil {
			j.Close()
			return nil, &token.Error{Kind: token.KindRPC, Op: "connect websocket", Err: fmt.Errorf("%s: %w", cfg.WSURL, err)}
		}
		confirmer = solana.NewWSConfirmer(ws, cfg.ConfirmTimeout)
	} else {
		confirmer = solana.NewPollingConfirmer(rpc, solana.DefaultPollInterval, cfg.ConfirmTimeout)
	}

	engine, err := token.NewEngine(token.Options{
		RPC:        rpc,
		Payer:      kp,
		Confirmer:  confirmer,
		Commitment: cfg.Commitment,
		Journal:    j,
		Cluster:    cfg.Cluster,
		Logger:     logger,
	})
	if err != nil {
		j.Close()
		if c, ok := confirmer.(io.Closer); ok {
			c.Close()
		}
		return nil, err
	}
	return engine, nil
}
