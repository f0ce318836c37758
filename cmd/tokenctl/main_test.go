package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sss-shared/internal/config"
	"sss-shared/internal/payer"
	"sss-shared/internal/solana"
	"sss-shared/internal/solana/stub"
	"sss-shared/internal/token"
)

func stubEngine(t *testing.T) (*token.Engine, *stub.RPCClient) {
	t.Helper()
	rpc := stub.NewRPCClient()
	kp, err := solana.KeypairFromSeed(bytes.Repeat([]byte{5}, 32))
	require.NoError(t, err)
	e, err := token.NewEngine(token.Options{
		RPC:       rpc,
		Payer:     kp,
		Confirmer: solana.NewPollingConfirmer(rpc, time.Millisecond, time.Second),
	})
	require.NoError(t, err)
	return e, rpc
}

func TestRunDemo(t *testing.T) {
	e, rpc := stubEngine(t)
	var out bytes.Buffer

	require.NoError(t, runDemo(context.Background(), e, "devnet", &out))

	assert.Contains(t, out.String(), "Creating token: Test Token")
	assert.Contains(t, out.String(), "?cluster=devnet")
	assert.Len(t, rpc.SentTransactions(), 2)
}

func TestRunMint_Flags(t *testing.T) {
	e, rpc := stubEngine(t)
	ctx := context.Background()
	mint := e.Payer().String()

	var out bytes.Buffer
	require.NoError(t, runMint(ctx, e, []string{"--mint", mint, "--amount", "42"}, "mainnet-beta", &out))
	assert.NotContains(t, out.String(), "?cluster=")
	assert.Len(t, rpc.SentTransactions(), 1)

	assert.Error(t, runMint(ctx, e, []string{"--mint", "bad"}, "", &out))
	assert.Error(t, runMint(ctx, e, []string{"--mint", mint, "--owner", "bad"}, "", &out))
}

func TestRunCreate_Validation(t *testing.T) {
	e, rpc := stubEngine(t)
	ctx := context.Background()
	var out bytes.Buffer

	assert.Error(t, runCreate(ctx, e, []string{"--name", "x"}, "", &out))
	assert.Error(t, runCreate(ctx, e, []string{"--uri", "u", "--name", "x", "--decimals", "300"}, "", &out))
	assert.Empty(t, rpc.SentTransactions())

	require.NoError(t, runCreate(ctx, e, []string{"--uri", "u", "--name", "x", "--symbol", "X", "--decimals", "0"}, "", &out))
	assert.Contains(t, out.String(), "Mint: ")
}

func TestRunAssets(t *testing.T) {
	e, rpc := stubEngine(t)
	rpc.Assets[e.Payer().String()] = []solana.Asset{{ID: "asset-1", Interface: "FungibleToken", Name: "Test Token"}}

	var out bytes.Buffer
	require.NoError(t, runAssets(context.Background(), e, nil, &out))
	assert.Contains(t, out.String(), "1 assets owned by")
	assert.Contains(t, out.String(), "asset-1\tFungibleToken\tTest Token")
}

func TestRunJournal_RequiresDSN(t *testing.T) {
	var out bytes.Buffer
	logger := log.New(&out, "", 0)

	err := runJournal(context.Background(), []string{"--mint", "m"}, config.Default(), logger, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvJournalPostgresDSN)
	assert.Empty(t, out.String())
}

func TestRunKeystore(t *testing.T) {
	t.Setenv(config.EnvPayerKeystorePass, "pw")
	cfg := config.Default()
	cfg.Payer.Mnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	path := filepath.Join(t.TempDir(), "payer.keystore")

	var out bytes.Buffer
	require.NoError(t, runKeystore(context.Background(), []string{"--out", path}, cfg, &out))

	want, err := payer.FromMnemonic(cfg.Payer.Mnemonic)
	require.NoError(t, err)
	got, err := payer.FromKeystore(path, "pw")
	require.NoError(t, err)
	assert.Equal(t, want.PublicKey(), got.PublicKey())
	assert.True(t, strings.HasPrefix(out.String(), "Wrote keystore for "+want.PublicKey().String()))
}

func TestRun_UnknownCommand(t *testing.T) {
	err := run(context.Background(), "burn", nil, config.Default(), log.New(os.Stderr, "", 0), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunInfo(t *testing.T) {
	e, rpc := stubEngine(t)
	mint := e.Payer()

	data := make([]byte, solana.MintAccountSize)
	data[44] = 6
	data[45] = 1
	rpc.Accounts[mint.String()] = &solana.AccountInfo{
		Owner: solana.TokenProgramID.String(),
		Data:  base64.StdEncoding.EncodeToString(data),
	}

	var out bytes.Buffer
	require.NoError(t, runInfo(context.Background(), e, []string{"--mint", mint.String()}, &out))
	assert.Contains(t, out.String(), "Decimals: 6")
	assert.Contains(t, out.String(), "No metadata account")
}
