package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sss-shared/internal/solana"
)

var allKeys = []string{
	EnvConfigFile, EnvRPCURL, EnvWSURL, EnvCluster, EnvCommitment,
	EnvPayerMnemonic, EnvPayerKeypairPath, EnvPayerKeystorePath, EnvPayerKeystorePass,
	EnvPayerSecretName, EnvRPCRateLimit, EnvRPCTimeout, EnvConfirmTimeout,
	EnvJournalPostgresDSN, EnvJournalClickDSN,
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultRPCURL, cfg.RPCURL)
	assert.Equal(t, DefaultCluster, cfg.Cluster)
	assert.Equal(t, solana.CommitmentConfirmed, cfg.Commitment)
	assert.Equal(t, 90*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, DefaultRPCTimeout, cfg.RPCTimeout)
	assert.Empty(t, cfg.WSURL)
	assert.True(t, cfg.Payer.Empty())
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvRPCURL, "https://rpc.example.com")
	t.Setenv(EnvWSURL, "wss://rpc.example.com")
	t.Setenv(EnvCluster, "mainnet-beta")
	t.Setenv(EnvCommitment, "finalized")
	t.Setenv(EnvPayerMnemonic, "word word")
	t.Setenv(EnvRPCRateLimit, "2.5")
	t.Setenv(EnvRPCTimeout, "10s")
	t.Setenv(EnvConfirmTimeout, "120")
	t.Setenv(EnvJournalPostgresDSN, "postgres://localhost/journal")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.example.com", cfg.RPCURL)
	assert.Equal(t, "wss://rpc.example.com", cfg.WSURL)
	assert.Equal(t, "mainnet-beta", cfg.Cluster)
	assert.Equal(t, solana.CommitmentFinalized, cfg.Commitment)
	assert.Equal(t, "word word", cfg.Payer.Mnemonic)
	assert.Equal(t, 2.5, cfg.RPCRateLimit)
	assert.Equal(t, 10*time.Second, cfg.RPCTimeout)
	assert.Equal(t, 120*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, "postgres://localhost/journal", cfg.JournalPostgresDSN)
}

func TestFromEnv_YAMLFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
solana:
  rpcUrl: https://yaml.example.com
  cluster: testnet
  rateLimit: 5
  timeout: 15s
payer:
  keypairPath: /keys/payer.json
confirmTimeout: 60s
journal:
  clickhouseDsn: clickhouse://localhost:9000/journal
`)
	t.Setenv(EnvConfigFile, path)
	t.Setenv(EnvCluster, "devnet")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://yaml.example.com", cfg.RPCURL)
	assert.Equal(t, "devnet", cfg.Cluster, "environment wins over file")
	assert.Equal(t, 5.0, cfg.RPCRateLimit)
	assert.Equal(t, 15*time.Second, cfg.RPCTimeout)
	assert.Equal(t, "/keys/payer.json", cfg.Payer.KeypairPath)
	assert.Equal(t, 60*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, "clickhouse://localhost:9000/journal", cfg.JournalClickHouseDSN)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"rpc scheme", EnvRPCURL, "ftp://example.com"},
		{"ws scheme", EnvWSURL, "https://example.com"},
		{"commitment", EnvCommitment, "max"},
		{"rate limit", EnvRPCRateLimit, "fast"},
		{"negative rate limit", EnvRPCRateLimit, "-1"},
		{"timeout", EnvConfirmTimeout, "soon"},
		{"zero timeout", EnvRPCTimeout, "0"},
		{"missing file", EnvConfigFile, "/nonexistent/config.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestFromEnv_MalformedYAML(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfigFile, writeFile(t, "bad.yaml", "solana: [unterminated"))

	_, err := FromEnv()
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	const (
		kept  = "SSS_TEST_KEPT"
		fresh = "SSS_TEST_FRESH"
		quote = "SSS_TEST_QUOTED"
	)
	t.Setenv(kept, "from-env")
	t.Setenv(fresh, "")
	t.Setenv(quote, "")
	os.Unsetenv(fresh)
	os.Unsetenv(quote)

	path := writeFile(t, ".env", `
# comment
SSS_TEST_KEPT=from-file
export SSS_TEST_FRESH=value=with=equals
SSS_TEST_QUOTED="twelve words go here"
not a pair
`)
	require.NoError(t, LoadEnvFile(path))

	assert.Equal(t, "from-env", os.Getenv(kept))
	assert.Equal(t, "value=with=equals", os.Getenv(fresh))
	assert.Equal(t, "twelve words go here", os.Getenv(quote))
}

func TestLoadEnvFile_Missing(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), ".env")))
}
