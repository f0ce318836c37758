// Package config resolves runtime settings from a .env file, an optional
// YAML file and environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"sss-shared/internal/payer"
	"sss-shared/internal/solana"
)

// Environment keys.
const (
	EnvConfigFile         = "SSS_CONFIG"
	EnvRPCURL             = "SOLANA_RPC_URL"
	EnvWSURL              = "SOLANA_WS_URL"
	EnvCluster            = "SOLANA_CLUSTER"
	EnvCommitment         = "SOLANA_COMMITMENT"
	EnvPayerMnemonic      = "PAYER_MNEMONIC"
	EnvPayerKeypairPath   = "PAYER_KEYPAIR_PATH"
	EnvPayerKeystorePath  = "PAYER_KEYSTORE_PATH"
	EnvPayerKeystorePass  = "PAYER_KEYSTORE_PASSPHRASE"
	EnvPayerSecretName    = "PAYER_SECRET_NAME"
	EnvRPCRateLimit       = "RPC_RATE_LIMIT"
	EnvRPCTimeout         = "RPC_TIMEOUT"
	EnvConfirmTimeout     = "CONFIRM_TIMEOUT"
	EnvJournalPostgresDSN = "JOURNAL_POSTGRES_DSN"
	EnvJournalClickDSN    = "JOURNAL_CLICKHOUSE_DSN"
)

// Defaults.
const (
	DefaultRPCURL         = "https://api.devnet.solana.com"
	DefaultCluster        = "devnet"
	DefaultRPCTimeout     = 30 * time.Second
	DefaultConfirmTimeout = 90 * time.Second
)

// Config holds resolved settings.
type Config struct {
	RPCURL     string
	WSURL      string // empty: confirm by polling
	Cluster    string
	Commitment solana.Commitment

	Payer payer.Source

	RPCRateLimit   float64 // requests per second, 0 disables
	RPCTimeout     time.Duration
	ConfirmTimeout time.Duration

	JournalPostgresDSN   string
	JournalClickHouseDSN string
}

// fileConfig mirrors the YAML layout.
type fileConfig struct {
	Solana struct {
		RPCURL     string        `yaml:"rpcUrl"`
		WSURL      string        `yaml:"wsUrl"`
		Cluster    string        `yaml:"cluster"`
		Commitment string        `yaml:"commitment"`
		RateLimit  float64       `yaml:"rateLimit"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"solana"`
	Payer struct {
		KeypairPath  string `yaml:"keypairPath"`
		KeystorePath string `yaml:"keystorePath"`
		SecretName   string `yaml:"secretName"`
	} `yaml:"payer"`
	ConfirmTimeout time.Duration `yaml:"confirmTimeout"`
	Journal        struct {
		PostgresDSN   string `yaml:"postgresDsn"`
		ClickHouseDSN string `yaml:"clickhouseDsn"`
	} `yaml:"journal"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		RPCURL:         DefaultRPCURL,
		Cluster:        DefaultCluster,
		Commitment:     solana.CommitmentConfirmed,
		RPCTimeout:     DefaultRPCTimeout,
		ConfirmTimeout: DefaultConfirmTimeout,
	}
}

// Load reads .env from the working directory, then the YAML file named by
// SSS_CONFIG, then environment overrides.
func Load() (*Config, error) {
	if err := LoadEnvFile(".env"); err != nil {
		return nil, err
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment and the YAML file it
// points to, without reading .env.
func FromEnv() (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv(EnvConfigFile)); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		var parsed fileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		merge(cfg, &parsed)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks resolved settings.
func (c *Config) Validate() error {
	u, err := url.Parse(c.RPCURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", EnvRPCURL, c.RPCURL)
	}
	if c.WSURL != "" {
		u, err := url.Parse(c.WSURL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
			return fmt.Errorf("%s must be a ws(s) URL, got %q", EnvWSURL, c.WSURL)
		}
	}
	switch c.Commitment {
	case solana.CommitmentProcessed, solana.CommitmentConfirmed, solana.CommitmentFinalized:
	default:
		return fmt.Errorf("%s: unknown commitment %q", EnvCommitment, c.Commitment)
	}
	if c.RPCRateLimit < 0 {
		return errors.New("rpc rate limit must not be negative")
	}
	if c.RPCTimeout <= 0 || c.ConfirmTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	return nil
}

func merge(dst *Config, src *fileConfig) {
	if src.Solana.RPCURL != "" {
		dst.RPCURL = src.Solana.RPCURL
	}
	if src.Solana.WSURL != "" {
		dst.WSURL = src.Solana.WSURL
	}
	if src.Solana.Cluster != "" {
		dst.Cluster = src.Solana.Cluster
	}
	if src.Solana.Commitment != "" {
		dst.Commitment = solana.Commitment(src.Solana.Commitment)
	}
	if src.Solana.RateLimit != 0 {
		dst.RPCRateLimit = src.Solana.RateLimit
	}
	if src.Solana.Timeout != 0 {
		dst.RPCTimeout = src.Solana.Timeout
	}
	if src.Payer.KeypairPath != "" {
		dst.Payer.KeypairPath = src.Payer.KeypairPath
	}
	if src.Payer.KeystorePath != "" {
		dst.Payer.KeystorePath = src.Payer.KeystorePath
	}
	if src.Payer.SecretName != "" {
		dst.Payer.SecretName = src.Payer.SecretName
	}
	if src.ConfirmTimeout != 0 {
		dst.ConfirmTimeout = src.ConfirmTimeout
	}
	if src.Journal.PostgresDSN != "" {
		dst.JournalPostgresDSN = src.Journal.PostgresDSN
	}
	if src.Journal.ClickHouseDSN != "" {
		dst.JournalClickHouseDSN = src.Journal.ClickHouseDSN
	}
}

func applyEnv(cfg *Config) error {
	setString(&cfg.RPCURL, EnvRPCURL)
	setString(&cfg.WSURL, EnvWSURL)
	setString(&cfg.Cluster, EnvCluster)
	if v := env(EnvCommitment); v != "" {
		cfg.Commitment = solana.Commitment(v)
	}
	// secrets come only from the environment
	cfg.Payer.Mnemonic = os.Getenv(EnvPayerMnemonic)
	setString(&cfg.Payer.KeypairPath, EnvPayerKeypairPath)
	setString(&cfg.Payer.KeystorePath, EnvPayerKeystorePath)
	cfg.Payer.KeystorePassphrase = os.Getenv(EnvPayerKeystorePass)
	setString(&cfg.Payer.SecretName, EnvPayerSecretName)
	setString(&cfg.JournalPostgresDSN, EnvJournalPostgresDSN)
	setString(&cfg.JournalClickHouseDSN, EnvJournalClickDSN)

	if v := env(EnvRPCRateLimit); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRPCRateLimit, err)
		}
		cfg.RPCRateLimit = f
	}
	if err := setDuration(&cfg.RPCTimeout, EnvRPCTimeout); err != nil {
		return err
	}
	return setDuration(&cfg.ConfirmTimeout, EnvConfirmTimeout)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(dst *string, key string) {
	if v := env(key); v != "" {
		*dst = v
	}
}

// setDuration accepts Go durations ("90s") or whole seconds ("90").
func setDuration(dst *time.Duration, key string) error {
	v := env(key)
	if v == "" {
		return nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
