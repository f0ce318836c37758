// Command tokenctl creates and mints Metaplex fungible tokens from the
// command line, using the same configuration as the shared library.
//
// Usage:
//
//	tokenctl [--metrics-addr :9090] <command> [flags]
//
// Commands:
//
//	demo      create "Test Token" and mint 1000000 base units to the payer
//	create    create a fungible token
//	mint      mint supply of an existing token
//	info      show mint and metadata accounts of a token
//	assets    list digital assets of an owner (DAS RPC required)
//	journal   list journaled operations of a mint; needs JOURNAL_POSTGRES_DSN
//	          or JOURNAL_CLICKHOUSE_DSN, the in-memory journal lives only as
//	          long as one process
//	keystore  encrypt the configured payer into a keystore file
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"sss-shared/internal/bridge"
	"sss-shared/internal/config"
	"sss-shared/internal/observability"
	"sss-shared/internal/payer"
	"sss-shared/internal/solana"
	"sss-shared/internal/storage/journal"
	"sss-shared/internal/token"
)

const (
	demoURI      = "https://example.com/token-metadata.json"
	demoName     = "Test Token"
	demoDecimals = 6
	demoAmount   = 1_000_000
)

// engine is the subset of token.Engine used by the commands.
type engine interface {
	CreateToken(ctx context.Context, p token.CreateParams) (token.CreateResult, error)
	MintTokens(ctx context.Context, mint solana.PublicKey, to token.Recipient, amount uint64) (solana.Signature, error)
	FetchAssetsByOwner(ctx context.Context, owner solana.PublicKey) ([]token.Asset, error)
	FetchToken(ctx context.Context, mint solana.PublicKey) (*token.Info, error)
	Payer() solana.PublicKey
}

func main() {
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")
	flag.Usage = usage
	flag.Parse()

	logger := log.New(os.Stderr, "[tokenctl] ", log.LstdFlags|log.Lshortfile)

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	if err := config.LoadEnvFile(".env"); err != nil {
		logger.Fatalf("Failed to load .env: %v", err)
	}
	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	if err := run(ctx, cmd, args, cfg, logger, os.Stdout); err != nil {
		logger.Fatalf("%s: %v", cmd, err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: tokenctl [--metrics-addr addr] <demo|create|mint|info|assets|journal|keystore> [flags]\n")
	flag.PrintDefaults()
}

func run(ctx context.Context, cmd string, args []string, cfg *config.Config, logger *log.Logger, out io.Writer) error {
	switch cmd {
	case "journal":
		return runJournal(ctx, args, cfg, logger, out)
	case "keystore":
		return runKeystore(ctx, args, cfg, out)
	case "demo", "create", "mint", "info", "assets":
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	e, err := bridge.NewEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Close(); err != nil {
			logger.Printf("Close engine: %v", err)
		}
	}()

	switch cmd {
	case "demo":
		return runDemo(ctx, e, cfg.Cluster, out)
	case "create":
		return runCreate(ctx, e, args, cfg.Cluster, out)
	case "mint":
		return runMint(ctx, e, args, cfg.Cluster, out)
	case "info":
		return runInfo(ctx, e, args, out)
	default:
		return runAssets(ctx, e, args, out)
	}
}

func runDemo(ctx context.Context, e engine, cluster string, out io.Writer) error {
	fmt.Fprintf(out, "Payer: %s\n", e.Payer())
	fmt.Fprintf(out, "Creating token: %s\n", demoName)

	res, err := e.CreateToken(ctx, token.CreateParams{URI: demoURI, Name: demoName, Decimals: demoDecimals})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Signature: %s\nMint: %s\n%s\n", res.Signature, res.Mint, explorerURL("address", res.Mint.String(), cluster))

	sig, err := e.MintTokens(ctx, res.Mint, token.DefaultPayer(), demoAmount)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Mint signature: %s\n%s\n", sig, explorerURL("tx", sig.String(), cluster))
	return nil
}

func runCreate(ctx context.Context, e engine, args []string, cluster string, out io.Writer) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	uri := fs.String("uri", "", "Metadata JSON URI (max 200 bytes)")
	name := fs.String("name", "", "Token name (max 32 bytes)")
	symbol := fs.String("symbol", "", "Token symbol (max 10 bytes)")
	decimals := fs.Uint("decimals", 9, "Decimal places")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *uri == "" || *name == "" {
		return errors.New("--uri and --name are required")
	}
	if *decimals > 255 {
		return fmt.Errorf("--decimals out of range: %d", *decimals)
	}

	res, err := e.CreateToken(ctx, token.CreateParams{
		URI:      *uri,
		Name:     *name,
		Symbol:   *symbol,
		Decimals: uint8(*decimals),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Signature: %s\nMint: %s\n%s\n", res.Signature, res.Mint, explorerURL("address", res.Mint.String(), cluster))
	return nil
}

func runMint(ctx context.Context, e engine, args []string, cluster string, out io.Writer) error {
	fs := flag.NewFlagSet("mint", flag.ContinueOnError)
	mintAddr := fs.String("mint", "", "Mint address")
	owner := fs.String("owner", "", "Token owner (default: payer)")
	amount := fs.Uint64("amount", 0, "Amount in base units")
	if err := fs.Parse(args); err != nil {
		return err
	}

	mint, err := solana.PublicKeyFromBase58(*mintAddr)
	if err != nil {
		return fmt.Errorf("--mint: %w", err)
	}
	to := token.DefaultPayer()
	if *owner != "" {
		pk, err := solana.PublicKeyFromBase58(*owner)
		if err != nil {
			return fmt.Errorf("--owner: %w", err)
		}
		to = token.To(pk)
	}

	sig, err := e.MintTokens(ctx, mint, to, *amount)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Signature: %s\n%s\n", sig, explorerURL("tx", sig.String(), cluster))
	return nil
}

func runInfo(ctx context.Context, e engine, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	mintAddr := fs.String("mint", "", "Mint address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	mint, err := solana.PublicKeyFromBase58(*mintAddr)
	if err != nil {
		return fmt.Errorf("--mint: %w", err)
	}

	info, err := e.FetchToken(ctx, mint)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Mint: %s\nDecimals: %d\nSupply: %d\n", info.Mint, info.Decimals, info.Supply)
	if info.MintAuthority != nil {
		fmt.Fprintf(out, "Mint authority: %s\n", info.MintAuthority)
	}
	if md := info.Metadata; md != nil {
		fmt.Fprintf(out, "Name: %s\nSymbol: %s\nURI: %s\nUpdate authority: %s\nMutable: %t\n",
			md.Name, md.Symbol, md.URI, md.UpdateAuthority, md.IsMutable)
	} else {
		fmt.Fprintln(out, "No metadata account")
	}
	return nil
}

func runAssets(ctx context.Context, e engine, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("assets", flag.ContinueOnError)
	ownerFlag := fs.String("owner", "", "Owner address (default: payer)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	owner := e.Payer()
	if *ownerFlag != "" {
		pk, err := solana.PublicKeyFromBase58(*ownerFlag)
		if err != nil {
			return fmt.Errorf("--owner: %w", err)
		}
		owner = pk
	}

	assets, err := e.FetchAssetsByOwner(ctx, owner)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d assets owned by %s\n", len(assets), owner)
	for _, a := range assets {
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", a.ID, a.Interface, a.Name, a.JSONURI)
	}
	return nil
}

func runJournal(ctx context.Context, args []string, cfg *config.Config, logger *log.Logger, out io.Writer) error {
	fs := flag.NewFlagSet("journal", flag.ContinueOnError)
	mint := fs.String("mint", "", "Mint address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *mint == "" {
		return errors.New("--mint is required")
	}
	if cfg.JournalPostgresDSN == "" && cfg.JournalClickHouseDSN == "" {
		return fmt.Errorf("journal: set %s or %s; the in-memory journal does not outlive a process",
			config.EnvJournalPostgresDSN, config.EnvJournalClickDSN)
	}

	j, err := journal.Open(ctx, journal.Options{
		PostgresDSN:   cfg.JournalPostgresDSN,
		ClickHouseDSN: cfg.JournalClickHouseDSN,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.GetByMint(ctx, *mint)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d records in %s journal\n", len(recs), j.Backend)
	for _, r := range recs {
		fmt.Fprintf(out, "%d\t%s\t%s\t%s\t%d\n", r.CreatedAt, r.Kind, r.Signature, r.Owner, r.Amount)
	}
	return nil
}

func runKeystore(ctx context.Context, args []string, cfg *config.Config, out io.Writer) error {
	fs := flag.NewFlagSet("keystore", flag.ContinueOnError)
	path := fs.String("out", "payer.keystore", "Keystore file to write")
	if err := fs.Parse(args); err != nil {
		return err
	}

	passphrase := os.Getenv(config.EnvPayerKeystorePass)
	if passphrase == "" {
		return fmt.Errorf("%s is required", config.EnvPayerKeystorePass)
	}

	src := cfg.Payer
	src.KeystorePath = ""
	kp, err := payer.Load(ctx, src)
	if err != nil {
		return err
	}
	if err := payer.WriteKeystore(*path, passphrase, kp); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote keystore for %s to %s\n", kp.PublicKey(), *path)
	return nil
}

func explorerURL(kind, id, cluster string) string {
	u := fmt.Sprintf("https://explorer.solana.com/%s/%s", kind, id)
	if cluster != "" && cluster != "mainnet-beta" {
		u += "?cluster=" + cluster
	}
	return u
}

func serveMetrics(addr string, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	logger.Printf("Metrics server listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("Metrics server error: %v", err)
	}
}
