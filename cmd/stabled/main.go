package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stablecore/config"
	"stablecore/core/state"
	"stablecore/crypto"
	"stablecore/native/collateral"
	"stablecore/native/oracle"
	"stablecore/native/token"
	"stablecore/observability"
	"stablecore/observability/logging"
	"stablecore/observability/otel"
	"stablecore/rpc"
	"stablecore/storage"
)

// moduleAddress derives the protocol custody account from a fixed label so
// every deployment agrees on it without key material.
func moduleAddress() crypto.Address {
	digest := ethcrypto.Keccak256([]byte("stablecore/collateral/custody"))
	return crypto.MustNewAddress(crypto.STCPrefix, digest[12:])
}

func buildGuards(cfg *config.Config) ([]string, []*oracle.Guard) {
	assets := make([]string, 0, len(cfg.Assets))
	guards := make([]*oracle.Guard, 0, len(cfg.Assets))
	for _, asset := range cfg.Assets {
		var feed oracle.PriceFeed
		switch asset.FeedSource {
		case "coingecko":
			feed = oracle.NewCoinGeckoFeed(nil, "", asset.CoinGeckoID)
		default:
			feed = oracle.NewManualFeed()
		}
		assets = append(assets, asset.Symbol)
		guards = append(guards, oracle.NewGuard(feed, asset.StaleTimeout()))
	}
	return assets, guards
}

func run() error {
	configPath := flag.String("config", "./config.toml", "path to the TOML configuration file")
	env := flag.String("env", "", "deployment environment label for logs and telemetry")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup(cfg.ServiceName, *env, logging.Options{
		Level:     cfg.LogLevel,
		FilePath:  cfg.LogFile,
		MaxSizeMB: cfg.LogMaxSizeMB,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		shutdown, err := otel.Init(ctx, otel.Config{
			ServiceName: cfg.ServiceName,
			Environment: *env,
			Endpoint:    cfg.OTLPEndpoint,
			Insecure:    true,
			Metrics:     true,
			Traces:      true,
		})
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Error("telemetry shutdown", "error", err)
			}
		}()
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "positions"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	assets, guards := buildGuards(cfg)
	registry, err := collateral.NewRegistry(assets, guards)
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}

	custody := moduleAddress()
	engine := collateral.NewEngine(custody, registry)
	engine.SetState(state.NewStore(db))
	coin := token.NewStablecoin(cfg.TokenName, cfg.TokenSymbol, custody)
	engine.SetStableLedger(token.NewModuleLedger(coin, custody))
	engine.SetBank(token.NewBank())
	engine.SetEmitter(observability.NewEmitter(logger))

	if cfg.MetricsAddress != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			server := &http.Server{
				Addr:              cfg.MetricsAddress,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}
			logger.Info("metrics listener starting", "address", cfg.MetricsAddress)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics listener", "error", err)
			}
		}()
	}

	server := rpc.NewServer(engine)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("rpc server starting", "address", cfg.RPCAddress, "assets", assets)
		errCh <- server.Start(cfg.RPCAddress)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		return nil
	case err := <-errCh:
		return fmt.Errorf("rpc server: %w", err)
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "stabled: %v\n", err)
		os.Exit(1)
	}
}
