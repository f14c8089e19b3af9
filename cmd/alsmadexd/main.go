package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"alsmadex/config"
	"alsmadex/core/events"
	coretypes "alsmadex/core/types"
	"alsmadex/crypto"
	"alsmadex/native/dex"
	"alsmadex/observability/logging"
	"alsmadex/rpc"
	"alsmadex/state"
	"alsmadex/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("alsmadexd", cfg.Environment, cfg.LogFile)

	db, err := openDatabase(cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	owner, err := cfg.OwnerAddress()
	if err != nil {
		panic(fmt.Sprintf("Failed to decode owner address: %v", err))
	}
	moduleAddr, err := cfg.EngineAddress()
	if err != nil {
		panic(fmt.Sprintf("Failed to decode module address: %v", err))
	}

	engine := dex.NewEngine(owner, moduleAddr, dex.Params{
		BaseRateBps:    cfg.Commission.BaseRateBps,
		MinRateBps:     cfg.Commission.MinRateBps,
		MaxRateBps:     cfg.Commission.MaxRateBps,
		StakerShareBps: cfg.Commission.StakerShareBps,
	})
	engine.SetState(state.NewManager(db))
	engine.SetEmitter(&logEmitter{logger: logger})

	server := rpc.NewServer(engine)

	if manifestPath := strings.TrimSpace(cfg.TokenManifest); manifestPath != "" {
		if err := bindManifestTokens(manifestPath, engine, server, owner, moduleAddr, logger); err != nil {
			panic(fmt.Sprintf("Failed to bind manifest tokens: %v", err))
		}
	}

	go serveMetrics(cfg.MetricsAddress, logger)

	logger.Info("starting exchange daemon",
		slog.String("rpc", cfg.RPCAddress),
		slog.String("owner", owner.String()),
		slog.String("backend", cfg.Backend))
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "bolt":
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		return storage.NewBoltDB(filepath.Join(cfg.DataDir, "alsmadex.db"))
	default:
		return storage.NewLevelDB(cfg.DataDir)
	}
}

// bindManifestTokens materialises every manifest entry as an in-process ledger
// plus a fixed-answer feed, registers it with the engine, and announces the
// handles to the RPC server so dex_addToken can resolve them.
func bindManifestTokens(path string, engine *dex.Engine, server *rpc.Server, owner, moduleAddr crypto.Address, logger *slog.Logger) error {
	manifest, err := config.LoadTokenManifest(path)
	if err != nil {
		return err
	}
	for _, entry := range manifest.Tokens {
		tokenAddr, err := manifestAddress(entry.Address)
		if err != nil {
			return fmt.Errorf("token %s: %w", entry.Symbol, err)
		}
		feedAddr, err := manifestAddress(entry.FeedAddress)
		if err != nil {
			return fmt.Errorf("token %s feed: %w", entry.Symbol, err)
		}
		answer, ok := new(big.Int).SetString(strings.TrimSpace(entry.PriceAnswer), 10)
		if !ok || answer.Sign() <= 0 {
			return fmt.Errorf("token %s: invalid priceAnswer %q", entry.Symbol, entry.PriceAnswer)
		}

		ledger := dex.NewMemoryLedger(tokenAddr, entry.Symbol, entry.Decimals)
		ledger.SetOperator(moduleAddr)
		if supply := strings.TrimSpace(entry.Supply); supply != "" {
			amount, ok := new(big.Int).SetString(supply, 10)
			if !ok || amount.Sign() < 0 {
				return fmt.Errorf("token %s: invalid supply %q", entry.Symbol, entry.Supply)
			}
			ledger.Mint(owner, amount)
		}
		feed := dex.NewStaticFeed(feedAddr, answer, entry.PriceDecimals)

		server.RegisterLedger(ledger)
		server.RegisterFeed(feed)

		_, err = engine.AddToken(owner, ledger, feed)
		switch {
		case err == nil:
			logger.Info("registered token", slog.String("symbol", entry.Symbol), slog.String("address", tokenAddr.String()))
		case errors.Is(err, dex.ErrDuplicateToken):
			if err := engine.BindToken(ledger, feed); err != nil {
				return fmt.Errorf("token %s: %w", entry.Symbol, err)
			}
			logger.Info("rebound token", slog.String("symbol", entry.Symbol), slog.String("address", tokenAddr.String()))
		default:
			return fmt.Errorf("token %s: %w", entry.Symbol, err)
		}
	}
	return nil
}

func manifestAddress(value string) (crypto.Address, error) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return crypto.DecodeAddress(trimmed)
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return crypto.Address{}, err
	}
	return key.PubKey().Address(), nil
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	logger.Info("serving metrics", slog.String("address", addr))
	if err := server.ListenAndServe(); err != nil {
		logger.Error("metrics server stopped", slog.Any("error", err))
	}
}

// logEmitter writes exchange events to the structured log.
type logEmitter struct {
	logger *slog.Logger
}

func (l *logEmitter) Emit(ev events.Event) {
	if l == nil || l.logger == nil || ev == nil {
		return
	}
	attrs := []any{slog.String("type", ev.EventType())}
	if typed, ok := ev.(interface{ Event() *coretypes.Event }); ok {
		if rendered := typed.Event(); rendered != nil {
			for key, value := range rendered.Attributes {
				attrs = append(attrs, slog.String(key, value))
			}
		}
	}
	l.logger.Info("event", attrs...)
}
