package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"yieldhub/config"
	"yieldhub/crypto"
	"yieldhub/gateway/middleware"
	"yieldhub/gateway/routes"
	"yieldhub/native/lending"
	"yieldhub/native/staking"
	"yieldhub/observability/logging"
	"yieldhub/storage"
)

func main() {
	configFile := flag.String("config", "./yieldhub.toml", "Path to the configuration file")
	listenFlag := flag.String("listen", "", "Listen address (overrides config)")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("YIELDHUB_ENV"))
	logger := logging.Setup("yieldhubd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	if *listenFlag != "" {
		cfg.ListenAddress = *listenFlag
	}

	var db storage.Database
	if strings.TrimSpace(cfg.DataDir) != "" {
		db, err = storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			logger.Error("Failed to open database", slog.String("path", cfg.DataDir), slog.Any("error", err))
			os.Exit(1)
		}
	} else {
		logger.Warn("No DataDir configured, state will not survive a restart")
		db = storage.NewMemDB()
	}
	defer db.Close()
	store := storage.NewStateStore(db)

	vault, err := config.Address(cfg.VaultAddress)
	if err != nil {
		logger.Error("Failed to resolve vault address", slog.Any("error", err))
		os.Exit(1)
	}
	authority, err := config.Address(cfg.AuthorityAddress)
	if err != nil {
		logger.Error("Failed to resolve authority address", slog.Any("error", err))
		os.Exit(1)
	}
	permanent, err := config.Address(cfg.PermanentAccount)
	if err != nil {
		logger.Error("Failed to resolve permanent account", slog.Any("error", err))
		os.Exit(1)
	}

	now := uint64(time.Now().Unix())

	lend := lending.NewEngine(vault)
	lend.SetState(store)
	lend.SetTimestamp(now)
	if err := bootstrapMarket(cfg, store, lend, authority, permanent); err != nil {
		logger.Error("Failed to bootstrap lending market", slog.Any("error", err))
		os.Exit(1)
	}

	stake := staking.NewEngine(vault, permanent, cfg.Staking.Asset)
	stake.SetState(store)
	stake.SetTimestamp(now)
	if unit, ok := new(big.Int).SetString(strings.TrimSpace(cfg.Staking.ScoreUnit), 10); ok && unit.Sign() > 0 {
		stake.SetScoreUnit(unit)
	}

	obs := middleware.NewObservability(middleware.ObservabilityConfig{
		ServiceName: "yieldhubd",
		LogRequests: cfg.Gateway.LogRequests,
		Enabled:     cfg.Gateway.ObservabilityEnabled,
	}, logger)

	limits := make(map[string]middleware.RateLimit, len(cfg.Gateway.RateLimits))
	for key, limit := range cfg.Gateway.RateLimits {
		limits[key] = middleware.RateLimit{
			RequestsPerMinute: limit.RequestsPerMinute,
			Burst:             limit.Burst,
		}
	}

	auth := middleware.NewAuthenticator(cfg.AuthTokens)
	if !auth.Enabled() {
		logger.Warn("No auth tokens configured, mutating routes are open")
	}

	handler, err := routes.New(routes.Config{
		Lending:       lend,
		Staking:       stake,
		Store:         store,
		Authenticator: auth,
		RateLimiter:   middleware.NewRateLimiter(limits),
		Observability: obs,
	})
	if err != nil {
		logger.Error("Failed to build router", slog.Any("error", err))
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Gateway listening",
			slog.String("address", cfg.ListenAddress),
			slog.String("vault", vault.String()),
			slog.String("authority", authority.String()),
		)
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-stop:
		logger.Info("Shutting down", slog.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Shutdown failed", slog.Any("error", err))
		}
	}
}

// bootstrapMarket initialises the market and the configured reserves on first
// start. Existing markets keep their stored parameters.
func bootstrapMarket(cfg *config.Config, store *storage.StateStore, lend *lending.Engine, authority, permanent crypto.Address) error {
	market, err := store.GetMarket()
	if err != nil {
		return err
	}
	if market == nil {
		if _, err := lend.InitMarket(authority, permanent, cfg.Lending.Model(), cfg.Lending.ReserveFactorBps, cfg.Lending.MaxUsers); err != nil {
			return err
		}
		market, err = store.GetMarket()
		if err != nil {
			return err
		}
	}
	for _, reserve := range cfg.Reserves {
		if market.Reserve(reserve.Asset) != nil {
			continue
		}
		if err := lend.AddReserve(authority, reserve.Asset, reserve.Params()); err != nil {
			return fmt.Errorf("add reserve %s: %w", reserve.Asset, err)
		}
	}
	return nil
}
