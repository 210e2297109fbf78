// Command dexsim runs the DEX tick feed simulator: a continuous-publish
// price feed with a fault-injection pipeline (spec §4).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/pricesim/feedsim/internal/simcore"
	"github.com/pricesim/feedsim/internal/wsserver"
)

func main() {
	configPath := "configs/dex.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "dexsim: logger init: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := simcore.LoadDexConfig(configPath)
	if err != nil {
		logger.Fatal("config load failed", zap.String("path", configPath), zap.Error(err))
	}

	if len(cfg.Server.Pairs) == 0 {
		logger.Fatal("no pairs configured")
	}
	pair := cfg.Server.Pairs[0]

	engineRNG := simcore.NewLabeledRNG(cfg.Server.Seed, "DEX")
	tickerRNG := simcore.NewLabeledRNG(cfg.Server.Seed, "DEX_TICKER")

	tickIntervalMs := (cfg.DexTickMs.Min + cfg.DexTickMs.Max) / 2
	engine, err := simcore.NewPriceEngineFromConfig(cfg.Server, pair, tickIntervalMs, engineRNG)
	if err != nil {
		logger.Fatal("price engine init failed", zap.Error(err))
	}

	registry := simcore.NewRegistry()
	store := simcore.NewSnapshotStore()
	metrics := simcore.NewMetrics()
	broadcaster := simcore.NewBroadcaster(registry, store, metrics, logger)

	loopCfg := simcore.TickerLoopConfig{
		Pair:         pair,
		TickMsRange:  cfg.DexTickMs,
		BurstMode:    cfg.DexBurstMode,
		BurstOnMs:    cfg.DexBurstOnMs,
		BurstOffMs:   cfg.DexBurstOffMs,
		DelayRange:   cfg.DexLatencyMs,
		PDrop:        cfg.DexPDrop,
		PDup:         cfg.DexPDup,
		StaleAfterMs: cfg.DexStaleAfterMs,
	}
	loop := simcore.NewTickerLoop(loopCfg, engine, simcore.DexPolicy{}, broadcaster, metrics, simcore.RealClock{}, tickerRNG, simcore.SourceDex)

	if _, _, err := simcore.ParseBindAddress(cfg.Server.HTTPBind); err != nil {
		logger.Fatal("bad http_bind", zap.Error(err))
	}

	staticDir := os.Getenv("DEXSIM_STATIC_DIR")
	if staticDir == "" {
		staticDir = "static"
	}
	corsOrigin := "*"
	if len(cfg.Server.CorsAllowOrigins) > 0 {
		corsOrigin = cfg.Server.CorsAllowOrigins[0]
	}

	srv := wsserver.New(wsserver.Config{
		BindAddr:     cfg.Server.HTTPBind,
		FeedID:       "dex_ticks",
		WSPath:       "/ws/ticks",
		SnapshotPath: "/prices/snapshot",
		StaticDir:    staticDir,
		CORSOrigin:   corsOrigin,
		Registry:     registry,
		Snapshot:     store,
		Metrics:      metrics,
		Logger:       logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := loop.Run(ctx); err != nil && err != context.Canceled {
			logger.Warn("ticker loop stopped", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("dexsim listening", zap.String("bind", cfg.Server.HTTPBind), zap.String("pair", pair))
		if err := srv.ListenAndServe(); err != nil {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	cancel()
	_ = srv.Shutdown(context.Background())
	logger.Info("dexsim shutdown complete")
}
