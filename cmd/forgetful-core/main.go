// Command forgetful-core runs the memory core as a long-lived process:
// configuration load, pool/cache/batcher wiring, then block until a
// termination signal drains everything in reverse order. Grounded on
// evalgo-org-eve/cli's cobra + viper root command and graceful-shutdown
// pattern, adapted to this repo's typed internal/config loader.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/DrJLabs/forgetful-core/internal/batch"
	"github.com/DrJLabs/forgetful-core/internal/cache"
	"github.com/DrJLabs/forgetful-core/internal/config"
	"github.com/DrJLabs/forgetful-core/internal/mlog"
	"github.com/DrJLabs/forgetful-core/internal/pool"
	"github.com/DrJLabs/forgetful-core/internal/resilience"
	"github.com/DrJLabs/forgetful-core/internal/snapshot"
	"github.com/DrJLabs/forgetful-core/internal/telemetry"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "forgetful-core",
	Short: "memory core: relational/graph/key-value pools, multi-layer cache, and priority batchers",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file (defaults to env vars only)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := mlog.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	tel, err := telemetry.Init(telemetry.Config{
		ServiceName:    "forgetful-core",
		ServiceVersion: "dev",
		Environment:    envOrDefault("FORGETFUL_ENV", "development"),
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pools, err := pool.NewManager(ctx,
		pool.RelationalConfig{
			DSN:                   cfg.Pool.Relational.DSN,
			Min:                   int32(cfg.Pool.Relational.Min),
			Max:                   int32(cfg.Pool.Relational.Max),
			AcquireTimeout:        cfg.Pool.Relational.AcquireTimeout,
			StatementTimeout:      cfg.Pool.Relational.StatementTimeout,
			HealthCheckInterval:   cfg.Pool.HealthCheckInterval,
			RecoveryCheckInterval: cfg.Pool.RecoveryCheckInterval,
		},
		pool.GraphConfig{
			URI:                   cfg.Pool.Graph.URI,
			Username:              cfg.Pool.Graph.Username,
			Password:              cfg.Pool.Graph.Password,
			Min:                   cfg.Pool.Graph.Min,
			Max:                   cfg.Pool.Graph.Max,
			AcquireTimeout:        cfg.Pool.Graph.AcquireTimeout,
			HealthCheckInterval:   cfg.Pool.HealthCheckInterval,
			RecoveryCheckInterval: cfg.Pool.RecoveryCheckInterval,
		},
		pool.KeyValueConfig{
			URL:                   cfg.Cache.L2.URL,
			Min:                   cfg.Pool.KeyValue.Min,
			Max:                   cfg.Pool.KeyValue.Max,
			AcquireTimeout:        cfg.Pool.KeyValue.AcquireTimeout,
			HealthCheckInterval:   cfg.Pool.HealthCheckInterval,
			RecoveryCheckInterval: cfg.Pool.RecoveryCheckInterval,
		},
		log,
	)
	if err != nil {
		return fmt.Errorf("init pools: %w", err)
	}

	mc := cache.NewMultiLayer(cache.Config{
		L1: cache.L1Config{MaxBytes: cfg.Cache.L1.MaxBytes, TTL: cfg.Cache.L1.TTL},
		L2: cache.L2Config{TTL: cfg.Cache.L2.TTL},
		L3: cache.L3Config{TTL: cfg.Cache.L3.TTL, MaxPreparedQueries: cfg.Cache.L3.MaxPrepared},
	}, pools.KeyValueClient, log)

	breakers := resilience.NewBreakerManager(resilience.BreakerConfig{
		Threshold:       cfg.Resilience.Breaker.Threshold,
		RecoveryTimeout: cfg.Resilience.Breaker.RecoveryTimeout,
	})

	registry := snapshot.NewRegistry()
	registry.Register("cache", mc)
	registry.Register("breakers", breakers)

	batchMgr := batch.NewManager(pools, mc, log)

	pools.Start(ctx)
	batchMgr.Start(ctx)

	log.Info("forgetful-core started", mlog.Int("port", cfg.Port))

	waitForShutdown(ctx)

	log.Info("shutting down")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	batchMgr.Stop(stopCtx)
	pools.Stop(stopCtx)

	if err := tel.Shutdown(stopCtx); err != nil {
		log.Warn("telemetry shutdown failed", mlog.Err(err))
	}

	return nil
}

func waitForShutdown(ctx context.Context) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sig:
	case <-ctx.Done():
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
