package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"useropindexer/internal/chain"
	"useropindexer/internal/config"
	"useropindexer/internal/entrypoint"
	"useropindexer/internal/ingest"
	"useropindexer/internal/metrics"
	"useropindexer/internal/storage"
	"useropindexer/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "ERC-4337 EntryPoint event indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Backfill UserOperationEvent history, then follow the live stream",
		RunE:  runIndexer,
	}

	runCmd.Flags().String("rpc", "", "Ethereum RPC URL (websocket, required for the live stream)")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	runCmd.Flags().String("entrypoint", entrypoint.DefaultAddress.Hex(), "EntryPoint contract address")
	runCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	runCmd.Flags().Uint64("batch-size", 2000, "blocks per historical getLogs query")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts for historical queries")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("decode-errors", "./data/decode_errors.jsonl", "decode failures JSONL path")
	runCmd.Flags().String("metrics-addr", "", "prometheus listen address (empty disables)")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if cfg.PgDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}
	if !common.IsHexAddress(cfg.EntryPoint) {
		return fmt.Errorf("invalid entrypoint address: %s", cfg.EntryPoint)
	}
	address := common.HexToAddress(cfg.EntryPoint)

	topic0, err := entrypoint.EventTopic()
	if err != nil {
		return fmt.Errorf("parse entrypoint abi: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	head, err := chainClient.LatestBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("get latest block: %w", err)
	}
	logger.Info("connected to chain",
		zap.String("chain_id", chainID.String()),
		zap.Uint64("head", head),
		zap.String("entrypoint", address.Hex()),
		zap.String("topic0", topic0.Hex()),
	)

	store, err := postgres.NewStore(ctx, cfg.PgDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	var failureLog storage.FailureLog
	if cfg.DecodeErrors != "" {
		failureLog = storage.NewJsonlFailureLog(cfg.DecodeErrors)
	}

	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, registry, logger)
	}

	pipeline := ingest.NewPipeline(ingest.Config{
		Address:      address,
		Topic0:       topic0,
		FromBlock:    cfg.FromBlock,
		BatchSize:    cfg.BatchSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, chainClient, store, failureLog, m, logger)

	logger.Info("indexer start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("decode_errors", cfg.DecodeErrors),
		zap.String("metrics_addr", cfg.MetricsAddr),
	)

	if err := pipeline.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("shutdown requested")
			return nil
		}
		logger.Error("ingestion failed", zap.Error(err))
		return err
	}
	return nil
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	logger.Info("metrics listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics server stopped", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
