package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"useropindexer/internal/metrics"
	"useropindexer/internal/storage"
)

// ChainSource is the node access the pipeline needs: a head lookup, a
// bounded historical log query, and a live log subscription.
type ChainSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, address common.Address, topic0 common.Hash) ([]types.Log, error)
	SubscribeLogs(ctx context.Context, fromBlock uint64, address common.Address, topic0 common.Hash, sink chan<- types.Log) (ethereum.Subscription, error)
}

// Config holds runtime settings for the ingestion pipeline.
type Config struct {
	Address      common.Address
	Topic0       common.Hash
	FromBlock    uint64
	BatchSize    uint64
	MaxRetries   int
	RetryBackoff time.Duration
}

// Pipeline runs historical backfill to the chain head, then hands over to a
// live subscription starting at head+1. It owns the block cursor; both
// phases receive their bounds by argument.
type Pipeline struct {
	cfg      Config
	chain    ChainSource
	sink     storage.EventSink
	failures storage.FailureLog
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewPipeline builds a Pipeline with its dependencies. failures and m may be
// nil.
func NewPipeline(cfg Config, chain ChainSource, sink storage.EventSink, failures storage.FailureLog, m *metrics.Metrics, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:      cfg,
		chain:    chain,
		sink:     sink,
		failures: failures,
		metrics:  m,
		logger:   logger,
	}
}

// Run executes backfill then the live subscription. It returns only on a
// fatal error or context cancellation; decoded events are already durable
// either way, so nothing is rolled back.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.chain == nil {
		return fmt.Errorf("chain source is nil")
	}
	if p.sink == nil {
		return fmt.Errorf("event sink is nil")
	}
	if p.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}

	head, err := p.chain.LatestBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("get latest block: %w", err)
	}

	p.logger.Info("backfill start",
		zap.Uint64("from", p.cfg.FromBlock),
		zap.Uint64("head", head),
	)
	if err := p.backfill(ctx, p.cfg.FromBlock, head); err != nil {
		return fmt.Errorf("backfill: %w", err)
	}

	p.logger.Info("subscription start", zap.Uint64("from", head+1))
	if err := p.subscribe(ctx, head+1); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}
