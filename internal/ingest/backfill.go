package ingest

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// backfill processes every matching log in the inclusive range [from, to].
// Decode failures are reported and skipped; a persist failure aborts the
// whole range so no successfully decoded event is silently lost.
func (p *Pipeline) backfill(ctx context.Context, from, to uint64) error {
	if from > to {
		p.logger.Info("nothing to backfill", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, p.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		p.logger.Info("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

		logs, err := p.filterLogsWithRetry(ctx, blockRange.From, blockRange.To)
		if err != nil {
			return fmt.Errorf("filter logs: %w", err)
		}

		for _, log := range logs {
			if err := p.processLog(ctx, log, "backfill"); err != nil {
				return err
			}
		}

		p.logger.Info("batch complete", zap.Int("logs", len(logs)), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
	}

	return nil
}

func (p *Pipeline) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	var logs []types.Log
	err := withRetry(ctx, p.cfg.MaxRetries, p.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = p.chain.FilterLogs(ctx, fromBlock, toBlock, p.cfg.Address, p.cfg.Topic0)
		if err != nil {
			p.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
		}
		return err
	})
	return logs, err
}
