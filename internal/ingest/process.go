package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"useropindexer/internal/entrypoint"
	"useropindexer/internal/model"
	"useropindexer/internal/storage"
)

// processLog decodes and persists one log. A decode failure drops the log
// permanently (reported, never retried); a persist failure is returned and
// is fatal to the calling phase.
func (p *Pipeline) processLog(ctx context.Context, log types.Log, phase string) error {
	event, err := entrypoint.DecodeUserOperationEvent(log)
	if err != nil {
		p.metrics.DecodeFailed()
		p.logger.Warn("drop undecodable log",
			zap.String("phase", phase),
			zap.Uint64("block_number", log.BlockNumber),
			zap.String("tx_hash", log.TxHash.Hex()),
			zap.Uint("log_index", log.Index),
			zap.Error(err),
		)
		p.reportFailure(log, err)
		return nil
	}
	p.metrics.EventDecoded()

	outcome, err := p.sink.Persist(ctx, event)
	if err != nil {
		p.metrics.PersistFailed()
		return fmt.Errorf("persist event %s: %w", event.Key(), err)
	}

	switch outcome {
	case storage.OutcomeDuplicate:
		p.metrics.DuplicateSkipped()
		p.logger.Debug("duplicate skipped",
			zap.String("phase", phase),
			zap.String("user_op_hash", event.UserOpHash.Hex()),
			zap.String("nonce", event.Nonce.String()),
		)
	default:
		p.metrics.EventInserted()
		p.logger.Info("event stored",
			zap.String("phase", phase),
			zap.String("user_op_hash", event.UserOpHash.Hex()),
			zap.String("sender", event.Sender.Hex()),
			zap.String("nonce", event.Nonce.String()),
			zap.Bool("success", event.Success),
			zap.Uint64("block_number", event.BlockNumber),
		)
	}

	p.metrics.SetLastBlock(event.BlockNumber)
	return nil
}

func (p *Pipeline) reportFailure(log types.Log, decodeErr error) {
	if p.failures == nil {
		return
	}

	topic0 := ""
	if len(log.Topics) > 0 {
		topic0 = log.Topics[0].Hex()
	}
	failure := model.DecodeFailure{
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash.Hex(),
		LogIndex:    uint64(log.Index),
		Address:     log.Address.Hex(),
		Topic0:      topic0,
		Data:        hexutil.Encode(log.Data),
		Error:       decodeErr.Error(),
		ObservedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}

	if err := p.failures.Append(failure); err != nil {
		p.logger.Warn("write decode failure record", zap.Error(err))
	}
}
