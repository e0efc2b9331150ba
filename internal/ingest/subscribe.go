package ingest

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
)

const subscriptionBuffer = 128

// subscribe consumes the live log stream from fromBlock onward, one log at a
// time. It returns on subscription failure, persist failure, or context
// cancellation; there is no natural end-of-stream and no automatic
// reconnect.
func (p *Pipeline) subscribe(ctx context.Context, fromBlock uint64) error {
	logs := make(chan types.Log, subscriptionBuffer)
	sub, err := p.chain.SubscribeLogs(ctx, fromBlock, p.cfg.Address, p.cfg.Topic0, logs)
	if err != nil {
		return fmt.Errorf("subscribe logs: %w", err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return fmt.Errorf("subscription terminated: %w", err)
		case log := <-logs:
			if err := p.processLog(ctx, log, "live"); err != nil {
				return err
			}
		}
	}
}
