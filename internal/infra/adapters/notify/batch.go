package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// BatchSender runs a send function over a set of IDs in fixed-size chunks
// with a pause between chunks, keeping bulk sends inside provider rate
// limits. Individual failures are logged and skipped.
type BatchSender struct {
	size  int
	pause time.Duration
	log   *zerolog.Logger
}

func NewBatchSender(size int, pause time.Duration, logger *zerolog.Logger) *BatchSender {
	if size <= 0 {
		size = 20
	}
	l := logger.With().Str("component", "BatchSender").Logger()
	return &BatchSender{size: size, pause: pause, log: &l}
}

// Run sends every id, returning how many succeeded. Stops early when ctx is
// cancelled.
func (b *BatchSender) Run(ctx context.Context, ids []string, send func(ctx context.Context, id string) error) int {
	sent := 0
	for i, id := range ids {
		if i > 0 && i%b.size == 0 {
			select {
			case <-ctx.Done():
				return sent
			case <-time.After(b.pause):
			}
		}
		if err := send(ctx, id); err != nil {
			b.log.Warn().Err(err).Str("id", id).Msg("batch item failed")
			continue
		}
		sent++
	}
	return sent
}
