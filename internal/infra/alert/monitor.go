package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"iptv-subscription-backend/internal/domain/ports/adapter"
	"iptv-subscription-backend/internal/usecase"
)

var _ usecase.FailureRecorder = (*Monitor)(nil)

// Monitor counts failures per category over a rolling window and fires one
// operator alert when a category crosses the threshold. After firing, the
// category is muted until its window rolls over, so a sustained outage
// produces one alert per window instead of one per failure.
type Monitor struct {
	sender    adapter.AlertSender
	threshold int
	window    time.Duration
	log       *zerolog.Logger

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	count   int
	start   time.Time
	alerted bool
}

func NewMonitor(sender adapter.AlertSender, threshold int, window time.Duration, logger *zerolog.Logger) *Monitor {
	if threshold <= 0 {
		threshold = 5
	}
	if window <= 0 {
		window = 10 * time.Minute
	}
	l := logger.With().Str("component", "AlertMonitor").Logger()
	return &Monitor{
		sender:    sender,
		threshold: threshold,
		window:    window,
		log:       &l,
		buckets:   make(map[string]*bucket),
	}
}

func (m *Monitor) Record(ctx context.Context, category string, err error) {
	now := time.Now()

	m.mu.Lock()
	b, ok := m.buckets[category]
	if !ok || now.Sub(b.start) > m.window {
		b = &bucket{start: now}
		m.buckets[category] = b
	}
	b.count++
	fire := b.count >= m.threshold && !b.alerted
	if fire {
		b.alerted = true
	}
	count := b.count
	m.mu.Unlock()

	m.log.Warn().Err(err).Str("category", category).Int("count", count).Msg("failure recorded")
	if !fire {
		return
	}

	text := fmt.Sprintf("⚠️ payment backend: %d %q failures within %s; last error: %v", count, category, m.window, err)
	if sendErr := m.sender.SendAlert(ctx, text); sendErr != nil {
		m.log.Error().Err(sendErr).Str("category", category).Msg("alert delivery failed")
	}
}
