package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/effectivemobile/bank-cards/internal/core/domain"
	"github.com/effectivemobile/bank-cards/internal/pkg/metrics"
)

const (
	// DefaultCardStatsSchedule refreshes the gauges every minute.
	DefaultCardStatsSchedule = "@every 1m"
	statsQueryTimeout        = 10 * time.Second
)

// CardCounter is the slice of the card store the stats job reads.
type CardCounter interface {
	CountByStatus(ctx context.Context) (map[domain.CardStatus]int64, error)
}

// CardStats publishes the number of cards per status as Prometheus gauges.
type CardStats struct {
	cards CardCounter
	log   zerolog.Logger
}

func NewCardStats(cards CardCounter, log zerolog.Logger) *CardStats {
	return &CardStats{cards: cards, log: log}
}

// Refresh queries the store once and updates every status gauge. Statuses
// without cards are reported as zero.
func (j *CardStats) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, statsQueryTimeout)
	defer cancel()

	counts, err := j.cards.CountByStatus(ctx)
	if err != nil {
		return fmt.Errorf("refresh card stats: %w", err)
	}
	for _, st := range domain.CardStatuses {
		metrics.CardsByStatus.WithLabelValues(string(st)).Set(float64(counts[st]))
	}
	return nil
}

// Schedule registers the job on a new cron scheduler and starts it.
// Stop the returned scheduler on shutdown.
func (j *CardStats) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	if spec == "" {
		spec = DefaultCardStatsSchedule
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(spec, func() {
		if err := j.Refresh(ctx); err != nil {
			j.log.Warn().Err(err).Msg("card stats refresh failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule card stats %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
