package otp

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultPurgeInterval  = time.Hour
	defaultRetention      = 24 * time.Hour
	defaultPurgeBatchSize = 1000
	maxPurgeBatchesPerRun = 500
)

// Purger periodically deletes sessions that expired more than the retention
// period ago.
type Purger struct {
	repo      Repository
	interval  time.Duration
	retention time.Duration
	batchSize int
	logger    *slog.Logger
	now       func() time.Time
}

// NewPurger builds a Purger. Non-positive durations fall back to defaults.
func NewPurger(repo Repository, interval, retention time.Duration, logger *slog.Logger) *Purger {
	if repo == nil {
		return nil
	}
	if interval <= 0 {
		interval = defaultPurgeInterval
	}
	if retention <= 0 {
		retention = defaultRetention
	}
	return &Purger{
		repo:      repo,
		interval:  interval,
		retention: retention,
		batchSize: defaultPurgeBatchSize,
		logger:    logger,
		now:       time.Now,
	}
}

// Start launches the purge loop in a background goroutine. The loop stops
// when ctx is cancelled.
func (p *Purger) Start(ctx context.Context) {
	if p == nil {
		return
	}
	go p.run(ctx)
	if p.logger != nil {
		p.logger.Info("otp purger started", slog.Duration("interval", p.interval), slog.Duration("retention", p.retention))
	}
}

func (p *Purger) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.PurgeOnce(ctx)
		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

// PurgeOnce deletes expired sessions in batches and returns how many rows
// were removed.
func (p *Purger) PurgeOnce(ctx context.Context) int64 {
	cutoff := p.now().UTC().Add(-p.retention)

	var total int64
	for i := 0; i < maxPurgeBatchesPerRun; i++ {
		if ctx.Err() != nil {
			break
		}
		n, err := p.repo.PurgeExpired(ctx, cutoff, p.batchSize)
		if err != nil {
			if p.logger != nil {
				p.logger.Warn("otp purge batch failed", slog.Any("error", err))
			}
			break
		}
		total += n
		if n < int64(p.batchSize) {
			break
		}
	}

	if total > 0 && p.logger != nil {
		p.logger.Info("otp sessions purged", slog.Int64("deleted", total), slog.Time("cutoff", cutoff))
	}
	return total
}
