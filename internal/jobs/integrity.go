// Package jobs runs background maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
)

// IntegrityVerifier compares cached account balances with their transaction logs.
type IntegrityVerifier interface {
	VerifyIntegrity(ctx context.Context) ([]domain.BalanceDrift, error)
}

// IntegrityChecker runs the ledger integrity check on a schedule.
// Schedules carry a seconds field: "0 0 2 * * *" is 02:00:00 every day.
type IntegrityChecker struct {
	verifier IntegrityVerifier
	schedule string
	timeout  time.Duration
	logger   *zap.Logger

	cron *cron.Cron

	mu      sync.Mutex
	lastRun time.Time
	drifts  []domain.BalanceDrift
}

func NewIntegrityChecker(verifier IntegrityVerifier, schedule string, logger *zap.Logger) *IntegrityChecker {
	return &IntegrityChecker{
		verifier: verifier,
		schedule: schedule,
		timeout:  time.Minute,
		logger:   logger,
		cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Start schedules the check and starts the scheduler goroutine.
func (c *IntegrityChecker) Start() error {
	_, err := c.cron.AddFunc(c.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		_, _ = c.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule integrity check %q: %w", c.schedule, err)
	}
	c.cron.Start()
	c.logger.Info("ledger integrity check scheduled", zap.String("schedule", c.schedule))
	return nil
}

// Stop stops the scheduler and waits for a running check to finish or ctx to end.
func (c *IntegrityChecker) Stop(ctx context.Context) {
	done := c.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	c.logger.Info("ledger integrity check stopped")
}

// RunOnce runs the check now and logs every drifting account.
func (c *IntegrityChecker) RunOnce(ctx context.Context) ([]domain.BalanceDrift, error) {
	start := time.Now()
	drifts, err := c.verifier.VerifyIntegrity(ctx)
	if err != nil {
		c.logger.Error("ledger integrity check failed", zap.Error(err))
		return nil, err
	}

	c.mu.Lock()
	c.lastRun = start
	c.drifts = drifts
	c.mu.Unlock()

	for _, d := range drifts {
		c.logger.Warn("account balance drift",
			zap.String("account_id", d.AccountID),
			zap.String("account_name", d.AccountName),
			zap.String("cached_balance", d.CachedBalance.StringFixed(2)),
			zap.String("ledger_balance", d.LedgerBalance.StringFixed(2)),
			zap.String("difference", d.Difference.StringFixed(2)),
		)
	}
	c.logger.Info("ledger integrity check finished",
		zap.Int("drifting_accounts", len(drifts)),
		zap.Duration("took", time.Since(start)),
	)
	return drifts, nil
}

// LastResult returns the drift found by the most recent successful run and when it
// started. The time is zero until the first run completes.
func (c *IntegrityChecker) LastResult() ([]domain.BalanceDrift, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.BalanceDrift(nil), c.drifts...), c.lastRun
}
