package jobs_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/jobs"
)

type fakeVerifier struct {
	calls  atomic.Int32
	drifts []domain.BalanceDrift
	err    error
}

func (f *fakeVerifier) VerifyIntegrity(context.Context) ([]domain.BalanceDrift, error) {
	f.calls.Add(1)
	return f.drifts, f.err
}

func TestIntegrityChecker_RunOnce(t *testing.T) {
	v := &fakeVerifier{drifts: []domain.BalanceDrift{{
		AccountID:     "acc-1",
		AccountName:   "Cash",
		CachedBalance: decimal.NewFromInt(100),
		LedgerBalance: decimal.NewFromInt(90),
		Difference:    decimal.NewFromInt(10),
	}}}
	c := jobs.NewIntegrityChecker(v, "0 0 2 * * *", zap.NewNop())

	drifts, err := c.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(drifts) != 1 {
		t.Fatalf("expected 1 drift, got %d", len(drifts))
	}
	last, at := c.LastResult()
	if len(last) != 1 || at.IsZero() {
		t.Errorf("last result not recorded: %v at %v", last, at)
	}
}

func TestIntegrityChecker_RunOnceError(t *testing.T) {
	v := &fakeVerifier{err: errors.New("db down")}
	c := jobs.NewIntegrityChecker(v, "0 0 2 * * *", zap.NewNop())

	if _, err := c.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if _, at := c.LastResult(); !at.IsZero() {
		t.Error("failed run must not update the last result")
	}
}

func TestIntegrityChecker_RunsOnSchedule(t *testing.T) {
	v := &fakeVerifier{}
	c := jobs.NewIntegrityChecker(v, "* * * * * *", zap.NewNop())
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Stop(context.Background())

	deadline := time.Now().Add(3 * time.Second)
	for v.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if v.calls.Load() == 0 {
		t.Error("integrity check never ran")
	}
}

func TestIntegrityChecker_BadSchedule(t *testing.T) {
	c := jobs.NewIntegrityChecker(&fakeVerifier{}, "every night", zap.NewNop())
	if err := c.Start(); err == nil {
		t.Fatal("expected schedule parse error")
	}
}
