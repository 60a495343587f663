/*
scheduler.go - Automated ledger reconciliation

PURPOSE:
  Periodically recomputes every account's balance from its ledger and
  compares it with the stored balance. Drift should never happen; when it
  does, it is logged at error level with both figures.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on start
  - Takes each account's lock for the duration of its check only

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewReconciliationScheduler(svc, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: Reconcile endpoint (single account, on demand)
  - banking/reconcile.go: Reconciler
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/bank-engine/banking"
)

// ReconciliationRun summarizes one pass over all accounts.
type ReconciliationRun struct {
	StartedAt time.Time
	Checked   int
	Drifted   []banking.ReconciliationReport
	Failed    int
}

// ReconciliationScheduler handles automated ledger reconciliation.
type ReconciliationScheduler struct {
	Service       *banking.Service
	CheckInterval time.Duration
	Enabled       bool

	logger *zap.Logger
	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex

	lastRun *ReconciliationRun
}

// NewReconciliationScheduler creates a new scheduler.
func NewReconciliationScheduler(svc *banking.Service, logger *zap.Logger) *ReconciliationScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationScheduler{
		Service:       svc,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		logger:        logger.With(zap.String("component", "reconciliation")),
	}
}

// Start begins the scheduler.
func (rs *ReconciliationScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.logger.Info("Scheduler disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan bool)
	rs.wg.Add(1)

	go rs.run(rs.ticker, rs.stop)

	rs.logger.Info("Scheduler started", zap.Duration("check_interval", rs.CheckInterval))
}

// Stop stops the scheduler.
func (rs *ReconciliationScheduler) Stop() {
	rs.mu.Lock()
	ticker, stop := rs.ticker, rs.stop
	rs.ticker, rs.stop = nil, nil
	rs.mu.Unlock()

	// The running pass records its result under mu, so wait unlocked.
	if ticker != nil {
		ticker.Stop()
		close(stop)
		rs.wg.Wait()
		rs.logger.Info("Scheduler stopped")
	}
}

// LastRun returns the most recent completed pass, or nil.
func (rs *ReconciliationScheduler) LastRun() *ReconciliationRun {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.lastRun
}

func (rs *ReconciliationScheduler) run(ticker *time.Ticker, stop <-chan bool) {
	defer rs.wg.Done()

	// Run immediately on start
	rs.record(rs.RunOnce(context.Background()))

	for {
		select {
		case <-ticker.C:
			rs.record(rs.RunOnce(context.Background()))
		case <-stop:
			return
		}
	}
}

func (rs *ReconciliationScheduler) record(run ReconciliationRun) {
	rs.mu.Lock()
	rs.lastRun = &run
	rs.mu.Unlock()
}

// RunOnce reconciles every account and reports the outcome.
func (rs *ReconciliationScheduler) RunOnce(ctx context.Context) ReconciliationRun {
	run := ReconciliationRun{StartedAt: time.Now().UTC()}

	accounts, err := rs.Service.ListAccounts(ctx, "")
	if err != nil {
		rs.logger.Error("Failed to list accounts", zap.Error(err))
		return run
	}

	for _, acc := range accounts {
		report, err := rs.Service.Reconcile(ctx, acc.ID)
		if err != nil {
			run.Failed++
			rs.logger.Error("Failed to reconcile account",
				zap.Int64("account_id", int64(acc.ID)),
				zap.Error(err))
			continue
		}
		run.Checked++
		if !report.Consistent() {
			run.Drifted = append(run.Drifted, *report)
			rs.logger.Error("Ledger drift",
				zap.Int64("account_id", int64(acc.ID)),
				zap.String("balance", report.Balance.String()),
				zap.String("ledger_balance", report.LedgerBalance.String()))
		}
	}

	rs.logger.Info("Reconciliation pass complete",
		zap.Int("checked", run.Checked),
		zap.Int("drifted", len(run.Drifted)),
		zap.Int("failed", run.Failed))
	return run
}
