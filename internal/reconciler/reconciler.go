// Package reconciler periodically re-checks every pending custom domain so
// that domains become active without a caller polling for them.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmerrifield20/realtyhost/internal/domains/model"
	"github.com/jmerrifield20/realtyhost/internal/domains/service"
	cronv3 "github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
)

// Pass results reported to the metrics callback.
const (
	ResultActivated = "activated"
	ResultErrored   = "errored"
	ResultUpdated   = "updated"
	ResultUnchanged = "unchanged"
	ResultFailed    = "failed"
)

// Config holds reconciler configuration.
type Config struct {
	Schedule    string
	Concurrency int
	BatchSize   int
	// PassTimeout bounds a single reconciliation pass.
	PassTimeout time.Duration
	// PruneSchedule drives host cache eviction; empty disables it.
	PruneSchedule string
}

// PendingLister pages through domains awaiting activation.
type PendingLister interface {
	ListPendingDomains(ctx context.Context, after string, limit int) ([]model.PendingDomain, error)
}

// StatusChecker refreshes one tenant's domain status.
type StatusChecker interface {
	CheckStatus(ctx context.Context, tenantID string) (*service.StatusResult, error)
}

// CachePruner drops expired host lookup entries.
type CachePruner interface {
	PruneHostCache() int
}

// MetricsRecordFunc is an optional callback invoked once per checked domain.
type MetricsRecordFunc func(result string)

// PendingGaugeFunc is an optional callback reporting how many domains are
// still pending after a pass.
type PendingGaugeFunc func(n int)

// Summary counts the results of one pass.
type Summary struct {
	Checked   int
	Activated int
	Errored   int
	Updated   int
	Unchanged int
	Failed    int
}

// Pending is the number of checked domains that are still pending.
func (s Summary) Pending() int {
	return s.Checked - s.Activated - s.Errored
}

func (s *Summary) add(result string) {
	s.Checked++
	switch result {
	case ResultActivated:
		s.Activated++
	case ResultErrored:
		s.Errored++
	case ResultUpdated:
		s.Updated++
	case ResultUnchanged:
		s.Unchanged++
	case ResultFailed:
		s.Failed++
	}
}

// errNotConfigured aborts a pass when the DNS provider has no credentials.
var errNotConfigured = errors.New("dns provider not configured")

// Reconciler runs scheduled status checks over all pending domains.
type Reconciler struct {
	lister    PendingLister
	checker   StatusChecker
	pruner    CachePruner
	cfg       Config
	onMetrics MetricsRecordFunc
	onPending PendingGaugeFunc
	logger    *zap.Logger

	mu     sync.Mutex
	cron   *cronv3.Cron
	cancel context.CancelFunc
}

// New creates a Reconciler. pruner may be nil.
func New(lister PendingLister, checker StatusChecker, pruner CachePruner, cfg Config, logger *zap.Logger) *Reconciler {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 5m"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.PassTimeout <= 0 {
		cfg.PassTimeout = 4 * time.Minute
	}
	return &Reconciler{
		lister:  lister,
		checker: checker,
		pruner:  pruner,
		cfg:     cfg,
		logger:  logger,
	}
}

// SetMetricsRecord configures the per-domain metrics callback.
func (r *Reconciler) SetMetricsRecord(fn MetricsRecordFunc) {
	r.onMetrics = fn
}

// SetPendingGauge configures the pending-count callback.
func (r *Reconciler) SetPendingGauge(fn PendingGaugeFunc) {
	r.onPending = fn
}

// RunOnce checks every pending domain, one batch at a time, with at most
// Concurrency checks in flight. A failed check is logged and counted; it
// never stops the pass. Listing errors and missing DNS credentials do.
func (r *Reconciler) RunOnce(ctx context.Context) (Summary, error) {
	var (
		sum   Summary
		after string
	)
	start := time.Now()

	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		batch, err := r.lister.ListPendingDomains(ctx, after, r.cfg.BatchSize)
		if err != nil {
			return sum, fmt.Errorf("list pending domains: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		if err := r.checkBatch(ctx, batch, &sum); err != nil {
			return sum, err
		}

		if len(batch) < r.cfg.BatchSize {
			break
		}
		after = batch[len(batch)-1].TenantID
	}

	if r.onPending != nil {
		r.onPending(sum.Pending())
	}
	r.logger.Info("reconcile pass complete",
		zap.Int("checked", sum.Checked),
		zap.Int("activated", sum.Activated),
		zap.Int("errored", sum.Errored),
		zap.Int("failed", sum.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return sum, nil
}

func (r *Reconciler) checkBatch(ctx context.Context, batch []model.PendingDomain, sum *Summary) error {
	checkCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	sem := make(chan struct{}, r.cfg.Concurrency)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, p := range batch {
		wg.Add(1)
		go func(pd model.PendingDomain) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if checkCtx.Err() != nil {
				return
			}
			result, abort := r.checkOne(checkCtx, pd)
			if abort != nil {
				cancel(abort)
				return
			}

			if r.onMetrics != nil {
				r.onMetrics(result)
			}
			mu.Lock()
			sum.add(result)
			mu.Unlock()
		}(p)
	}
	wg.Wait()

	if cause := context.Cause(checkCtx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return ctx.Err()
}

func (r *Reconciler) checkOne(ctx context.Context, pd model.PendingDomain) (string, error) {
	res, err := r.checker.CheckStatus(ctx, pd.TenantID)
	if err != nil {
		if service.Code(err) == codes.FailedPrecondition {
			return "", errNotConfigured
		}
		r.logger.Warn("reconcile domain failed",
			zap.String("tenant_id", pd.TenantID),
			zap.String("domain", pd.Record.Domain),
			zap.Error(err),
		)
		return ResultFailed, nil
	}

	if !res.Changed {
		return ResultUnchanged, nil
	}
	switch res.Status {
	case model.DomainStatusActive:
		return ResultActivated, nil
	case model.DomainStatusError:
		return ResultErrored, nil
	}
	return ResultUpdated, nil
}

// Start schedules reconciliation passes, and host cache pruning when a
// pruner and PruneSchedule are set. Passes never overlap.
func (r *Reconciler) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return errors.New("reconciler already started")
	}

	l := cronLogger{r.logger.Sugar()}
	c := cronv3.New(
		cronv3.WithLogger(l),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(l),
			cronv3.Recover(l),
		),
	)

	baseCtx, cancel := context.WithCancel(context.Background())
	if _, err := c.AddFunc(r.cfg.Schedule, func() { r.runScheduled(baseCtx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule reconcile %q: %w", r.cfg.Schedule, err)
	}
	if r.pruner != nil && r.cfg.PruneSchedule != "" {
		if _, err := c.AddFunc(r.cfg.PruneSchedule, r.prune); err != nil {
			cancel()
			return fmt.Errorf("schedule cache prune %q: %w", r.cfg.PruneSchedule, err)
		}
	}

	c.Start()
	r.cron = c
	r.cancel = cancel
	r.logger.Info("reconciler started",
		zap.String("schedule", r.cfg.Schedule),
		zap.Int("concurrency", r.cfg.Concurrency),
	)
	return nil
}

// Stop cancels any running pass and waits for scheduled jobs to return.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	c, cancel := r.cron, r.cancel
	r.cron, r.cancel = nil, nil
	r.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	r.logger.Info("reconciler stopped")
}

func (r *Reconciler) runScheduled(base context.Context) {
	ctx, cancel := context.WithTimeout(base, r.cfg.PassTimeout)
	defer cancel()

	if _, err := r.RunOnce(ctx); err != nil {
		if errors.Is(err, errNotConfigured) {
			r.logger.Warn("reconcile pass skipped: DNS provider credentials are not configured")
			return
		}
		r.logger.Error("reconcile pass aborted", zap.Error(err))
	}
}

func (r *Reconciler) prune() {
	if n := r.pruner.PruneHostCache(); n > 0 {
		r.logger.Debug("host cache pruned", zap.Int("evicted", n))
	}
}

// cronLogger adapts zap to cron.Logger. cron's own Info output is per-tick
// noise and goes to Debug.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debugw("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
