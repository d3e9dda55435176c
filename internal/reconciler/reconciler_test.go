package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmerrifield20/realtyhost/internal/domains/model"
	"github.com/jmerrifield20/realtyhost/internal/domains/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
)

type fakeLister struct {
	mu      sync.Mutex
	pending []model.PendingDomain
	calls   []string
	err     error
}

func newLister(n int) *fakeLister {
	l := &fakeLister{}
	for i := range n {
		id := fmt.Sprintf("tenant-%03d", i)
		l.pending = append(l.pending, model.PendingDomain{
			TenantID: id,
			Record: model.DomainRecord{
				Domain:             id + ".example.com",
				Status:             model.DomainStatusPending,
				ProviderHostnameID: "H-" + id,
			},
		})
	}
	return l
}

func (l *fakeLister) ListPendingDomains(_ context.Context, after string, limit int) ([]model.PendingDomain, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, after)
	if l.err != nil {
		return nil, l.err
	}
	var out []model.PendingDomain
	for _, p := range l.pending {
		if p.TenantID > after {
			out = append(out, p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeChecker struct {
	mu       sync.Mutex
	results  map[string]*service.StatusResult
	errs     map[string]error
	checked  []string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
}

func newChecker() *fakeChecker {
	return &fakeChecker{results: map[string]*service.StatusResult{}, errs: map[string]error{}}
}

func (c *fakeChecker) CheckStatus(_ context.Context, tenantID string) (*service.StatusResult, error) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		m := c.maxSeen.Load()
		if n <= m || c.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.checked = append(c.checked, tenantID)
	if err := c.errs[tenantID]; err != nil {
		return nil, err
	}
	if res, ok := c.results[tenantID]; ok {
		return res, nil
	}
	return &service.StatusResult{Status: model.DomainStatusPending}, nil
}

func (c *fakeChecker) checkedIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]string(nil), c.checked...)
	sort.Strings(out)
	return out
}

func TestRunOnce_PagesThroughAllPending(t *testing.T) {
	lister := newLister(7)
	checker := newChecker()
	r := New(lister, checker, nil, Config{BatchSize: 3}, zap.NewNop())

	sum, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, sum.Checked)
	assert.Equal(t, 7, sum.Unchanged)
	assert.Len(t, checker.checkedIDs(), 7)
	assert.Equal(t, []string{"", "tenant-002", "tenant-005"}, lister.calls)
}

func TestRunOnce_ClassifiesResults(t *testing.T) {
	lister := newLister(5)
	checker := newChecker()
	checker.results["tenant-000"] = &service.StatusResult{Status: model.DomainStatusActive, Changed: true}
	checker.results["tenant-001"] = &service.StatusResult{Status: model.DomainStatusError, Changed: true}
	checker.results["tenant-002"] = &service.StatusResult{Status: model.DomainStatusPending, Changed: true}
	checker.errs["tenant-003"] = &service.Error{Code: codes.Internal, Msg: "provider down", Upstream: true}

	var (
		mu      sync.Mutex
		results = map[string]int{}
		gauge   = -1
	)
	r := New(lister, checker, nil, Config{}, zap.NewNop())
	r.SetMetricsRecord(func(result string) {
		mu.Lock()
		results[result]++
		mu.Unlock()
	})
	r.SetPendingGauge(func(n int) { gauge = n })

	sum, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Checked: 5, Activated: 1, Errored: 1, Updated: 1, Unchanged: 1, Failed: 1}, sum)
	assert.Equal(t, map[string]int{
		ResultActivated: 1,
		ResultErrored:   1,
		ResultUpdated:   1,
		ResultUnchanged: 1,
		ResultFailed:    1,
	}, results)
	assert.Equal(t, 3, gauge)
}

func TestRunOnce_FailureDoesNotAbortPass(t *testing.T) {
	lister := newLister(4)
	checker := newChecker()
	checker.errs["tenant-000"] = errors.New("boom")
	checker.errs["tenant-002"] = errors.New("boom")

	sum, err := New(lister, checker, nil, Config{}, zap.NewNop()).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Failed)
	assert.Len(t, checker.checkedIDs(), 4)
}

func TestRunOnce_BoundedConcurrency(t *testing.T) {
	lister := newLister(20)
	checker := newChecker()
	checker.delay = 5 * time.Millisecond

	_, err := New(lister, checker, nil, Config{Concurrency: 3}, zap.NewNop()).RunOnce(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, checker.maxSeen.Load(), int32(3))
	assert.Len(t, checker.checkedIDs(), 20)
}

func TestRunOnce_ListErrorAborts(t *testing.T) {
	lister := newLister(0)
	lister.err = errors.New("db down")
	gaugeSet := false

	r := New(lister, newChecker(), nil, Config{}, zap.NewNop())
	r.SetPendingGauge(func(int) { gaugeSet = true })

	_, err := r.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.False(t, gaugeSet)
}

func TestRunOnce_UnconfiguredProviderAbortsPass(t *testing.T) {
	lister := newLister(3)
	checker := newChecker()
	for _, p := range lister.pending {
		checker.errs[p.TenantID] = &service.Error{Code: codes.FailedPrecondition, Msg: "DNS provider credentials are not configured"}
	}

	sum, err := New(lister, checker, nil, Config{Concurrency: 1}, zap.NewNop()).RunOnce(context.Background())
	require.ErrorIs(t, err, errNotConfigured)
	assert.Zero(t, sum.Checked)
}

func TestRunOnce_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checker := newChecker()

	_, err := New(newLister(3), checker, nil, Config{}, zap.NewNop()).RunOnce(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, checker.checkedIDs())
}

type countingPruner struct{ n atomic.Int32 }

func (p *countingPruner) PruneHostCache() int {
	p.n.Add(1)
	return 0
}

func TestStartStop(t *testing.T) {
	r := New(newLister(0), newChecker(), &countingPruner{}, Config{Schedule: "@every 1h", PruneSchedule: "@every 1h"}, zap.NewNop())
	require.NoError(t, r.Start())
	require.Error(t, r.Start())
	r.Stop()
	r.Stop()
}

func TestStart_InvalidSchedule(t *testing.T) {
	r := New(newLister(0), newChecker(), nil, Config{Schedule: "not a schedule"}, zap.NewNop())
	require.Error(t, r.Start())
}

func TestStart_RunsScheduledPass(t *testing.T) {
	lister := newLister(2)
	checker := newChecker()
	pruner := &countingPruner{}
	r := New(lister, checker, pruner, Config{Schedule: "@every 1s", PruneSchedule: "@every 1s"}, zap.NewNop())
	require.NoError(t, r.Start())
	defer r.Stop()

	require.Eventually(t, func() bool {
		return len(checker.checkedIDs()) >= 2 && pruner.n.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)
}
