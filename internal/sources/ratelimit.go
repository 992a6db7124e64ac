package sources

import (
	"context"
	"sync"
	"time"
)

// pacedLimiter enforces "at most one request in flight, and a trailing
// delay after each" — source A's strict pacing (spec §4.3: "one
// request per 3.5 seconds enforced by a global semaphore with a
// trailing delay").
//
// Grounded on Tangerg-lynx/core/scheduler's acquire-before-work,
// release-after-work shape (itself built on pkg/sync.Limiter, which
// pkg/xsync.Limiter generalizes here); the trailing delay is plain
// stdlib time.Sleep since no rate-limiting library appears as a direct
// call site anywhere in the example pack (golang.org/x/time/rate is
// only an indirect, unused transitive dependency of one repo).
type pacedLimiter struct {
	mu    sync.Mutex
	delay time.Duration
	last  time.Time
}

func newPacedLimiter(delay time.Duration) *pacedLimiter {
	return &pacedLimiter{delay: delay}
}

// Wait blocks until it is this caller's turn, honoring both mutual
// exclusion and the trailing delay since the previous call returned.
func (p *pacedLimiter) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() {
		elapsed := time.Since(p.last)
		if remaining := p.delay - elapsed; remaining > 0 {
			timer := time.NewTimer(remaining)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	p.last = time.Now()
	return nil
}

// Do runs fn while holding the permit for fn's entire duration and
// stamps the trailing delay from fn's completion rather than from
// when the permit was acquired, so a slow in-flight call still blocks
// every other caller until fn returns (spec §5: "permit 1 plus a 3.5s
// trailing delay per completed call").
func (p *pacedLimiter) Do(ctx context.Context, fn func(context.Context) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() {
		elapsed := time.Since(p.last)
		if remaining := p.delay - elapsed; remaining > 0 {
			timer := time.NewTimer(remaining)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	err := fn(ctx)
	p.last = time.Now()
	return err
}

// budgetLimiter implements source B's polite-pool budget: either a
// steady 10 req/s, or — without a contact email — a hard 100
// requests/day ceiling (spec §4.3).
type budgetLimiter struct {
	mu          sync.Mutex
	perSecond   *pacedLimiter
	dailyMax    int
	dailyCount  int
	dailyWindow time.Time
}

// newBudgetLimiter builds the limiter for source B. If contactEmail is
// non-empty, the polite-pool rate (10 req/s) applies; otherwise the
// daily cap of 100 requests applies.
func newBudgetLimiter(contactEmail string) *budgetLimiter {
	b := &budgetLimiter{dailyMax: 100}
	if contactEmail != "" {
		b.perSecond = newPacedLimiter(100 * time.Millisecond) // 10 req/s
	}
	return b
}

var errDailyBudgetExhausted = &budgetExhaustedError{}

type budgetExhaustedError struct{}

func (e *budgetExhaustedError) Error() string {
	return "sources: daily request budget exhausted"
}

// Wait blocks for the polite-pool rate, or returns errDailyBudgetExhausted
// immediately once the daily cap is spent.
func (b *budgetLimiter) Wait(ctx context.Context) error {
	if b.perSecond != nil {
		return b.perSecond.Wait(ctx)
	}

	b.mu.Lock()
	now := time.Now()
	if b.dailyWindow.IsZero() || now.Sub(b.dailyWindow) >= 24*time.Hour {
		b.dailyWindow = now
		b.dailyCount = 0
	}
	if b.dailyCount >= b.dailyMax {
		b.mu.Unlock()
		return errDailyBudgetExhausted
	}
	b.dailyCount++
	b.mu.Unlock()
	return nil
}
