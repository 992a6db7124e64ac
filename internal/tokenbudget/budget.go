// Package tokenbudget tracks per-session LLM token consumption against
// a configured ceiling (spec §4.13, §6, §7). Every stage that calls
// into internal/llm should route its estimated cost through a Counter
// before the call and its actual cost after, so the token_budget gate
// predicate (projected use across remaining phases > budget) can be
// evaluated without a live call.
//
// Grounded on Tangerg-lynx/ai/tokenizer.Tiktoken as the estimator this
// package wraps, and on core/scheduler's atomic-counter style for
// concurrent-safe bookkeeping shared across a worker pool.
package tokenbudget

import (
	"sync"

	"github.com/researchmesh/citeforge/internal/llm"
)

// Counter accumulates estimated and actual token spend for one session
// against a fixed budget. Safe for concurrent use by parallel stage
// workers.
type Counter struct {
	mu        sync.Mutex
	budget    int
	spent     int
	estimator llm.Capability
}

// NewCounter creates a Counter with the given total budget (spec §6
// "token_budget" configuration key) and an estimator used to size
// prompts before they are sent.
func NewCounter(budget int, estimator llm.Capability) *Counter {
	return &Counter{budget: budget, estimator: estimator}
}

// Estimate returns the token count the estimator assigns to text,
// without charging it.
func (c *Counter) Estimate(text string) int {
	return c.estimator.CountTokens(text)
}

// Remaining returns the unspent budget. Negative once overspent.
func (c *Counter) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.budget - c.spent
}

// Spent returns total tokens charged so far.
func (c *Counter) Spent() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spent
}

// WouldExceed reports whether charging an additional n tokens would
// exceed the budget, without mutating state. Callers use this before
// an LLM call to decide whether to defer the task to the next round
// (spec §7: "an extraction task that would exceed the remaining budget
// is deferred to the next round").
func (c *Counter) WouldExceed(n int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spent+n > c.budget
}

// Charge records n tokens of actual spend.
func (c *Counter) Charge(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spent += n
}

// ProjectedTotal estimates total spend across remaining phases by
// adding a caller-supplied forecast (phase-wise projection, spec
// §4.13) to tokens already spent.
func (c *Counter) ProjectedTotal(forecast int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spent + forecast
}

// ExceedsBudget reports whether a projected total exceeds the budget;
// this is the token_budget gate predicate of spec §4.13.
func (c *Counter) ExceedsBudget(projectedTotal int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return projectedTotal > c.budget
}
