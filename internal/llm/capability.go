// Package llm narrows the teacher's fully generic ai/model
// Model[Request,Response]/StreamingModel split down to the one
// concrete capability the spec needs (§6): synchronous JSON-mode-aware
// text completion, plus a lazy, non-restartable token stream.
package llm

import (
	"context"
	"errors"
	"iter"
)

// ErrTransient marks a retryable failure: provider 5xx, rate limit,
// network timeout (spec §7 category 1).
var ErrTransient = errors.New("llm: transient failure")

// ErrPermanent marks a non-retryable failure: malformed request,
// authentication, content policy (spec §7 category 2).
var ErrPermanent = errors.New("llm: permanent failure")

// Request is one generation call.
type Request struct {
	Prompt   string
	System   string
	JSONMode bool
	// MaxTokens bounds the completion; zero means provider default.
	MaxTokens int
}

// Capability is the narrow LLM interface every pipeline stage consumes
// (spec §6). Concrete providers (OpenAI, Anthropic) are swapped in via
// configuration, per the source's "dynamic dispatch over a narrow
// interface" design note (§9).
type Capability interface {
	// Generate performs one synchronous completion.
	Generate(ctx context.Context, req Request) (string, error)

	// GenerateStream returns a finite, non-restartable sequence of
	// tokens. Callers must fully consume it or abandon it via ctx
	// cancellation (spec §9 generators/iterators note).
	GenerateStream(ctx context.Context, req Request) iter.Seq2[string, error]

	// CountTokens estimates the token cost of text under this
	// provider's tokenizer, used for token-budget accounting.
	CountTokens(text string) int
}
