package llm

import "context"

// Fake is a scriptable Capability used by tests throughout the
// pipeline packages, in place of a live provider. Each call to
// Generate pops the next (response, error) pair from Responses; once
// exhausted it repeats the last pair.
type Fake struct {
	Responses []FakeResponse
	Calls     []Request
	calls     int
}

// FakeResponse is one scripted Generate outcome.
type FakeResponse struct {
	Text string
	Err  error
}

func NewFake(responses ...FakeResponse) *Fake {
	return &Fake{Responses: responses}
}

func (f *Fake) Generate(_ context.Context, req Request) (string, error) {
	f.Calls = append(f.Calls, req)
	if len(f.Responses) == 0 {
		return "", nil
	}
	idx := f.calls
	if idx >= len(f.Responses) {
		idx = len(f.Responses) - 1
	}
	f.calls++
	r := f.Responses[idx]
	return r.Text, r.Err
}

func (f *Fake) GenerateStream(ctx context.Context, req Request) func(func(string, error) bool) {
	return func(yield func(string, error) bool) {
		text, err := f.Generate(ctx, req)
		if err != nil {
			yield("", err)
			return
		}
		yield(text, nil)
	}
}

func (f *Fake) CountTokens(text string) int {
	return (len(text) + 3) / 4
}
