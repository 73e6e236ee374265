// Package llmtest provides a scripted llm.Completer for tests.
package llmtest

import (
	"context"
	"sync"
)

// Fake answers every prompt with Reply (or Err) and records the prompts.
type Fake struct {
	Reply func(prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

// Returning builds a Fake that always answers text.
func Returning(text string) *Fake {
	return &Fake{Reply: func(string) (string, error) { return text, nil }}
}

// Failing builds a Fake that always fails with err.
func Failing(err error) *Fake {
	return &Fake{Reply: func(string) (string, error) { return "", err }}
}

func (f *Fake) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.Reply(prompt)
}

// Prompts returns every prompt received so far.
func (f *Fake) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.prompts))
	copy(out, f.prompts)
	return out
}

// Calls returns the number of completions requested.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}
