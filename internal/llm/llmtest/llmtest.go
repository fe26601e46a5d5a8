// Package llmtest provides a scripted llm.Completer for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"essaygrader/internal/llm"
)

type reply struct {
	text string
	err  error
}

// Scripted returns queued replies in order and records every prompt it sees.
// Running out of replies is reported as an error.
type Scripted struct {
	mu      sync.Mutex
	replies []reply
	calls   []llm.Prompt
}

// New queues the given texts as successful replies.
func New(texts ...string) *Scripted {
	s := &Scripted{}
	for _, t := range texts {
		s.Reply(t)
	}
	return s
}

func (s *Scripted) Reply(text string) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, reply{text: text})
	return s
}

func (s *Scripted) Fail(err error) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, reply{err: err})
	return s
}

func (s *Scripted) Complete(ctx context.Context, p llm.Prompt) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, p)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(s.replies) == 0 {
		return "", fmt.Errorf("llmtest: unexpected call %d", len(s.calls))
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.text, r.err
}

// Calls returns a copy of the prompts received so far.
func (s *Scripted) Calls() []llm.Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Prompt(nil), s.calls...)
}
