package core

import (
	"fmt"
	"sync"
)

// TurnLimiter enforces a maximum number of model calls per agent execution.
type TurnLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewTurnLimiter creates a limiter allowing max turns. max must be at least 1.
func NewTurnLimiter(max int) (*TurnLimiter, error) {
	if max < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMaxTurns, max)
	}

	return &TurnLimiter{max: max}, nil
}

// Increment claims the next turn. It returns ErrMaxTurnsReached once the
// budget is used up; the counter is not advanced in that case.
func (tl *TurnLimiter) Increment() error {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	if tl.count >= tl.max {
		return fmt.Errorf("%w: %d", ErrMaxTurnsReached, tl.max)
	}
	tl.count++

	return nil
}

// Count returns the number of turns claimed so far.
func (tl *TurnLimiter) Count() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	return tl.count
}

// Remaining returns how many turns are left.
func (tl *TurnLimiter) Remaining() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	return tl.max - tl.count
}
