package ingest

import (
	"context"
	"sync"
)

// undoStep reverses one completed step.
type undoStep struct {
	name string
	fn   func(ctx context.Context) error
}

// saga collects undo actions from concurrent steps and replays them newest
// first.
type saga struct {
	mu    sync.Mutex
	steps []undoStep
}

func (s *saga) push(name string, fn func(ctx context.Context) error) {
	s.mu.Lock()
	s.steps = append(s.steps, undoStep{name: name, fn: fn})
	s.mu.Unlock()
}

func (s *saga) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}

// rollback runs every undo action in reverse order. Failures are handed to
// report and never stop the remaining actions.
func (s *saga) rollback(ctx context.Context, report func(name string, err error)) {
	s.mu.Lock()
	steps := s.steps
	s.steps = nil
	s.mu.Unlock()

	for i := len(steps) - 1; i >= 0; i-- {
		report(steps[i].name, steps[i].fn(ctx))
	}
}
