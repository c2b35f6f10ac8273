// Package fakeengine provides a scripted in-memory evaluator for testing.
package fakeengine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/notnil/chess"

	"github.com/discochess/accuracy/internal/engine"
)

// Compile-time check that Engine implements engine.Evaluator.
var _ engine.Evaluator = (*Engine)(nil)

// Engine answers evaluations from a script instead of searching.
// Lookups go by exact FEN first, then to the next scripted score, and
// finally to the fallback score (0 by default).
type Engine struct {
	mu       sync.Mutex
	byFEN    map[string]engine.Score
	script   []engine.Score
	fallback engine.Score
	failAt   int
	failErr  error
	block    bool
	calls    int
	depths   []int
	closed   bool
}

// New creates an engine that returns scores in the given order, one per
// evaluation.
func New(scores ...engine.Score) *Engine {
	return &Engine{
		byFEN:    make(map[string]engine.Score),
		script:   scores,
		fallback: engine.CP(0),
		failAt:   -1,
	}
}

// SetPosition fixes the score returned for a FEN (for test setup).
func (e *Engine) SetPosition(fen string, s engine.Score) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.byFEN[fen] = s
}

// SetFallback sets the score returned once the script is exhausted.
func (e *Engine) SetFallback(s engine.Score) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fallback = s
}

// FailAt makes the zero-based call-th evaluation return err.
func (e *Engine) FailAt(call int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failAt = call
	e.failErr = err
}

// Block makes every evaluation wait until its context is done.
func (e *Engine) Block() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.block = true
}

// Calls returns the number of evaluations requested so far.
func (e *Engine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Depths returns the depth of every evaluation requested so far.
func (e *Engine) Depths() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int(nil), e.depths...)
}

// Closed reports whether Close was called.
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Evaluate returns the scripted score for pos.
func (e *Engine) Evaluate(ctx context.Context, pos *chess.Position, depth int) (engine.Score, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return engine.Score{}, engine.ErrUnavailable
	}
	call := e.calls
	e.calls++
	e.depths = append(e.depths, depth)
	block := e.block
	fail := call == e.failAt
	failErr := e.failErr
	e.mu.Unlock()

	if fail {
		return engine.Score{}, failErr
	}

	if block {
		<-ctx.Done()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return engine.Score{}, fmt.Errorf("%w: %w", engine.ErrTimeout, ctx.Err())
		}
		return engine.Score{}, ctx.Err()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.byFEN[pos.String()]; ok {
		return s, nil
	}
	if len(e.script) > 0 {
		s := e.script[0]
		e.script = e.script[1:]
		return s, nil
	}
	return e.fallback, nil
}

// Close marks the engine closed. Later evaluations fail with
// engine.ErrUnavailable.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
