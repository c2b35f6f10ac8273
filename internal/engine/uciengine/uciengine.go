// Package uciengine evaluates positions with an external UCI engine such
// as Stockfish.
package uciengine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/notnil/chess"
	"github.com/notnil/chess/uci"
	"go.uber.org/zap"

	"github.com/discochess/accuracy/internal/engine"
)

// Compile-time check that Engine implements engine.Evaluator.
var _ engine.Evaluator = (*Engine)(nil)

// Engine is one running engine process. It serves one evaluation at a
// time and is not safe for concurrent use.
type Engine struct {
	eng    *uci.Engine
	logger *zap.Logger

	// broken is set once the process stopped answering; every later
	// evaluation fails with engine.ErrUnavailable.
	broken atomic.Bool
	closed atomic.Bool
}

// Option configures an Engine.
type Option func(*config)

type config struct {
	hashMB  int
	threads int
	logger  *zap.Logger
}

// WithHash sets the engine's transposition table size in megabytes.
func WithHash(mb int) Option {
	return func(c *config) {
		c.hashMB = mb
	}
}

// WithThreads sets the number of search threads of the engine.
func WithThreads(n int) Option {
	return func(c *config) {
		c.threads = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// Open starts the engine binary at path and completes the UCI handshake.
func Open(ctx context.Context, path string, opts ...Option) (*Engine, error) {
	cfg := config{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	eng, err := uci.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: starting %s: %w", engine.ErrUnavailable, path, err)
	}

	cmds := []uci.Cmd{uci.CmdUCI}
	if cfg.hashMB > 0 {
		cmds = append(cmds, uci.CmdSetOption{Name: "Hash", Value: strconv.Itoa(cfg.hashMB)})
	}
	if cfg.threads > 0 {
		cmds = append(cmds, uci.CmdSetOption{Name: "Threads", Value: strconv.Itoa(cfg.threads)})
	}
	cmds = append(cmds, uci.CmdIsReady, uci.CmdUCINewGame)

	done := make(chan error, 1)
	go func() { done <- eng.Run(cmds...) }()

	select {
	case err := <-done:
		if err != nil {
			_ = eng.Close()
			return nil, fmt.Errorf("%w: handshake: %w", engine.ErrUnavailable, err)
		}
	case <-ctx.Done():
		go eng.Close()
		return nil, fmt.Errorf("%w: handshake: %w", engine.ErrUnavailable, ctx.Err())
	}

	e := &Engine{eng: eng, logger: cfg.logger}
	e.logger.Debug("engine started",
		zap.String("path", path),
		zap.String("name", eng.ID()["name"]),
	)
	return e, nil
}

// Factory returns an engine.Factory that opens a new process per handle.
func Factory(path string, opts ...Option) engine.Factory {
	return func(ctx context.Context) (engine.Evaluator, error) {
		return Open(ctx, path, opts...)
	}
}

type searchResult struct {
	results uci.SearchResults
	err     error
}

// Evaluate searches pos to depth and returns its score from White's
// perspective. Finished positions are scored without asking the engine.
//
// When ctx ends first the process is told to quit and the handle is
// marked broken.
func (e *Engine) Evaluate(ctx context.Context, pos *chess.Position, depth int) (engine.Score, error) {
	switch pos.Status() {
	case chess.Checkmate:
		return engine.Mated(pos.Turn()), nil
	case chess.Stalemate:
		return engine.CP(0), nil
	}

	if e.closed.Load() || e.broken.Load() {
		return engine.Score{}, engine.ErrUnavailable
	}

	done := make(chan searchResult, 1)
	go func() {
		err := e.eng.Run(uci.CmdPosition{Position: pos}, uci.CmdGo{Depth: depth})
		done <- searchResult{results: e.eng.SearchResults(), err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			e.broken.Store(true)
			return engine.Score{}, fmt.Errorf("%w: %w", engine.ErrUnavailable, r.err)
		}
		return whiteScore(r.results.Info.Score, pos.Turn()), nil
	case <-ctx.Done():
		e.abandon()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return engine.Score{}, fmt.Errorf("%w: %w", engine.ErrTimeout, ctx.Err())
		}
		return engine.Score{}, ctx.Err()
	}
}

// abandon gives up on a search that is still running.
func (e *Engine) abandon() {
	if !e.broken.CompareAndSwap(false, true) {
		return
	}
	e.logger.Warn("engine abandoned mid-search")
	go func() {
		if e.closed.CompareAndSwap(false, true) {
			_ = e.eng.Close()
		}
	}()
}

// whiteScore converts a side-to-move relative UCI score to White's
// perspective.
func whiteScore(s uci.Score, turn chess.Color) engine.Score {
	var score engine.Score
	if s.Mate != 0 {
		score = engine.MateIn(s.Mate)
	} else {
		score = engine.CP(s.CP)
	}
	if turn == chess.Black {
		return score.Negate()
	}
	return score
}

// Close stops the engine process.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := e.eng.Close(); err != nil {
		return fmt.Errorf("closing engine: %w", err)
	}
	return nil
}
