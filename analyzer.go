// Package accuracy scores chess games move by move against an engine and
// reduces the per-move scores to one accuracy figure per player.
//
// Example usage:
//
//	eng, err := uciengine.Open(ctx, "stockfish")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	analyzer, err := accuracy.New(
//	    accuracy.WithEvaluator(eng),
//	    accuracy.WithDepth(18),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer analyzer.Close()
//
//	analysis, err := analyzer.Analyze(ctx, game)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	acc, err := analysis.GameAccuracy()
//	fmt.Printf("White %.1f, Black %.1f\n", acc.White, acc.Black)
package accuracy

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/notnil/chess"
	"go.uber.org/zap"

	"github.com/discochess/accuracy/internal/engine"
	"github.com/discochess/accuracy/internal/fen"
	"github.com/discochess/accuracy/internal/stats"
)

// Analyzer evaluates games ply by ply with one engine handle.
// An Analyzer runs one game at a time; use a Batch to analyze games in
// parallel.
type Analyzer struct {
	evaluator   engine.Evaluator
	depth       int
	clocks      bool
	evalTimeout time.Duration
	grader      *Grader
	stats       stats.Collector
	logger      *zap.Logger
	closed      atomic.Bool
}

// New creates a new Analyzer with the given options.
// WithEvaluator is required.
func New(opts ...Option) (*Analyzer, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	return newAnalyzer(cfg)
}

func newAnalyzer(cfg options) (*Analyzer, error) {
	if cfg.evaluator == nil {
		return nil, ErrNoEvaluator
	}
	if cfg.depth < 1 {
		return nil, fmt.Errorf("invalid depth %d", cfg.depth)
	}

	var renderer Renderer
	if cfg.snapshots {
		renderer = cfg.renderer
	}

	a := &Analyzer{
		evaluator:   cfg.evaluator,
		depth:       cfg.depth,
		clocks:      cfg.clocks,
		evalTimeout: cfg.evalTimeout,
		grader:      NewGrader(renderer),
		stats:       cfg.stats,
		logger:      cfg.logger,
	}

	a.logger.Debug("analyzer initialized",
		zap.Int("depth", a.depth),
		zap.Bool("snapshots", renderer != nil),
		zap.Bool("clocks", a.clocks),
		zap.Duration("evalTimeout", a.evalTimeout),
	)

	return a, nil
}

// Analyze evaluates every move of g in order and returns one record per
// ply. Failures are reported as *GameError carrying g's headers.
//
// The evaluation after ply i is the starting point of ply i+1, so
// evaluations are strictly sequential.
func (a *Analyzer) Analyze(ctx context.Context, g *Game) (*Analysis, error) {
	if a.closed.Load() {
		return nil, ErrClosed
	}

	analysis, err := a.analyze(ctx, g)
	if err != nil {
		a.stats.IncCounter(stats.MetricGamesFailed, 1)
		return nil, err
	}

	a.stats.IncCounter(stats.MetricGames, 1)
	a.stats.IncCounter(stats.MetricPlies, int64(len(analysis.Moves)))
	return analysis, nil
}

func (a *Analyzer) analyze(ctx context.Context, g *Game) (*Analysis, error) {
	start := time.Now()

	// With clock tracking on, the header and the readouts are checked
	// before the engine is touched.
	var tc TimeControl
	if a.clocks {
		var err error
		tc, err = ParseTimeControl(g.Headers.TimeControl())
		if err != nil {
			return nil, newGameError(g, -1, err)
		}
		if len(g.Clocks) > 0 && len(g.Clocks) != len(g.Moves) {
			return nil, newGameError(g, -1, fmt.Errorf("%w: %d readouts for %d moves",
				ErrClockMismatch, len(g.Clocks), len(g.Moves)))
		}
	}
	clocks := a.clocks && len(g.Clocks) > 0

	pos := g.startPosition()
	score, err := a.evaluate(ctx, pos)
	if err != nil {
		return nil, newGameError(g, -1, fmt.Errorf("evaluating start position: %w", err))
	}

	cpBefore := score.Clamped()
	wpBefore := WinPercent(cpBefore)
	remaining := map[chess.Color]time.Duration{
		chess.White: tc.Total,
		chess.Black: tc.Total,
	}
	moveNumber := fullMoveNumber(pos)

	moves := make([]MoveEvaluation, 0, len(g.Moves))
	for i, move := range g.Moves {
		side := pos.Turn()
		san := chess.AlgebraicNotation{}.Encode(pos, move)
		after := pos.Update(move)

		score, err := a.evaluate(ctx, after)
		if err != nil {
			return nil, newGameError(g, i, fmt.Errorf("evaluating %s: %w", san, err))
		}
		cpAfter := score.Clamped()
		wpAfter := WinPercent(cpAfter)

		rec := MoveEvaluation{
			MoveNumber:      moveNumber,
			SAN:             san,
			Side:            side,
			WhiteEval:       float64(cpAfter) / 100,
			WhiteWinPercent: wpAfter,
		}

		var swing float64
		if side == chess.White {
			rec.Eval = float64(cpAfter) / 100
			rec.Delta = float64(cpAfter-cpBefore) / 100
			rec.WinPercent = wpAfter
			rec.WinPercentDelta = wpAfter - wpBefore
			swing = wpBefore - wpAfter
		} else {
			rec.Eval = float64(-cpAfter) / 100
			rec.Delta = float64(cpBefore-cpAfter) / 100
			rec.WinPercent = 100 - wpAfter
			rec.WinPercentDelta = wpBefore - wpAfter
			swing = wpAfter - wpBefore
		}
		rec.Accuracy = AccuracyFromSwing(swing)

		if clocks {
			left := g.Clocks[i]
			rec.Time = remaining[side] - left + tc.Increment
			remaining[side] = left
		}

		if err := a.grader.Grade(&rec, after, move); err != nil {
			return nil, newGameError(g, i, err)
		}

		a.stats.ObserveHistogram(stats.MetricMoveScore, rec.Accuracy)
		if rec.Blunder {
			a.stats.IncCounter(stats.MetricBlunders, 1)
			a.logger.Debug("blunder",
				zap.Int("ply", i),
				zap.String("san", san),
				zap.String("fen", rec.FEN),
				zap.Float64("accuracy", rec.Accuracy),
			)
		}

		moves = append(moves, rec)
		pos, cpBefore, wpBefore = after, cpAfter, wpAfter
		if side == chess.Black {
			moveNumber++
		}
	}

	a.logger.Debug("game analyzed",
		zap.String("white", g.Headers.White()),
		zap.String("black", g.Headers.Black()),
		zap.Int("plies", len(moves)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Analysis{Game: g, Moves: moves}, nil
}

// evaluate asks the engine for pos's score, bounded by the per-evaluation
// timeout when one is set.
func (a *Analyzer) evaluate(ctx context.Context, pos *chess.Position) (engine.Score, error) {
	if a.evalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.evalTimeout)
		defer cancel()
	}

	start := time.Now()
	score, err := a.evaluator.Evaluate(ctx, pos, a.depth)
	a.stats.ObserveHistogram(stats.MetricEvalSeconds, time.Since(start).Seconds())
	a.stats.IncCounter(stats.MetricEvaluations, 1)
	if err != nil {
		a.stats.IncCounter(stats.MetricEvalErrors, 1)
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrEvaluatorTimeout) {
			return engine.Score{}, fmt.Errorf("%w: %w", ErrEvaluatorTimeout, err)
		}
		return engine.Score{}, err
	}
	return score, nil
}

// Close releases the analyzer's engine.
// After Close, the analyzer should not be used.
func (a *Analyzer) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}

	if err := a.evaluator.Close(); err != nil {
		return fmt.Errorf("closing evaluator: %w", err)
	}

	return nil
}

// fullMoveNumber reads the fullmove counter of pos from its FEN.
func fullMoveNumber(pos *chess.Position) int {
	r, err := fen.Parse(pos.String())
	if err != nil {
		return 1
	}
	return r.FullMove
}
