package accuracy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/discochess/accuracy/internal/engine"
	"github.com/discochess/accuracy/internal/stats"
)

// Result is the outcome of one game of a batch. Exactly one of Analysis
// and Err is set.
type Result struct {
	// Index is the game's position in the input slice.
	Index int
	Game  *Game

	Analysis   *Analysis
	Accuracies Accuracies

	Err error
}

// Batch analyzes independent games concurrently. Each worker owns one
// Analyzer and therefore one engine handle; games never share state.
type Batch struct {
	analyzers []*Analyzer
	minPlies  int
	stats     stats.Collector
	logger    *zap.Logger
}

// NewBatch opens workers engine handles from factory and builds one
// Analyzer per handle from opts. WithEvaluator is ignored.
func NewBatch(ctx context.Context, factory engine.Factory, workers int, opts ...Option) (*Batch, error) {
	if factory == nil {
		return nil, ErrNoEvaluator
	}
	if workers < 1 {
		return nil, fmt.Errorf("invalid worker count %d", workers)
	}

	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	b := &Batch{
		minPlies: cfg.minPlies,
		stats:    cfg.stats,
		logger:   cfg.logger,
	}

	for i := 0; i < workers; i++ {
		eval, err := factory(ctx)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("opening engine %d: %w", i, err), b.Close())
		}

		workerCfg := cfg
		workerCfg.evaluator = eval
		workerCfg.logger = cfg.logger.With(zap.Int("worker", i))
		a, err := newAnalyzer(workerCfg)
		if err != nil {
			return nil, errors.Join(err, eval.Close(), b.Close())
		}
		b.analyzers = append(b.analyzers, a)
	}

	b.stats.SetGauge(stats.MetricActiveWorkers, int64(len(b.analyzers)))
	return b, nil
}

// Workers returns the number of engine handles the batch owns.
func (b *Batch) Workers() int {
	return len(b.analyzers)
}

// Run analyzes games and returns one Result per game in input order.
// A failing game only affects its own Result. The returned error is
// non-nil only when ctx ended during the run; games not started by then
// carry the context error.
func (b *Batch) Run(ctx context.Context, games []*Game) ([]Result, error) {
	logger := b.logger.With(zap.String("run", uuid.NewString()))
	logger.Info("batch started",
		zap.Int("games", len(games)),
		zap.Int("workers", len(b.analyzers)),
	)

	results := make([]Result, len(games))
	done := make([]bool, len(games))

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)

	g.Go(func() error {
		defer close(jobs)
		for i := range games {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for _, a := range b.analyzers {
		g.Go(func() error {
			for i := range jobs {
				results[i] = b.runGame(gctx, a, i, games[i])
				done[i] = true
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	var failed int
	for i := range results {
		if !done[i] {
			cause := err
			if cause == nil {
				cause = context.Canceled
			}
			results[i] = Result{Index: i, Game: games[i], Err: newGameError(games[i], -1, cause)}
		}
		if results[i].Err != nil {
			failed++
		}
	}

	logger.Info("batch finished",
		zap.Int("games", len(games)),
		zap.Int("failed", failed),
	)

	return results, err
}

func (b *Batch) runGame(ctx context.Context, a *Analyzer, i int, g *Game) Result {
	res := Result{Index: i, Game: g}

	if g.Plies() < b.minPlies {
		res.Err = newGameError(g, -1, fmt.Errorf("%w: %d plies, need %d", ErrGameTooShort, g.Plies(), b.minPlies))
		b.stats.IncCounter(stats.MetricGamesFailed, 1)
		return res
	}

	analysis, err := a.Analyze(ctx, g)
	if err != nil {
		b.logger.Warn("game failed", zap.Int("index", i), zap.Error(err))
		res.Err = err
		return res
	}

	acc, err := analysis.GameAccuracy()
	if err != nil {
		res.Err = newGameError(g, -1, fmt.Errorf("aggregating: %w", err))
		return res
	}

	res.Analysis = analysis
	res.Accuracies = acc
	return res
}

// Close releases every analyzer and its engine.
func (b *Batch) Close() error {
	var errs []error
	for _, a := range b.analyzers {
		if err := a.Close(); err != nil && !errors.Is(err, ErrClosed) {
			errs = append(errs, err)
		}
	}
	b.stats.SetGauge(stats.MetricActiveWorkers, 0)
	return errors.Join(errs...)
}
