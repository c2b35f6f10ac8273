// Package cachedengine provides a caching wrapper for engine.Evaluator
// implementations.
package cachedengine

import (
	"context"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/notnil/chess"

	"github.com/discochess/accuracy/internal/engine"
	"github.com/discochess/accuracy/internal/stats"
)

// Compile-time check that Engine implements engine.Evaluator.
var _ engine.Evaluator = (*Engine)(nil)

// Engine wraps another Evaluator with an LRU cache of scores.
// Positions that differ only in their move counters share an entry;
// searches at different depths do not.
type Engine struct {
	underlying engine.Evaluator
	cache      *lru.Cache[string, engine.Score]
	collector  stats.Collector

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats contains cache statistics.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int // Current number of entries
}

// HitRate returns the cache hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// New creates a cached evaluator holding up to capacity scores.
// The collector is optional; if nil, a no-op collector is used.
func New(underlying engine.Evaluator, capacity int, collector stats.Collector) (*Engine, error) {
	c, err := lru.New[string, engine.Score](capacity)
	if err != nil {
		return nil, err
	}
	if collector == nil {
		collector = stats.NewNoop()
	}
	return &Engine{
		underlying: underlying,
		cache:      c,
		collector:  collector,
	}, nil
}

// Evaluate returns the cached score for pos, asking the underlying
// evaluator on a miss. Failed evaluations are not cached.
func (e *Engine) Evaluate(ctx context.Context, pos *chess.Position, depth int) (engine.Score, error) {
	key := engine.PositionKey(pos, depth)

	if score, ok := e.cache.Get(key); ok {
		e.hits.Add(1)
		e.collector.IncCounter(stats.MetricEvalCacheHits, 1)
		return score, nil
	}
	e.misses.Add(1)
	e.collector.IncCounter(stats.MetricEvalCacheMiss, 1)

	score, err := e.underlying.Evaluate(ctx, pos, depth)
	if err != nil {
		return engine.Score{}, err
	}

	e.cache.Add(key, score)
	e.collector.SetGauge(stats.MetricEvalCacheSize, int64(e.cache.Len()))
	return score, nil
}

// Close closes the underlying evaluator.
func (e *Engine) Close() error {
	return e.underlying.Close()
}

// Stats returns cache statistics.
func (e *Engine) Stats() Stats {
	return Stats{
		Hits:   e.hits.Load(),
		Misses: e.misses.Load(),
		Size:   e.cache.Len(),
	}
}

// Wrap returns a Factory whose handles are cached with the given capacity.
func Wrap(factory engine.Factory, capacity int, collector stats.Collector) engine.Factory {
	return func(ctx context.Context) (engine.Evaluator, error) {
		eval, err := factory(ctx)
		if err != nil {
			return nil, err
		}
		cached, err := New(eval, capacity, collector)
		if err != nil {
			_ = eval.Close()
			return nil, err
		}
		return cached, nil
	}
}
