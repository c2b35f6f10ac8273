// Package diskcache persists engine scores in a Badger database so that
// repeated runs over the same games skip the engine.
package diskcache

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/notnil/chess"

	"github.com/discochess/accuracy/internal/engine"
	"github.com/discochess/accuracy/internal/stats"
)

// Store is a persistent score table shared by every evaluator of a run.
// It is safe for concurrent use.
type Store struct {
	db *badger.DB
}

// Open opens or creates the store in dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	return open(opts)
}

// OpenInMemory returns a store that lives only as long as the process.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts)
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening score cache: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the score stored under key.
func (s *Store) Get(key string) (engine.Score, bool, error) {
	var score engine.Score
	found := true

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return score.UnmarshalText(val)
		})
	})
	if err != nil {
		return engine.Score{}, false, fmt.Errorf("reading score cache: %w", err)
	}
	return score, found, nil
}

// Put stores score under key.
func (s *Store) Put(key string, score engine.Score) error {
	val, err := score.MarshalText()
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), val)
	})
	if err != nil {
		return fmt.Errorf("writing score cache: %w", err)
	}
	return nil
}

// Len returns the number of stored scores.
func (s *Store) Len() (int, error) {
	var n int
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that Engine implements engine.Evaluator.
var _ engine.Evaluator = (*Engine)(nil)

// Engine answers from the store and falls back to the underlying
// evaluator, recording its scores. Cache read and write failures are
// not fatal; the engine's answer is returned either way.
type Engine struct {
	underlying engine.Evaluator
	store      *Store
	collector  stats.Collector
}

// New wraps underlying with store. The collector is optional.
func New(underlying engine.Evaluator, store *Store, collector stats.Collector) *Engine {
	if collector == nil {
		collector = stats.NewNoop()
	}
	return &Engine{underlying: underlying, store: store, collector: collector}
}

// Evaluate implements engine.Evaluator.
func (e *Engine) Evaluate(ctx context.Context, pos *chess.Position, depth int) (engine.Score, error) {
	key := engine.PositionKey(pos, depth)

	if score, ok, err := e.store.Get(key); err == nil && ok {
		e.collector.IncCounter(stats.MetricEvalCacheHits, 1)
		return score, nil
	}
	e.collector.IncCounter(stats.MetricEvalCacheMiss, 1)

	score, err := e.underlying.Evaluate(ctx, pos, depth)
	if err != nil {
		return engine.Score{}, err
	}
	_ = e.store.Put(key, score)
	return score, nil
}

// Close closes the underlying evaluator. The store stays open.
func (e *Engine) Close() error {
	return e.underlying.Close()
}

// Wrap returns a Factory whose handles share store.
func Wrap(factory engine.Factory, store *Store, collector stats.Collector) engine.Factory {
	return func(ctx context.Context) (engine.Evaluator, error) {
		eval, err := factory(ctx)
		if err != nil {
			return nil, err
		}
		return New(eval, store, collector), nil
	}
}
