// Package memoryaccuracyfx provides an fx module for an analysis batch
// backed by scripted engines and an in-memory snapshot sink.
// Useful for testing.
package memoryaccuracyfx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/accuracy/fx/accuracyfx"
	"github.com/discochess/accuracy/internal/engine"
	"github.com/discochess/accuracy/internal/engine/fakeengine"
	"github.com/discochess/accuracy/internal/snapshot"
	"github.com/discochess/accuracy/internal/snapshot/memsink"
	"github.com/discochess/accuracy/internal/stats"
	"github.com/discochess/accuracy/internal/stats/logger"
)

// Module provides an analysis batch for testing.
// Requires an accuracyfx.Config and a *zap.Logger to be provided.
// Every engine handle scores positions with Scorer when one is provided,
// and with 0.00 otherwise.
var Module = fx.Module("memoryaccuracy",
	fx.Provide(
		newStatsCollector,
		newEngineFactory,
		newSink,
		accuracyfx.NewBatch,
	),
)

// Scorer sets up each fake engine handle.
type Scorer func(e *fakeengine.Engine)

func newStatsCollector(log *zap.Logger) stats.Collector {
	return logger.New(log.Named("accuracy.stats"))
}

// FactoryParams holds dependencies for the engine factory.
type FactoryParams struct {
	fx.In

	Scorer Scorer `optional:"true"`
}

// FactoryResult holds the provided factory and the handles it opened.
type FactoryResult struct {
	fx.Out

	Factory engine.Factory
	Engines *Engines
}

// Engines records the fake handles opened by the factory.
type Engines struct {
	Opened []*fakeengine.Engine
}

func newEngineFactory(p FactoryParams) FactoryResult {
	engines := &Engines{}
	factory := func(ctx context.Context) (engine.Evaluator, error) {
		e := fakeengine.New()
		if p.Scorer != nil {
			p.Scorer(e)
		}
		engines.Opened = append(engines.Opened, e)
		return e, nil
	}
	return FactoryResult{Factory: factory, Engines: engines}
}

// SinkResult holds the provided sink.
type SinkResult struct {
	fx.Out

	Sink    snapshot.Sink
	MemSink *memsink.Sink // Exposed for test assertions
}

func newSink() SinkResult {
	s := memsink.New()
	return SinkResult{Sink: s, MemSink: s}
}
