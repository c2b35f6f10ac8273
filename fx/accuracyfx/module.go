// Package accuracyfx provides an fx module for a UCI-engine backed
// analysis batch and its snapshot sink.
package accuracyfx

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/accuracy"
	"github.com/discochess/accuracy/internal/codec"
	"github.com/discochess/accuracy/internal/engine"
	"github.com/discochess/accuracy/internal/engine/cachedengine"
	"github.com/discochess/accuracy/internal/engine/diskcache"
	"github.com/discochess/accuracy/internal/engine/uciengine"
	"github.com/discochess/accuracy/internal/snapshot"
	"github.com/discochess/accuracy/internal/snapshot/disksink"
	"github.com/discochess/accuracy/internal/snapshot/gcssink"
	"github.com/discochess/accuracy/internal/snapshot/s3sink"
	"github.com/discochess/accuracy/internal/stats"
	"github.com/discochess/accuracy/internal/stats/logger"
	promstats "github.com/discochess/accuracy/internal/stats/prometheus"
)

// Config holds configuration for the analysis batch.
type Config struct {
	// EnginePath is the UCI engine binary. Default is "stockfish".
	EnginePath string

	// EngineHashMB and EngineThreads are passed to the engine as UCI
	// options when positive.
	EngineHashMB  int
	EngineThreads int

	// Workers is the number of engine processes. Default is 1.
	Workers int

	// Depth is the fixed search depth. Default is accuracy.DefaultDepth.
	Depth int

	// EvalTimeout bounds every evaluation. Zero waits for the engine.
	EvalTimeout time.Duration

	// MinPlies skips shorter games. Default is accuracy.DefaultMinPlies.
	MinPlies int

	// Clocks enables per-move time tracking.
	Clocks bool

	// CacheSize is the number of scores each engine handle keeps in
	// memory. Zero disables the in-memory cache.
	CacheSize int

	// CacheDir, when set, persists scores across runs.
	CacheDir string

	// SnapshotFormat is "svg", "png" or "none". Default is "svg".
	SnapshotFormat string

	// SnapshotTarget is where diagrams are written: a directory,
	// "s3://bucket/prefix" or "gs://bucket/prefix". Default is ".".
	SnapshotTarget string

	// SnapshotCodec compresses stored diagrams: "none", "gzip" or "zstd".
	SnapshotCodec string

	// S3Region and S3Endpoint configure S3 targets.
	S3Region   string
	S3Endpoint string
}

func (c Config) withDefaults() Config {
	if c.EnginePath == "" {
		c.EnginePath = "stockfish"
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Depth <= 0 {
		c.Depth = accuracy.DefaultDepth
	}
	if c.MinPlies <= 0 {
		c.MinPlies = accuracy.DefaultMinPlies
	}
	if c.SnapshotFormat == "" {
		c.SnapshotFormat = "svg"
	}
	if c.SnapshotTarget == "" {
		c.SnapshotTarget = "."
	}
	return c
}

// Module provides an analysis batch over UCI engine processes.
// Requires a Config and a *zap.Logger to be provided. A
// prometheus.Registerer is used for metrics when provided.
var Module = fx.Module("accuracy",
	fx.Provide(
		newStatsCollector,
		newEngineFactory,
		NewBatch,
		newSink,
	),
)

// CollectorParams holds dependencies for the stats collector.
type CollectorParams struct {
	fx.In

	Logger   *zap.Logger
	Registry prometheus.Registerer `optional:"true"`
}

func newStatsCollector(p CollectorParams) stats.Collector {
	if p.Registry != nil {
		return promstats.New(p.Registry)
	}
	return logger.New(p.Logger.Named("accuracy.stats"))
}

// FactoryParams holds dependencies for the engine factory.
type FactoryParams struct {
	fx.In

	Config    Config
	Logger    *zap.Logger
	Collector stats.Collector
	Lifecycle fx.Lifecycle
}

func newEngineFactory(p FactoryParams) (engine.Factory, error) {
	cfg := p.Config.withDefaults()

	factory := uciengine.Factory(cfg.EnginePath,
		uciengine.WithHash(cfg.EngineHashMB),
		uciengine.WithThreads(cfg.EngineThreads),
		uciengine.WithLogger(p.Logger.Named("engine")),
	)

	if cfg.CacheDir != "" {
		store, err := diskcache.Open(cfg.CacheDir)
		if err != nil {
			return nil, err
		}
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return store.Close()
			},
		})
		factory = diskcache.Wrap(factory, store, p.Collector)
	}

	if cfg.CacheSize > 0 {
		factory = cachedengine.Wrap(factory, cfg.CacheSize, p.Collector)
	}
	return factory, nil
}

// BatchParams holds dependencies for creating the batch.
type BatchParams struct {
	fx.In

	Config    Config
	Factory   engine.Factory
	Logger    *zap.Logger
	Collector stats.Collector
	Lifecycle fx.Lifecycle
}

// BatchResult holds the provided batch.
type BatchResult struct {
	fx.Out

	Batch *accuracy.Batch
}

// NewBatch opens the configured number of engine handles. The handles
// are released when the application stops.
func NewBatch(p BatchParams) (BatchResult, error) {
	cfg := p.Config.withDefaults()

	opts := []accuracy.Option{
		accuracy.WithDepth(cfg.Depth),
		accuracy.WithMinPlies(cfg.MinPlies),
		accuracy.WithClocks(cfg.Clocks),
		accuracy.WithEvalTimeout(cfg.EvalTimeout),
		accuracy.WithStats(p.Collector),
		accuracy.WithLogger(p.Logger.Named("accuracy")),
	}
	if cfg.SnapshotFormat == "none" {
		opts = append(opts, accuracy.WithSnapshots(false))
	} else {
		renderer, err := accuracy.RendererFor(cfg.SnapshotFormat)
		if err != nil {
			return BatchResult{}, err
		}
		opts = append(opts, accuracy.WithRenderer(renderer))
	}

	batch, err := accuracy.NewBatch(context.Background(), p.Factory, cfg.Workers, opts...)
	if err != nil {
		return BatchResult{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return batch.Close()
		},
	})

	return BatchResult{Batch: batch}, nil
}

// SinkParams holds dependencies for the snapshot sink.
type SinkParams struct {
	fx.In

	Config    Config
	Lifecycle fx.Lifecycle
}

func newSink(p SinkParams) (snapshot.Sink, error) {
	cfg := p.Config.withDefaults()
	sink, err := OpenSink(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return sink.Close()
		},
	})
	return sink, nil
}

// OpenSink opens the snapshot sink named by cfg.SnapshotTarget.
func OpenSink(ctx context.Context, cfg Config) (snapshot.Sink, error) {
	cfg = cfg.withDefaults()

	c, err := codec.ByName(cfg.SnapshotCodec)
	if err != nil {
		return nil, err
	}
	target, err := snapshot.ParseTarget(cfg.SnapshotTarget)
	if err != nil {
		return nil, err
	}

	var sink snapshot.Sink
	switch target.Scheme {
	case snapshot.SchemeFile:
		sink, err = disksink.New(target.Dir, c)
	case snapshot.SchemeS3:
		opts := []s3sink.Option{s3sink.WithPrefix(target.Prefix)}
		if cfg.S3Region != "" {
			opts = append(opts, s3sink.WithRegion(cfg.S3Region))
		}
		if cfg.S3Endpoint != "" {
			opts = append(opts, s3sink.WithEndpoint(cfg.S3Endpoint))
		}
		sink, err = s3sink.New(ctx, target.Bucket, c, opts...)
	case snapshot.SchemeGCS:
		sink, err = gcssink.New(ctx, target.Bucket, c, gcssink.WithPrefix(target.Prefix))
	default:
		err = fmt.Errorf("unsupported snapshot target %q", cfg.SnapshotTarget)
	}
	if err != nil {
		return nil, err
	}
	return sink, nil
}
