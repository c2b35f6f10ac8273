package accuracy

import (
	"time"

	"go.uber.org/zap"

	"github.com/discochess/accuracy/internal/engine"
	"github.com/discochess/accuracy/internal/stats"
)

// Option configures an Analyzer.
type Option interface {
	apply(*options)
}

// options holds the analyzer configuration.
type options struct {
	evaluator   engine.Evaluator
	depth       int
	snapshots   bool
	clocks      bool
	evalTimeout time.Duration
	minPlies    int
	renderer    Renderer
	stats       stats.Collector
	logger      *zap.Logger
}

// Defaults applied when an option is not given.
const (
	DefaultDepth    = 20
	DefaultMinPlies = 10
)

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		depth:     DefaultDepth,
		minPlies:  DefaultMinPlies,
		snapshots: true,
		clocks:    true,
		renderer:  SVGRenderer{},
		stats:     stats.NewNoop(),
		logger:    zap.NewNop(),
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithEvaluator sets the engine used to score positions.
// The analyzer takes ownership and closes it on Close.
func WithEvaluator(e engine.Evaluator) Option {
	return optionFunc(func(o *options) {
		o.evaluator = e
	})
}

// WithDepth sets the fixed search depth.
// Default is 20.
func WithDepth(depth int) Option {
	return optionFunc(func(o *options) {
		o.depth = depth
	})
}

// WithSnapshots enables or disables blunder diagrams.
// Blunders record their FEN either way. Enabled by default.
func WithSnapshots(enabled bool) Option {
	return optionFunc(func(o *options) {
		o.snapshots = enabled
	})
}

// WithClocks enables or disables per-move time tracking.
// When enabled, the TimeControl header must parse and games with clock
// readouts get a time spent per move. Enabled by default.
func WithClocks(enabled bool) Option {
	return optionFunc(func(o *options) {
		o.clocks = enabled
	})
}

// WithEvalTimeout bounds every single evaluation.
// Zero, the default, waits as long as the context allows.
func WithEvalTimeout(d time.Duration) Option {
	return optionFunc(func(o *options) {
		o.evalTimeout = d
	})
}

// WithMinPlies sets the shortest game a Batch analyzes. Shorter games
// fail with ErrGameTooShort without touching the engine. Default is 10.
// Analyzer.Analyze itself accepts games of any length.
func WithMinPlies(n int) Option {
	return optionFunc(func(o *options) {
		o.minPlies = n
	})
}

// WithRenderer sets the renderer used for blunder snapshots.
// If not set, SVGRenderer is used.
func WithRenderer(r Renderer) Option {
	return optionFunc(func(o *options) {
		o.renderer = r
	})
}

// WithStats sets the stats collector.
// If not set, a no-op collector is used.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		o.stats = c
	})
}

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}
