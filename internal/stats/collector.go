// Package stats provides a unified interface for collecting metrics.
package stats

// Metric names used throughout the library.
const (
	// Analyzer metrics.
	MetricGames       = "accuracy_games_total"
	MetricGamesFailed = "accuracy_games_failed_total"
	MetricPlies       = "accuracy_plies_total"
	MetricBlunders    = "accuracy_blunders_total"
	MetricMoveScore   = "accuracy_move_accuracy"

	// Evaluator metrics.
	MetricEvaluations    = "accuracy_evaluations_total"
	MetricEvalErrors     = "accuracy_evaluation_errors_total"
	MetricEvalSeconds    = "accuracy_evaluation_seconds"
	MetricEvalCacheHits  = "accuracy_eval_cache_hits_total"
	MetricEvalCacheMiss  = "accuracy_eval_cache_misses_total"
	MetricEvalCacheSize  = "accuracy_eval_cache_size"
	MetricActiveWorkers  = "accuracy_batch_workers"
	MetricSnapshotsSaved = "accuracy_snapshots_saved_total"
)

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}
