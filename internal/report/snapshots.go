package report

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/discochess/accuracy"
	"github.com/discochess/accuracy/internal/snapshot"
	"github.com/discochess/accuracy/internal/stats"
)

// Snapshots maps ply indexes to snapshot numbers.
type Snapshots map[int]int

// SnapshotWriter saves the rendered blunder diagrams of analyses to a
// sink. Numbering is carried by the caller so that it runs across games.
type SnapshotWriter struct {
	ext    string
	stats  stats.Collector
	logger *zap.Logger
}

// SnapshotOption configures a SnapshotWriter.
type SnapshotOption func(*SnapshotWriter)

// WithExtension sets the snapshot format extension. Default is "svg".
func WithExtension(ext string) SnapshotOption {
	return func(w *SnapshotWriter) {
		w.ext = ext
	}
}

// WithSnapshotStats sets the stats collector.
func WithSnapshotStats(c stats.Collector) SnapshotOption {
	return func(w *SnapshotWriter) {
		w.stats = c
	}
}

// WithSnapshotLogger sets the logger.
func WithSnapshotLogger(l *zap.Logger) SnapshotOption {
	return func(w *SnapshotWriter) {
		w.logger = l
	}
}

// NewSnapshotWriter returns a SnapshotWriter.
func NewSnapshotWriter(opts ...SnapshotOption) *SnapshotWriter {
	w := &SnapshotWriter{
		ext:    "svg",
		stats:  stats.NewNoop(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write stores every snapshot of a under consecutive numbers following
// last and returns the saved numbers together with the last number used.
func (w *SnapshotWriter) Write(ctx context.Context, sink snapshot.Sink, a *accuracy.Analysis, last int) (Snapshots, int, error) {
	saved := make(Snapshots)
	for i, m := range a.Moves {
		if len(m.Snapshot) == 0 {
			continue
		}
		n := last + 1
		name := snapshot.NameExt(n, w.ext)
		if err := sink.Put(ctx, name, m.Snapshot); err != nil {
			return saved, last, fmt.Errorf("saving %s: %w", name, err)
		}
		last = n
		saved[i] = n
		w.stats.IncCounter(stats.MetricSnapshotsSaved, 1)
		w.logger.Debug("snapshot saved", zap.String("name", name), zap.Int("ply", i))
	}
	return saved, last, nil
}
