package accuracyfx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/accuracy"
	"github.com/discochess/accuracy/internal/stats"
	"github.com/discochess/accuracy/internal/stats/logger"
	promstats "github.com/discochess/accuracy/internal/stats/prometheus"
)

func TestConfig_withDefaults(t *testing.T) {
	got := Config{}.withDefaults()
	if got.EnginePath != "stockfish" || got.Workers != 1 || got.Depth != accuracy.DefaultDepth ||
		got.MinPlies != accuracy.DefaultMinPlies || got.SnapshotFormat != "svg" || got.SnapshotTarget != "." {
		t.Errorf("withDefaults() = %+v", got)
	}

	kept := Config{Workers: 3, Depth: 12}.withDefaults()
	if kept.Workers != 3 || kept.Depth != 12 {
		t.Errorf("withDefaults() overrode set values: %+v", kept)
	}
}

func TestOpenSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snaps")

	sink, err := OpenSink(context.Background(), Config{SnapshotTarget: dir, SnapshotCodec: "gzip"})
	if err != nil {
		t.Fatalf("OpenSink() error = %v", err)
	}
	defer sink.Close()

	if err := sink.Put(context.Background(), "svg_1.svg", []byte("<svg/>")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "svg_1.svg.gz")); err != nil {
		t.Errorf("snapshot file missing: %v", err)
	}
}

func TestOpenSink_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "unknown codec", cfg: Config{SnapshotCodec: "lz4"}},
		{name: "unknown scheme", cfg: Config{SnapshotTarget: "ftp://host/dir"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := OpenSink(context.Background(), tt.cfg); err == nil {
				t.Error("OpenSink() error = nil, want error")
			}
		})
	}
}

func TestNewStatsCollector(t *testing.T) {
	if _, ok := newStatsCollector(CollectorParams{Logger: zap.NewNop()}).(*logger.Collector); !ok {
		t.Error("newStatsCollector() without registry is not the logger collector")
	}

	var c stats.Collector = newStatsCollector(CollectorParams{Logger: zap.NewNop(), Registry: prometheus.NewRegistry()})
	if _, ok := c.(*promstats.Collector); !ok {
		t.Error("newStatsCollector() with registry is not the prometheus collector")
	}
}

func TestModule_MissingEngine(t *testing.T) {
	app := fx.New(
		fx.NopLogger,
		fx.Supply(Config{EnginePath: "/nonexistent/engine", SnapshotTarget: t.TempDir()}),
		fx.Provide(zap.NewNop),
		Module,
		fx.Invoke(func(*accuracy.Batch) {}),
	)
	if app.Err() == nil {
		t.Error("fx.New() error = nil, want the engine start failure")
	}
}
