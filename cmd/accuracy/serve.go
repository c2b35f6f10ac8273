package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/accuracy"
	"github.com/discochess/accuracy/fx/accuracyfx"
	"github.com/discochess/accuracy/internal/report"
	"github.com/discochess/accuracy/internal/server"
	"github.com/discochess/accuracy/internal/snapshot"
	"github.com/discochess/accuracy/internal/stats"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve game analysis over HTTP and WebSocket",
	Long: `Serve starts an HTTP server that analyzes PGN text:

  POST /analyze   PGN in the body; returns every game as JSON
  GET  /ws        WebSocket; each text message is PGN, each analyzed
                  game is streamed back as it is reported
  GET  /metrics   Prometheus metrics
  GET  /healthz   liveness

Requests share the engine pool and are analyzed one at a time.

Examples:
  accuracy serve --addr :8080 --workers 4
  curl --data-binary @games.pgn localhost:8080/analyze`,
	RunE: runServe,
}

var (
	serveAddr      string
	serveSnapshots string
)

func init() {
	addEngineFlags(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().IntVar(&workers, "workers", 1, "number of engine processes")
	serveCmd.Flags().DurationVar(&evalTimeout, "eval-timeout", 0, "timeout per evaluation (0 waits)")
	serveCmd.Flags().IntVar(&minPlies, "min-plies", accuracy.DefaultMinPlies, "skip games with fewer plies")
	serveCmd.Flags().BoolVar(&clocks, "clocks", true, "track time spent per move; games need a TimeControl header like 180+2")
	serveCmd.Flags().IntVar(&cacheSize, "cache-size", 100000, "scores cached in memory per engine (0 disables)")
	serveCmd.Flags().StringVar(&cacheDir, "cache-dir", "", "directory of a persistent score cache")
	serveCmd.Flags().StringVar(&serveSnapshots, "snapshots", "none", "blunder diagrams: svg, png, none")
	serveCmd.Flags().StringVar(&snapshotDir, "snapshot-dir", ".", "where diagrams are saved")
	serveCmd.Flags().StringVar(&snapshotCodec, "snapshot-codec", "none", "diagram compression: none, gzip, zstd")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	cfg := analyzeConfig()
	cfg.SnapshotFormat = serveSnapshots

	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg, logger, registry),
		fx.Provide(func() prometheus.Registerer { return registry }),
		accuracyfx.Module,
		fx.Invoke(registerServer),
	)
	if err := app.Err(); err != nil {
		return fmt.Errorf("starting engines: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	stopCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	return app.Stop(stopCtx)
}

// ServerParams holds dependencies for the HTTP server.
type ServerParams struct {
	fx.In

	Batch     *accuracy.Batch
	Sink      snapshot.Sink
	Collector stats.Collector
	Registry  *prometheus.Registry
	Logger    *zap.Logger
	Lifecycle fx.Lifecycle
}

func registerServer(p ServerParams) {
	opts := []server.Option{
		server.WithGatherer(p.Registry),
		server.WithLogger(p.Logger.Named("server")),
	}
	if serveSnapshots != "none" {
		opts = append(opts, server.WithSink(p.Sink, report.NewSnapshotWriter(
			report.WithExtension(serveSnapshots),
			report.WithSnapshotStats(p.Collector),
		)))
	}

	srv := &http.Server{
		Addr:              serveAddr,
		Handler:           server.New(p.Batch, opts...).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", serveAddr)
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("server failed", zap.Error(err))
				}
			}()
			p.Logger.Info("listening", zap.String("addr", serveAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
