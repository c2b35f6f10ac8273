package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/accuracy"
	"github.com/discochess/accuracy/fx/accuracyfx"
	"github.com/discochess/accuracy/internal/codec"
	"github.com/discochess/accuracy/internal/pgnio"
	"github.com/discochess/accuracy/internal/report"
	"github.com/discochess/accuracy/internal/snapshot"
	"github.com/discochess/accuracy/internal/stats"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [FILE]",
	Short: "Score every move of the games in a PGN or archive file",
	Long: `Analyze evaluates every position of every game with a UCI engine and
prints a per-move table followed by each player's accuracy.

FILE is a PGN file or a JSON archive written by 'accuracy fetch'. Files
ending in .gz or .zst are decompressed. Games shorter than --min-plies
are skipped.

Blunder diagrams are saved as svg_<n>.svg (or png_<n>.png) to
--snapshot-dir, which may also be s3://bucket/prefix or gs://bucket/prefix.
Object storage targets get a per-run prefix.

Examples:
  # Analyze with the defaults (stockfish on PATH, depth 20)
  accuracy analyze games.pgn

  # Four engines, CSV output, persistent score cache
  accuracy analyze games.json.zst --workers 4 --format csv -o moves.csv --cache-dir ./cache`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var (
	enginePath     string
	engineHash     int
	engineThreads  int
	depth          int
	workers        int
	evalTimeout    time.Duration
	minPlies       int
	clocks         bool
	cacheSize      int
	cacheDir       string
	format         string
	outputPath     string
	snapshotFormat string
	snapshotDir    string
	snapshotCodec  string
	s3Region       string
	s3Endpoint     string
	maxGames       int
)

func init() {
	addEngineFlags(analyzeCmd)
	analyzeCmd.Flags().IntVar(&workers, "workers", 1, "number of engine processes")
	analyzeCmd.Flags().DurationVar(&evalTimeout, "eval-timeout", 0, "timeout per evaluation (0 waits)")
	analyzeCmd.Flags().IntVar(&minPlies, "min-plies", accuracy.DefaultMinPlies, "skip games with fewer plies")
	analyzeCmd.Flags().BoolVar(&clocks, "clocks", true, "track time spent per move; games need a TimeControl header like 180+2")
	analyzeCmd.Flags().IntVar(&cacheSize, "cache-size", 100000, "scores cached in memory per engine (0 disables)")
	analyzeCmd.Flags().StringVar(&cacheDir, "cache-dir", "", "directory of a persistent score cache")
	analyzeCmd.Flags().StringVar(&format, "format", report.FormatText, "output format: text, csv, jsonl, markdown")
	analyzeCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default stdout)")
	analyzeCmd.Flags().StringVar(&snapshotFormat, "snapshots", "svg", "blunder diagrams: svg, png, none")
	analyzeCmd.Flags().StringVar(&snapshotDir, "snapshot-dir", ".", "where diagrams are saved")
	analyzeCmd.Flags().StringVar(&snapshotCodec, "snapshot-codec", "none", "diagram compression: none, gzip, zstd")
	analyzeCmd.Flags().StringVar(&s3Region, "s3-region", "", "region of an s3:// snapshot target")
	analyzeCmd.Flags().StringVar(&s3Endpoint, "s3-endpoint", "", "endpoint of an S3-compatible snapshot target")
	analyzeCmd.Flags().IntVar(&maxGames, "games", 0, "analyze at most this many games (0 = all)")
	rootCmd.AddCommand(analyzeCmd)
}

// addEngineFlags registers the flags shared by commands that run an engine.
func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&enginePath, "engine", "stockfish", "UCI engine binary")
	cmd.Flags().IntVar(&engineHash, "hash", 0, "engine hash size in MB (0 keeps the engine default)")
	cmd.Flags().IntVar(&engineThreads, "threads", 0, "engine search threads (0 keeps the engine default)")
	cmd.Flags().IntVar(&depth, "depth", accuracy.DefaultDepth, "search depth")
}

func analyzeConfig() accuracyfx.Config {
	target := snapshotDir
	if strings.HasPrefix(target, snapshot.SchemeS3+"://") || strings.HasPrefix(target, snapshot.SchemeGCS+"://") {
		target = strings.TrimRight(target, "/") + "/" + uuid.NewString()
	}
	return accuracyfx.Config{
		EnginePath:     enginePath,
		EngineHashMB:   engineHash,
		EngineThreads:  engineThreads,
		Workers:        workers,
		Depth:          depth,
		EvalTimeout:    evalTimeout,
		MinPlies:       minPlies,
		Clocks:         clocks,
		CacheSize:      cacheSize,
		CacheDir:       cacheDir,
		SnapshotFormat: snapshotFormat,
		SnapshotTarget: target,
		SnapshotCodec:  snapshotCodec,
		S3Region:       s3Region,
		S3Endpoint:     s3Endpoint,
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	games, err := pgnio.ReadFile(args[0])
	if err != nil && len(games) == 0 {
		return fmt.Errorf("reading games: %w", err)
	}
	if err != nil {
		logger.Warn("some games could not be parsed", zap.Error(err))
	}
	if maxGames > 0 && len(games) > maxGames {
		games = games[:maxGames]
	}

	out, closeOut, err := openOutput(outputPath)
	if err != nil {
		return err
	}
	defer closeOut()

	w, err := report.New(format, out)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	cfg := analyzeConfig()
	registry := prometheus.NewRegistry()

	var (
		batch     *accuracy.Batch
		sink      snapshot.Sink
		collector stats.Collector
	)
	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg, logger),
		fx.Provide(func() prometheus.Registerer { return registry }),
		accuracyfx.Module,
		fx.Populate(&batch, &sink, &collector),
	)
	if err := app.Err(); err != nil {
		return fmt.Errorf("starting engines: %w", err)
	}
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := app.Stop(stopCtx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	fmt.Fprintf(os.Stderr, "Analyzing %d games with %d workers at depth %d\n", len(games), batch.Workers(), cfg.Depth)
	start := time.Now()

	results, runErr := batch.Run(ctx, games)

	snapshots := report.NewSnapshotWriter(
		report.WithExtension(snapshotFormat),
		report.WithSnapshotStats(collector),
		report.WithSnapshotLogger(logger),
	)
	var number, lastSnapshot, failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
			logger.Warn("game skipped", zap.Int("index", res.Index), zap.Error(res.Err))
			continue
		}

		var saved report.Snapshots
		if snapshotFormat != "none" {
			saved, lastSnapshot, err = snapshots.Write(ctx, sink, res.Analysis, lastSnapshot)
			if err != nil {
				return err
			}
		}

		number++
		err := w.WriteGame(report.Game{
			Number:     number,
			Analysis:   res.Analysis,
			Accuracies: res.Accuracies,
			Snapshots:  saved,
		})
		if err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Analyzed %d games (%d skipped, %d snapshots) in %s\n",
		number, failed, lastSnapshot, time.Since(start).Round(time.Millisecond))

	if err := writeMetrics(registry); err != nil {
		return err
	}
	return runErr
}

// openOutput returns stdout for an empty path and a created file, possibly
// compressed, otherwise.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	w, err := codec.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output: %w", err)
	}
	return w, w.Close, nil
}
