package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/discochess/accuracy/internal/archive"
	"github.com/discochess/accuracy/internal/endings"
	"github.com/discochess/accuracy/internal/engine"
	"github.com/discochess/accuracy/internal/engine/diskcache"
	"github.com/discochess/accuracy/internal/engine/uciengine"
)

var endingsCmd = &cobra.Command{
	Use:   "endings [ARCHIVE]",
	Short: "Classify the final positions of a player's games",
	Long: `Endings finds the player taking part in most games of an archive,
evaluates the final position of each game from that player's side and
classifies it as winning, losing or neutral (three pawns either way; a
forced mate decides by its sign).

Examples:
  accuracy endings games.json -o endings.csv
  accuracy endings games.json --depth 16 --cache-dir ./cache`,
	Args: cobra.ExactArgs(1),
	RunE: runEndings,
}

var endingsOutput string

func init() {
	addEngineFlags(endingsCmd)
	endingsCmd.Flags().StringVarP(&endingsOutput, "output", "o", "", "CSV output file (default stdout)")
	endingsCmd.Flags().StringVar(&cacheDir, "cache-dir", "", "directory of a persistent score cache")
	rootCmd.AddCommand(endingsCmd)
}

func runEndings(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	games, err := archive.ReadFile(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	var eval engine.Evaluator
	eval, err = uciengine.Open(ctx, enginePath,
		uciengine.WithHash(engineHash),
		uciengine.WithThreads(engineThreads),
		uciengine.WithLogger(logger.Named("engine")),
	)
	if err != nil {
		return err
	}
	if cacheDir != "" {
		store, err := diskcache.Open(cacheDir)
		if err != nil {
			eval.Close()
			return err
		}
		defer store.Close()
		eval = diskcache.New(eval, store, nil)
	}
	defer eval.Close()

	a := endings.New(eval, endings.WithDepth(depth), endings.WithLogger(logger.Named("endings")))
	uoi, rows, err := a.Analyze(ctx, games)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(endingsOutput)
	if err != nil {
		return err
	}
	defer closeOut()
	if err := endings.WriteCSV(out, rows); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}

	printEndingsSummary(logger, uoi, rows)
	return nil
}

func printEndingsSummary(logger *zap.Logger, uoi string, rows []endings.Row) {
	summary := endings.Summarize(rows)
	classes := make([]string, 0, len(summary))
	for tc := range summary {
		classes = append(classes, tc)
	}
	sort.Strings(classes)

	logger.Info("endings analyzed", zap.String("player", uoi), zap.Int("games", len(rows)))
	for _, tc := range classes {
		logger.Info("final positions",
			zap.String("time_class", tc),
			zap.Float64("winning", summary.Ratio(tc, endings.Winning)),
			zap.Float64("losing", summary.Ratio(tc, endings.Losing)),
			zap.Float64("neutral", summary.Ratio(tc, endings.Neutral)),
		)
	}
}
