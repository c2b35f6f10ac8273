package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	// Global flags.
	configFile  string
	verbose     bool
	metricsFile string
)

var rootCmd = &cobra.Command{
	Use:   "accuracy",
	Short: "Move-by-move accuracy of chess games",
	Long: `Accuracy scores every move of a chess game with a UCI engine and
reduces the scores to one accuracy figure per player.

Every flag can also be set with an ACCURACY_* environment variable
(dashes become underscores) or in a config file.

Examples:
  # Download a player's games and analyze them
  accuracy fetch --user hikaru --from 2024/01 --to 2024/03 -o games.json
  accuracy analyze games.json --engine stockfish --depth 18 --workers 4

  # Convert an archive to PGN
  accuracy convert games.json games.pgn

  # Classify how games ended
  accuracy endings games.json -o endings.csv

  # Serve analysis over HTTP
  accuracy serve --addr :8080`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, toml or json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
}

// initConfig lets environment variables and the config file fill in
// flags the user did not set.
func initConfig(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix("ACCURACY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	var errs []string
	for _, name := range v.AllKeys() {
		f := cmd.Flags().Lookup(name)
		if f == nil || f.Changed || !v.IsSet(name) {
			continue
		}
		if err := cmd.Flags().Set(name, v.GetString(name)); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	return cfg.Build()
}

// signalContext is canceled on interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// writeMetrics dumps the registry when --metrics-file is set.
func writeMetrics(registry *prometheus.Registry) error {
	if metricsFile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(metricsFile, registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}
