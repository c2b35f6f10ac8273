package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/discochess/accuracy/internal/archive"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download a player's monthly game archives from chess.com",
	Long: `Fetch downloads every monthly archive of a player between --from and
--to (inclusive, YYYY/MM) from the chess.com published-data API and writes
them as one JSON array.

The API asks clients to identify themselves, so --contact (an email
address or URL) is required. Months the API does not serve are skipped.

Examples:
  accuracy fetch --user hikaru --from 2023/11 --to 2024/02 --contact me@example.com -o games.json
  accuracy fetch --user hikaru --from 2024/01 --to 2024/01 --contact me@example.com -o games.json.zst`,
	RunE: runFetch,
}

var (
	fetchUser    string
	fetchFrom    string
	fetchTo      string
	fetchContact string
	fetchOutput  string
	fetchRate    time.Duration
)

func init() {
	fetchCmd.Flags().StringVar(&fetchUser, "user", "", "chess.com username")
	fetchCmd.Flags().StringVar(&fetchFrom, "from", "", "first month (YYYY/MM)")
	fetchCmd.Flags().StringVar(&fetchTo, "to", "", "last month (YYYY/MM, default --from)")
	fetchCmd.Flags().StringVar(&fetchContact, "contact", "", "contact sent in the User-Agent header")
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "games.json", "output file (.json, .json.gz, .json.zst)")
	fetchCmd.Flags().DurationVar(&fetchRate, "interval", time.Second, "minimum time between requests")
	fetchCmd.MarkFlagRequired("user")
	fetchCmd.MarkFlagRequired("from")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	first, err := archive.ParseMonth(fetchFrom)
	if err != nil {
		return err
	}
	last := first
	if fetchTo != "" {
		if last, err = archive.ParseMonth(fetchTo); err != nil {
			return err
		}
	}

	client, err := archive.NewClient(fetchContact,
		archive.WithRateLimit(rate.Every(fetchRate), 1),
		archive.WithLogger(logger.Named("archive")),
		archive.WithProgress(printFetchProgress),
	)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	games, err := client.FetchRange(ctx, fetchUser, first, last)
	if err != nil {
		return err
	}

	if err := archive.WriteFile(fetchOutput, games); err != nil {
		return err
	}
	fmt.Printf("Saved %d games to %s\n", len(games), fetchOutput)
	return nil
}

func printFetchProgress(p archive.Progress) {
	if p.Err != nil {
		fmt.Fprintf(os.Stderr, "  %s: %v\n", p.Month, p.Err)
		return
	}
	fmt.Fprintf(os.Stderr, "  %s: %d games\n", p.Month, p.Games)
}
