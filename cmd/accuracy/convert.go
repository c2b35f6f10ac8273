package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/discochess/accuracy/internal/pgnio"
)

var convertCmd = &cobra.Command{
	Use:   "convert [ARCHIVE] [PGN]",
	Short: "Convert a JSON game archive to PGN",
	Long: `Convert writes the PGN of every game of an archive written by
'accuracy fetch', separated by blank lines.

Examples:
  accuracy convert games.json games.pgn
  accuracy convert games.json.zst games.pgn.gz`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	n, err := pgnio.ConvertFile(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("Converted %d games to %s\n", n, args[1])
	return nil
}
