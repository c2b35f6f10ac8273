// Package main provides the accuracy CLI tool for scoring chess games
// move by move with a UCI engine.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
