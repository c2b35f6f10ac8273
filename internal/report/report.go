// Package report writes analyses as text tables, CSV, JSON lines or a
// Markdown summary, and persists blunder snapshots.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/notnil/chess"

	"github.com/discochess/accuracy"
)

// Formats supported by New.
const (
	FormatText     = "text"
	FormatCSV      = "csv"
	FormatJSON     = "jsonl"
	FormatMarkdown = "markdown"
)

// Game is one analyzed game ready for output.
type Game struct {
	// Number is the 1-based position of the game among the reported ones.
	Number int

	Analysis   *accuracy.Analysis
	Accuracies accuracy.Accuracies

	// Snapshots maps ply indexes to saved snapshot numbers.
	Snapshots Snapshots
}

// Writer writes analyzed games in one format.
type Writer interface {
	// WriteGame writes one game.
	WriteGame(g Game) error

	// Flush writes any buffered output.
	Flush() error
}

// Compile-time checks that the writers implement Writer.
var (
	_ Writer = (*TextWriter)(nil)
	_ Writer = (*CSVWriter)(nil)
	_ Writer = (*JSONWriter)(nil)
	_ Writer = (*MarkdownWriter)(nil)
)

// New returns a Writer for format.
func New(format string, w io.Writer) (Writer, error) {
	switch strings.ToLower(format) {
	case FormatText, "":
		return NewTextWriter(w), nil
	case FormatCSV:
		return NewCSVWriter(w), nil
	case FormatJSON, "json":
		return NewJSONWriter(w), nil
	case FormatMarkdown, "md":
		return NewMarkdownWriter(w), nil
	}
	return nil, fmt.Errorf("unknown report format %q", format)
}

func sideName(c chess.Color) string {
	if c == chess.White {
		return "white"
	}
	return "black"
}
