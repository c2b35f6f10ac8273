package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/notnil/chess"

	"github.com/discochess/accuracy"
)

const textHeader = "  move\t  white\t  black\t  eval\t delta\twwp\taccuracy\ttime\tgrade     \tfen\tsvg#"

// TextWriter writes the tab-separated per-move table.
type TextWriter struct {
	w *bufio.Writer
}

// NewTextWriter returns a TextWriter writing to w.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: bufio.NewWriter(w)}
}

// WriteGame writes the game header, one row per ply and both accuracies.
func (t *TextWriter) WriteGame(g Game) error {
	h := g.Analysis.Game.Headers

	fmt.Fprintf(t.w, "Analysis of Game #%d, %s vs %s, %s:\n", g.Number, h.White(), h.Black(), h.Result())
	fmt.Fprintf(t.w, " Time Control:%s\n", h.TimeControl())
	fmt.Fprintln(t.w, textHeader)
	for i, m := range g.Analysis.Moves {
		row := "  " + Row(m)
		if n, ok := g.Snapshots[i]; ok {
			row += fmt.Sprintf("\t%d", n)
		}
		fmt.Fprintln(t.w, row)
	}
	fmt.Fprintf(t.w, " Accuracy for White (%s): %.2f%%\n", h.White(), g.Accuracies.White)
	fmt.Fprintf(t.w, " Accuracy for Black (%s): %.2f%%\n", h.Black(), g.Accuracies.Black)

	return t.w.Flush()
}

// Flush implements Writer.
func (t *TextWriter) Flush() error {
	return t.w.Flush()
}

// Row formats one ply as a table row. The move sits in the mover's
// column and ".." fills the other.
func Row(m accuracy.MoveEvaluation) string {
	white, black := m.SAN, ".."
	if m.Side == chess.Black {
		white, black = "..", m.SAN
	}
	var fen string
	if m.FEN != "" {
		fen = `"` + m.FEN + `"`
	}
	return fmt.Sprintf("%3d\t%7s\t%7s\t%6.1f\t%6.1f\t%4.1f\t%8.1f\t%d\t%10s\t%s",
		m.MoveNumber, white, black, m.WhiteEval, m.Delta, m.WhiteWinPercent,
		m.Accuracy, int(m.Time.Seconds()), m.Grade, fen)
}
