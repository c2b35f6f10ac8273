package report

import (
	"fmt"
	"io"
	"strings"
)

// MarkdownWriter collects games and writes one summary table on Flush.
type MarkdownWriter struct {
	w    io.Writer
	rows []string
}

// NewMarkdownWriter returns a MarkdownWriter writing to w.
func NewMarkdownWriter(w io.Writer) *MarkdownWriter {
	return &MarkdownWriter{w: w}
}

// WriteGame implements Writer.
func (m *MarkdownWriter) WriteGame(g Game) error {
	h := g.Analysis.Game.Headers
	blunders := len(g.Analysis.Blunders())
	m.rows = append(m.rows, fmt.Sprintf("| %d | %s | %s | %s | %s | %.2f | %.2f | %d | %d |",
		g.Number, escape(h.White()), escape(h.Black()), h.Result(), h.TimeControl(),
		g.Accuracies.White, g.Accuracies.Black, len(g.Analysis.Moves), blunders))
	return nil
}

// Flush writes the table. Nothing is written when no game was added.
func (m *MarkdownWriter) Flush() error {
	if len(m.rows) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("| # | White | Black | Result | Time control | White accuracy | Black accuracy | Plies | Blunders |\n")
	b.WriteString("|---|---|---|---|---|---:|---:|---:|---:|\n")
	for _, row := range m.rows {
		b.WriteString(row)
		b.WriteString("\n")
	}
	m.rows = nil
	_, err := io.WriteString(m.w, b.String())
	return err
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
