package report

import (
	"encoding/csv"
	"io"
	"strconv"
)

// CSVHeader names the columns written by CSVWriter.
var CSVHeader = []string{
	"game", "white", "black", "ply", "move_number", "side", "san",
	"white_eval", "eval", "delta", "white_win_percent", "win_percent",
	"win_percent_delta", "accuracy", "time_seconds", "grade", "fen", "snapshot",
}

// CSVWriter writes one row per ply.
type CSVWriter struct {
	w           *csv.Writer
	wroteHeader bool
}

// NewCSVWriter returns a CSVWriter writing to w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// WriteGame implements Writer.
func (c *CSVWriter) WriteGame(g Game) error {
	if !c.wroteHeader {
		if err := c.w.Write(CSVHeader); err != nil {
			return err
		}
		c.wroteHeader = true
	}

	h := g.Analysis.Game.Headers
	for i, m := range g.Analysis.Moves {
		var snap string
		if n, ok := g.Snapshots[i]; ok {
			snap = strconv.Itoa(n)
		}
		record := []string{
			strconv.Itoa(g.Number), h.White(), h.Black(),
			strconv.Itoa(i), strconv.Itoa(m.MoveNumber), sideName(m.Side), m.SAN,
			formatFloat(m.WhiteEval), formatFloat(m.Eval), formatFloat(m.Delta),
			formatFloat(m.WhiteWinPercent), formatFloat(m.WinPercent),
			formatFloat(m.WinPercentDelta), formatFloat(m.Accuracy),
			formatFloat(m.Time.Seconds()), string(m.Grade), m.FEN, snap,
		}
		if err := c.w.Write(record); err != nil {
			return err
		}
	}
	return c.Flush()
}

// Flush implements Writer.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
