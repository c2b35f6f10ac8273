package endings

import (
	"encoding/csv"
	"io"
	"strconv"
)

// Header names the CSV columns written by WriteCSV.
var Header = []string{
	"date_time", "side", "uoi_elo", "opponent", "opponent_elo", "time_class",
	"time_control", "result", "end_reason", "fen", "end_position_score",
	"position_category",
}

// WriteCSV writes rows with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		err := cw.Write([]string{
			r.DateTime, r.Side, strconv.Itoa(r.Elo), r.Opponent, strconv.Itoa(r.OpponentElo),
			r.TimeClass, r.TimeControl, r.Result, r.EndReason, r.FEN, r.Score,
			string(r.Category),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Summary counts categories per time class.
type Summary map[string]map[Category]int

// Summarize groups rows by time class and category.
func Summarize(rows []Row) Summary {
	s := make(Summary)
	for _, r := range rows {
		if s[r.TimeClass] == nil {
			s[r.TimeClass] = make(map[Category]int)
		}
		s[r.TimeClass][r.Category]++
	}
	return s
}

// Ratio returns the share of timeClass games in category c.
func (s Summary) Ratio(timeClass string, c Category) float64 {
	var total int
	for _, n := range s[timeClass] {
		total += n
	}
	if total == 0 {
		return 0
	}
	return float64(s[timeClass][c]) / float64(total)
}
