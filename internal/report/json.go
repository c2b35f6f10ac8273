package report

import (
	"encoding/json"
	"io"

	"github.com/discochess/accuracy"
)

// jsonMove is the JSON form of one ply.
type jsonMove struct {
	Ply             int     `json:"ply"`
	MoveNumber      int     `json:"move_number"`
	Side            string  `json:"side"`
	SAN             string  `json:"san"`
	WhiteEval       float64 `json:"white_eval"`
	Eval            float64 `json:"eval"`
	Delta           float64 `json:"delta"`
	WhiteWinPercent float64 `json:"white_win_percent"`
	WinPercent      float64 `json:"win_percent"`
	WinPercentDelta float64 `json:"win_percent_delta"`
	Accuracy        float64 `json:"accuracy"`
	TimeSeconds     float64 `json:"time_seconds"`
	Grade           string  `json:"grade"`
	FEN             string  `json:"fen,omitempty"`
	Snapshot        int     `json:"snapshot,omitempty"`
}

// Record is the JSON form of one analyzed game.
type Record struct {
	Game          int               `json:"game"`
	Headers       map[string]string `json:"headers"`
	WhiteAccuracy float64           `json:"white_accuracy"`
	BlackAccuracy float64           `json:"black_accuracy"`
	Moves         []jsonMove        `json:"moves"`
}

// NewRecord converts g to its JSON form.
func NewRecord(g Game) Record {
	rec := Record{
		Game:          g.Number,
		Headers:       g.Analysis.Game.Headers,
		WhiteAccuracy: g.Accuracies.White,
		BlackAccuracy: g.Accuracies.Black,
		Moves:         make([]jsonMove, len(g.Analysis.Moves)),
	}
	for i, m := range g.Analysis.Moves {
		rec.Moves[i] = newJSONMove(i, m, g.Snapshots[i])
	}
	return rec
}

func newJSONMove(ply int, m accuracy.MoveEvaluation, snapshot int) jsonMove {
	return jsonMove{
		Ply:             ply,
		MoveNumber:      m.MoveNumber,
		Side:            sideName(m.Side),
		SAN:             m.SAN,
		WhiteEval:       m.WhiteEval,
		Eval:            m.Eval,
		Delta:           m.Delta,
		WhiteWinPercent: m.WhiteWinPercent,
		WinPercent:      m.WinPercent,
		WinPercentDelta: m.WinPercentDelta,
		Accuracy:        m.Accuracy,
		TimeSeconds:     m.Time.Seconds(),
		Grade:           string(m.Grade),
		FEN:             m.FEN,
		Snapshot:        snapshot,
	}
}

// JSONWriter writes one JSON object per game and line.
type JSONWriter struct {
	enc *json.Encoder
}

// NewJSONWriter returns a JSONWriter writing to w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{enc: json.NewEncoder(w)}
}

// WriteGame implements Writer.
func (j *JSONWriter) WriteGame(g Game) error {
	return j.enc.Encode(NewRecord(g))
}

// Flush implements Writer. Records are written unbuffered.
func (j *JSONWriter) Flush() error {
	return nil
}
