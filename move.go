package accuracy

import (
	"time"

	"github.com/notnil/chess"
)

// MoveEvaluation is the analysis of one ply. Records are produced in ply
// order and not modified afterwards.
type MoveEvaluation struct {
	// MoveNumber is the fullmove number the move was played on.
	MoveNumber int

	// SAN is the move in standard algebraic notation.
	SAN string

	// Side is the player who made the move.
	Side chess.Color

	// WhiteEval is the evaluation after the move in pawns, from White's
	// perspective.
	WhiteEval float64

	// Eval is WhiteEval seen from the mover.
	Eval float64

	// Delta is the change of Eval caused by the move, in pawns.
	Delta float64

	// WhiteWinPercent is White's win probability after the move, 0-100.
	WhiteWinPercent float64

	// WinPercent is the mover's win probability after the move.
	WinPercent float64

	// WinPercentDelta is the change of the mover's win probability.
	WinPercentDelta float64

	// Accuracy scores the move from 0 to 100.
	Accuracy float64

	// Time is how long the mover thought, including the increment.
	// Zero when clocks are not tracked.
	Time time.Duration

	Grade   Grade
	Blunder bool

	// FEN is the position after a blunder. Empty for other grades.
	FEN string

	// Snapshot is a rendered diagram of the position after a blunder.
	Snapshot []byte
}

// Analysis is the per-ply output for one game.
type Analysis struct {
	Game  *Game
	Moves []MoveEvaluation
}

// Accuracies holds one game accuracy per side.
type Accuracies struct {
	White float64
	Black float64
}

// WinPercents returns White's win probability after each ply.
func (a *Analysis) WinPercents() []float64 {
	wps := make([]float64, len(a.Moves))
	for i := range a.Moves {
		wps[i] = a.Moves[i].WhiteWinPercent
	}
	return wps
}

// Accuracies returns the accuracy of each ply.
func (a *Analysis) Accuracies() []float64 {
	accs := make([]float64, len(a.Moves))
	for i := range a.Moves {
		accs[i] = a.Moves[i].Accuracy
	}
	return accs
}

// GameAccuracy aggregates the per-ply sequences into one accuracy per side.
// It is recomputed on every call.
func (a *Analysis) GameAccuracy() (Accuracies, error) {
	first := chess.White
	if len(a.Moves) > 0 {
		first = a.Moves[0].Side
	}
	return GameAccuracyFrom(a.WinPercents(), a.Accuracies(), first)
}

// Blunders returns the blunders of the game in ply order.
func (a *Analysis) Blunders() []MoveEvaluation {
	var out []MoveEvaluation
	for _, m := range a.Moves {
		if m.Blunder {
			out = append(out, m)
		}
	}
	return out
}
