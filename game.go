package accuracy

import (
	"time"

	"github.com/notnil/chess"
)

// Header keys read by the analyzer.
const (
	TagWhite       = "White"
	TagBlack       = "Black"
	TagResult      = "Result"
	TagTimeControl = "TimeControl"
)

// Headers holds a game's PGN tag pairs.
type Headers map[string]string

func (h Headers) White() string       { return h[TagWhite] }
func (h Headers) Black() string       { return h[TagBlack] }
func (h Headers) Result() string      { return h[TagResult] }
func (h Headers) TimeControl() string { return h[TagTimeControl] }

// Game is an already-parsed game owned by the caller. The analyzer never
// modifies it.
type Game struct {
	Headers Headers

	// Start is the position before the first move.
	// Nil means the standard initial position.
	Start *chess.Position

	// Moves is the mainline in play order.
	Moves []*chess.Move

	// Clocks optionally holds the mover's remaining time after each ply.
	// When non-empty it must have one entry per move.
	Clocks []time.Duration
}

// Plies returns the number of half-moves in the game.
func (g *Game) Plies() int {
	return len(g.Moves)
}

func (g *Game) startPosition() *chess.Position {
	if g.Start != nil {
		return g.Start
	}
	return chess.NewGame().Position()
}
