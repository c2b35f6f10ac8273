package accuracy

import (
	"errors"
	"fmt"

	"github.com/discochess/accuracy/internal/engine"
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrUnrecognizedTimeControl indicates a time-control header that is
	// neither "<total>+<increment>" nor "<total>".
	ErrUnrecognizedTimeControl = errors.New("accuracy: unrecognized time control")

	// ErrEvaluatorUnavailable indicates the engine could not be reached.
	ErrEvaluatorUnavailable = engine.ErrUnavailable

	// ErrEvaluatorTimeout indicates the engine did not answer in time.
	ErrEvaluatorTimeout = engine.ErrTimeout

	// ErrEmptySideSample indicates one side has no weighted accuracy samples,
	// so its harmonic mean is undefined.
	ErrEmptySideSample = errors.New("accuracy: empty side sample")

	// ErrLengthMismatch indicates win-percent and accuracy sequences of
	// different lengths.
	ErrLengthMismatch = errors.New("accuracy: sequence length mismatch")

	// ErrClockMismatch indicates clock readouts that do not pair up with
	// the game's moves.
	ErrClockMismatch = errors.New("accuracy: clock readouts do not match moves")

	// ErrGameTooShort indicates a game below the batch's minimum ply count.
	ErrGameTooShort = errors.New("accuracy: game too short")

	// ErrNoEvaluator indicates no evaluator was provided.
	ErrNoEvaluator = errors.New("accuracy: no evaluator provided")

	// ErrClosed indicates the analyzer has been closed.
	ErrClosed = errors.New("accuracy: analyzer closed")
)

// GameError reports a failure to analyze one game together with the
// headers that identify it.
type GameError struct {
	White  string
	Black  string
	Result string

	// Ply is the zero-based ply being evaluated when the failure
	// occurred, or -1 when the failure is not tied to a ply.
	Ply int

	Err error
}

func newGameError(g *Game, ply int, err error) *GameError {
	return &GameError{
		White:  g.Headers.White(),
		Black:  g.Headers.Black(),
		Result: g.Headers.Result(),
		Ply:    ply,
		Err:    err,
	}
}

func (e *GameError) Error() string {
	if e.Ply < 0 {
		return fmt.Sprintf("%s vs %s (%s): %v", e.White, e.Black, e.Result, e.Err)
	}
	return fmt.Sprintf("%s vs %s (%s) at ply %d: %v", e.White, e.Black, e.Result, e.Ply, e.Err)
}

func (e *GameError) Unwrap() error {
	return e.Err
}
