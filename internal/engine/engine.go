// Package engine defines the contract between the analyzer and the external
// engine that scores chess positions.
package engine

import (
	"context"
	"errors"
	"strconv"

	"github.com/notnil/chess"
)

// Sentinel errors reported by Evaluator implementations.
var (
	// ErrUnavailable indicates the engine could not be reached or has failed.
	ErrUnavailable = errors.New("engine: evaluator unavailable")

	// ErrTimeout indicates the engine did not answer before the deadline.
	ErrTimeout = errors.New("engine: evaluation timed out")
)

const (
	// MateScore is the centipawn magnitude a forced mate is mapped to
	// before clamping.
	MateScore = 10000

	// MaxCentipawns bounds every score fed to the win-probability model.
	MaxCentipawns = 1500
)

// Evaluator scores positions at a fixed search depth.
// Evaluate blocks until the engine answers, the context is done or the
// engine fails. Implementations need not be safe for concurrent use.
type Evaluator interface {
	// Evaluate returns the score of pos from White's perspective.
	Evaluate(ctx context.Context, pos *chess.Position, depth int) (Score, error)

	// Close releases the engine.
	Close() error
}

// Factory opens a new Evaluator handle.
type Factory func(ctx context.Context) (Evaluator, error)

// Score is an engine evaluation from White's perspective.
// Exactly one of Centipawns and Mate is set.
type Score struct {
	// Centipawns is the evaluation in centipawns.
	// Positive values favor White.
	Centipawns *int

	// Mate is the distance to a forced mate in moves.
	// Positive values mean White mates, negative mean Black mates.
	// Zero means the side to move is already checkmated; MatedSide tells which.
	Mate *int

	// MatedSide is the checkmated side when Mate is zero.
	MatedSide chess.Color
}

// CP returns a centipawn score.
func CP(cp int) Score {
	return Score{Centipawns: &cp}
}

// MateIn returns a forced-mate score.
func MateIn(n int) Score {
	return Score{Mate: &n}
}

// Mated returns the score of a position where side is checkmated.
func Mated(side chess.Color) Score {
	zero := 0
	return Score{Mate: &zero, MatedSide: side}
}

// IsMate reports whether the score is a forced mate.
func (s Score) IsMate() bool {
	return s.Mate != nil
}

// Clamped maps the score onto a clamped centipawn value.
// Mate in n maps to MateScore-n for White and -MateScore-n for Black
// before clamping to [-MaxCentipawns, MaxCentipawns].
func (s Score) Clamped() int {
	var cp int
	switch {
	case s.Mate != nil && *s.Mate > 0:
		cp = MateScore - *s.Mate
	case s.Mate != nil && *s.Mate < 0:
		cp = -MateScore - *s.Mate
	case s.Mate != nil:
		cp = MateScore
		if s.MatedSide == chess.White {
			cp = -MateScore
		}
	case s.Centipawns != nil:
		cp = *s.Centipawns
	}
	return Clamp(cp)
}

// Clamp bounds cp to [-MaxCentipawns, MaxCentipawns].
func Clamp(cp int) int {
	return max(-MaxCentipawns, min(MaxCentipawns, cp))
}

// Negate returns the score seen from the other side.
func (s Score) Negate() Score {
	switch {
	case s.Mate != nil && *s.Mate == 0:
		return s
	case s.Mate != nil:
		return MateIn(-*s.Mate)
	case s.Centipawns != nil:
		return CP(-*s.Centipawns)
	}
	return s
}

// String returns a human-readable score.
// Examples: "+1.25", "-0.50", "#3", "#-5"
func (s Score) String() string {
	if s.Mate != nil {
		return "#" + strconv.Itoa(*s.Mate)
	}
	if s.Centipawns == nil {
		return "?"
	}
	cp := *s.Centipawns
	sign := "+"
	if cp < 0 {
		sign = "-"
		cp = -cp
	}
	whole := cp / 100
	frac := cp % 100
	if frac < 10 {
		return sign + strconv.Itoa(whole) + ".0" + strconv.Itoa(frac)
	}
	return sign + strconv.Itoa(whole) + "." + strconv.Itoa(frac)
}
