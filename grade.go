package accuracy

import (
	"fmt"

	"github.com/notnil/chess"
)

// Grade is the quality class of a single move.
type Grade string

// Move grades from worst to best.
const (
	GradeBlunder    Grade = "blunder"
	GradeMistake    Grade = "mistake"
	GradeInaccurate Grade = "inaccurate"
	GradeGood       Grade = "good"
	GradeBest       Grade = "best"
)

// Accuracy thresholds separating the grades.
const (
	blunderBelow    = 20
	mistakeBelow    = 50
	inaccurateBelow = 80
	goodBelow       = 98
)

// GradeFor classifies a move accuracy.
func GradeFor(accuracy float64) Grade {
	switch {
	case accuracy < blunderBelow:
		return GradeBlunder
	case accuracy < mistakeBelow:
		return GradeMistake
	case accuracy < inaccurateBelow:
		return GradeInaccurate
	case accuracy < goodBelow:
		return GradeGood
	default:
		return GradeBest
	}
}

// Grader assigns grades and attaches blunder snapshots.
// It never performs I/O; rendered snapshots stay on the record.
type Grader struct {
	renderer Renderer
}

// NewGrader returns a Grader. A nil renderer disables diagram capture;
// blunders still record their FEN.
func NewGrader(renderer Renderer) *Grader {
	return &Grader{renderer: renderer}
}

// Grade sets rec's grade from its accuracy. For blunders it records the
// position after the move and, when a renderer is configured, a diagram
// with the move highlighted.
func (g *Grader) Grade(rec *MoveEvaluation, after *chess.Position, move *chess.Move) error {
	rec.Grade = GradeFor(rec.Accuracy)
	rec.Blunder = rec.Grade == GradeBlunder
	if !rec.Blunder {
		return nil
	}

	rec.FEN = after.String()
	if g.renderer == nil {
		return nil
	}
	snapshot, err := g.renderer.Render(after, move)
	if err != nil {
		return fmt.Errorf("rendering snapshot: %w", err)
	}
	rec.Snapshot = snapshot
	return nil
}
