package accuracy

import "math"

// winningChancesMultiplier is the logistic slope fitted on Lichess games.
const winningChancesMultiplier = -0.00368208

// Accuracy curve coefficients.
const (
	accuracyScale  = 103.1668100711649
	accuracyDecay  = -0.04354415386753951
	accuracyOffset = -3.166924740191411
	accuracyBonus  = 1
)

// WinningChances converts a clamped centipawn score into winning chances
// in [-1, 1] from the same perspective as the score.
func WinningChances(cp int) float64 {
	v := 2/(1+math.Exp(winningChancesMultiplier*float64(cp))) - 1
	return max(-1, min(1, v))
}

// WinPercent converts a clamped centipawn score into a win probability
// in [0, 100].
func WinPercent(cp int) float64 {
	return 50 + 50*WinningChances(cp)
}

// AccuracyFromSwing scores a move from the win-percent it gave away,
// seen from the mover. A swing of zero scores 100 and large swings
// saturate to 0.
func AccuracyFromSwing(swing float64) float64 {
	acc := accuracyScale*math.Exp(accuracyDecay*swing) + accuracyOffset + accuracyBonus
	return max(0, min(100, acc))
}
