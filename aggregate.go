package accuracy

import (
	"fmt"
	"math"

	"github.com/notnil/chess"
	"gonum.org/v1/gonum/stat"
)

// Window and weight bounds of the volatility weighting.
const (
	minWindow = 2
	maxWindow = 8
	minWeight = 0.5
	maxWeight = 12
)

// WindowSize returns the volatility window length for a game of the
// given number of plies.
func WindowSize(plies int) int {
	return max(minWindow, min(maxWindow, plies/10))
}

// WindowWeights returns the volatility weight of every window over the
// win-percent sequence. Window 0 is the leading WindowSize values and
// window i>0 starts at index i, so there are len(wps)-size+1 sliding
// windows plus the leading one.
func WindowWeights(wps []float64) []float64 {
	size := WindowSize(len(wps))

	weights := []float64{windowWeight(wps[:min(size, len(wps))])}
	for i := 1; i <= len(wps)-size; i++ {
		weights = append(weights, windowWeight(wps[i:i+size]))
	}
	return weights
}

func windowWeight(window []float64) float64 {
	var sd float64
	if len(window) > 1 {
		sd = stat.StdDev(window, nil)
	}
	return max(minWeight, min(maxWeight, sd))
}

// GameAccuracy reduces a game's per-ply win percents (White's view) and
// move accuracies to one accuracy per side.
//
// Every accuracy is repeated round(weight) times, where the weight comes
// from window k/2 for ply k, and the repeated samples are split by ply
// parity. A side's accuracy is the average of the arithmetic and harmonic
// means of its samples. A side without samples yields ErrEmptySideSample.
// Even plies are White's; use GameAccuracyFrom for games Black starts.
func GameAccuracy(wps, accs []float64) (Accuracies, error) {
	return GameAccuracyFrom(wps, accs, chess.White)
}

// GameAccuracyFrom is GameAccuracy for a game whose first ply is played
// by first.
func GameAccuracyFrom(wps, accs []float64, first chess.Color) (Accuracies, error) {
	if len(wps) != len(accs) {
		return Accuracies{}, fmt.Errorf("%w: %d win percents, %d accuracies",
			ErrLengthMismatch, len(wps), len(accs))
	}

	weights := WindowWeights(wps)

	var even, odd []float64
	for i, acc := range accs {
		copies := int(math.Round(weights[i/2]))
		for range copies {
			if i%2 == 0 {
				even = append(even, acc)
			} else {
				odd = append(odd, acc)
			}
		}
	}

	white, black := even, odd
	if first == chess.Black {
		white, black = odd, even
	}

	w, err := sideAccuracy(white, chess.White)
	if err != nil {
		return Accuracies{}, err
	}
	b, err := sideAccuracy(black, chess.Black)
	if err != nil {
		return Accuracies{}, err
	}
	return Accuracies{White: w, Black: b}, nil
}

func sideAccuracy(samples []float64, side chess.Color) (float64, error) {
	if len(samples) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrEmptySideSample, sideName(side))
	}
	return (stat.Mean(samples, nil) + stat.HarmonicMean(samples, nil)) / 2, nil
}

func sideName(c chess.Color) string {
	if c == chess.White {
		return "white"
	}
	return "black"
}
