// Package ai implements the evaluator contract and the postprocessing of
// raw NN outputs into the win/loss/score quantities the searcher needs.
//
// The previous incarnation of this package defined BoardScorer/
// BatchBoardScorer interfaces around a single scalar value per board.
// The concern here is the same shape (an external scorer consumed
// through a narrow interface) but the payload is KataGo's richer
// policy/value/score-value/ownership tuple, so the interfaces and the
// postprocessing math are new.
package ai

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"
)

// scoreValueNumPoints is N in the atan score-value squash: the board has
// 361 intersections.
const scoreValueNumPoints = 361

// The table stores E[(2/pi)*atan(Y/sqrt(N))] for Y ~ Normal(mean,stdev),
// indexed by mean/stdev already shifted by the caller's center and
// divided by its scale, so the static and dynamic score values share one
// table. Bounds and density cover every normalized value a search will
// ever query: board score swings are bounded by +/-361, and scale is
// never below 0.75, so a normalized mean of +/-500 is generous headroom.
const (
	svStepsPerUnit = 2
	svMaxMean = 500.0
	svMaxStdev = 60.0
)

var scoreValueDenom = math.Sqrt(scoreValueNumPoints)

// ScoreValueTable is the process-wide precomputed lookup table for the
// expected white score value, built once lazily on first use.
type ScoreValueTable struct {
	table [][]float64 // table[meanIdx][stdevIdx]
}

var (
	scoreValueOnce sync.Once
	scoreValueTable *ScoreValueTable
)

// GetScoreValueTable returns the singleton table, building it on first
// call.
func GetScoreValueTable() *ScoreValueTable {
	scoreValueOnce.Do(func() {
		scoreValueTable = buildScoreValueTable()
	})
	return scoreValueTable
}

func buildScoreValueTable() *ScoreValueTable {
	meanSteps := int(2*svMaxMean*svStepsPerUnit) + 1
	stdevSteps := int(svMaxStdev*svStepsPerUnit) + 1
	t := &ScoreValueTable{table: make([][]float64, meanSteps)}
	for mi := 0; mi < meanSteps; mi++ {
		mean := float64(mi)/svStepsPerUnit - svMaxMean
		row := make([]float64, stdevSteps)
		for si := 0; si < stdevSteps; si++ {
			stdev := float64(si) / svStepsPerUnit
			row[si] = integrateExpectedScoreValue(mean, stdev)
		}
		t.table[mi] = row
	}
	return t
}

// integrateExpectedScoreValue numerically integrates a Normal(mean,stdev)
// density against (2/pi)*atan(x/sqrt(N)) over +/-5 stdev, using
// fixed-step Simpson's rule at a density of 10 samples per unit of the
// integration variable.
func integrateExpectedScoreValue(mean, stdev float64) float64 {
	if stdev < 1e-9 {
		return (2 / math.Pi) * math.Atan(mean/scoreValueDenom)
	}
	dist := distuv.Normal{Mu: mean, Sigma: stdev}
	lo := mean - 5*stdev
	hi := mean + 5*stdev

	n := int((hi - lo) * 10)
	if n < 16 {
		n = 16
	}
	if n%2 == 1 {
		n++
	}
	h := (hi - lo) / float64(n)

	f := func(x float64) float64 {
		return dist.Prob(x) * (2 / math.Pi) * math.Atan(x/scoreValueDenom)
	}

	sum := f(lo) + f(hi)
	for i := 1; i < n; i++ {
		x := lo + float64(i)*h
		if i%2 == 0 {
			sum += 2 * f(x)
		} else {
			sum += 4 * f(x)
		}
	}
	return sum * h / 3
}

// Expected returns the bilinearly interpolated expected white score value
// for a Normal(mean,stdev) score distribution, both already normalized by
// the caller's (center, scale) pair.
func (t *ScoreValueTable) Expected(mean, stdev float64) float64 {
	mean = clampF(mean, -svMaxMean, svMaxMean)
	stdev = clampF(stdev, 0, svMaxStdev)

	mf := (mean + svMaxMean) * svStepsPerUnit
	mi0 := int(mf)
	mi1 := mi0 + 1
	if mi1 >= len(t.table) {
		mi1 = len(t.table) - 1
		mi0 = mi1
	}
	mfrac := mf - float64(mi0)

	sf := stdev * svStepsPerUnit
	si0 := int(sf)
	si1 := si0 + 1
	if si1 >= len(t.table[0]) {
		si1 = len(t.table[0]) - 1
		si0 = si1
	}
	sfrac := sf - float64(si0)

	v00 := t.table[mi0][si0]
	v01 := t.table[mi0][si1]
	v10 := t.table[mi1][si0]
	v11 := t.table[mi1][si1]

	v0 := v00 + (v01-v00)*sfrac
	v1 := v10 + (v11-v10)*sfrac
	return v0 + (v1-v0)*mfrac
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
