package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScoreValueMonotonicInMean(t *testing.T) {
	table := GetScoreValueTable()
	prev := table.Expected(-50, 5)
	for _, mean := range []float64{-30, -10, 0, 10, 30, 50} {
		v := table.Expected(mean, 5)
		require.Greater(t, v, prev)
		prev = v
	}
}

func TestScoreValueZeroMeanZeroStdevIsZero(t *testing.T) {
	table := GetScoreValueTable()
	require.InDelta(t, 0, table.Expected(0, 0), 1e-9)
}

func TestScoreValueBoundedByOne(t *testing.T) {
	table := GetScoreValueTable()
	for _, mean := range []float64{-500, -1, 0, 1, 500} {
		for _, stdev := range []float64{0, 1, 10, 60} {
			v := table.Expected(mean, stdev)
			require.LessOrEqual(t, v, 1.0)
			require.GreaterOrEqual(t, v, -1.0)
		}
	}
}
