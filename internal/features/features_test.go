package features

import (
	"testing"

	"github.com/gobaduk/engine/internal/board"
	"github.com/gobaduk/engine/internal/rules"
	"github.com/stretchr/testify/require"
)

func TestSymmetryInverse(t *testing.T) {
	for s := 0; s < NumSymmetries; s++ {
		for p := 0; p < board.NumPoints; p++ {
			require.EqualValues(t, p, InvSYM[s][SYM[s][p]])
		}
	}
}

func TestPassPassConservativeSuppressesHistory(t *testing.T) {
	b := board.NewBoard()
	scratch := board.NewGroupScratch()
	history := []RecentMove{
		{MoveIndex: board.Pass, Player: board.Black},
		{MoveIndex: board.Pass, Player: board.White},
	}
	in := NewInputs()
	Build(b, BuildParams{
		PlayerToMove: board.Black,
		History: history,
		Scoring: rules.Japanese,
		Komi: 7.5,
		ConservativePassAtRoot: true,
		IsRoot: true,
	}, in, scratch)

	require.Zero(t, in.Global[gPassEndsGame])
	for pt := 0; pt < board.NumPoints; pt++ {
		for ch := chHistoryStart; ch < chHistoryStart+5; ch++ {
			require.Zero(t, in.Spatial[pt*NumSpatialChannels+ch])
		}
	}
}

func TestChineseKomiIntegerWaveIsZero(t *testing.T) {
	b := board.NewBoard()
	scratch := board.NewGroupScratch()
	in := NewInputs()
	Build(b, BuildParams{
		PlayerToMove: board.Black,
		Scoring: rules.Chinese,
		Komi: 7.0,
	}, in, scratch)
	require.InDelta(t, 0, in.Global[gKomiWave], 1e-6)
	require.Zero(t, in.Global[gIsTerritory])
	require.Zero(t, in.Global[gHasSekiTax])
}

func TestSelfKomiSignFollowsPlayerToMove(t *testing.T) {
	b := board.NewBoard()
	scratch := board.NewGroupScratch()

	in := NewInputs()
	Build(b, BuildParams{PlayerToMove: board.White, Scoring: rules.Japanese, Komi: 7.5}, in, scratch)
	require.InDelta(t, 7.5/20, in.Global[gSelfKomi], 1e-6, "white to move receives komi")

	Build(b, BuildParams{PlayerToMove: board.Black, Scoring: rules.Japanese, Komi: 7.5}, in, scratch)
	require.InDelta(t, -7.5/20, in.Global[gSelfKomi], 1e-6, "black to move concedes komi")
}

func TestKomiWavePeaksAtHalfPoints(t *testing.T) {
	b := board.NewBoard()
	scratch := board.NewGroupScratch()
	in := NewInputs()
	Build(b, BuildParams{PlayerToMove: board.White, Scoring: rules.Chinese, Komi: 7.5}, in, scratch)
	require.InDelta(t, 0.5, abs32(in.Global[gKomiWave]), 1e-6)

	Build(b, BuildParams{PlayerToMove: board.White, Scoring: rules.Chinese, Komi: 8.0}, in, scratch)
	require.InDelta(t, 0, in.Global[gKomiWave], 1e-6)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func TestHistoryPlanesMarkRecentMoves(t *testing.T) {
	b := board.NewBoard()
	scratch := board.NewGroupScratch()
	m1 := board.PointAt(3, 3)
	m2 := board.PointAt(15, 15)
	b.Stones[m1] = board.Black
	b.Stones[m2] = board.White
	history := []RecentMove{
		{MoveIndex: m1, Player: board.Black},
		{MoveIndex: m2, Player: board.White},
	}
	in := NewInputs()
	Build(b, BuildParams{
		PlayerToMove: board.Black,
		History: history,
		Scoring: rules.Japanese,
		Komi: 7.5,
	}, in, scratch)

	// With only 2 plies of valid alternation, the two most recent history
	// planes are populated and the deeper three stay zero.
	require.Equal(t, float32(1), in.Spatial[m2*NumSpatialChannels+chHistoryStart+4], "last move, one ply back")
	require.Equal(t, float32(1), in.Spatial[m1*NumSpatialChannels+chHistoryStart+3], "two plies back")
	for pt := 0; pt < board.NumPoints; pt++ {
		for ch := chHistoryStart; ch < chHistoryStart+3; ch++ {
			require.Zero(t, in.Spatial[pt*NumSpatialChannels+ch])
		}
	}
}

func TestChineseAreaPlanesMarkEnclosedRegion(t *testing.T) {
	b := board.NewBoard()
	scratch := board.NewGroupScratch()
	// A black wall across column 1 encloses column 0 entirely for black.
	for y := 0; y < board.Size; y++ {
		b.Stones[board.PointAt(1, y)] = board.Black
	}
	in := NewInputs()
	Build(b, BuildParams{PlayerToMove: board.Black, Scoring: rules.Chinese, Komi: 7.0}, in, scratch)

	enclosed := board.PointAt(0, 9)
	require.Equal(t, float32(1), in.Spatial[enclosed*NumSpatialChannels+chOurArea])
	require.Zero(t, in.Spatial[enclosed*NumSpatialChannels+chOppArea])

	Build(b, BuildParams{PlayerToMove: board.White, Scoring: rules.Chinese, Komi: 7.0}, in, scratch)
	require.Equal(t, float32(1), in.Spatial[enclosed*NumSpatialChannels+chOppArea])
}

func TestSymmetryShufflesSpatialPlanes(t *testing.T) {
	b := board.NewBoard()
	scratch := board.NewGroupScratch()
	stone := board.PointAt(2, 5)
	b.Stones[stone] = board.Black
	in := NewInputs()
	for s := 0; s < NumSymmetries; s++ {
		Build(b, BuildParams{PlayerToMove: board.Black, Scoring: rules.Japanese, Komi: 7.5, Symmetry: s}, in, scratch)
		img := int(SYM[s][stone])
		require.Equal(t, float32(1), in.Spatial[img*NumSpatialChannels+chOurStones], "symmetry %d", s)
	}
}

func TestOnBoardPlaneAlwaysOne(t *testing.T) {
	b := board.NewBoard()
	scratch := board.NewGroupScratch()
	in := NewInputs()
	Build(b, BuildParams{PlayerToMove: board.Black, Scoring: rules.Japanese, Komi: 7.5}, in, scratch)
	for pt := 0; pt < board.NumPoints; pt++ {
		require.Equal(t, float32(1), in.Spatial[pt*NumSpatialChannels+chOnBoard])
	}
}
