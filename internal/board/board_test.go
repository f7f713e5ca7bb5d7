package board

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestPlayUndoRoundTrip checks undo(play(pos)) == pos bit-for-bit, for a
// sequence of random legal moves.
func TestPlayUndoRoundTrip(t *testing.T) {
	b := NewBoard()
	scratch := NewGroupScratch()
	rng := rand.New(rand.NewSource(1))
	color := Black

	for i := 0; i < 200; i++ {
		before := b.Stones
		beforeKo := b.KoPoint

		p := rng.Intn(NumPoints)
		if !b.IsLegalMoveFor(p, color, scratch) {
			continue
		}
		snap, err := b.PlayMove(p, color, scratch)
		require.NoError(t, err)
		b.UndoMove(p, color, snap)
		require.Equal(t, before, b.Stones, "stones must round-trip at step %d", i)
		require.Equal(t, beforeKo, b.KoPoint, "ko point must round-trip at step %d", i)

		// Now actually play it for real so the board evolves.
		snap, err = b.PlayMove(p, color, scratch)
		require.NoError(t, err)
		_ = snap
		color = color.Opponent()
	}
}

func TestCaptureRemovesGroup(t *testing.T) {
	b := NewBoard()
	scratch := NewGroupScratch()
	// Surround a single white stone at (1,0) with black stones, playing the
	// last liberty last.
	white := PointAt(1, 0)
	b.Stones[white] = White
	blacks := []int{PointAt(0, 0), PointAt(2, 0), PointAt(1, 1)}
	for _, p := range blacks {
		b.Stones[p] = Black
	}
	// One liberty left: none, since (1,0) at the top row has neighbors
	// (0,0),(2,0),(1,1) only (edge point, 3 neighbors) -- play the last one
	// directly via PlayMove to exercise capture bookkeeping.
	b.Stones[PointAt(1, 1)] = Empty
	snap, err := b.PlayMove(PointAt(1, 1), Black, scratch)
	require.NoError(t, err)
	require.Len(t, snap.Captures, 1)
	require.Equal(t, Empty, b.Stones[white])

	b.UndoMove(PointAt(1, 1), Black, snap)
	require.Equal(t, White, b.Stones[white])
}

func TestSuicideIsIllegal(t *testing.T) {
	b := NewBoard()
	scratch := NewGroupScratch()
	// Black stones fully surround an empty interior point; white playing
	// into it with no captures is suicide.
	center := PointAt(5, 5)
	for _, n := range Neighbors(center) {
		b.Stones[n] = Black
	}
	_, err := b.PlayMove(center, White, scratch)
	require.ErrorIs(t, err, ErrIllegalMove)
}

func TestSimpleKo(t *testing.T) {
	b := NewBoard()
	scratch := NewGroupScratch()

	// Interior single-stone ko shape: P is a lone black stone whose only
	// liberty is Q; Q's other three neighbors are black stones with spare
	// liberties of their own, so when white plays Q and captures P, the new
	// white stone at Q is itself a lone group with exactly one liberty (P).
	p := PointAt(10, 10)
	q := PointAt(10, 9)
	b.Stones[p] = Black
	b.Stones[PointAt(9, 10)] = White
	b.Stones[PointAt(11, 10)] = White
	b.Stones[PointAt(10, 11)] = White
	b.Stones[PointAt(9, 9)] = Black
	b.Stones[PointAt(11, 9)] = Black
	b.Stones[PointAt(10, 8)] = Black

	snap, err := b.PlayMove(q, White, scratch)
	require.NoError(t, err)
	require.Len(t, snap.Captures, 1)
	require.Equal(t, p, b.KoPoint, "ko point should be set to the captured stone's point")

	// Recapturing immediately at the ko point must be illegal for black.
	require.False(t, b.IsLegalMoveFor(p, Black, scratch))

	b.UndoMove(q, White, snap)
	require.Equal(t, Black, b.Stones[p])
	require.Equal(t, NoKo, b.KoPoint)
}

func TestLibertyMapCapsAtThree(t *testing.T) {
	b := NewBoard()
	scratch := NewGroupScratch()
	p := PointAt(9, 9)
	b.Stones[p] = Black
	libs := b.ComputeLibertyMap(scratch)
	require.EqualValues(t, 4, realLiberties(b, p)) // sanity on test construction
	require.EqualValues(t, 3, libs[p])
}

func realLiberties(b *Board, p int) int {
	count := 0
	for _, n := range Neighbors(p) {
		if b.Stones[n] == Empty {
			count++
		}
	}
	return count
}

func TestAreaMapChineseEnclosure(t *testing.T) {
	b := NewBoard()
	// Fill the whole board with black except one empty point in the
	// interior: that point is entirely black-enclosed.
	for p := 0; p < NumPoints; p++ {
		b.Stones[p] = Black
	}
	empty := PointAt(9, 9)
	b.Stones[empty] = Empty
	area := b.ComputeArea()
	require.Equal(t, OwnerBlack, area[empty])
}

func TestFromStonesToStonesRoundTrip(t *testing.T) {
	var stones [NumPoints]Color
	stones[PointAt(3, 3)] = Black
	stones[PointAt(15, 15)] = White
	stones[PointAt(9, 9)] = Black

	b := FromStones(stones, PointAt(5, 5))
	require.Equal(t, stones, b.ToStones())
	require.Equal(t, PointAt(5, 5), b.KoPoint)

	clone := b.Clone()
	scratch := NewGroupScratch()
	_, err := clone.PlayMove(PointAt(0, 0), Black, scratch)
	require.NoError(t, err)
	require.Equal(t, stones, b.ToStones(), "clone mutation must not touch the original")
}

func TestPassOnlyTouchesKoPoint(t *testing.T) {
	b := NewBoard()
	scratch := NewGroupScratch()
	b.KoPoint = PointAt(4, 4)
	before := b.Stones

	snap, err := b.PlayMove(Pass, Black, scratch)
	require.NoError(t, err)
	require.Equal(t, NoKo, b.KoPoint)
	require.Equal(t, before, b.Stones)

	b.UndoMove(Pass, Black, snap)
	require.Equal(t, PointAt(4, 4), b.KoPoint)
}

func TestWorkingLadderMoveDetected(t *testing.T) {
	b := NewBoard()
	scratch := NewGroupScratch()
	// White stone at (1,1) with black at (0,1), (1,0) and (2,2): two
	// liberties left, (2,1) and (1,2). Playing either leaves white an
	// extension that reaches only two liberties, and the chase ends in a
	// capture against the edge.
	b.Stones[PointAt(1, 1)] = White
	b.Stones[PointAt(0, 1)] = Black
	b.Stones[PointAt(1, 0)] = Black
	b.Stones[PointAt(2, 2)] = Black

	_, working := b.ComputeLadderFeatures(Black, scratch)
	require.True(t, working[PointAt(2, 1)] || working[PointAt(1, 2)],
		"at least one atari on the two-liberty white stone must read as a working ladder")
}

func TestLadderCapturableSimpleChase(t *testing.T) {
	b := NewBoard()
	scratch := NewGroupScratch()
	// Corner point has only 2 neighbors; with one occupied by black the
	// white stone is already a one-liberty atari, so the ladder reader
	// resolves it in a single attacker move. Still exercises the reader's
	// entry path for a <=2-liberty group.
	p := PointAt(0, 0)
	b.Stones[p] = White
	b.Stones[PointAt(1, 0)] = Black
	laddered, _ := b.ComputeLadderFeatures(Black, scratch)
	require.True(t, laddered[p])
}
