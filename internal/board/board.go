// Package board implements a compact 19x19 Go position with incremental
// play/undo, liberty computation, ko tracking, ladder analysis and
// Chinese-rules area mapping.
//
// A compact board struct mutated by paired Act/Clone operations,
// regenerating a derived summary, is the model here too: the
// liberty/ko bookkeeping plays that role. The board itself stays a flat
// array instead of a map, since Go's adjacency (4 neighbors, dense
// 19x19 grid) makes a flat array the natural fit for a square board.
package board

import (
	"github.com/pkg/errors"
)

// Color is the per-intersection stone value.
type Color uint8

const (
	Empty Color = iota
	Black
	White
)

// Opponent returns the other player's color. Only meaningful for Black/White.
func (c Color) Opponent() Color {
	if c == Black {
		return White
	}
	if c == White {
		return Black
	}
	return Empty
}

func (c Color) String() string {
	switch c {
	case Black:
		return "black"
	case White:
		return "white"
	default:
		return "empty"
	}
}

// Pass is the sentinel move value for a pass, and NoKo the sentinel "no ko
// point" value; all other move/ko values are point indices 0..360.
const (
	Pass = -1
	NoKo = -1
)

// ErrIllegalMove reports a PlayMove call that would be suicide. Expansion
// is responsible for filtering these out before they ever reach PlayMove;
// hitting it here indicates a caller bug, not an expected runtime
// condition.
var ErrIllegalMove = errors.New("illegal move: suicide")

// Captured records one stone removed by a capture, in the order it was
// removed, for UndoSnapshot to repaint on undo.
type Captured struct {
	Point int
	Color Color
}

// UndoSnapshot captures exactly what PlayMove mutated, so that UndoMove
// can reverse it bit-for-bit. Must be consumed in strict LIFO order per
// Board instance.
type UndoSnapshot struct {
	PrevKoPoint int
	WasPass bool
	Captures []Captured
}

// Board is the compact 19x19 position representation: 361 intersections
// plus one ko point.
type Board struct {
	Stones [NumPoints]Color
	KoPoint int
}

// NewBoard returns an empty board with no ko point.
func NewBoard() *Board {
	return &Board{KoPoint: NoKo}
}

// FromStones builds a Board from a caller-provided stones array.
func FromStones(stones [NumPoints]Color, koPoint int) *Board {
	b := &Board{Stones: stones, KoPoint: koPoint}
	return b
}

// Clone returns a deep copy; stones is a fixed array so the struct copy
// already deep-copies it.
func (b *Board) Clone() *Board {
	nb := *b
	return &nb
}

// ToStones serializes the board back to a plain stones array, the inverse
// of FromStones.
func (b *Board) ToStones() [NumPoints]Color {
	return b.Stones
}

// GroupScratch is reusable flood-fill scratch. Callers that run many
// PlayMove/UndoMove cycles (MCTS descent) should keep one per search and
// reuse it; scratch is never shared across searches.
type GroupScratch struct {
	visited [NumPoints]bool
	libSeen [NumPoints]bool
	stack []int32
	points []int32
}

// NewGroupScratch allocates reusable flood-fill buffers.
func NewGroupScratch() *GroupScratch {
	return &GroupScratch{stack: make([]int32, 0, NumPoints), points: make([]int32, 0, NumPoints)}
}

func (s *GroupScratch) reset() {
	for i := range s.visited {
		s.visited[i] = false
		s.libSeen[i] = false
	}
	s.stack = s.stack[:0]
	s.points = s.points[:0]
}

// floodGroup computes the connected group of `color` containing `start`,
// returning its member points and its liberty count (uncapped). Also
// returns the single liberty point if the liberty count is exactly 1 (used
// by the ko-point rule), or -1 otherwise.
func floodGroup(stones *[NumPoints]Color, start int32, color Color, s *GroupScratch) (members []int32, liberties int, oneLiberty int32) {
	s.reset()
	oneLiberty = -1
	s.stack = append(s.stack, start)
	s.visited[start] = true
	for len(s.stack) > 0 {
		p := s.stack[len(s.stack)-1]
		s.stack = s.stack[:len(s.stack)-1]
		s.points = append(s.points, p)
		nStart := neighborStart[p]
		count := neighborCount[p]
		for i := int32(0); i < int32(count); i++ {
			n := neighborList[nStart+i]
			nc := stones[n]
			if nc == Empty {
				if !s.libSeen[n] {
					s.libSeen[n] = true
					liberties++
					oneLiberty = n
				}
				continue
			}
			if nc == color && !s.visited[n] {
				s.visited[n] = true
				s.stack = append(s.stack, n)
			}
		}
	}
	if liberties != 1 {
		oneLiberty = -1
	}
	members = s.points
	return
}

// PlayMove plays one move. For Pass it only records the prior ko point.
// Otherwise it places the stone, removes captured opponent groups,
// sets/clears the ko point, and rejects suicide moves.
func (b *Board) PlayMove(move int, color Color, scratch *GroupScratch) (UndoSnapshot, error) {
	if move == Pass {
		snap := UndoSnapshot{PrevKoPoint: b.KoPoint, WasPass: true}
		b.KoPoint = NoKo
		return snap, nil
	}

	snap := UndoSnapshot{PrevKoPoint: b.KoPoint}
	b.Stones[move] = color

	// Remove opponent groups left with zero liberties.
	opp := color.Opponent()
	start := neighborStart[move]
	count := neighborCount[move]
	seenOppGroup := map[int32]bool{}
	for i := int32(0); i < int32(count); i++ {
		n := neighborList[start+i]
		if b.Stones[n] != opp || seenOppGroup[n] {
			continue
		}
		members, libs, _ := floodGroup(&b.Stones, n, opp, scratch)
		for _, m := range members {
			seenOppGroup[m] = true
		}
		if libs == 0 {
			for _, m := range members {
				snap.Captures = append(snap.Captures, Captured{Point: int(m), Color: opp})
				b.Stones[m] = Empty
			}
		}
	}

	// Suicide check on the placed group, post-capture.
	members, libs, oneLiberty := floodGroup(&b.Stones, int32(move), color, scratch)
	if libs == 0 {
		// Roll back before reporting illegal.
		for _, c := range snap.Captures {
			b.Stones[c.Point] = c.Color
		}
		b.Stones[move] = Empty
		return UndoSnapshot{}, errors.Wrapf(ErrIllegalMove, "move %d by %s", move, color)
	}

	// Ko point: exactly one stone captured, and placed stone is a lone
	// stone with exactly one liberty.
	if len(snap.Captures) == 1 && len(members) == 1 && libs == 1 {
		b.KoPoint = int(oneLiberty)
	} else {
		b.KoPoint = NoKo
	}

	return snap, nil
}

// UndoMove reverses exactly one PlayMove call; must be invoked in strict
// LIFO order relative to PlayMove.
func (b *Board) UndoMove(move int, color Color, snap UndoSnapshot) {
	b.KoPoint = snap.PrevKoPoint
	if snap.WasPass {
		return
	}
	b.Stones[move] = Empty
	for _, c := range snap.Captures {
		b.Stones[c.Point] = c.Color
	}
}

// ComputeLibertyMap returns each stone's group liberty count capped at 3
// (the NN only distinguishes 1, 2, >=3); zero for empty points.
func (b *Board) ComputeLibertyMap(scratch *GroupScratch) [NumPoints]uint8 {
	var out [NumPoints]uint8
	var done [NumPoints]bool
	for p := 0; p < NumPoints; p++ {
		c := b.Stones[p]
		if c == Empty || done[p] {
			continue
		}
		members, libs, _ := floodGroup(&b.Stones, int32(p), c, scratch)
		capped := libs
		if capped > 3 {
			capped = 3
		}
		for _, m := range members {
			out[m] = uint8(capped)
			done[m] = true
		}
	}
	return out
}

// IsLegalMoveFor is the cheap legality predicate used by Expansion's
// legal-move enumeration: a point is accepted iff it has an empty
// neighbor, captures an adjacent opponent group in atari, or connects to
// a friendly group with a spare liberty. It accepts all legal moves and
// may admit a few positions that become suicide only after captures;
// those are harmless because PlayMove re-checks. scratch is caller-owned
// and reused across calls.
func (b *Board) IsLegalMoveFor(p int, color Color, scratch *GroupScratch) bool {
	if p == Pass {
		return true
	}
	if b.Stones[p] != Empty || p == b.KoPoint {
		return false
	}
	start := neighborStart[p]
	count := neighborCount[p]
	opp := color.Opponent()
	for i := int32(0); i < int32(count); i++ {
		n := neighborList[start+i]
		nc := b.Stones[n]
		if nc == Empty {
			return true
		}
	}
	for i := int32(0); i < int32(count); i++ {
		n := neighborList[start+i]
		nc := b.Stones[n]
		switch nc {
		case opp:
			_, libs, _ := floodGroup(&b.Stones, n, opp, scratch)
			if libs == 1 {
				return true
			}
		case color:
			_, libs, _ := floodGroup(&b.Stones, n, color, scratch)
			if libs >= 2 {
				return true
			}
		}
	}
	return false
}
