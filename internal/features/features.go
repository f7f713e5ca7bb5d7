// Package features implements the v7 KataGo input tensor builder,
// writing into caller-provided spatial/global buffers.
//
// The concern (board state -> NN input tensor, built once per position,
// buffers owned by the caller) carries over from this package's previous
// feed-forward-net feature vector, but the representation here is a
// dense 19x19 spatial tensor plus a small global vector instead of a
// flat hand-picked scalar vector, so the board-specific encoding below
// is new.
package features

import (
	"github.com/chewxy/math32"
	"github.com/gobaduk/engine/internal/board"
	"github.com/gobaduk/engine/internal/rules"
)

// Spatial channel counts and layout. Buffers are NHWC-compatible:
// channel-major within each point, i.e. flat index
// point*NumSpatialChannels + channel.
const (
	NumSpatialChannels = 22
	NumGlobalFeatures = 19
	SpatialLen = board.NumPoints * NumSpatialChannels

	chOnBoard = 0
	chOurStones = 1
	chOppStones = 2
	chLib1 = 3
	chLib2 = 4
	chLib3 = 5
	chKo = 6
	chHistoryStart = 9 // 9..13, last 5 move positions
	chLadderNow = 14
	chLadder1AgoA = 15
	chLadder1AgoB = 16
	chLadderWorking = 17
	chOurArea = 18
	chOppArea = 19

	gHistoryStart = 0 // 0..4
	gSelfKomi = 5
	gIsTerritory = 9
	gHasSekiTax = 10
	gPassEndsGame = 14
	gKomiWave = 18

	historyLen = 5
)

// RecentMove is one ply of the move history feeding the last-5-turn
// planes. Sequences are chronological, most-recent-last.
type RecentMove struct {
	MoveIndex int // board.Pass or 0..360
	Player board.Color
}

// Inputs holds the spatial and global buffers for one position, owned by
// the caller (or a Pool, see pool.go).
type Inputs struct {
	Spatial []float32 // len SpatialLen
	Global []float32 // len NumGlobalFeatures
}

// NewInputs allocates a fresh, zeroed Inputs buffer.
func NewInputs() *Inputs {
	return &Inputs{
		Spatial: make([]float32, SpatialLen),
		Global: make([]float32, NumGlobalFeatures),
	}
}

// Clear zero-fills both buffers. Build always clears before filling, so
// pooled buffers never leak stale planes across positions.
func (in *Inputs) Clear() {
	for i := range in.Spatial {
		in.Spatial[i] = 0
	}
	for i := range in.Global {
		in.Global[i] = 0
	}
}

// historyAlternates reports whether the last n plies of history alternate
// player correctly, starting from the opponent at step -1. The
// history-derived planes only trust plies inside an unbroken alternating
// run.
func historyAlternates(history []RecentMove, ptm board.Color, n int) bool {
	if len(history) < n {
		return false
	}
	want := ptm.Opponent()
	tail := history[len(history)-n:]
	for i := n - 1; i >= 0; i-- {
		if tail[i].Player != want {
			return false
		}
		want = want.Opponent()
	}
	return true
}

// BuildParams bundles the inputs to Build beyond the board/history pair.
type BuildParams struct {
	PlayerToMove board.Color
	History []RecentMove // most-recent-last, length <= 5
	Scoring rules.Scoring
	Komi float64 // real komi, white's perspective
	ConservativePassAtRoot bool
	IsRoot bool
	Symmetry int // 0..7, index into features.SYM
}

// Build fills the spatial and global buffers for one position. scratch is
// a caller-owned GroupScratch reused across the liberty/ladder
// computations.
func Build(b *board.Board, p BuildParams, out *Inputs, scratch *board.GroupScratch) {
	out.Clear()
	suppressHistory := p.ConservativePassAtRoot && p.IsRoot && len(p.History) > 0 &&
		p.History[len(p.History)-1].MoveIndex == board.Pass

	libs := b.ComputeLibertyMap(scratch)
	laddered, working := b.ComputeLadderFeatures(p.PlayerToMove, scratch)
	var area [board.NumPoints]board.Owner
	if p.Scoring.IsChineseArea() {
		area = b.ComputeArea()
	}

	sym := p.Symmetry
	putSpatial := func(ch int, pt int, v float32) {
		dst := int(SYM[sym][pt])
		out.Spatial[dst*NumSpatialChannels+ch] = v
	}

	opp := p.PlayerToMove.Opponent()
	for pt := 0; pt < board.NumPoints; pt++ {
		putSpatial(chOnBoard, pt, 1)
		c := b.Stones[pt]
		if c == p.PlayerToMove {
			putSpatial(chOurStones, pt, 1)
		} else if c == opp {
			putSpatial(chOppStones, pt, 1)
		}
		if c != board.Empty {
			switch libs[pt] {
			case 1:
				putSpatial(chLib1, pt, 1)
			case 2:
				putSpatial(chLib2, pt, 1)
			case 3:
				putSpatial(chLib3, pt, 1)
			}
		}
		if pt == b.KoPoint {
			putSpatial(chKo, pt, 1)
		}
		if laddered[pt] {
			putSpatial(chLadderNow, pt, 1)
		}
		if working[pt] {
			putSpatial(chLadderWorking, pt, 1)
		}
		if p.Scoring.IsChineseArea() {
			switch area[pt] {
			case board.OwnerBlack:
				if p.PlayerToMove == board.Black {
					putSpatial(chOurArea, pt, 1)
				} else {
					putSpatial(chOppArea, pt, 1)
				}
			case board.OwnerWhite:
				if p.PlayerToMove == board.White {
					putSpatial(chOurArea, pt, 1)
				} else {
					putSpatial(chOppArea, pt, 1)
				}
			}
		}
	}

	if !suppressHistory {
		if historyAlternates(p.History, p.PlayerToMove, historyLen) {
			tail := p.History[len(p.History)-historyLen:]
			for i, mv := range tail {
				if mv.MoveIndex == board.Pass {
					continue
				}
				putSpatial(chHistoryStart+i, mv.MoveIndex, 1)
			}
		} else {
			// Partial history: contribute the planes that validate, working
			// backward from the most recent ply, stopping at the first
			// break in alternation.
			want := p.PlayerToMove.Opponent()
			for i := 0; i < historyLen && i < len(p.History); i++ {
				mv := p.History[len(p.History)-1-i]
				if mv.Player != want {
					break
				}
				if mv.MoveIndex != board.Pass {
					putSpatial(chHistoryStart+historyLen-1-i, mv.MoveIndex, 1)
				}
				want = want.Opponent()
			}
		}

		// Ladder-capturable one/two turns ago: requires that many turns of
		// alternating history to exist. Both planes apply the current
		// ladder mask, since prior board states are not retained here.
		if historyAlternates(p.History, p.PlayerToMove, 1) {
			for pt := 0; pt < board.NumPoints; pt++ {
				if laddered[pt] {
					putSpatial(chLadder1AgoA, pt, 1)
				}
			}
		}
		if historyAlternates(p.History, p.PlayerToMove, 2) {
			for pt := 0; pt < board.NumPoints; pt++ {
				if laddered[pt] {
					putSpatial(chLadder1AgoB, pt, 1)
				}
			}
		}
	}

	buildGlobal(b, p, out, suppressHistory)
}

func buildGlobal(b *board.Board, p BuildParams, out *Inputs, suppressHistory bool) {
	if !suppressHistory {
		want := p.PlayerToMove.Opponent()
		for i := 0; i < historyLen && i < len(p.History); i++ {
			mv := p.History[len(p.History)-1-i]
			if mv.Player != want {
				break
			}
			if mv.MoveIndex == board.Pass {
				out.Global[gHistoryStart+historyLen-1-i] = 1
			}
			want = want.Opponent()
		}
	}

	// Komi is white's compensation, so from the mover's own perspective it
	// is positive for white and negative for black.
	selfKomi := p.Komi
	if p.PlayerToMove == board.Black {
		selfKomi = -p.Komi
	}
	out.Global[gSelfKomi] = float32(selfKomi) / 20

	if p.Scoring.IsTerritory() {
		out.Global[gIsTerritory] = 1
	}
	if p.Scoring.HasSekiTax() {
		out.Global[gHasSekiTax] = 1
	}

	lastWasPass := len(p.History) > 0 && p.History[len(p.History)-1].MoveIndex == board.Pass
	if lastWasPass && !suppressHistory {
		out.Global[gPassEndsGame] = 1
	}

	out.Global[gKomiWave] = komiWave(selfKomi)
}

// komiWave builds global[18]: a triangle wave in [-0.5, 0.5] over komi,
// zero at integer komi values and peaking at half-integer values. The
// wave anchors on the largest odd integer <= selfKomi because the
// 19x19 board area (361) is odd, which sets the komi parity that leaves
// the game drawless.
func komiWave(selfKomi float64) float32 {
	floor2 := math32.Floor((float32(selfKomi)-1)/2)*2 + 1
	delta := float32(selfKomi) - floor2
	if delta < 0 {
		delta = 0
	}
	if delta > 2 {
		delta = 2
	}
	switch {
	case delta < 0.5:
		return delta
	case delta < 1.5:
		return 1 - delta
	default:
		return delta - 2
	}
}
