package mcts

import (
	"github.com/chewxy/math32"
	"golang.org/x/exp/slices"

	"github.com/gobaduk/engine/internal/ai"
	"github.com/gobaduk/engine/internal/board"
	"github.com/gobaduk/engine/internal/features"
)

// expansionCandidate is a scratch entry for the enumerate/softmax/top-K
// pipeline, reused across expansions via expandScratch.
type expansionCandidate struct {
	move int
	logit float32
}

// expandScratch is the per-Search reusable scratch for Expansion.
type expandScratch struct {
	candidates []expansionCandidate
}

func newExpandScratch() *expandScratch {
	return &expandScratch{candidates: make([]expansionCandidate, 0, board.NumPoints+1)}
}

// expand expands one leaf: enumerate legal moves, apply softmax over the
// (symmetry-unshuffled) policy logits, retain the top-K, and build the
// node's edge list in descending-prior order with pass last.
//
// recordDense requests the full 362-length dense policy be stored on the
// node; only the root asks for it.
func (s *Search) expand(n *Node, b *board.Board, out ai.Output, cal ai.Calibration, sym int, recordDense bool) {
	sc := s.expandScratch
	sc.candidates = sc.candidates[:0]

	scale := cal.OutputScaleMultiplier
	if scale == 0 {
		scale = 1
	}

	var dense []float32
	if recordDense {
		dense = make([]float32, board.NumPoints+1)
		for i := range dense {
			dense[i] = -1
		}
	}

	for p := 0; p < board.NumPoints; p++ {
		if b.Stones[p] != board.Empty || p == b.KoPoint {
			continue
		}
		if !b.IsLegalMoveFor(p, n.PlayerToMove, s.scratch) {
			continue
		}
		logit := out.Policy[int(features.SYM[sym][p])] * scale
		sc.candidates = append(sc.candidates, expansionCandidate{move: p, logit: logit})
	}
	passLogit := out.PassLogit * scale

	maxLogit := passLogit
	for _, c := range sc.candidates {
		if c.logit > maxLogit {
			maxLogit = c.logit
		}
	}

	var sum float32
	passExp := math32.Exp(passLogit - maxLogit)
	sum = passExp
	for i := range sc.candidates {
		sc.candidates[i].logit = math32.Exp(sc.candidates[i].logit-maxLogit)
		sum += sc.candidates[i].logit
	}
	passProb := passExp / sum
	for i := range sc.candidates {
		sc.candidates[i].logit /= sum
	}

	if dense != nil {
		for _, c := range sc.candidates {
			dense[c.move] = c.logit
		}
		dense[board.NumPoints] = passProb
	}

	maxChildren := s.params.MaxChildren
	slices.SortFunc(sc.candidates, func(a, b expansionCandidate) int {
		switch {
		case a.logit > b.logit:
			return -1
		case a.logit < b.logit:
			return 1
		case a.move < b.move:
			return -1
		case a.move > b.move:
			return 1
		default:
			return 0
		}
	})
	if len(sc.candidates) > maxChildren {
		sc.candidates = sc.candidates[:maxChildren]
		// Renormalize the retained moves and pass so the priors sum to 1.
		kept := passProb
		for _, c := range sc.candidates {
			kept += c.logit
		}
		for i := range sc.candidates {
			sc.candidates[i].logit /= kept
		}
		passProb /= kept
	}

	// Wide-root noise: flatten the root's priors before they feed PUCT.
	// The dense policy recorded above stays unflattened.
	if n == s.root && s.params.WideRootNoise > 0 {
		raised := make([]float32, len(sc.candidates)+1)
		for i, c := range sc.candidates {
			raised[i] = c.logit
		}
		raised[len(sc.candidates)] = passProb
		raised = normalizePriors(raised, s.params.WideRootNoise)
		for i := range sc.candidates {
			sc.candidates[i].logit = raised[i]
		}
		passProb = raised[len(sc.candidates)]
	}

	n.Edges = make([]*Edge, 0, len(sc.candidates)+1)
	for _, c := range sc.candidates {
		n.Edges = append(n.Edges, &Edge{MoveIndex: c.move, Prior: c.logit})
	}
	n.Edges = append(n.Edges, &Edge{MoveIndex: board.Pass, Prior: passProb})
	if dense != nil {
		n.DensePolicy = dense
	}
	n.Expanded = true
}
