package mcts

import (
	"math"
	"math/rand"

	"github.com/gobaduk/engine/internal/board"
)

// cpuct is the exploration-constant schedule: it grows slowly with the
// total child weight so large subtrees keep exploring.
func cpuct(totalWeight float64) float64 {
	return 1.0 + 0.45*math.Log((totalWeight+500)/500)
}

// fpuReductionMax is larger at non-root nodes than at the root, where
// candidate breadth matters more than first-play pessimism.
func fpuReductionMax(isRoot bool) float64 {
	if isRoot {
		return 0.1
	}
	return 0.2
}

// selectEdge picks one child edge by PUCT with FPU and optional
// wide-root noise. sign is +1 for black to move, -1 for white, since
// utilities are stored from Black's perspective but selection is always
// from the mover's perspective.
func (s *Search) selectEdge(n *Node, isRoot bool) *Edge {
	sign := 1.0
	if n.PlayerToMove == board.White {
		sign = -1.0
	}

	totalChildWeight := 0.0
	policyMassVisited := 0.0
	for _, e := range n.Edges {
		w := 0.0
		if e.Child != nil {
			w = float64(e.Child.Stats.Visits + e.Child.Stats.InFlight)
		}
		totalChildWeight += w
		if w > 0 {
			policyMassVisited += float64(e.Prior)
		}
	}

	parentUtilMean := n.Stats.utilityMean()
	parentUtilStdev := n.Stats.utilityStdev()
	parentUtilStdevFactor := 1 + 0.85*(parentUtilStdev/0.4-1)

	reductionMax := fpuReductionMax(isRoot)
	reduction := reductionMax * math.Sqrt(policyMassVisited)
	blend := math.Min(1, policyMassVisited*policyMassVisited)
	parentUtilForFPU := blend*parentUtilMean + (1-blend)*float64(n.Stats.NNUtility)

	wideNoise := 0.0
	if isRoot {
		wideNoise = s.params.WideRootNoise
	}

	cp := cpuct(totalChildWeight)
	explorePrefix := cp * math.Sqrt(totalChildWeight+0.01) * parentUtilStdevFactor

	var best *Edge
	bestScore := math.Inf(-1)
	for _, e := range n.Edges {
		// e.Prior was already raised/renormalized once at root expansion
		// time if wideNoise>0; here only the per-selection utility jitter
		// applies.
		prior := float64(e.Prior)

		var childWeight float64
		var childUtility float64
		if e.Child != nil {
			childWeight = float64(e.Child.Stats.Visits + e.Child.Stats.InFlight)
		}
		if e.Child != nil && e.Child.Stats.Visits > 0 {
			childUtility = e.Child.Stats.UtilitySum / float64(e.Child.Stats.Visits)
		} else {
			fpu := parentUtilForFPU - sign*reduction
			childUtility = fpu
		}

		// The jitter is a bonus from the mover's perspective, so it enters
		// through sign like the utility itself. Drawn fresh on every
		// selection, not frozen per batch.
		if wideNoise > 0 && s.rng.Float64() < 0.5 {
			childUtility += sign * wideNoise * abs64(gaussian(s.rng))
		}

		explore := explorePrefix * prior / (1 + childWeight)
		score := explore + sign*childUtility
		if score > bestScore {
			bestScore = score
			best = e
		}
	}
	return best
}

func gaussian(rng *rand.Rand) float64 {
	return rng.NormFloat64()
}

// normalizePriors raises each prior to the power 1/(4*noise+1), flattening
// the policy, then renormalizes so the priors sum to 1 again.
func normalizePriors(priors []float32, wideNoise float64) []float32 {
	if wideNoise <= 0 {
		return priors
	}
	out := make([]float32, len(priors))
	sum := float32(0)
	for i, p := range priors {
		out[i] = float32(math.Pow(float64(p), 1/(4*wideNoise+1)))
		sum += out[i]
	}
	if sum > 0 {
		for i := range out {
			out[i] /= sum
		}
	}
	return out
}
