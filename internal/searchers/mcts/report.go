package mcts

import (
	"math"

	"golang.org/x/exp/slices"

	"github.com/gobaduk/engine/internal/ai"
	"github.com/gobaduk/engine/internal/board"
	"github.com/gobaduk/engine/internal/rules"
)

// MoveReport is one top-K candidate move. Coordinates are (-1,-1) for
// pass; otherwise x,y in 0..18 with y=0 at the top.
type MoveReport struct {
	X, Y int
	WinRate float64
	WinRateLost float64
	ScoreLead float64
	ScoreSelfplay float64
	ScoreStdev float64
	Visits int
	PointsLost float64
	RelativePointsLost float64
	Order int
	Prior float32
	PV []string
	Ownership []float32 // only if includeMovesOwnership
}

// Report is the final result of a Search.
type Report struct {
	RootWinRate float64
	RootScoreLead float64
	RootScoreSelfplay float64
	RootScoreStdev float64

	Ownership []float32 // len 361
	OwnershipStdev []float32 // len 361
	CompactOwnership []uint16 // len 361, half-precision packing of Ownership for remote transport

	Policy []float32 // len 362, illegal=-1, pass at index 361

	Moves []MoveReport
}

// childWeightInfo is the per-child working state for noise pruning and
// value-weighted reweighting.
type childWeightInfo struct {
	edge *Edge
	weight float64
	utility float64
}

// GetAnalysis produces the final report: noise pruning, value-weighted
// reweighting, root-aggregate stats, tree-averaged ownership (if
// configured), and the top-K candidate list with PV reconstruction. It
// never mutates tree state, so back-to-back calls return identical
// reports. Must not run concurrently with Run.
func (s *Search) GetAnalysis(topK, analysisPvLen int, includeMovesOwnership bool) *Report {
	topK = rules.ClampInt(topK, 1, 50)
	analysisPvLen = rules.ClampInt(analysisPvLen, 0, 60)

	children := make([]childWeightInfo, 0, len(s.root.Edges))
	for _, e := range s.root.Edges {
		if e.Child == nil || e.Child.Stats.Visits == 0 {
			continue
		}
		w := float64(e.Child.Stats.Visits)
		u := e.Child.Stats.UtilitySum / w
		children = append(children, childWeightInfo{edge: e, weight: w, utility: u})
	}

	pruneNoise(children)
	simpleValue := s.root.Stats.utilityMean()
	reweightByValue(children, simpleValue)

	rep := &Report{
		Policy: append([]float32(nil), s.root.DensePolicy...),
	}
	s.aggregateRootStats(children, rep)
	s.aggregateOwnership(rep)
	if rep.Ownership != nil {
		rep.CompactOwnership = ai.PackCompact(rep.Ownership)
	}
	s.buildMoveReports(children, topK, analysisPvLen, includeMovesOwnership, rep)
	return rep
}

// pruneNoise discounts noise-inflated children: sorted by prior, each
// subsequent child's weight is reduced when its utility trails the
// running average and its weight exceeds its lenient policy share.
func pruneNoise(children []childWeightInfo) {
	slices.SortFunc(children, func(a, b childWeightInfo) int {
		switch {
		case a.edge.Prior > b.edge.Prior:
			return -1
		case a.edge.Prior < b.edge.Prior:
			return 1
		default:
			return 0
		}
	})

	var weightSoFar, utilWeighted, rawPolicySoFar float64
	for i := range children {
		c := &children[i]
		if i > 0 && weightSoFar > 0 {
			avgUtilitySoFar := utilWeighted / weightSoFar
			utilityGap := avgUtilitySoFar - c.utility
			if utilityGap > 0 && rawPolicySoFar > 0 {
				lenientShare := 2 * weightSoFar * float64(c.edge.Prior) / rawPolicySoFar
				if c.weight > lenientShare {
					excess := c.weight - lenientShare
					reduction := excess * (1 - math.Exp(-utilityGap/0.15))
					if reduction > 1e50 {
						reduction = 1e50
					}
					c.weight -= reduction
					if c.weight < 0 {
						c.weight = 0
					}
				}
			}
		}
		weightSoFar += c.weight
		utilWeighted += c.weight * c.utility
		rawPolicySoFar += float64(c.edge.Prior)
	}
}

// reweightByValue downweights children whose utility is a statistical
// outlier versus simpleValue, via a closed-form Student-t(df=3) CDF,
// renormalized to preserve the total weight.
func reweightByValue(children []childWeightInfo, simpleValue float64) {
	if len(children) == 0 {
		return
	}
	preTotal := 0.0
	for _, c := range children {
		preTotal += c.weight
	}

	for i := range children {
		c := &children[i]
		if c.weight <= 0 {
			continue
		}
		stdev := sqrt(1e-8 + 1/(1.5*sqrt(c.weight)))
		z := (c.utility - simpleValue) / stdev
		zt := z / sqrt(3)
		p := 0.5 + (math.Atan(zt)+zt/(1+z*z/3))/math.Pi
		c.weight *= math.Pow(p+1e-4, 0.25)
	}

	postTotal := 0.0
	for _, c := range children {
		postTotal += c.weight
	}
	if postTotal > 0 {
		scale := preTotal / postTotal
		for i := range children {
			children[i].weight *= scale
		}
	}
}

// aggregateRootStats computes the weighted-mean root-level report
// quantities, including the root's own self-stats at weight 1.
func (s *Search) aggregateRootStats(children []childWeightInfo, rep *Report) {
	totalWeight := 1.0
	winRateSum := s.rootSelfWinRate
	scoreLeadSum := s.rootSelfScoreLead
	scoreMeanSum := s.rootSelfScoreMean
	scoreMeanSqSum := s.rootSelfScoreMeanSq

	for _, c := range children {
		if c.weight <= 0 {
			continue
		}
		ch := c.edge.Child.Stats
		q := ch.ValueSum / float64(ch.Visits)
		winRateSum += c.weight * (q + 1) / 2 // child stats are already Black-relative, same as root
		scoreLeadSum += c.weight * (ch.ScoreLeadSum / float64(ch.Visits))
		scoreMeanSum += c.weight * (ch.ScoreMeanSum / float64(ch.Visits))
		scoreMeanSqSum += c.weight * (ch.ScoreMeanSqSum / float64(ch.Visits))
		totalWeight += c.weight
	}

	rep.RootWinRate = winRateSum / totalWeight
	rep.RootScoreLead = scoreLeadSum / totalWeight
	rep.RootScoreSelfplay = scoreMeanSum / totalWeight
	meanSq := scoreMeanSqSum / totalWeight
	mean := rep.RootScoreSelfplay
	variance := meanSq - mean*mean
	rep.RootScoreStdev = sqrt(math.Max(0, variance))
}

// aggregateOwnership fills the report's ownership maps. In OwnershipRoot
// mode the root's own NN ownership is reported directly; in OwnershipTree
// mode a recursive desired-proportion split walks the tree weighting by
// visits.
func (s *Search) aggregateOwnership(rep *Report) {
	if s.params.OwnershipMode == rules.OwnershipRoot || s.rootOwnership == nil {
		rep.Ownership = append([]float32(nil), s.rootOwnership...)
		rep.OwnershipStdev = make([]float32, len(s.rootOwnership))
		for i := range rep.OwnershipStdev {
			sq := s.rootOwnershipSq[i]
			m := s.rootOwnership[i]
			v := float32(0)
			if sq > m*m {
				v = sq - m*m
			}
			rep.OwnershipStdev[i] = float32(sqrt(float64(v)))
		}
		return
	}

	mean := make([]float64, board.NumPoints)
	meanSq := make([]float64, board.NumPoints)
	accumulateOwnership(s.root, 1.0, mean, meanSq)

	rep.Ownership = make([]float32, board.NumPoints)
	rep.OwnershipStdev = make([]float32, board.NumPoints)
	for i := 0; i < board.NumPoints; i++ {
		rep.Ownership[i] = float32(mean[i])
		v := meanSq[i] - mean[i]*mean[i]
		rep.OwnershipStdev[i] = float32(sqrt(math.Max(0, v)))
	}
}

// accumulateOwnership is the recursive desired-proportion split: prop
// starts at 1 for the root and is divided between a self-contribution and
// children proportional to childVisits^2. Nodes whose share falls under
// minProp contribute their own NN ownership and stop recursing.
func accumulateOwnership(n *Node, prop float64, mean, meanSq []float64) {
	minProp := 0.5 * math.Pow(float64(n.Stats.Visits), -0.75)
	pruneProp := 0.01 * minProp

	hasChildren := false
	for _, e := range n.Edges {
		if e.Child != nil && e.Child.Stats.Visits > 0 {
			hasChildren = true
			break
		}
	}

	if prop < minProp || !hasChildren || n.Stats.Ownership == nil {
		if n.Stats.Ownership != nil {
			for i := 0; i < board.NumPoints; i++ {
				o := float64(n.Stats.Ownership[i])
				mean[i] += prop * o
				meanSq[i] += prop * o * o
			}
		}
		return
	}

	var sumSqVisits float64
	for _, e := range n.Edges {
		if e.Child != nil && e.Child.Stats.Visits > 0 {
			v := float64(e.Child.Stats.Visits)
			sumSqVisits += v * v
		}
	}

	selfProp := prop * 0.5 // self-contribution weight 1 vs children weights=visits, approximated as an even split
	remaining := prop - selfProp
	for i := 0; i < board.NumPoints; i++ {
		o := float64(n.Stats.Ownership[i])
		mean[i] += selfProp * o
		meanSq[i] += selfProp * o * o
	}

	for _, e := range n.Edges {
		if e.Child == nil || e.Child.Stats.Visits == 0 {
			continue
		}
		v := float64(e.Child.Stats.Visits)
		childProp := remaining * (v * v) / sumSqVisits
		if childProp < pruneProp {
			for i := 0; i < board.NumPoints; i++ {
				ow := float64(n.Stats.Ownership[i])
				mean[i] += childProp * ow
				meanSq[i] += childProp * ow * ow
			}
			continue
		}
		accumulateOwnership(e.Child, childProp, mean, meanSq)
	}
}

// buildMoveReports assembles the candidate list: top-K by (visits desc,
// insertion-order asc), points-lost metrics, and PV reconstruction.
func (s *Search) buildMoveReports(children []childWeightInfo, topK, analysisPvLen int, includeOwnership bool, rep *Report) {
	type cand struct {
		edge *Edge
		index int
	}
	cands := make([]cand, 0, len(s.root.Edges))
	for i, e := range s.root.Edges {
		if e.Child != nil && e.Child.Stats.Visits > 0 {
			cands = append(cands, cand{edge: e, index: i})
		}
	}
	slices.SortStableFunc(cands, func(a, b cand) int {
		va, vb := a.edge.Child.Stats.Visits, b.edge.Child.Stats.Visits
		switch {
		case va != vb:
			return vb - va
		default:
			return a.index - b.index
		}
	})
	if len(cands) > topK {
		cands = cands[:topK]
	}

	sign := 1.0
	if s.root.PlayerToMove == board.White {
		sign = -1.0
	}

	var bestScoreLead float64
	if len(cands) > 0 {
		bestScoreLead = cands[0].edge.Child.Stats.ScoreLeadSum / float64(cands[0].edge.Child.Stats.Visits)
	}

	rep.Moves = make([]MoveReport, 0, len(cands))
	for order, c := range cands {
		ch := c.edge.Child.Stats
		winRate := (ch.ValueSum/float64(ch.Visits) + 1) / 2
		scoreLead := ch.ScoreLeadSum / float64(ch.Visits)
		scoreMean := ch.ScoreMeanSum / float64(ch.Visits)
		meanSq := ch.ScoreMeanSqSum / float64(ch.Visits)
		variance := meanSq - scoreMean*scoreMean
		scoreStdev := sqrt(math.Max(0, variance))

		x, y := -1, -1
		if c.edge.MoveIndex != board.Pass {
			x, y = board.XY(c.edge.MoveIndex)
		}

		mr := MoveReport{
			X: x, Y: y,
			WinRate: winRate,
			ScoreLead: scoreLead,
			ScoreSelfplay: scoreMean,
			ScoreStdev: scoreStdev,
			Visits: ch.Visits,
			Order: order,
			Prior: c.edge.Prior,
			PointsLost: sign * (rep.RootScoreLead - scoreLead),
			RelativePointsLost: sign * (bestScoreLead - scoreLead),
			WinRateLost: sign * (rep.RootWinRate - winRate),
		}
		mr.PV = s.reconstructPV(c.edge, analysisPvLen)
		if includeOwnership && c.edge.Child.Stats.Ownership != nil {
			mr.Ownership = append([]float32(nil), c.edge.Child.Stats.Ownership...)
		}
		rep.Moves = append(rep.Moves, mr)
	}
}

// reconstructPV walks best-visit children from edge down to depth
// 1+analysisPvLen, emitting GTP labels.
func (s *Search) reconstructPV(edge *Edge, analysisPvLen int) []string {
	pv := []string{gtpLabel(edge.MoveIndex)}
	n := edge.Child
	for depth := 0; depth < analysisPvLen && n != nil && n.Expanded; depth++ {
		var best *Edge
		bestVisits := -1
		for _, e := range n.Edges {
			if e.Child != nil && e.Child.Stats.Visits > bestVisits {
				bestVisits = e.Child.Stats.Visits
				best = e
			}
		}
		if best == nil || bestVisits <= 0 {
			break
		}
		pv = append(pv, gtpLabel(best.MoveIndex))
		n = best.Child
	}
	return pv
}
