// Package mcts implements the leaf-parallel PUCT search: selection,
// expansion, batched backup, aggregation, and the driver that ties them
// together.
//
// This package previously held a cacheNode tree with per-action
// N/sumScores accumulators, built incrementally by a recursive
// SearchSubtree descent and a scorer interface. The tree shape
// (lazily-allocated children, per-edge visit/score accumulators, a
// single scorer collaborator) carries over; the PUCT/FPU/virtual-loss
// formulas, batched NN evaluation, and the black-perspective running
// sums are KataGo's, not the simple AlphaZero Q+U rule used previously,
// so Selection/Backup are rewritten.
package mcts

import "github.com/gobaduk/engine/internal/board"

// NodeStats holds the per-node accumulators. All sums are maintained from
// Black's perspective regardless of whose turn it is at this node.
type NodeStats struct {
	Visits int
	InFlight int
	PendingEval bool

	ValueSum float64
	ScoreLeadSum float64
	ScoreMeanSum float64
	ScoreMeanSqSum float64
	UtilitySum float64
	UtilitySqSum float64

	// NNUtility is the direct NN utility at this node, set on first
	// evaluation; used as the FPU anchor and as the pre-visit value.
	NNUtility float32

	// Ownership is populated only when the Search's ownership mode
	// requires per-node ownership (tree-averaging).
	Ownership []float32
}

// Edge is one outgoing move from a Node. Child is lazily
// allocated on first selection.
type Edge struct {
	MoveIndex int // board.Pass or 0..360
	Prior float32
	Child *Node
}

// Node is a tree node keyed implicitly by its path from the root.
type Node struct {
	PlayerToMove board.Color
	Stats NodeStats

	Edges []*Edge
	Expanded bool

	// DensePolicy is the full 362-length policy (illegal = -1 sentinel,
	// pass at index 361), recorded only for the root when the caller
	// requests it.
	DensePolicy []float32
}

// newNode allocates an unexpanded node for the given player to move.
func newNode(ptm board.Color) *Node {
	return &Node{PlayerToMove: ptm}
}

// utilityMean returns utilitySum/visits, the node's average black
// utility, used as ū in the PUCT formula.
func (s *NodeStats) utilityMean() float64 {
	if s.Visits == 0 {
		return float64(s.NNUtility)
	}
	return s.UtilitySum / float64(s.Visits)
}

// utilityStdev estimates stdev from (utilitySqSum, utilitySum, visits)
// blended with a fixed prior so low-visit nodes don't report a collapsed
// stdev.
func (s *NodeStats) utilityStdev() float64 {
	const priorStdev = 0.4
	const priorWeight = 2.0
	n := float64(s.Visits)
	weight := n + priorWeight
	meanSq := (s.UtilitySqSum + priorWeight*priorStdev*priorStdev) / weight
	mean := s.UtilitySum / weight
	variance := meanSq - mean*mean
	if variance < 0 {
		variance = 0
	}
	return sqrt(variance)
}
