package mcts

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gobaduk/engine/internal/ai"
	"github.com/gobaduk/engine/internal/board"
	"github.com/gobaduk/engine/internal/features"
	"github.com/gobaduk/engine/internal/generics"
	"github.com/gobaduk/engine/internal/gtp"
	"github.com/gobaduk/engine/internal/rules"
)

// historyWindow bounds the per-leaf move history threaded through descend:
// the NN only looks back 5 plies, per features.RecentMove.
const historyWindow = 5

// pathEntry is one step of a recorded descent: the node departed from,
// the edge taken, and the move/color played into the scratch board, so
// Backup can unwind virtual loss and UndoMove can restore the board.
type pathEntry struct {
	node *Node
	edge *Edge
	move int
	color board.Color
	snap board.UndoSnapshot
}

// leafBatch is one leaf claimed for evaluation.
type leafBatch struct {
	path []pathEntry
	leaf *Node
	leafBoard *board.Board // position at the leaf, cloned for feature building
	symmetry int
	input ai.Input
	inputBuf *features.Inputs
}

// Search is one KataGo-style MCTS search instance. A Search owns its tree, scratch board, and scratch
// buffers; it is never shared across goroutines.
type Search struct {
	ID uuid.UUID

	root *Node
	rootBoard *board.Board

	evaluator ai.Evaluator
	calibration ai.Calibration
	scoring rules.Scoring
	komi float64

	params rules.SearchParams

	history []features.RecentMove

	recentScoreCenter float64
	rootOwnership []float32
	rootOwnershipSq []float32

	// The root's own NN evaluation, kept separate from the accumulated
	// tree sums: report aggregation folds these in at weight 1 alongside
	// the children, so the self-contribution never double-counts
	// descendants.
	rootSelfWinRate float64
	rootSelfScoreLead float64
	rootSelfScoreMean float64
	rootSelfScoreMeanSq float64

	scratch *board.GroupScratch
	expandScratch *expandScratch
	pools *features.Pools
	rng *rand.Rand
}

// Create constructs a root-evaluated Search: evaluate the root position
// once (with ownership), expand it with rootPolicyOptimism, and seed root
// stats from the NN evaluation.
func Create(ctx context.Context, evaluator ai.Evaluator, b *board.Board, history []features.RecentMove, currentPlayer board.Color, params rules.SearchParams, pools *features.Pools) (*Search, error) {
	params.Clamp()
	cal := evaluator.Calibration()
	if !cal.PolicyOutChannels.Valid() {
		return nil, ai.NewSearchError(ai.ErrInvalidModelOutput, "unrecognized policyOutChannels")
	}

	s := &Search{
		ID: uuid.New(),
		rootBoard: b.Clone(),
		evaluator: evaluator,
		calibration: cal,
		scoring: params.Scoring,
		komi: params.Komi,
		params: params,
		history: append([]features.RecentMove(nil), history...),
		scratch: board.NewGroupScratch(),

		expandScratch: newExpandScratch(),
		pools: pools,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	s.recentScoreCenter = 0 // updated once the root NN eval is in.

	root := newNode(currentPlayer)
	s.root = root

	sym := 0
	if params.NNRandomize {
		sym = s.rng.Intn(features.NumSymmetries)
	}

	pool := pools.For(params.Scoring)
	in := pool.Get()
	defer pool.Put(in)
	features.Build(b, features.BuildParams{
		PlayerToMove: currentPlayer,
		History: s.history,
		Scoring: params.Scoring,
		Komi: params.Komi,
		ConservativePassAtRoot: params.ConservativePass,
		IsRoot: true,
		Symmetry: sym,
	}, in, s.scratch)

	outs, err := evaluator.Evaluate(ctx, []ai.Input{{Spatial: in.Spatial, Global: in.Global}}, true)
	if err != nil {
		return nil, errors.Wrap(err, "root evaluation")
	}
	if len(outs) != 1 {
		return nil, ai.NewSearchError(ai.ErrInvalidModelOutput, "evaluator returned wrong batch size")
	}
	out := blendOptimism(outs[0], cal, params.RootPolicyOptimism)
	if err := ai.ValidateOutput(out, board.NumPoints, true); err != nil {
		return nil, err
	}

	pp := ai.EvalPostprocess(out, cal, currentPlayer, 0)

	expectedWhiteScore := float64(pp.ScoreLead)
	s.recentScoreCenter = clampF(0.8*expectedWhiteScore, expectedWhiteScore-sqrt(361)*0.75, expectedWhiteScore+sqrt(361)*0.75)

	s.rootSelfWinRate = float64(pp.BlackWinProb)
	s.rootSelfScoreLead = float64(pp.ScoreLead)
	s.rootSelfScoreMean = float64(pp.ScoreMean)
	s.rootSelfScoreMeanSq = float64(pp.ScoreStdev)*float64(pp.ScoreStdev) + float64(pp.ScoreMean)*float64(pp.ScoreMean)

	root.Stats.NNUtility = pp.UtilityBlack
	root.Stats.Visits = 1
	root.Stats.ValueSum = float64(pp.BlackWinProb*2 - 1)
	root.Stats.ScoreLeadSum = float64(pp.ScoreLead)
	root.Stats.ScoreMeanSum = float64(pp.ScoreMean)
	root.Stats.ScoreMeanSqSum = float64(pp.ScoreStdev)*float64(pp.ScoreStdev) + float64(pp.ScoreMean)*float64(pp.ScoreMean)
	root.Stats.UtilitySum = float64(pp.UtilityBlack)
	root.Stats.UtilitySqSum = float64(pp.UtilityBlack) * float64(pp.UtilityBlack)

	unshuffled := unshuffleOwnership(out.Ownership, sym)
	root.Stats.Ownership = unshuffled
	s.rootOwnership = append([]float32(nil), unshuffled...)
	s.rootOwnershipSq = make([]float32, len(unshuffled))
	for i, o := range unshuffled {
		s.rootOwnershipSq[i] = o * o
	}

	s.expand(root, b, out, cal, sym, true)

	return s, nil
}

// unshuffleOwnership maps an ownership tensor out of symmetry space back
// into board space via SYM's inverse.
func unshuffleOwnership(ownership []float32, sym int) []float32 {
	if ownership == nil {
		return nil
	}
	out := make([]float32, board.NumPoints)
	for p := 0; p < board.NumPoints; p++ {
		out[p] = ownership[int(features.SYM[sym][p])]
	}
	return out
}

// blendOptimism blends a channel-doubled policy+pass head using the
// optimism fraction; plain single-channel heads pass through unchanged.
func blendOptimism(out ai.Output, cal ai.Calibration, optimism float64) ai.Output {
	if cal.PolicyOutChannels == ai.PolicyChannelsPlain || out.PolicyOptimism == nil {
		return out
	}
	blended := out
	blended.Policy = make([]float32, len(out.Policy))
	o := float32(optimism)
	for i := range out.Policy {
		blended.Policy[i] = out.Policy[i]*(1-o) + out.PolicyOptimism[i]*o
	}
	blended.PassLogit = out.PassLogit*(1-o) + out.PassLogitOptimism*o
	return blended
}

// Run performs the batched descent/backup loop until termination: visit
// target reached, deadline fired, or shouldAbort returned true. Returns
// cancelled=true only in the shouldAbort case; hitting the deadline with
// fewer visits is not an error.
func (s *Search) Run(ctx context.Context, shouldAbort func() bool) (cancelled bool, err error) {
	deadline := time.Now().Add(time.Duration(s.params.MaxTimeMs) * time.Millisecond)
	attemptsSinceClockCheck := 0

	for s.root.Stats.Visits < s.params.Visits {
		if shouldAbort != nil && shouldAbort() {
			return true, nil
		}

		batch, err := s.collectBatch(deadline)
		if err != nil {
			return false, err
		}
		if len(batch) == 0 {
			break
		}

		if err := s.evaluateAndBackup(ctx, batch); err != nil {
			return false, err
		}

		attemptsSinceClockCheck += len(batch)
		if attemptsSinceClockCheck >= 32 {
			attemptsSinceClockCheck = 0
			if time.Now().After(deadline) {
				break
			}
		}
		if shouldAbort != nil && shouldAbort() {
			return true, nil
		}
	}
	return false, nil
}

// collectBatch repeatedly descends from the root, claiming leaves until
// batchSize is filled or 8*batchSize descent attempts have been made.
func (s *Search) collectBatch(deadline time.Time) ([]*leafBatch, error) {
	batchSize := s.params.BatchSize
	maxAttempts := 8 * batchSize
	var batch []*leafBatch

	b := s.rootBoard.Clone()
	for attempts := 0; len(batch) < batchSize && attempts < maxAttempts; attempts++ {
		if s.root.Stats.Visits+len(batch) >= s.params.Visits {
			break
		}
		if time.Now().After(deadline) && len(batch) > 0 {
			break
		}
		path, leaf, leafHistory, abandoned := s.descend(b)
		if abandoned {
			s.undoPath(b, path)
			continue
		}
		if leaf == nil {
			// No leaf was returned: undo the path and try another
			// descent; nothing is backed up for this attempt.
			s.undoPath(b, path)
			continue
		}

		leaf.Stats.PendingEval = true
		for _, pe := range path {
			pe.node.Stats.InFlight++
		}
		leaf.Stats.InFlight++

		sym := 0
		if s.params.NNRandomize {
			sym = s.rng.Intn(features.NumSymmetries)
		}
		pool := s.pools.For(s.scoring)
		in := pool.Get()
		features.Build(b, features.BuildParams{
			PlayerToMove: leaf.PlayerToMove,
			History: leafHistory,
			Scoring: s.scoring,
			Komi: s.komi,
			Symmetry: sym,
		}, in, s.scratch)

		batch = append(batch, &leafBatch{
			path: append([]pathEntry(nil), path...),
			leaf: leaf,
			leafBoard: b.Clone(),
			symmetry: sym,
			input: ai.Input{Spatial: in.Spatial, Global: in.Global},
			inputBuf: in,
		})
		s.undoPath(b, path)
	}
	return batch, nil
}

// descend implements Selection repeatedly from the root to a leaf, playing
// moves into the scratch board b and recording the path. It also builds the
// leaf's move history (the Search's rootward history extended by every move
// played during this descent, most-recent-last, capped to the last 5 plies
// per the NN's lookback window). Returns abandoned=true if a pendingEval
// node was hit.
func (s *Search) descend(b *board.Board) (path []pathEntry, leaf *Node, history []features.RecentMove, abandoned bool) {
	n := s.root
	isRoot := true
	history = append([]features.RecentMove(nil), s.history...)
	for n.Expanded && len(n.Edges) > 0 {
		if n.Stats.PendingEval {
			return path, nil, nil, true
		}
		e := s.selectEdge(n, isRoot)
		isRoot = false
		if e.Child == nil {
			e.Child = newNode(n.PlayerToMove.Opponent())
		}
		snap, err := b.PlayMove(e.MoveIndex, n.PlayerToMove, s.scratch)
		if err != nil {
			// Expansion's cheap legality predicate admitted a move that
			// turned out to be suicide; treat as a dead edge by pruning
			// it and retrying selection at this node.
			s.pruneEdge(n, e)
			continue
		}
		path = append(path, pathEntry{node: n, edge: e, move: e.MoveIndex, color: n.PlayerToMove, snap: snap})
		history = append(history, features.RecentMove{MoveIndex: e.MoveIndex, Player: n.PlayerToMove})
		if len(history) > historyWindow {
			history = history[len(history)-historyWindow:]
		}
		n = e.Child
		if n.Stats.PendingEval {
			return path, nil, nil, true
		}
	}
	return path, n, history, false
}

func (s *Search) pruneEdge(n *Node, dead *Edge) {
	out := n.Edges[:0]
	for _, e := range n.Edges {
		if e != dead {
			out = append(out, e)
		}
	}
	n.Edges = out
}

func (s *Search) undoPath(b *board.Board, path []pathEntry) {
	for i := len(path) - 1; i >= 0; i-- {
		pe := path[i]
		b.UndoMove(pe.move, pe.color, pe.snap)
	}
}

// evaluateAndBackup issues one NN call for the batch and backs up every
// leaf.
func (s *Search) evaluateAndBackup(ctx context.Context, batch []*leafBatch) error {
	inputs := generics.SliceMap(batch, func(lb *leafBatch) ai.Input { return lb.input })
	includeOwnership := s.params.OwnershipMode == rules.OwnershipTree
	outs, err := s.evaluator.Evaluate(ctx, inputs, includeOwnership)
	if err != nil {
		return errors.Wrap(err, "batch evaluation")
	}
	if len(outs) != len(batch) {
		return ai.NewSearchError(ai.ErrInvalidModelOutput, "evaluator returned mismatched batch size")
	}

	var backupErrs *multierror.Error
	for i, lb := range batch {
		out := blendOptimism(outs[i], s.calibration, s.params.PolicyOptimism)
		if err := ai.ValidateOutput(out, board.NumPoints, includeOwnership); err != nil {
			backupErrs = multierror.Append(backupErrs, errors.Wrapf(err, "leaf %d", i))
			lb.leaf.Stats.InFlight--
			lb.leaf.Stats.PendingEval = false
			for j := len(lb.path) - 1; j >= 0; j-- {
				lb.path[j].node.Stats.InFlight--
			}
			s.pools.For(s.scoring).Put(lb.inputBuf)
			continue
		}

		pp := ai.EvalPostprocess(out, s.calibration, lb.leaf.PlayerToMove, s.recentScoreCenter)
		lb.leaf.Stats.NNUtility = pp.UtilityBlack
		if includeOwnership {
			lb.leaf.Stats.Ownership = unshuffleOwnership(out.Ownership, lb.symmetry)
		}

		s.expand(lb.leaf, lb.leafBoard, out, s.calibration, lb.symmetry, false)

		valueBlack := float64(pp.BlackWinProb*2 - 1)
		scoreLead := float64(pp.ScoreLead)
		scoreMean := float64(pp.ScoreMean)
		scoreMeanSq := float64(pp.ScoreStdev)*float64(pp.ScoreStdev) + scoreMean*scoreMean
		utilityBlack := float64(pp.UtilityBlack)

		lb.leaf.Stats.Visits++
		lb.leaf.Stats.ValueSum += valueBlack
		lb.leaf.Stats.ScoreLeadSum += scoreLead
		lb.leaf.Stats.ScoreMeanSum += scoreMean
		lb.leaf.Stats.ScoreMeanSqSum += scoreMeanSq
		lb.leaf.Stats.UtilitySum += utilityBlack
		lb.leaf.Stats.UtilitySqSum += utilityBlack * utilityBlack
		lb.leaf.Stats.InFlight--
		lb.leaf.Stats.PendingEval = false

		for j := len(lb.path) - 1; j >= 0; j-- {
			nd := lb.path[j].node
			nd.Stats.Visits++
			nd.Stats.ValueSum += valueBlack
			nd.Stats.ScoreLeadSum += scoreLead
			nd.Stats.ScoreMeanSum += scoreMean
			nd.Stats.ScoreMeanSqSum += scoreMeanSq
			nd.Stats.UtilitySum += utilityBlack
			nd.Stats.UtilitySqSum += utilityBlack * utilityBlack
			nd.Stats.InFlight--
		}

		s.pools.For(s.scoring).Put(lb.inputBuf)
	}

	klog.V(2).Infof("search %s: backed up batch of %d, root visits=%d", s.ID, len(batch), s.root.Stats.Visits)
	return backupErrs.ErrorOrNil()
}

// gtpLabel formats a move index as a GTP coordinate label, used by
// principal-variation reconstruction.
func gtpLabel(move int) string {
	if move == board.Pass {
		return "pass"
	}
	x, y := board.XY(move)
	return gtp.Format(x, y)
}
