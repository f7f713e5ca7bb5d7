package mcts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gobaduk/engine/internal/ai"
	"github.com/gobaduk/engine/internal/board"
	"github.com/gobaduk/engine/internal/features"
	"github.com/gobaduk/engine/internal/rules"
)

// uniformEvaluator is a deterministic stand-in NN evaluator for tests:
// uniform policy, slight win-rate bias toward the player to move, and
// flat ownership.
type uniformEvaluator struct {
	cal ai.Calibration
}

func newUniformEvaluator() *uniformEvaluator {
	return &uniformEvaluator{cal: ai.Calibration{
		OutputScaleMultiplier: 1,
		ScoreMeanMultiplier: 1,
		ScoreStdevMultiplier: 1,
		LeadMultiplier: 1,
		PolicyOutChannels: ai.PolicyChannelsPlain,
		ModelVersion: 8,
	}}
}

func (e *uniformEvaluator) Calibration() ai.Calibration { return e.cal }

func (e *uniformEvaluator) Evaluate(_ context.Context, batch []ai.Input, includeOwnership bool) ([]ai.Output, error) {
	outs := make([]ai.Output, len(batch))
	for i := range batch {
		out := ai.Output{
			Policy: make([]float32, board.NumPoints),
			PassLogit: -1,
			ValueLogits: [3]float32{0.1, -0.1, 0},
			ScoreValue: [4]float32{0.5, 3, 0.5, 0},
		}
		if includeOwnership {
			out.Ownership = make([]float32, board.NumPoints)
		}
		outs[i] = out
	}
	return outs, nil
}

func testParams() rules.SearchParams {
	p := rules.DefaultSearchParams()
	p.Visits = 32
	p.BatchSize = 4
	p.MaxTimeMs = 5000
	return p
}

func TestCreateSeedsRootFromNNEval(t *testing.T) {
	b := board.NewBoard()
	s, err := Create(context.Background(), newUniformEvaluator(), b, nil, board.Black, testParams(), features.NewPools())
	require.NoError(t, err)
	require.Equal(t, 1, s.root.Stats.Visits)
	require.True(t, s.root.Expanded)
	require.Greater(t, len(s.root.Edges), 1)
}

func TestRunReachesVisitTarget(t *testing.T) {
	b := board.NewBoard()
	params := testParams()
	s, err := Create(context.Background(), newUniformEvaluator(), b, nil, board.Black, params, features.NewPools())
	require.NoError(t, err)

	cancelled, err := s.Run(context.Background(), nil)
	require.NoError(t, err)
	require.False(t, cancelled)
	require.GreaterOrEqual(t, s.root.Stats.Visits, params.Visits)
}

func TestRunRespectsShouldAbort(t *testing.T) {
	b := board.NewBoard()
	s, err := Create(context.Background(), newUniformEvaluator(), b, nil, board.Black, testParams(), features.NewPools())
	require.NoError(t, err)

	cancelled, err := s.Run(context.Background(), func() bool { return true })
	require.NoError(t, err)
	require.True(t, cancelled)
}

func TestGetAnalysisReportShape(t *testing.T) {
	b := board.NewBoard()
	params := testParams()
	s, err := Create(context.Background(), newUniformEvaluator(), b, nil, board.Black, params, features.NewPools())
	require.NoError(t, err)
	_, err = s.Run(context.Background(), nil)
	require.NoError(t, err)

	rep := s.GetAnalysis(10, 5, false)
	require.NotEmpty(t, rep.Moves)
	require.LessOrEqual(t, len(rep.Moves), 10)
	for i := 1; i < len(rep.Moves); i++ {
		require.GreaterOrEqual(t, rep.Moves[i-1].Visits, 0)
	}
	require.Len(t, rep.Ownership, board.NumPoints)
	require.NotEmpty(t, rep.Moves[0].PV)
}

// walkTree applies fn to every allocated node reachable from n.
func walkTree(n *Node, fn func(*Node)) {
	fn(n)
	for _, e := range n.Edges {
		if e.Child != nil {
			walkTree(e.Child, fn)
		}
	}
}

func TestRunLeavesNoInFlightOrPendingEval(t *testing.T) {
	b := board.NewBoard()
	s, err := Create(context.Background(), newUniformEvaluator(), b, nil, board.Black, testParams(), features.NewPools())
	require.NoError(t, err)
	_, err = s.Run(context.Background(), nil)
	require.NoError(t, err)

	walkTree(s.root, func(n *Node) {
		require.Zero(t, n.Stats.InFlight)
		require.False(t, n.Stats.PendingEval)
		require.GreaterOrEqual(t, n.Stats.Visits, 0)
	})
}

func TestExpandedNodePriorsSumToOneWithPassLast(t *testing.T) {
	b := board.NewBoard()
	s, err := Create(context.Background(), newUniformEvaluator(), b, nil, board.Black, testParams(), features.NewPools())
	require.NoError(t, err)

	edges := s.root.Edges
	require.NotEmpty(t, edges)
	require.Equal(t, board.Pass, edges[len(edges)-1].MoveIndex, "pass must be the last edge")

	var sum float64
	for _, e := range edges {
		sum += float64(e.Prior)
	}
	// Priors are softmax probabilities over all legal moves, renormalized
	// after top-K pruning, so the retained edges sum to 1.
	require.InDelta(t, 1.0, sum, 1e-5)
	require.Greater(t, sum, 0.0)

	for i := 0; i+2 < len(edges); i++ {
		require.GreaterOrEqual(t, edges[i].Prior, edges[i+1].Prior, "non-pass edges must be in non-increasing prior order")
	}
}

func TestRunTerminatesAtExactVisitTarget(t *testing.T) {
	b := board.NewBoard()
	params := testParams()
	params.Visits = 16
	params.BatchSize = 1
	s, err := Create(context.Background(), newUniformEvaluator(), b, nil, board.Black, params, features.NewPools())
	require.NoError(t, err)

	_, err = s.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 16, s.root.Stats.Visits, "root eval counts as visit 1, plus 15 simulated")
}

func TestCancellationBeforeFirstBatchStillReportsRootEval(t *testing.T) {
	b := board.NewBoard()
	s, err := Create(context.Background(), newUniformEvaluator(), b, nil, board.Black, testParams(), features.NewPools())
	require.NoError(t, err)

	cancelled, err := s.Run(context.Background(), func() bool { return true })
	require.NoError(t, err)
	require.True(t, cancelled)

	rep := s.GetAnalysis(10, 5, false)
	require.InDelta(t, 0.5, rep.RootWinRate, 0.5)
	require.GreaterOrEqual(t, rep.RootScoreStdev, 0.0)
	require.Len(t, rep.Policy, board.NumPoints+1)
}

func TestGetAnalysisIsDeterministicAcrossCalls(t *testing.T) {
	b := board.NewBoard()
	params := testParams()
	params.Visits = 64
	params.OwnershipMode = rules.OwnershipTree
	s, err := Create(context.Background(), newUniformEvaluator(), b, nil, board.Black, params, features.NewPools())
	require.NoError(t, err)
	_, err = s.Run(context.Background(), nil)
	require.NoError(t, err)

	rep1 := s.GetAnalysis(10, 5, false)
	rep2 := s.GetAnalysis(10, 5, false)
	require.Equal(t, rep1.Policy, rep2.Policy)
	require.Equal(t, rep1.Ownership, rep2.Ownership)
	require.Equal(t, rep1.OwnershipStdev, rep2.OwnershipStdev)
	require.Equal(t, rep1.Moves, rep2.Moves)
}

func TestTreeOwnershipBounded(t *testing.T) {
	b := board.NewBoard()
	params := testParams()
	params.Visits = 64
	params.OwnershipMode = rules.OwnershipTree
	s, err := Create(context.Background(), newUniformEvaluator(), b, nil, board.Black, params, features.NewPools())
	require.NoError(t, err)
	_, err = s.Run(context.Background(), nil)
	require.NoError(t, err)

	rep := s.GetAnalysis(10, 0, false)
	require.Len(t, rep.Ownership, board.NumPoints)
	for i, o := range rep.Ownership {
		require.LessOrEqual(t, o, float32(1.0001), "ownership at %d", i)
		require.GreaterOrEqual(t, o, float32(-1.0001), "ownership at %d", i)
		require.GreaterOrEqual(t, rep.OwnershipStdev[i], float32(0))
	}
}

func TestKoPointExcludedFromRootExpansion(t *testing.T) {
	b := board.NewBoard()
	scratch := board.NewGroupScratch()
	// Interior single-stone ko: white just captured at q, so the black
	// recapture at p is the illegal ko point.
	p := board.PointAt(10, 10)
	q := board.PointAt(10, 9)
	b.Stones[p] = board.Black
	b.Stones[board.PointAt(9, 10)] = board.White
	b.Stones[board.PointAt(11, 10)] = board.White
	b.Stones[board.PointAt(10, 11)] = board.White
	b.Stones[board.PointAt(9, 9)] = board.Black
	b.Stones[board.PointAt(11, 9)] = board.Black
	b.Stones[board.PointAt(10, 8)] = board.Black
	_, err := b.PlayMove(q, board.White, scratch)
	require.NoError(t, err)
	require.Equal(t, p, b.KoPoint)

	params := testParams()
	s, err := Create(context.Background(), newUniformEvaluator(), b, nil, board.Black, params, features.NewPools())
	require.NoError(t, err)
	for _, e := range s.root.Edges {
		require.NotEqual(t, p, e.MoveIndex, "ko point must not be expanded")
	}
	require.Equal(t, float32(-1), s.root.DensePolicy[p], "ko point must carry the illegal sentinel")
}

func TestReportRootStatsInRange(t *testing.T) {
	b := board.NewBoard()
	s, err := Create(context.Background(), newUniformEvaluator(), b, nil, board.Black, testParams(), features.NewPools())
	require.NoError(t, err)
	_, err = s.Run(context.Background(), nil)
	require.NoError(t, err)

	rep := s.GetAnalysis(10, 5, false)
	require.GreaterOrEqual(t, rep.RootWinRate, 0.0)
	require.LessOrEqual(t, rep.RootWinRate, 1.0)
	require.GreaterOrEqual(t, rep.RootScoreStdev, 0.0)
}

func TestGetAnalysisMovesSortedByVisitsDesc(t *testing.T) {
	b := board.NewBoard()
	params := testParams()
	params.Visits = 64
	s, err := Create(context.Background(), newUniformEvaluator(), b, nil, board.Black, params, features.NewPools())
	require.NoError(t, err)
	_, err = s.Run(context.Background(), nil)
	require.NoError(t, err)

	rep := s.GetAnalysis(50, 0, false)
	for i := 1; i < len(rep.Moves); i++ {
		require.GreaterOrEqual(t, rep.Moves[i-1].Visits, rep.Moves[i].Visits)
	}
}
