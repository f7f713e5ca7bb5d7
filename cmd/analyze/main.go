// Command analyze runs the MCTS engine against a single position read
// from stdin as a GTP-style move list, and prints the top-K candidate
// moves.
//
// This is a thin illustrative driver: the NN evaluator is normally
// supplied by an external process; here a deterministic stub evaluator
// stands in so the binary runs standalone.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/gobaduk/engine/internal/ai"
	"github.com/gobaduk/engine/internal/board"
	"github.com/gobaduk/engine/internal/features"
	"github.com/gobaduk/engine/internal/gtp"
	"github.com/gobaduk/engine/internal/rules"
	"github.com/gobaduk/engine/internal/searchers/mcts"
)

var (
	visits = flag.Int("visits", 500, "number of MCTS visits")
	topK = flag.Int("top-k", 10, "number of candidate moves to report")
	timeout = flag.Duration("timeout", 5*time.Second, "search wall-clock budget")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	if err := run(); err != nil {
		klog.Errorf("analyze: %v", err)
		os.Exit(1)
	}
}

func run() error {
	b := board.NewBoard()
	history, currentPlayer, err := readMoves(b, bufio.NewReader(os.Stdin))
	if err != nil {
		return err
	}

	params := rules.DefaultSearchParams()
	params.Visits = *visits
	params.MaxTimeMs = int(timeout.Milliseconds())

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+time.Second)
	defer cancel()

	pools := features.NewPools()
	evaluator := stubEvaluator{}

	g, gctx := errgroup.WithContext(ctx)
	var search *mcts.Search
	g.Go(func() error {
		var err error
		search, err = mcts.Create(gctx, evaluator, b, history, currentPlayer, params, pools)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	cancelled, err := search.Run(ctx, func() bool { return ctx.Err() != nil })
	if err != nil {
		return err
	}
	if cancelled {
		klog.Warning("search cancelled before visit target reached")
	}

	report := search.GetAnalysis(*topK, 10, false)
	printReport(report)
	return nil
}

// readMoves plays a whitespace-separated GTP move list from r onto b,
// alternating black then white, and returns the trailing move history and
// the player to move next. An empty input leaves the board empty with
// black to move.
func readMoves(b *board.Board, r *bufio.Reader) ([]features.RecentMove, board.Color, error) {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)

	scratch := board.NewGroupScratch()
	var history []features.RecentMove
	player := board.Black
	for scanner.Scan() {
		label := scanner.Text()
		x, y, err := gtp.Parse(label)
		if err != nil {
			return nil, board.Empty, err
		}
		move := board.Pass
		if x != board.Pass {
			move = board.PointAt(x, y)
		}
		if _, err := b.PlayMove(move, player, scratch); err != nil {
			return nil, board.Empty, errors.Wrapf(err, "move %q", label)
		}
		history = append(history, features.RecentMove{MoveIndex: move, Player: player})
		player = player.Opponent()
	}
	if err := scanner.Err(); err != nil {
		return nil, board.Empty, err
	}
	if len(history) > 5 {
		history = history[len(history)-5:]
	}
	return history, player, nil
}

func printReport(rep *mcts.Report) {
	fmt.Printf("winRate=%.3f scoreLead=%.2f stdev=%.2f\n", rep.RootWinRate, rep.RootScoreLead, rep.RootScoreStdev)
	for _, m := range rep.Moves {
		label := "pass"
		if m.X >= 0 {
			label = gtp.Format(m.X, m.Y)
		}
		fmt.Printf("%-4s visits=%-6d winRate=%.3f scoreLead=%.2f pv=%s\n",
			label, m.Visits, m.WinRate, m.ScoreLead, strings.Join(m.PV, " "))
	}
}

// stubEvaluator is a deterministic placeholder standing in for the real
// external NN evaluator, so `analyze` is runnable without a model file.
type stubEvaluator struct{}

func (stubEvaluator) Calibration() ai.Calibration {
	return ai.Calibration{
		OutputScaleMultiplier: 1,
		ScoreMeanMultiplier: 1,
		ScoreStdevMultiplier: 1,
		LeadMultiplier: 1,
		PolicyOutChannels: ai.PolicyChannelsPlain,
		ModelVersion: 8,
	}
}

func (stubEvaluator) Evaluate(_ context.Context, batch []ai.Input, includeOwnership bool) ([]ai.Output, error) {
	outs := make([]ai.Output, len(batch))
	for i := range batch {
		out := ai.Output{
			Policy: make([]float32, board.NumPoints),
			ValueLogits: [3]float32{0, 0, 0},
			ScoreValue: [4]float32{0, 5, 0, 0},
		}
		if includeOwnership {
			out.Ownership = make([]float32, board.NumPoints)
		}
		outs[i] = out
	}
	return outs, nil
}
