package ai

import (
	"github.com/chewxy/math32"
	"github.com/gobaduk/engine/internal/board"
)

// Black utility weights and centering.
const (
	utilityWinLossWeight = 1.0
	utilityNoResultWeight = 0.0
	utilityStaticWeight = 0.1
	utilityDynamicWeight = 0.3

	staticScoreCenter = 0.0
	staticScoreScale = 2.0
	dynamicScoreScale = 0.75

	// WhiteUtilityRadius bounds |utility|: the win-loss, static and
	// dynamic score terms each contribute at most their weight.
	WhiteUtilityRadius = utilityWinLossWeight + utilityStaticWeight + utilityDynamicWeight
)

// Postprocessed is the result of EvalPostprocess for one leaf.
type Postprocessed struct {
	WinProb float32 // player-to-move perspective
	LossProb float32
	NoResultProb float32
	BlackWinProb float32
	ScoreMean float32 // Black's perspective
	ScoreStdev float32
	ScoreLead float32
	VarianceTime float32
	UtilityBlack float32
}

// EvalPostprocess converts one leaf's raw NN output into the quantities
// used throughout MCTS. recentScoreCenter is the Search's dynamic-score
// center; playerToMove is the leaf's player to move.
func EvalPostprocess(out Output, cal Calibration, playerToMove board.Color, recentScoreCenter float64) Postprocessed {
	win, loss, noResult := softmax3(out.ValueLogits)

	plaIsBlack := playerToMove == board.Black
	blackWin := loss
	if plaIsBlack {
		blackWin = win
	}

	scoreMean := out.ScoreValue[0] * cal.ScoreMeanMultiplier
	scoreStdev := out.ScoreValue[1] * cal.ScoreStdevMultiplier
	lead := out.ScoreValue[2] * cal.LeadMultiplier
	varianceTime := out.ScoreValue[3]

	table := GetScoreValueTable()
	winLoss := win - loss
	if !plaIsBlack {
		winLoss = -winLoss
	}

	staticScoreValue := table.Expected(
		(float64(scoreMean)-staticScoreCenter)/staticScoreScale,
		float64(scoreStdev)/staticScoreScale)
	dynamicScoreValue := table.Expected(
		(float64(scoreMean)-recentScoreCenter)/dynamicScoreScale,
		float64(scoreStdev)/dynamicScoreScale)

	uBlack := winLoss*utilityWinLossWeight +
		noResult*utilityNoResultWeight +
		float32(staticScoreValue)*utilityStaticWeight +
		float32(dynamicScoreValue)*utilityDynamicWeight

	return Postprocessed{
		WinProb: win,
		LossProb: loss,
		NoResultProb: noResult,
		BlackWinProb: blackWin,
		ScoreMean: scoreMean,
		ScoreStdev: scoreStdev,
		ScoreLead: lead,
		VarianceTime: varianceTime,
		UtilityBlack: uBlack,
	}
}

func softmax3(logits [3]float32) (a, b, c float32) {
	max := logits[0]
	if logits[1] > max {
		max = logits[1]
	}
	if logits[2] > max {
		max = logits[2]
	}
	e0 := math32.Exp(logits[0] - max)
	e1 := math32.Exp(logits[1] - max)
	e2 := math32.Exp(logits[2] - max)
	sum := e0 + e1 + e2
	return e0 / sum, e1 / sum, e2 / sum
}
