package ai

import (
	"context"

	"github.com/pkg/errors"
)

// ModelVersion identifies the policy/value head layout a model was
// trained with.
type ModelVersion int

// PolicyOutChannels is the recognized set of policy-head channel counts:
// 1 is a plain policy+pass head, 2 and 4 are the "optimism"-doubled heads
// introduced at modelVersion 16. Any other value is rejected at Search
// construction.
type PolicyOutChannels int

const (
	PolicyChannelsPlain PolicyOutChannels = 1
	PolicyChannelsOptimism PolicyOutChannels = 2
	PolicyChannelsQuad PolicyOutChannels = 4
)

// Valid reports whether c is one of the recognized channel counts.
func (c PolicyOutChannels) Valid() bool {
	switch c {
	case PolicyChannelsPlain, PolicyChannelsOptimism, PolicyChannelsQuad:
		return true
	default:
		return false
	}
}

// Calibration bundles the per-model constants carried alongside an
// Evaluator and read by EvalPostprocess and Expansion.
type Calibration struct {
	OutputScaleMultiplier float32
	ScoreMeanMultiplier float32
	ScoreStdevMultiplier float32
	LeadMultiplier float32
	PolicyOutChannels PolicyOutChannels
	ModelVersion ModelVersion
}

// Input is one leaf's NN input tensor pair, built by the features
// package.
type Input struct {
	Spatial []float32 // len 361*22
	Global []float32 // len 19
}

// Output is one leaf's raw NN output, pre-softmax and pre-scale.
// Policy/PassLogit may carry a second "optimism" channel when
// Calibration.PolicyOutChannels > 1, in which case PolicyOptimism/
// PassLogitOptimism are populated and blended by the caller.
type Output struct {
	Policy []float32 // len 361
	PassLogit float32
	PolicyOptimism []float32 // len 361, optional
	PassLogitOptimism float32
	ValueLogits [3]float32 // win, loss, no-result
	ScoreValue [4]float32 // mean, stdev, lead, varianceTime
	Ownership []float32 // len 361, optional
}

// Evaluator is the narrow contract for the external NN forward pass.
// Implementations are expected to batch internally; the core never
// assumes single-leaf latency. Retry/backoff is the evaluator's own
// concern, never the search core's.
type Evaluator interface {
	// Evaluate runs the model over a batch of leaves, returning one
	// Output per Input in the same order. includeOwnership requests the
	// ownership tensor be populated.
	Evaluate(ctx context.Context, batch []Input, includeOwnership bool) ([]Output, error)

	// Calibration returns the constants carried with this model.
	Calibration() Calibration
}

// ErrorKind classifies the typed failures a Search can surface.
type ErrorKind int

const (
	ErrIllegalMove ErrorKind = iota
	ErrMissingOwnership
	ErrInvalidModelOutput
	ErrCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case ErrIllegalMove:
		return "illegal move"
	case ErrMissingOwnership:
		return "missing ownership"
	case ErrInvalidModelOutput:
		return "invalid model output"
	case ErrCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// SearchError carries an ErrorKind with its message. These are never
// expected from a correctly operating core, but are surfaced rather than
// panicking so callers can log and abort the Search.
type SearchError struct {
	Kind ErrorKind
	Msg string
}

func (e *SearchError) Error() string {
	return e.Kind.String() + ": " + e.Msg
}

// NewSearchError builds a SearchError, wrapping with pkg/errors so
// callers retain a stack trace at the point of failure.
func NewSearchError(kind ErrorKind, msg string) error {
	return errors.WithStack(&SearchError{Kind: kind, Msg: msg})
}

// AsSearchError unwraps err to its *SearchError, if any.
func AsSearchError(err error) (*SearchError, bool) {
	type causer interface{ Cause() error }
	for err != nil {
		if se, ok := err.(*SearchError); ok {
			return se, true
		}
		c, ok := err.(causer)
		if !ok {
			break
		}
		err = c.Cause()
	}
	return nil, false
}

// ValidateOutput checks an Output's shape invariants. Value logits of
// length 3 and score-value of length 4 are enforced by the [3]/[4] array
// types already; this validates the variable-length slices.
func ValidateOutput(out Output, boardPoints int, includeOwnership bool) error {
	if len(out.Policy) != boardPoints {
		return NewSearchError(ErrInvalidModelOutput, "policy length mismatch")
	}
	if includeOwnership && len(out.Ownership) != boardPoints {
		return NewSearchError(ErrMissingOwnership, "ownership requested but absent")
	}
	return nil
}
