package ai

import "github.com/x448/float16"

// PackCompact converts a policy/ownership buffer to half precision for
// transport between a remote evaluator and the search core, the way
// KataGo's own NN IO carries activations at half precision over the
// wire. Values outside float16's representable range saturate to
// +/-Inf rather than wrapping.
func PackCompact(values []float32) []uint16 {
	packed := make([]uint16, len(values))
	for i, v := range values {
		packed[i] = float16.Fromfloat32(v).Bits()
	}
	return packed
}

// UnpackCompact reverses PackCompact.
func UnpackCompact(packed []uint16) []float32 {
	values := make([]float32, len(packed))
	for i, p := range packed {
		values[i] = float16.Frombits(p).Float32()
	}
	return values
}
