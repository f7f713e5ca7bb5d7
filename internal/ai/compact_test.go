package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestCompactRoundTrip(t *testing.T) {
	values := []float32{0, 1, -1, 0.5, -0.5, 0.999, -0.999, 1e-4}

	packed := PackCompact(values)
	require.Len(t, packed, len(values))

	unpacked := UnpackCompact(packed)
	require.Len(t, unpacked, len(values))

	for i, want := range values {
		got := unpacked[i]
		ulp := float16.Fromfloat32(want).Float32()
		require.InDelta(t, float64(ulp), float64(got), 1e-3, "value %d round-tripped outside one ulp of float16", i)
	}
}

func TestCompactPreservesBitPattern(t *testing.T) {
	packed := PackCompact([]float32{3.25})
	require.Equal(t, float16.Fromfloat32(3.25).Bits(), packed[0])
}
