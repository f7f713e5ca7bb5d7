package gtp

import (
	"testing"

	"github.com/gobaduk/engine/internal/board"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	for y := 0; y < board.Size; y++ {
		for x := 0; x < board.Size; x++ {
			label := Format(x, y)
			px, py, err := Parse(label)
			require.NoError(t, err)
			require.Equal(t, x, px)
			require.Equal(t, y, py)
		}
	}
}

func TestPassRoundTrip(t *testing.T) {
	require.Equal(t, "pass", Format(board.Pass, board.Pass))
	x, y, err := Parse("pass")
	require.NoError(t, err)
	require.Equal(t, board.Pass, x)
	require.Equal(t, board.Pass, y)
}

func TestSkipsLetterI(t *testing.T) {
	for _, c := range columns {
		require.NotEqual(t, byte('I'), byte(c))
	}
}
