package generics

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSliceMap(t *testing.T) {
	in := []int{1, 2, 3}
	out := SliceMap(in, func(e int) string { return strconv.Itoa(e * 2) })
	assert.Equal(t, []string{"2", "4", "6"}, out)
}

func TestSliceMapEmpty(t *testing.T) {
	var in []int
	out := SliceMap(in, func(e int) int { return e })
	assert.Len(t, out, 0)
}
