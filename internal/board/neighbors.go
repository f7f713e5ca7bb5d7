package board

// Size is the fixed board dimension. The engine only supports 19x19.
const Size = 19

// NumPoints is the number of intersections on the board.
const NumPoints = Size * Size

// neighborStart/neighborCount/neighborList are a precomputed flat
// adjacency table: per-position start/count into a flat neighbor array
// (corner=2, edge=3, interior=4). Built once at package init and never
// mutated after.
var (
	neighborStart [NumPoints]int32
	neighborCount [NumPoints]uint8
	neighborList [NumPoints * 4]int32
)

func init() {
	cursor := int32(0)
	for p := 0; p < NumPoints; p++ {
		x, y := p%Size, p/Size
		neighborStart[p] = cursor
		count := uint8(0)
		try := func(nx, ny int) {
			if nx < 0 || nx >= Size || ny < 0 || ny >= Size {
				return
			}
			neighborList[cursor] = int32(ny*Size + nx)
			cursor++
			count++
		}
		try(x-1, y)
		try(x+1, y)
		try(x, y-1)
		try(x, y+1)
		neighborCount[p] = count
	}
}

// Neighbors returns the (up to 4) neighbor points of p.
func Neighbors(p int) []int32 {
	start := neighborStart[p]
	count := neighborCount[p]
	out := make([]int32, count)
	copy(out, neighborList[start:start+int32(count)])
	return out
}

// Row returns the 0-indexed row, with y=0 at the top.
func Row(p int) int { return p / Size }

// Col returns the 0-indexed column.
func Col(p int) int { return p % Size }

// XY returns (x, y) for point p.
func XY(p int) (x, y int) { return Col(p), Row(p) }

// PointAt returns the point index for (x, y), or -1 if out of range.
func PointAt(x, y int) int {
	if x < 0 || x >= Size || y < 0 || y >= Size {
		return -1
	}
	return y*Size + x
}
