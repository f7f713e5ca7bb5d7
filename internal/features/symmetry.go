// The 8 dihedral board symmetries used to randomize NN inputs and
// unshuffle policy/ownership outputs. SYM is a precomputed,
// package-global, read-only-after-init permutation table.
package features

import "github.com/gobaduk/engine/internal/board"

// NumSymmetries is the size of the dihedral group of the square.
const NumSymmetries = 8

// SYM[s][p] gives the symmetry-s image of point p; InvSYM is its inverse
// permutation, so InvSYM[s][SYM[s][p]] == p for all s, p.
var (
	SYM [NumSymmetries][board.NumPoints]int32
	InvSYM [NumSymmetries][board.NumPoints]int32
)

// symTransforms are the 8 (x,y) -> (x',y') maps of the dihedral group D4
// over an NxN grid (N = board.Size): identity, 3 rotations, and 4 axis/
// diagonal reflections.
var symTransforms = [NumSymmetries]func(x, y int) (int, int){
	func(x, y int) (int, int) { return x, y },
	func(x, y int) (int, int) { return y, board.Size - 1 - x },
	func(x, y int) (int, int) { return board.Size - 1 - x, board.Size - 1 - y },
	func(x, y int) (int, int) { return board.Size - 1 - y, x },
	func(x, y int) (int, int) { return board.Size - 1 - x, y },
	func(x, y int) (int, int) { return board.Size - 1 - y, board.Size - 1 - x },
	func(x, y int) (int, int) { return x, board.Size - 1 - y },
	func(x, y int) (int, int) { return y, x },
}

func init() {
	for s := 0; s < NumSymmetries; s++ {
		for p := 0; p < board.NumPoints; p++ {
			x, y := board.XY(p)
			nx, ny := symTransforms[s](x, y)
			np := board.PointAt(nx, ny)
			SYM[s][p] = int32(np)
			InvSYM[s][np] = int32(p)
		}
	}
}
