// Package gtp formats and parses GTP-style move labels: letters skip 'I',
// columns A-H,J-T; rows 1..19 with row 19 at the top of the internal
// grid.
package gtp

import (
	"strconv"
	"strings"

	"github.com/gobaduk/engine/internal/board"
	"github.com/pkg/errors"
)

const columns = "ABCDEFGHJKLMNOPQRST"

// Format returns the GTP label for (x, y), or "pass" for (-1, -1).
func Format(x, y int) string {
	if x == board.Pass || y == board.Pass {
		return "pass"
	}
	gtpRow := board.Size - y
	return string(columns[x]) + strconv.Itoa(gtpRow)
}

// Parse reverses Format, returning (x, y) or (-1, -1) for "pass".
func Parse(label string) (x, y int, err error) {
	label = strings.TrimSpace(label)
	if strings.EqualFold(label, "pass") {
		return board.Pass, board.Pass, nil
	}
	if len(label) < 2 {
		return 0, 0, errors.Errorf("gtp: label %q too short", label)
	}
	col := strings.ToUpper(label[:1])
	idx := strings.IndexByte(columns, col[0])
	if idx < 0 {
		return 0, 0, errors.Errorf("gtp: unknown column letter in %q", label)
	}
	row, err := strconv.Atoi(label[1:])
	if err != nil {
		return 0, 0, errors.Wrapf(err, "gtp: invalid row in %q", label)
	}
	y = board.Size - row
	if y < 0 || y >= board.Size {
		return 0, 0, errors.Errorf("gtp: row out of range in %q", label)
	}
	return idx, y, nil
}
