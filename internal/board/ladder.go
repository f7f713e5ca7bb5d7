package board

// ladderMaxDepth and ladderBudget bound the DFS ladder reader: a maximum
// depth proportional to board dimension and a node budget that prevents
// pathological cost on degenerate shapes.
const (
	ladderMaxDepth = 2 * Size
	ladderBudget = 400
)

// libertyPoints returns the distinct empty neighbor points of a (small)
// group. Only ever called on groups with <=2 liberties, so the result is
// tiny; allocation here is acceptable (ladder reading is not the hot loop
// of a descent).
func libertyPoints(stones *[NumPoints]Color, members []int32) []int32 {
	seen := make(map[int32]bool, 4)
	var out []int32
	for _, m := range members {
		start := neighborStart[m]
		count := neighborCount[m]
		for i := int32(0); i < int32(count); i++ {
			n := neighborList[start+i]
			if stones[n] == Empty && !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// ladderSearch is the minimax DFS at the heart of the ladder reader: does
// the group anchored at `anchor` (color `escaper`) eventually get captured,
// given whose move it is? The attacker always has the option to try every
// liberty (existential); the defender's escape also explores every
// liberty, since escaping via either is sufficient (existential too, but
// failure to escape on any branch means capture).
func ladderSearch(b *Board, escaper Color, anchor int32, attackerToMove bool, scratch *GroupScratch, depth int, budget *int) bool {
	if depth > ladderMaxDepth || *budget <= 0 {
		return false // budget/depth exhausted: assume escape (conservative).
	}
	if b.Stones[anchor] != escaper {
		return true // the anchor stone was removed by a capture.
	}
	members, libs, _ := floodGroup(&b.Stones, anchor, escaper, scratch)
	if libs == 0 {
		return true
	}
	if libs >= 3 {
		return false
	}
	attacker := escaper.Opponent()
	libPts := libertyPoints(&b.Stones, members)

	if attackerToMove {
		for _, atkPt := range libPts {
			if !b.IsLegalMoveFor(int(atkPt), attacker, scratch) {
				continue
			}
			snap, err := b.PlayMove(int(atkPt), attacker, scratch)
			if err != nil {
				continue
			}
			*budget--
			captured := ladderSearch(b, escaper, anchor, false, scratch, depth+1, budget)
			b.UndoMove(int(atkPt), attacker, snap)
			if captured {
				return true
			}
		}
		return false
	}

	// Escaper to move: try every liberty; escaping via any one suffices.
	triedAny := false
	for _, defPt := range libPts {
		if !b.IsLegalMoveFor(int(defPt), escaper, scratch) {
			continue
		}
		triedAny = true
		snap, err := b.PlayMove(int(defPt), escaper, scratch)
		if err != nil {
			continue
		}
		*budget--
		captured := ladderSearch(b, escaper, anchor, true, scratch, depth+1, budget)
		b.UndoMove(int(defPt), escaper, snap)
		if !captured {
			return false // found an escape
		}
	}
	if !triedAny {
		return true // no legal extension: trapped.
	}
	return true // every extension still leads to eventual capture.
}

// ComputeLadderFeatures returns two 361-bit ladder maps: laddered marks
// stones currently ladder-capturable, working marks empty points from
// which ptm can start a working ladder.
func (b *Board) ComputeLadderFeatures(ptm Color, scratch *GroupScratch) (laddered [NumPoints]bool, working [NumPoints]bool) {
	var groupDone [NumPoints]bool
	for p := 0; p < NumPoints; p++ {
		c := b.Stones[p]
		if c == Empty || groupDone[p] {
			continue
		}
		members, libs, _ := floodGroup(&b.Stones, int32(p), c, scratch)
		for _, m := range members {
			groupDone[m] = true
		}
		if libs == 0 || libs > 2 {
			continue
		}
		// members aliases scratch, which ladderSearch reuses.
		members = append([]int32(nil), members...)
		budget := ladderBudget
		if ladderSearch(b, c, int32(p), true, scratch, 0, &budget) {
			for _, m := range members {
				laddered[m] = true
			}
		}
	}

	opp := ptm.Opponent()
	for p := 0; p < NumPoints; p++ {
		if b.Stones[p] != Empty || !b.IsLegalMoveFor(p, ptm, scratch) {
			continue
		}
		start := neighborStart[p]
		count := neighborCount[p]
		found := false
		for i := int32(0); i < int32(count) && !found; i++ {
			n := neighborList[start+i]
			if b.Stones[n] != opp {
				continue
			}
			members, libs, _ := floodGroup(&b.Stones, n, opp, scratch)
			if libs != 2 {
				continue
			}
			anchor := members[0]
			snap, err := b.PlayMove(p, ptm, scratch)
			if err != nil {
				continue
			}
			budget := ladderBudget
			captured := ladderSearch(b, opp, anchor, false, scratch, 0, &budget)
			b.UndoMove(p, ptm, snap)
			if captured {
				found = true
			}
		}
		working[p] = found
	}
	return
}
