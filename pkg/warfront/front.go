package warfront

import "sort"

// FrontActive returns true if the settlement is controlled and borders a
// settlement held by a different faction.
func FrontActive(t *Theater, control map[string]Faction, id string) bool {
	own := control[id]
	if own == NoOwner {
		return false
	}
	for _, n := range t.Neighbors(id) {
		if c := control[n]; c != NoOwner && c != own {
			return true
		}
	}
	return false
}

// FrontActiveSet returns every front-active settlement.
func FrontActiveSet(t *Theater, control map[string]Faction) map[string]bool {
	set := make(map[string]bool)
	for _, id := range t.SettlementIDs() {
		if FrontActive(t, control, id) {
			set[id] = true
		}
	}
	return set
}

// FrontEdges returns the sorted keys of edges whose endpoints are held by
// different factions.
func FrontEdges(t *Theater, control map[string]Faction) []string {
	var keys []string
	for _, id := range t.SettlementIDs() {
		a := control[id]
		if a == NoOwner {
			continue
		}
		for _, n := range t.Neighbors(id) {
			if n < id {
				continue
			}
			if b := control[n]; b != NoOwner && b != a {
				keys = append(keys, EdgeKey(id, n))
			}
		}
	}
	sort.Strings(keys)
	return keys
}

// Surrounded returns true if no graph neighbor of the settlement is held by
// the faction.
func Surrounded(t *Theater, control map[string]Faction, id string, f Faction) bool {
	for _, n := range t.Neighbors(id) {
		if control[n] == f {
			return false
		}
	}
	return true
}

// AdvanceFrontSegments extends the streak of every active front edge and
// drops edges that are no longer contested.
func AdvanceFrontSegments(t *Theater, s *State) {
	active := FrontEdges(t, s.Control)
	next := make(map[string]FrontSegment, len(active))
	for _, k := range active {
		seg := s.FrontSegments[k]
		seg.ActiveStreak++
		next[k] = seg
	}
	s.FrontSegments = next
}

// maxSegmentStreak returns the longest active streak among front segments
// touching the settlement.
func maxSegmentStreak(t *Theater, s *State, id string) int {
	best := 0
	for _, n := range t.Neighbors(id) {
		if seg, ok := s.FrontSegments[EdgeKey(id, n)]; ok && seg.ActiveStreak > best {
			best = seg.ActiveStreak
		}
	}
	return best
}
