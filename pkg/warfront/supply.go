package warfront

// SupplySources lists, per faction, the settlements that feed its supply
// network. A faction without sources is always supplied.
type SupplySources map[Faction][]string

// UpdateSupply traces each faction's network from its sources through
// settlements it controls and records, for every active brigade and
// operational group, whether its HQ or any owned settlement is connected.
func UpdateSupply(t *Theater, s *State, sources SupplySources) {
	s.ensure()
	reach := make(map[Faction]map[string]bool)
	for _, f := range AllFactions() {
		if srcs, ok := sources[f]; ok {
			reach[f] = supplyNetwork(t, s.Control, f, srcs)
		}
	}
	aor := make(map[string][]string)
	for _, sid := range sortedKeys(s.BrigadeAoR) {
		owner := s.BrigadeAoR[sid]
		aor[owner] = append(aor[owner], sid)
	}
	for _, id := range s.FormationIDs() {
		f := s.Formations[id]
		if !f.Active() || f.Kind == KindCorps {
			continue
		}
		net, traced := reach[f.Faction]
		if !traced {
			s.Run.RecordSupply(id, true)
			continue
		}
		supplied := net[f.HQ]
		for _, sid := range aor[id] {
			if supplied {
				break
			}
			supplied = net[sid]
		}
		s.Run.RecordSupply(id, supplied)
	}
}

// supplyNetwork is a BFS from the faction's held sources over its own
// settlements.
func supplyNetwork(t *Theater, control map[string]Faction, f Faction, sources []string) map[string]bool {
	seen := make(map[string]bool)
	var queue []string
	for _, sid := range sources {
		if control[sid] == f && !seen[sid] {
			seen[sid] = true
			queue = append(queue, sid)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range t.Neighbors(cur) {
			if !seen[n] && control[n] == f {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return seen
}
