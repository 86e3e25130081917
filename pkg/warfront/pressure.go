package warfront

import "strings"

// UpdateFrontPressure recomputes, for every front edge, the pressure each
// side exerts on it: the garrison density of the covering formation scaled
// by its corps's attack stance. A reorganizing corps exerts none.
func UpdateFrontPressure(t *Theater, s *State, cov *Coverage) {
	s.ensure()
	next := make(map[string]map[Faction]float64)
	for _, key := range FrontEdges(t, s.Control) {
		a, b := splitEdgeKey(key)
		p := make(map[Faction]float64, 2)
		for _, sid := range [2]string{a, b} {
			p[s.Control[sid]] += settlementPressure(s, cov, sid)
		}
		next[key] = p
	}
	s.FrontPressure = next
}

func settlementPressure(s *State, cov *Coverage, sid string) float64 {
	owner := s.BrigadeAoR[sid]
	f := s.Formations[owner]
	if f == nil || !f.Active() {
		return 0
	}
	stance := 1.0
	if cmd := s.Corps[f.CorpsID]; cmd != nil {
		stance = lookup(stanceMultiplier[Attacking], cmd.Stance)
	}
	return cov.Density(s, owner, sid) * stance
}

// SectorPressure sums own and enemy pressure over the front edges touching
// any of the given settlements.
func SectorPressure(s *State, f Faction, settlements []string) (own, enemy float64) {
	touch := make(map[string]bool, len(settlements))
	for _, sid := range settlements {
		touch[sid] = true
	}
	for _, key := range sortedKeys(s.FrontPressure) {
		a, b := splitEdgeKey(key)
		if !touch[a] && !touch[b] {
			continue
		}
		for _, fac := range AllFactions() {
			v := s.FrontPressure[key][fac]
			switch {
			case fac == f:
				own += v
			case !s.Allied(f, fac):
				enemy += v
			}
		}
	}
	return own, enemy
}

func splitEdgeKey(key string) (string, string) {
	a, b, _ := strings.Cut(key, ":")
	return a, b
}
