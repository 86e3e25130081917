package warfront

import "slices"

// PersonnelPerSettlement is how many soldiers it takes to hold one
// settlement under the default coverage policy.
const PersonnelPerSettlement = 200

// CoveragePolicy returns how many settlements a formation can actually hold.
type CoveragePolicy func(f *Formation) int

var readinessCoverage = map[Readiness]float64{
	ReadinessActive:       1.0,
	ReadinessOverextended: 0.8,
	ReadinessDegraded:     0.6,
	ReadinessForming:      0.4,
}

var postureCoverage = map[Posture]float64{
	PostureDefend:         1.0,
	PostureElasticDefense: 1.3,
	PostureProbe:          0.9,
	PostureAttack:         0.7,
	PostureConsolidation:  0.8,
}

// DefaultCoveragePolicy scales coverage with establishment strength,
// readiness and posture. Current personnel only sets whether the formation
// holds anything, so density over the covered settlements never falls as
// personnel rises.
func DefaultCoveragePolicy(f *Formation) int {
	if f.Personnel <= 0 {
		return 0
	}
	nominal := f.Establishment
	if nominal <= 0 {
		nominal = f.Personnel
	}
	n := float64(nominal) / PersonnelPerSettlement
	if m, ok := readinessCoverage[f.Readiness]; ok {
		n *= m
	}
	if m, ok := postureCoverage[f.Posture]; ok {
		n *= m
	}
	return max(1, int(n))
}

// Coverage is the operational subset of each brigade's AoR.
type Coverage struct {
	Covered map[string][]string // formation -> covered settlements, sorted
	sets    map[string]map[string]bool
}

// ComputeCoverage caps every brigade's AoR to the size its policy allows,
// preferring front cells and growing inward from them.
func ComputeCoverage(t *Theater, s *State, policy CoveragePolicy) *Coverage {
	if policy == nil {
		policy = DefaultCoveragePolicy
	}
	byOwner := make(map[string][]string)
	for _, sid := range sortedKeys(s.BrigadeAoR) {
		owner := s.BrigadeAoR[sid]
		byOwner[owner] = append(byOwner[owner], sid)
	}

	c := &Coverage{
		Covered: make(map[string][]string, len(byOwner)),
		sets:    make(map[string]map[string]bool, len(byOwner)),
	}
	for _, id := range sortedKeys(byOwner) {
		f := s.Formations[id]
		if f == nil || !f.Active() {
			continue
		}
		covered := capAoR(t, s, f, byOwner[id], policy(f))
		c.Covered[id] = covered
		set := make(map[string]bool, len(covered))
		for _, sid := range covered {
			set[sid] = true
		}
		c.sets[id] = set
	}
	return c
}

func capAoR(t *Theater, s *State, f *Formation, aor []string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	if limit >= len(aor) {
		return append([]string(nil), aor...)
	}
	inAoR := make(map[string]bool, len(aor))
	for _, sid := range aor {
		inAoR[sid] = true
	}
	taken := make(map[string]bool, limit)
	var order []string
	take := func(sid string) bool {
		if taken[sid] || len(order) >= limit {
			return false
		}
		taken[sid] = true
		order = append(order, sid)
		return true
	}

	for _, sid := range aor {
		if FrontActive(t, s.Control, sid) {
			take(sid)
		}
	}
	queue := append([]string(nil), order...)
	if len(queue) == 0 {
		seed := aor[0]
		if inAoR[f.HQ] {
			seed = f.HQ
		}
		take(seed)
		queue = []string{seed}
	}
	for len(queue) > 0 && len(order) < limit {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range t.Neighbors(cur) {
			if inAoR[n] && take(n) {
				queue = append(queue, n)
			}
		}
	}
	for _, sid := range aor {
		take(sid)
	}
	slices.Sort(order)
	return order
}

// Covers reports whether the formation covers the settlement.
func (c *Coverage) Covers(formationID, settlement string) bool {
	return c.sets[formationID][settlement]
}

// FormationDensity is personnel spread over the covered settlements.
func (c *Coverage) FormationDensity(s *State, formationID string) float64 {
	f := s.Formations[formationID]
	n := len(c.Covered[formationID])
	if f == nil || n == 0 {
		return 0
	}
	return float64(f.Personnel) / float64(n)
}

// Density is the garrison a formation holds at a settlement: zero unless
// the settlement is covered.
func (c *Coverage) Density(s *State, formationID, settlement string) float64 {
	if !c.Covers(formationID, settlement) {
		return 0
	}
	return c.FormationDensity(s, formationID)
}
