package corps

import (
	"sort"

	"github.com/freeeve/warfront/pkg/warfront"
)

// Threat thresholds.
const (
	DefensiveThreat = 1.5
	OffensiveThreat = 0.7
	ExtremeThreat   = 2.5
)

// view is what the AI reads about one corps in a turn.
type view struct {
	id       string
	faction  warfront.Faction
	cmd      *warfront.CorpsCommand
	brigades []*warfront.Formation
	healthy  []*warfront.Formation // by personnel desc, then id
	aor      []string
	muns     []string

	threat            float64
	cohesion          float64
	personnelFraction float64
}

func newView(t *warfront.Theater, s *warfront.State, id string) *view {
	v := &view{
		id:       id,
		faction:  s.CorpsFaction(id),
		cmd:      s.Corps[id],
		brigades: s.CorpsBrigades(id),
	}
	munSet := make(map[string]bool)
	for _, b := range v.brigades {
		v.cohesion += b.Cohesion
		v.personnelFraction += b.PersonnelFraction()
		if b.Healthy() {
			v.healthy = append(v.healthy, b)
		}
		v.aor = append(v.aor, s.AoROf(b.ID)...)
	}
	if n := float64(len(v.brigades)); n > 0 {
		v.cohesion /= n
		v.personnelFraction /= n
	}
	sort.Strings(v.aor)
	for _, sid := range v.aor {
		munSet[t.Municipality(sid)] = true
	}
	for m := range munSet {
		v.muns = append(v.muns, m)
	}
	sort.Strings(v.muns)
	sortByPersonnel(v.healthy)
	v.threat = sectorThreat(s, v.faction, v.aor)
	return v
}

// sectorThreat is enemy pressure over own pressure on the front edges
// touching the corps's AoR.
func sectorThreat(s *warfront.State, f warfront.Faction, aor []string) float64 {
	own, enemy := warfront.SectorPressure(s, f, aor)
	switch {
	case own > 0:
		return enemy / own
	case enemy > 0:
		return 2.0
	default:
		return 1.0
	}
}

// touches reports whether any AoR settlement borders one of the given
// settlements or is one of them.
func (v *view) touches(t *warfront.Theater, targets map[string]bool) bool {
	for _, sid := range v.aor {
		if targets[sid] {
			return true
		}
		for _, n := range t.Neighbors(sid) {
			if targets[n] {
				return true
			}
		}
	}
	return false
}

func sortByPersonnel(fs []*warfront.Formation) {
	sort.SliceStable(fs, func(i, j int) bool {
		if fs[i].Personnel != fs[j].Personnel {
			return fs[i].Personnel > fs[j].Personnel
		}
		return fs[i].ID < fs[j].ID
	})
}

// topHealthy returns up to n ids of the strongest healthy brigades.
func (v *view) topHealthy(n int) []string {
	var ids []string
	for _, b := range v.healthy {
		if len(ids) == n {
			break
		}
		ids = append(ids, b.ID)
	}
	return ids
}
