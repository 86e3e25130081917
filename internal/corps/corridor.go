package corps

import (
	"fmt"
	"sort"

	"github.com/freeeve/warfront/pkg/warfront"
)

// Corridor breach constants.
const (
	MinBreachBorder         = 2
	MinHealthyForBreach     = 2
	stripWidthToSettlements = 3
)

// BreachPlan is a detected enemy strip across a faction's corridor, with
// the two friendly clusters that would close it.
type BreachPlan struct {
	Faction  warfront.Faction `json:"faction"`
	Corridor string           `json:"corridor"`
	Strip    []string         `json:"strip"`
	Clusters [2][]string      `json:"clusters"`
	CorpsID  string           `json:"corps_id,omitempty"`
}

// detectBreach looks for the first corridor with a narrow enemy strip and
// at least two friendly settlements bordering it.
func (r *run) detectBreach(f warfront.Faction, fd *FactionDoctrine) *BreachPlan {
	for _, c := range fd.Corridors {
		if r.running[f][c.Name] {
			continue
		}
		strip := r.enemyHeldIn(f, c.Municipalities)
		if len(strip) == 0 || len(strip) > stripWidthToSettlements*c.MaxStripWidth {
			continue
		}
		border := r.bordering(f, strip)
		if len(border) < MinBreachBorder {
			continue
		}
		half := (len(border) + 1) / 2
		return &BreachPlan{
			Faction:  f,
			Corridor: c.Name,
			Strip:    strip,
			Clusters: [2][]string{border[:half], border[half:]},
		}
	}
	return nil
}

// bordering returns, sorted, the faction's settlements adjacent to the strip.
func (r *run) bordering(f warfront.Faction, strip []string) []string {
	set := make(map[string]bool)
	for _, sid := range strip {
		for _, n := range r.t.Neighbors(sid) {
			if r.s.Control[n] == f {
				set[n] = true
			}
		}
	}
	out := make([]string, 0, len(set))
	for sid := range set {
		out = append(out, sid)
	}
	sort.Strings(out)
	return out
}

// launchBreach hands the breach to an idle corps, preferring one whose AoR
// touches the bordering settlements. It returns the chosen corps, or nil.
func (r *run) launchBreach(plan *BreachPlan, views []*view) *view {
	var eligible []*view
	for _, v := range views {
		if v.cmd.ActiveOperation != nil || v.cmd.Stance == warfront.StanceReorganize ||
			v.cmd.Exhaustion > ExhaustionCap || len(v.healthy) < MinHealthyForBreach {
			continue
		}
		eligible = append(eligible, v)
	}
	if len(eligible) == 0 {
		return nil
	}
	chosen := eligible[0]
	border := toSet(append(append([]string(nil), plan.Clusters[0]...), plan.Clusters[1]...))
	for _, v := range eligible {
		if v.touches(r.t, border) {
			chosen = v
			break
		}
	}

	op := &warfront.Operation{
		Name:         plan.Corridor,
		Type:         warfront.OpSectorAttack,
		Targets:      plan.Strip,
		ForcedStance: warfront.StanceOffensive,
	}
	r.start(chosen, op, chosen.topHealthy(MaxParticipants))
	plan.CorpsID = chosen.id
	r.event(chosen.id, EventCorridorBreach, op.Name, fmt.Sprintf("strip of %d", len(plan.Strip)))
	return chosen
}
