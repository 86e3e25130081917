package corps

import (
	"sort"

	"github.com/freeeve/warfront/pkg/warfront"
)

// Standing order thresholds.
const (
	GeneralOffensiveMinCorps     = 3
	GeneralOffensiveCohesion     = 60.0
	GeneralOffensiveLeadingCorps = 2
)

// standingOrder picks the army-wide directive of a faction: a scheduled
// doctrine window if one covers the turn, else one derived from the
// faction's average threat and cohesion.
func standingOrder(fd *FactionDoctrine, views []*view, turn int) warfront.StandingOrder {
	if order, ok := fd.scheduledOrder(turn); ok {
		return order
	}
	if len(views) == 0 {
		return warfront.OrderNone
	}
	var threat, cohesion float64
	for _, v := range views {
		threat += v.threat
		cohesion += v.cohesion
	}
	n := float64(len(views))
	threat /= n
	cohesion /= n
	switch {
	case threat > DefensiveThreat:
		return warfront.OrderGeneralDefensive
	case len(views) >= GeneralOffensiveMinCorps && cohesion >= GeneralOffensiveCohesion && threat < OffensiveThreat:
		return warfront.OrderGeneralOffensive
	default:
		return warfront.OrderNone
	}
}

// forcedByOrder returns the stance each corps is pushed to by the standing
// order. A general offensive with enough corps only drives the leading two.
func forcedByOrder(order warfront.StandingOrder, views []*view) map[string]warfront.CorpsStance {
	forced := make(map[string]warfront.CorpsStance)
	switch order {
	case warfront.OrderGeneralDefensive:
		for _, v := range views {
			forced[v.id] = warfront.StanceDefensive
		}
	case warfront.OrderGeneralOffensive:
		leaders := views
		if len(views) >= GeneralOffensiveMinCorps {
			leaders = leadingCorps(views, GeneralOffensiveLeadingCorps)
		}
		for _, v := range leaders {
			forced[v.id] = warfront.StanceOffensive
		}
	}
	return forced
}

// offensiveScore ranks corps for a general offensive.
func offensiveScore(v *view) float64 {
	return float64(len(v.healthy))*10 + v.personnelFraction*5 - v.cmd.Exhaustion/10
}

func leadingCorps(views []*view, n int) []*view {
	ranked := append([]*view(nil), views...)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := offensiveScore(ranked[i]), offensiveScore(ranked[j])
		if si != sj {
			return si > sj
		}
		return ranked[i].id < ranked[j].id
	})
	return ranked[:min(n, len(ranked))]
}
