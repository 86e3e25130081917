package warfront

import (
	"math"
	"sort"
)

const (
	// MinCasualties is the smallest loss either side takes in a contested battle.
	MinCasualties = 15

	pyrrhicLossFraction = 0.20
	undefendedSentinel  = 999.0
)

var urbanCasualtyMultiplier = map[MunicipalityClass]float64{
	ClassUrbanCenter: 2.0,
	ClassLargeUrban:  1.5,
}

// classify compares the two sides and returns the power ratio and the
// nominal outcome.
func classify(attackerPower, defenderPower float64) (float64, Outcome) {
	var ratio float64
	switch {
	case defenderPower <= 0 && attackerPower > 0:
		ratio = undefendedSentinel
	case defenderPower <= 0:
		ratio = 0
	default:
		ratio = attackerPower / defenderPower
	}
	switch {
	case ratio >= 1.2 || (defenderPower <= 0 && attackerPower > 0):
		return ratio, OutcomeAttackerVictory
	case ratio < 0.7:
		return ratio, OutcomeDefenderVictory
	default:
		return ratio, OutcomeStalemate
	}
}

func casualtyBase(attackerPower, defenderPower float64) float64 {
	return 50 * max(0.1, min(attackerPower, defenderPower)/350)
}

func attackerLosses(base, ratio, urban, mod float64) int {
	return max(MinCasualties, round(base*(1/max(0.5, ratio))*urban*mod))
}

func defenderLosses(base, ratio, terrain, mod float64) int {
	return max(MinCasualties, round(base*min(2, ratio)*(1/max(0.8, terrain))*mod))
}

// undefendedLosses is what the defender loses when nothing could resist.
func undefendedLosses(attackerPower float64) int {
	return max(1, round(50*0.5*max(0.1, attackerPower/800)))
}

// undefendedAttackerLosses is the fixed cost of walking into an empty settlement.
func undefendedAttackerLosses() Casualties {
	return Casualties{Wounded: 2}
}

// splitCasualties divides a total into killed and wounded fractions with
// the remainder missing.
func splitCasualties(total int, killed, wounded float64) Casualties {
	if total <= 0 {
		return Casualties{}
	}
	k := min(total, round(float64(total)*killed))
	w := min(total-k, round(float64(total)*wounded))
	return Casualties{Killed: k, Wounded: w, Missing: total - k - w}
}

func standardSplit(total int) Casualties {
	return splitCasualties(total, 0.25, 0.55)
}

func surrenderSplit(total int) Casualties {
	return splitCasualties(total, 0.05, 0.10)
}

// available is how much a formation can lose before the combat floor.
func available(f *Formation) int {
	return max(0, f.Personnel-CombatFloor)
}

// shareLosses distributes a side's total across co-attackers by personnel
// share. Rounding remainders and anything above a formation's floor go to
// the next formation with room, largest first.
func shareLosses(total int, attackers []*Formation) map[string]int {
	out := make(map[string]int, len(attackers))
	if total <= 0 || len(attackers) == 0 {
		return out
	}
	byStrength := append([]*Formation(nil), attackers...)
	sort.SliceStable(byStrength, func(i, j int) bool {
		if byStrength[i].Personnel != byStrength[j].Personnel {
			return byStrength[i].Personnel > byStrength[j].Personnel
		}
		return byStrength[i].ID < byStrength[j].ID
	})

	personnel := 0
	for _, f := range byStrength {
		personnel += f.Personnel
	}
	assigned := 0
	if personnel > 0 {
		for _, f := range byStrength {
			n := min(available(f), total*f.Personnel/personnel)
			out[f.ID] = n
			assigned += n
		}
	}
	for _, f := range byStrength {
		if assigned >= total {
			break
		}
		room := available(f) - out[f.ID]
		n := min(room, total-assigned)
		out[f.ID] += n
		assigned += n
	}
	return out
}

// applyLoss removes casualties from a formation. Wounded are queued for
// return by the external recovery layer.
func applyLoss(f *Formation, c Casualties) {
	f.Personnel = max(CombatFloor, f.Personnel-c.Total())
	f.WoundedPending += c.Wounded
}

// equipmentLoss is the share of stock destroyed at the given intensity.
func equipmentLoss(e Equipment, intensity, mult float64) EquipmentDelta {
	return EquipmentDelta{
		Tanks:     min(e.Tanks, round(float64(e.Tanks)*0.02*intensity*mult)),
		Artillery: min(e.Artillery, round(float64(e.Artillery)*0.01*intensity*mult)),
	}
}

func (e *Equipment) remove(d EquipmentDelta) {
	e.Tanks = max(0, e.Tanks-d.Tanks)
	e.Artillery = max(0, e.Artillery-d.Artillery)
}

func (e *Equipment) receive(d EquipmentDelta) {
	e.Tanks += d.Tanks
	e.Artillery += d.Artillery
}

func equipmentIntensity(attackerPower, defenderPower float64) float64 {
	return clamp(min(attackerPower, defenderPower)/350, 0.1, 3)
}

func round(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Round(v))
}
