package warfront

import "sort"

// Outcome is the result of one engagement.
type Outcome string

const (
	OutcomeAttackerVictory Outcome = "attacker_victory"
	OutcomePyrrhicVictory  Outcome = "pyrrhic_victory"
	OutcomeDefenderVictory Outcome = "defender_victory"
	OutcomeStalemate       Outcome = "stalemate"
)

// Flips returns true for outcomes that transfer the target.
func (o Outcome) Flips() bool {
	return o == OutcomeAttackerVictory || o == OutcomePyrrhicVictory
}

// SnapEvent is a discrete event triggered by the state of a side.
type SnapEvent string

const (
	SnapAmmoCrisis        SnapEvent = "ammo_crisis"
	SnapSurrenderCascade  SnapEvent = "surrender_cascade"
	SnapLastStand         SnapEvent = "last_stand"
	SnapCommanderCasualty SnapEvent = "commander_casualty"
)

// EquipmentDelta counts heavy weapons lost or captured.
type EquipmentDelta struct {
	Tanks     int `json:"tanks"`
	Artillery int `json:"artillery"`
}

// BattleReport is the record of one engagement. It is built once and never
// changed afterwards.
type BattleReport struct {
	Turn            int     `json:"turn"`
	Location        string  `json:"location"`
	Municipality    string  `json:"municipality"`
	AttackerFaction Faction `json:"attacker_faction"`
	DefenderFaction Faction `json:"defender_faction"`
	LeadAttacker    string  `json:"lead_attacker"`
	// Attackers are the committed formations, strongest first.
	Attackers []string `json:"attackers"`
	// Defender is empty when local militia held the settlement.
	Defender string `json:"defender,omitempty"`

	AttackerBreakdown []PowerBreakdown `json:"attacker_breakdown"`
	DefenderBreakdown PowerBreakdown   `json:"defender_breakdown"`
	Coordination      float64          `json:"coordination"`
	CoordinationOG    float64          `json:"coordination_og"`
	Outnumbered       float64          `json:"outnumbered"`
	Linking           float64          `json:"linking"`
	AttackerPower     float64          `json:"attacker_power"`
	DefenderPower     float64          `json:"defender_power"`
	Ratio             float64          `json:"ratio"`

	Outcome             Outcome        `json:"outcome"`
	Flipped             bool           `json:"flipped"`
	SnapEvents          []SnapEvent    `json:"snap_events,omitempty"`
	AttackerCasualtyMod float64        `json:"attacker_casualty_mod"`
	DefenderCasualtyMod float64        `json:"defender_casualty_mod"`
	CommanderCasualties []string       `json:"commander_casualties,omitempty"`
	AttackerCasualties  Casualties     `json:"attacker_casualties"`
	DefenderCasualties  Casualties     `json:"defender_casualties"`
	AttackerEquipment   EquipmentDelta `json:"attacker_equipment_lost"`
	DefenderEquipment   EquipmentDelta `json:"defender_equipment_lost"`
	CapturedEquipment   EquipmentDelta `json:"captured_equipment"`
}

// HasSnap returns true if the event fired in this engagement.
func (r *BattleReport) HasSnap(e SnapEvent) bool {
	for _, s := range r.SnapEvents {
		if s == e {
			return true
		}
	}
	return false
}

// DroppedOrder is an attack order that failed validation.
type DroppedOrder struct {
	FormationID string `json:"formation_id"`
	Target      string `json:"target"`
	Reason      string `json:"reason"`
}

// TurnReport collects every engagement of a turn.
type TurnReport struct {
	Turn    int                    `json:"turn"`
	Battles []BattleReport         `json:"battles"`
	Totals  map[Faction]Casualties `json:"totals"`
	Flips   int                    `json:"flips"`
	Dropped []DroppedOrder         `json:"dropped,omitempty"`
}

func newTurnReport(turn int) *TurnReport {
	return &TurnReport{
		Turn:    turn,
		Battles: []BattleReport{},
		Totals:  make(map[Faction]Casualties),
	}
}

func (tr *TurnReport) add(r BattleReport) {
	tr.Battles = append(tr.Battles, r)
	tr.Totals[r.AttackerFaction] = tr.Totals[r.AttackerFaction].Add(r.AttackerCasualties)
	if r.DefenderFaction != NoOwner {
		tr.Totals[r.DefenderFaction] = tr.Totals[r.DefenderFaction].Add(r.DefenderCasualties)
	}
	if r.Flipped {
		tr.Flips++
	}
}

// sortBattles orders reports by lead attacker, then location.
func (tr *TurnReport) sortBattles() {
	sort.SliceStable(tr.Battles, func(i, j int) bool {
		a, b := tr.Battles[i], tr.Battles[j]
		if a.LeadAttacker != b.LeadAttacker {
			return a.LeadAttacker < b.LeadAttacker
		}
		return a.Location < b.Location
	})
}
