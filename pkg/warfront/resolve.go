package warfront

import "sort"

// Order drop reasons.
const (
	DropUnknownFormation = "unknown formation"
	DropInactive         = "formation inactive"
	DropUnknownTarget    = "unknown target"
	DropFriendlyTarget   = "target already friendly"
	DropAllied           = "target held by an ally"
	DropNotAdjacent      = "target not adjacent to AoR"
	DropOutranked        = "stronger attack by another faction"
)

// ResolveBattles resolves a turn's attack orders, keyed by formation id
// with the target settlement as value. It mutates political control,
// formations, the AoR map and the casualty ledger in place. A nil coverage
// is computed with the default policy.
func ResolveBattles(t *Theater, s *State, cov *Coverage, orders map[string]string) *TurnReport {
	s.ensure()
	if cov == nil {
		cov = ComputeCoverage(t, s, nil)
	}
	report := newTurnReport(s.Turn)
	staging := stagingIndex(s)

	byTarget := make(map[string][]*Formation)
	for _, id := range sortedKeys(orders) {
		target := orders[id]
		if reason := validateOrder(t, s, staging, id, target); reason != "" {
			report.Dropped = append(report.Dropped, DroppedOrder{FormationID: id, Target: target, Reason: reason})
			continue
		}
		byTarget[target] = append(byTarget[target], s.Formations[id])
	}

	for _, target := range sortedKeys(byTarget) {
		e := &engagement{t: t, s: s, cov: cov, target: target}
		br, dropped := e.resolve(byTarget[target])
		report.Dropped = append(report.Dropped, dropped...)
		report.add(br)
	}
	report.sortBattles()
	return report
}

// stagingIndex maps each formation to the settlements it can attack from:
// its AoR, or its HQ for formations that hold none.
func stagingIndex(s *State) map[string][]string {
	idx := make(map[string][]string)
	for _, sid := range sortedKeys(s.BrigadeAoR) {
		owner := s.BrigadeAoR[sid]
		idx[owner] = append(idx[owner], sid)
	}
	for _, id := range s.FormationIDs() {
		f := s.Formations[id]
		if _, ok := idx[id]; ok || f.HQ == "" {
			continue
		}
		if s.Control[f.HQ] == f.Faction {
			idx[id] = []string{f.HQ}
		}
	}
	return idx
}

func validateOrder(t *Theater, s *State, staging map[string][]string, id, target string) string {
	f := s.Formations[id]
	switch {
	case f == nil:
		return DropUnknownFormation
	case !f.Active() || f.Kind == KindCorps:
		return DropInactive
	case t.Settlements[target] == nil:
		return DropUnknownTarget
	}
	holder := s.Control[target]
	if holder == f.Faction {
		return DropFriendlyTarget
	}
	if holder != NoOwner && s.Allied(f.Faction, holder) {
		return DropAllied
	}
	for _, sid := range staging[id] {
		if t.Adjacent(sid, target) {
			return ""
		}
	}
	return DropNotAdjacent
}

type attacker struct {
	f  *Formation
	bd PowerBreakdown
}

type engagement struct {
	t      *Theater
	s      *State
	cov    *Coverage
	target string
}

func (e *engagement) resolve(candidates []*Formation) (BattleReport, []DroppedOrder) {
	t, s, target := e.t, e.s, e.target
	defFaction := s.Control[target]

	attackers, dropped := e.selectAttackers(candidates)
	lead := attackers[0].f
	attFaction := lead.Faction

	var sum float64
	sameCorps := lead.CorpsID != ""
	coordOG := 1.0
	for _, a := range attackers {
		sum += a.bd.Total
		if a.f.CorpsID != lead.CorpsID {
			sameCorps = false
		}
		if a.f.Kind == KindOperationalGroup {
			coordOG = 1.1
		}
	}
	coord := coordinationEfficiency(len(attackers), sameCorps)
	attackerPower := sum * coord * coordOG

	def, defBD := e.defender(defFaction)
	snaps := preBattleSnaps(t, s, def, target)
	outnumbered := 1.0
	if len(attackers) >= 2 {
		outnumbered = 1.15
	}
	linking := 1.0
	if e.linked(defFaction, def) {
		linking = 1.1
	}
	defenderPower := defBD.Total * snaps.defenderPower * outnumbered * linking

	ratio, outcome := classify(attackerPower, defenderPower)
	terrain := TerrainFactor(t, target)

	attPersonnel := 0
	attAvailable := 0
	for _, a := range attackers {
		attPersonnel += a.f.Personnel
		attAvailable += available(a.f)
	}
	defPersonnel := 0
	if def != nil {
		defPersonnel = def.Personnel
	}

	br := BattleReport{
		Turn:                s.Turn,
		Location:            target,
		Municipality:        t.Municipality(target),
		AttackerFaction:     attFaction,
		DefenderFaction:     defFaction,
		LeadAttacker:        lead.ID,
		DefenderBreakdown:   defBD,
		Coordination:        coord,
		CoordinationOG:      coordOG,
		Outnumbered:         outnumbered,
		Linking:             linking,
		AttackerPower:       attackerPower,
		DefenderPower:       defenderPower,
		Ratio:               ratio,
		SnapEvents:          snaps.events,
		AttackerCasualtyMod: snaps.attackerCasualty,
		DefenderCasualtyMod: snaps.defenderCasualty,
	}
	for _, a := range attackers {
		br.Attackers = append(br.Attackers, a.f.ID)
		br.AttackerBreakdown = append(br.AttackerBreakdown, a.bd)
	}
	if def != nil {
		br.Defender = def.ID
	}

	// Casualties.
	attLoss := make(map[string]Casualties, len(attackers))
	var defLoss Casualties
	if defenderPower <= 0 && attackerPower > 0 {
		c := undefendedAttackerLosses()
		if c.Total() > available(lead) {
			c = Casualties{Wounded: available(lead)}
		}
		attLoss[lead.ID] = c
		total := undefendedLosses(attackerPower)
		if def != nil {
			total = min(total, available(def))
		}
		defLoss = standardSplit(total)
	} else {
		base := casualtyBase(attackerPower, defenderPower)
		urban := lookup(urbanCasualtyMultiplier, t.ClassOf(t.Municipality(target)))
		attTotal := min(attAvailable, attackerLosses(base, ratio, urban, snaps.attackerCasualty))
		for id, n := range shareLosses(attTotal, formationsOf(attackers)) {
			attLoss[id] = standardSplit(n)
		}
		defTotal := defenderLosses(base, ratio, terrain, snaps.defenderCasualty)
		if snaps.surrender {
			defTotal = max(defTotal, (defPersonnel+1)/2)
		}
		defCap := s.MilitiaPool[target]
		if def != nil {
			defCap = available(def)
		}
		defTotal = min(defTotal, defCap)
		if snaps.surrender {
			defLoss = surrenderSplit(defTotal)
		} else {
			defLoss = standardSplit(defTotal)
		}
	}
	for _, a := range attackers {
		br.AttackerCasualties = br.AttackerCasualties.Add(attLoss[a.f.ID])
	}
	br.DefenderCasualties = defLoss

	if outcome == OutcomeAttackerVictory && attPersonnel > 0 &&
		float64(br.AttackerCasualties.Total())/float64(attPersonnel) >= pyrrhicLossFraction {
		outcome = OutcomePyrrhicVictory
	}
	br.Outcome = outcome
	br.Flipped = outcome.Flips()

	for _, a := range attackers {
		applyLoss(a.f, attLoss[a.f.ID])
	}
	if def != nil {
		applyLoss(def, defLoss)
	} else if pool := s.MilitiaPool[target]; pool > 0 {
		s.MilitiaPool[target] = max(0, pool-defLoss.Total())
	}

	// Equipment.
	intensity := equipmentIntensity(attackerPower, defenderPower)
	for _, a := range attackers {
		mult := 1.0
		if a.f.Posture == PostureAttack {
			mult = 1.5
		}
		loss := equipmentLoss(a.f.Equipment, intensity, mult)
		a.f.Equipment.remove(loss)
		br.AttackerEquipment.Tanks += loss.Tanks
		br.AttackerEquipment.Artillery += loss.Artillery
	}
	if def != nil {
		if snaps.surrender {
			moved := EquipmentDelta{
				Tanks:     round(float64(def.Equipment.Tanks) * 0.25),
				Artillery: round(float64(def.Equipment.Artillery) * 0.25),
			}
			def.Equipment.remove(moved)
			lead.Equipment.receive(moved)
			br.CapturedEquipment = moved
		} else {
			loss := equipmentLoss(def.Equipment, intensity, 1/max(0.8, terrain))
			def.Equipment.remove(loss)
			br.DefenderEquipment = loss
			if br.Flipped {
				captured := EquipmentDelta{Tanks: loss.Tanks / 2, Artillery: loss.Artillery / 2}
				lead.Equipment.receive(captured)
				br.CapturedEquipment = captured
			}
		}
	}

	// Post-battle snap side effects.
	if outcome == OutcomePyrrhicVictory {
		for _, a := range attackers {
			pyrrhicPenalty(a.f)
		}
	}
	if attPersonnel > 0 {
		frac := float64(br.AttackerCasualties.Total()) / float64(attPersonnel)
		for _, a := range attackers {
			if commanderCasualty(a.f, frac) {
				br.CommanderCasualties = append(br.CommanderCasualties, a.f.ID)
			}
		}
	}
	if defPersonnel > 0 && commanderCasualty(def, float64(defLoss.Total())/float64(defPersonnel)) {
		br.CommanderCasualties = append(br.CommanderCasualties, def.ID)
	}
	if len(br.CommanderCasualties) > 0 {
		br.SnapEvents = append(br.SnapEvents, SnapCommanderCasualty)
	}

	if br.Flipped {
		e.flip(attFaction, attackers)
	}

	for _, a := range attackers {
		s.Ledger.Record(attFaction, a.f.ID, attLoss[a.f.ID])
	}
	if def != nil {
		s.Ledger.Record(defFaction, def.ID, defLoss)
	} else if defFaction != NoOwner {
		s.Ledger.Record(defFaction, "", defLoss)
	}
	return br, dropped
}

// selectAttackers ranks the candidates by power and keeps the strongest
// of the lead faction, up to the terrain limit.
func (e *engagement) selectAttackers(candidates []*Formation) ([]attacker, []DroppedOrder) {
	ranked := make([]attacker, 0, len(candidates))
	for _, f := range candidates {
		bd := FormationPower(e.t, e.s, f, e.attackerGarrison(f), Attacking, e.target)
		bd.ExternalSupport = externalSupport(e.s, f.Faction)
		bd.Total *= bd.ExternalSupport
		ranked = append(ranked, attacker{f: f, bd: bd})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].bd.Total != ranked[j].bd.Total {
			return ranked[i].bd.Total > ranked[j].bd.Total
		}
		return ranked[i].f.ID < ranked[j].f.ID
	})

	limit := min(MaxAttackersPerTarget, e.t.MaxAttackersAt(e.target))
	var kept []attacker
	var dropped []DroppedOrder
	for _, a := range ranked {
		if a.f.Faction != ranked[0].f.Faction {
			dropped = append(dropped, DroppedOrder{FormationID: a.f.ID, Target: e.target, Reason: DropOutranked})
			continue
		}
		if len(kept) < limit {
			kept = append(kept, a)
		}
	}
	return kept, dropped
}

// attackerGarrison is the formation's density over its covered settlements.
// Formations without coverage, such as operational groups, fight concentrated.
func (e *engagement) attackerGarrison(f *Formation) float64 {
	if len(e.cov.Covered[f.ID]) > 0 {
		return e.cov.FormationDensity(e.s, f.ID)
	}
	if f.Kind == KindOperationalGroup {
		return float64(f.Personnel)
	}
	return 0
}

// defender returns the covering formation at the target, or nil with the
// militia's power when no formation holds it.
func (e *engagement) defender(faction Faction) (*Formation, PowerBreakdown) {
	if faction != NoOwner {
		holder := e.s.BrigadeAoR[e.target]
		if f := e.s.Formations[holder]; f != nil && f.Active() && f.Faction == faction && e.cov.Covers(holder, e.target) {
			return f, FormationPower(e.t, e.s, f, e.cov.Density(e.s, holder, e.target), Defending, e.target)
		}
	}
	return nil, MilitiaPower(e.t, float64(e.s.MilitiaPool[e.target]), e.target)
}

// linked reports whether another formation of the defending faction holds
// AoR next to the target.
func (e *engagement) linked(faction Faction, def *Formation) bool {
	if faction == NoOwner {
		return false
	}
	for _, n := range e.t.Neighbors(e.target) {
		owner := e.s.BrigadeAoR[n]
		if owner == "" || (def != nil && owner == def.ID) {
			continue
		}
		if f := e.s.Formations[owner]; f != nil && f.Faction == faction {
			return true
		}
	}
	return false
}

// flip hands the target to the attacking faction. The strongest brigade
// among the attackers takes it into its AoR.
func (e *engagement) flip(faction Faction, attackers []attacker) {
	e.s.Control[e.target] = faction
	delete(e.s.BrigadeAoR, e.target)
	delete(e.s.MilitiaPool, e.target)
	for _, a := range attackers {
		if a.f.IsBrigade() {
			e.s.BrigadeAoR[e.target] = a.f.ID
			return
		}
	}
}

func coordinationEfficiency(n int, sameCorps bool) float64 {
	switch {
	case n <= 1:
		return 1.0
	case sameCorps && n == 2:
		return 0.9
	case sameCorps:
		return 0.82
	case n == 2:
		return 0.85
	default:
		return 0.75
	}
}

// externalSupport is the faction's attack multiplier from outside backing.
func externalSupport(s *State, f Faction) float64 {
	if v, ok := s.ExternalSupport[string(f)]; ok && v > 0 {
		return v
	}
	return 1
}

func formationsOf(attackers []attacker) []*Formation {
	out := make([]*Formation, len(attackers))
	for i, a := range attackers {
		out[i] = a.f
	}
	return out
}
