package warfront

// Snap thresholds.
const (
	AmmoCrisisTurns         = 4
	SurrenderCohesion       = 15.0
	SurrenderUnsuppliedTurn = 2
	LastStandCohesion       = 40.0
	CommanderLossFraction   = 0.15
	CommanderMinExperience  = 0.3
)

// snapModifiers are the pre-battle events of one engagement and the
// multipliers they impose.
type snapModifiers struct {
	events           []SnapEvent
	defenderPower    float64
	attackerCasualty float64
	defenderCasualty float64
	surrender        bool
}

func noSnaps() snapModifiers {
	return snapModifiers{defenderPower: 1, attackerCasualty: 1, defenderCasualty: 1}
}

// preBattleSnaps evaluates the defender's condition before power is compared.
// Militia never triggers snap events.
func preBattleSnaps(t *Theater, s *State, def *Formation, target string) snapModifiers {
	m := noSnaps()
	if def == nil {
		return m
	}
	unsupplied := s.Run.Unsupplied(def.ID)
	surrounded := Surrounded(t, s.Control, target, s.Control[target])

	if unsupplied >= AmmoCrisisTurns {
		m.events = append(m.events, SnapAmmoCrisis)
		m.defenderPower *= 0.3
		m.defenderCasualty *= 1.5
	}
	switch {
	case surrounded && def.Cohesion < SurrenderCohesion && unsupplied >= SurrenderUnsuppliedTurn:
		m.events = append(m.events, SnapSurrenderCascade)
		m.defenderPower *= 0.1
		m.surrender = true
	case surrounded && def.Cohesion >= LastStandCohesion:
		m.events = append(m.events, SnapLastStand)
		m.defenderPower *= 1.8
		m.attackerCasualty *= 1.5
		m.defenderCasualty *= 1.3
	}
	return m
}

// commanderCasualty applies the loss of a commander when the side lost
// enough of its strength. It reports whether the event fired.
func commanderCasualty(f *Formation, lossFraction float64) bool {
	if f == nil || lossFraction < CommanderLossFraction || f.Experience <= CommanderMinExperience {
		return false
	}
	f.Experience = clamp(f.Experience-0.15, 0, 1)
	f.Cohesion = clamp(f.Cohesion-8, 0, 100)
	return true
}

// pyrrhicPenalty is suffered by every attacker of a pyrrhic victory.
func pyrrhicPenalty(f *Formation) {
	f.Cohesion = clamp(f.Cohesion-10, 0, 100)
	f.Disrupted = true
}
