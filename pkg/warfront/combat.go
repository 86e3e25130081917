package warfront

// MaxAttackersPerTarget caps the brigades that can join one engagement.
const MaxAttackersPerTarget = 3

// MilitiaCohesion is the fixed cohesion of formation-less local defenders.
const MilitiaCohesion = 50.0

// Mode selects the attack or defense multiplier tables.
type Mode int

const (
	Attacking Mode = iota
	Defending
)

var postureMultiplier = map[Mode]map[Posture]float64{
	Attacking: {
		PostureAttack:         1.2,
		PostureProbe:          0.9,
		PostureDefend:         0.6,
		PostureElasticDefense: 0.5,
		PostureConsolidation:  0.7,
	},
	Defending: {
		PostureAttack:         0.8,
		PostureProbe:          0.95,
		PostureDefend:         1.2,
		PostureElasticDefense: 1.1,
		PostureConsolidation:  1.05,
	},
}

var stanceMultiplier = map[Mode]map[CorpsStance]float64{
	Attacking: {
		StanceOffensive:  1.2,
		StanceBalanced:   1.0,
		StanceDefensive:  0.7,
		StanceReorganize: 0,
	},
	Defending: {
		StanceOffensive:  0.9,
		StanceBalanced:   1.0,
		StanceDefensive:  1.2,
		StanceReorganize: 0.8,
	},
}

var readinessMultiplier = map[Readiness]float64{
	ReadinessActive:       1.0,
	ReadinessOverextended: 0.5,
	ReadinessDegraded:     0.2,
	ReadinessForming:      0,
}

var classTerrainBonus = map[MunicipalityClass]float64{
	ClassUrbanCenter: 0.4,
	ClassLargeUrban:  0.25,
	ClassEnclave:     0.3,
}

// PowerBreakdown records every multiplier that went into one side's power
// so a report can show where the number came from.
type PowerBreakdown struct {
	FormationID     string  `json:"formation_id,omitempty"`
	Garrison        float64 `json:"garrison"`
	Equipment       float64 `json:"equipment"`
	Experience      float64 `json:"experience"`
	Cohesion        float64 `json:"cohesion"`
	Posture         float64 `json:"posture"`
	Supply          float64 `json:"supply"`
	Readiness       float64 `json:"readiness"`
	CorpsStance     float64 `json:"corps_stance"`
	Operation       float64 `json:"operation"`
	OGBonus         float64 `json:"og_bonus"`
	Resilience      float64 `json:"resilience"`
	Disruption      float64 `json:"disruption"`
	Terrain         float64 `json:"terrain"`
	Hardening       float64 `json:"hardening"`
	ExternalSupport float64 `json:"external_support"`
	Total           float64 `json:"total"`
}

// FormationPower computes a formation's combat power at a settlement.
// Terrain and hardening only apply when defending.
func FormationPower(t *Theater, s *State, f *Formation, garrison float64, mode Mode, settlement string) PowerBreakdown {
	b := PowerBreakdown{
		FormationID:     f.ID,
		Garrison:        garrison,
		Equipment:       equipmentFactor(f.Equipment),
		Experience:      0.6 + 0.8*clamp(f.Experience, 0, 1),
		Cohesion:        clamp(f.Cohesion, 0, 100) / 100,
		Posture:         lookup(postureMultiplier[mode], f.Posture),
		Supply:          supplyFactor(s.Run.Unsupplied(f.ID)),
		Readiness:       lookup(readinessMultiplier, f.Readiness),
		CorpsStance:     1,
		Operation:       operationFactor(s, f, mode),
		OGBonus:         1,
		Resilience:      1,
		Disruption:      1,
		Terrain:         1,
		Hardening:       1,
		ExternalSupport: 1,
	}
	if cmd := s.Corps[f.CorpsID]; cmd != nil {
		b.CorpsStance = lookup(stanceMultiplier[mode], cmd.Stance)
	}
	if f.Kind == KindOperationalGroup {
		b.OGBonus = 1.3
	}
	if f.HomeMunicipality != "" && f.HomeMunicipality == t.Municipality(settlement) {
		b.Resilience = 1.1
	}
	if f.Disrupted {
		b.Disruption = 0.5
	}
	if mode == Defending {
		b.Terrain = TerrainFactor(t, settlement)
		b.Hardening = hardeningFactor(t, s, settlement)
	}
	b.Total = b.Garrison * b.Equipment * b.Experience * b.Cohesion * b.Posture * b.Supply *
		b.Readiness * b.CorpsStance * b.Operation * b.OGBonus * b.Resilience * b.Disruption *
		b.Terrain * b.Hardening
	return b
}

// MilitiaPower is the strength of formation-less defenders drawn from the
// local population pool.
func MilitiaPower(t *Theater, garrison float64, settlement string) PowerBreakdown {
	b := PowerBreakdown{
		Garrison:        garrison,
		Equipment:       1,
		Experience:      1,
		Cohesion:        MilitiaCohesion / 100,
		Posture:         1,
		Supply:          1,
		Readiness:       1,
		CorpsStance:     1,
		Operation:       1,
		OGBonus:         1,
		Resilience:      1,
		Disruption:      1,
		Terrain:         TerrainFactor(t, settlement),
		Hardening:       1,
		ExternalSupport: 1,
	}
	b.Total = b.Garrison * b.Cohesion * b.Terrain
	return b
}

// TerrainFactor is the defender's terrain multiplier at a settlement.
func TerrainFactor(t *Theater, settlement string) float64 {
	ts := t.TerrainAt(settlement)
	bonus := classTerrainBonus[t.ClassOf(t.Municipality(settlement))]
	return (1 + ts.River + ts.Slope + ts.Urban + ts.Friction + bonus) * ts.RoadAccess
}

func hardeningFactor(t *Theater, s *State, settlement string) float64 {
	return 1 + min(0.5, 0.05*float64(maxSegmentStreak(t, s, settlement)))
}

func equipmentFactor(e Equipment) float64 {
	tanks := float64(e.Tanks) * (e.TankCondition.Operational + 0.5*e.TankCondition.Degraded)
	arty := float64(e.Artillery) * (e.ArtilleryCondition.Operational + 0.5*e.ArtilleryCondition.Degraded)
	return 1 + min(0.5, 0.01*tanks+0.005*arty)
}

// supplyFactor penalises formations not resupplied within two turns.
func supplyFactor(unsupplied int) float64 {
	if unsupplied <= 2 {
		return 1
	}
	return 0.4
}

func operationFactor(s *State, f *Formation, mode Mode) float64 {
	cmd := s.Corps[f.CorpsID]
	if cmd == nil || cmd.ActiveOperation == nil || !cmd.ActiveOperation.HasParticipant(f.ID) {
		return 1
	}
	op := cmd.ActiveOperation
	switch op.Phase {
	case PhaseExecution:
		return 1.5
	case PhasePlanning:
		if mode == Defending {
			return 1.05
		}
		return 1
	case PhaseRecovery:
		return min(0.9, 0.6+0.15*float64(max(0, s.Turn-op.PhaseStartedTurn)))
	default:
		return 1
	}
}

func lookup[K comparable](table map[K]float64, key K) float64 {
	if v, ok := table[key]; ok {
		return v
	}
	return 1
}
