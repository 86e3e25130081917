package warfront

// FormationKind classifies a formation.
type FormationKind string

const (
	KindBrigade          FormationKind = "brigade"
	KindCorps            FormationKind = "corps"
	KindOperationalGroup FormationKind = "operational_group"
)

// FormationStatus marks whether a formation still takes part in the war.
type FormationStatus string

const (
	StatusActive   FormationStatus = "active"
	StatusInactive FormationStatus = "inactive"
)

// Posture is a brigade's local combat posture.
type Posture string

const (
	PostureDefend         Posture = "defend"
	PostureProbe          Posture = "probe"
	PostureAttack         Posture = "attack"
	PostureElasticDefense Posture = "elastic_defense"
	PostureConsolidation  Posture = "consolidation"
)

// Readiness describes a formation's state of combat preparation.
type Readiness string

const (
	ReadinessActive       Readiness = "active"
	ReadinessOverextended Readiness = "overextended"
	ReadinessDegraded     Readiness = "degraded"
	ReadinessForming      Readiness = "forming"
)

const (
	// CombatFloor is the personnel a formation always keeps after battle losses.
	CombatFloor = 50

	// Health thresholds used by operation planning and OG activation.
	HealthyPersonnelFraction = 0.7
	HealthyCohesion          = 50.0
)

// Condition splits a weapon stock into operational and degraded fractions.
// Whatever remains of 1 - Operational - Degraded is non-operational.
type Condition struct {
	Operational float64 `json:"operational"`
	Degraded    float64 `json:"degraded"`
}

// Equipment holds heavy weapon counts and their condition.
type Equipment struct {
	Tanks              int       `json:"tanks"`
	Artillery          int       `json:"artillery"`
	TankCondition      Condition `json:"tank_condition"`
	ArtilleryCondition Condition `json:"artillery_condition"`
}

// Formation is a brigade, corps or operational group. Every field is
// present at construction; callers never branch on missing values.
type Formation struct {
	ID               string          `json:"id"`
	Faction          Faction         `json:"faction"`
	Name             string          `json:"name"`
	Kind             FormationKind   `json:"kind"`
	Status           FormationStatus `json:"status"`
	CorpsID          string          `json:"corps_id"`
	HQ               string          `json:"hq"`
	HomeMunicipality string          `json:"home_municipality"`
	Personnel        int             `json:"personnel"`
	Establishment    int             `json:"establishment"`
	Cohesion         float64         `json:"cohesion"`
	Experience       float64         `json:"experience"`
	Posture          Posture         `json:"posture"`
	Readiness        Readiness       `json:"readiness"`
	Equipment        Equipment       `json:"equipment"`
	Disrupted        bool            `json:"disrupted"`
	WoundedPending   int             `json:"wounded_pending"`
}

// NewFormation returns an active formation with every field defaulted.
func NewFormation(id string, faction Faction, kind FormationKind, personnel int) *Formation {
	return &Formation{
		ID:            id,
		Faction:       faction,
		Name:          id,
		Kind:          kind,
		Status:        StatusActive,
		Personnel:     personnel,
		Establishment: personnel,
		Cohesion:      60,
		Experience:    0.5,
		Posture:       PostureDefend,
		Readiness:     ReadinessActive,
		Equipment: Equipment{
			TankCondition:      Condition{Operational: 1},
			ArtilleryCondition: Condition{Operational: 1},
		},
	}
}

// Active returns true if the formation still fights.
func (f *Formation) Active() bool {
	return f.Status == StatusActive
}

// IsBrigade returns true for active brigades, the only formations that hold AoR.
func (f *Formation) IsBrigade() bool {
	return f.Kind == KindBrigade && f.Active()
}

// PersonnelFraction is current personnel relative to establishment strength.
func (f *Formation) PersonnelFraction() float64 {
	if f.Establishment <= 0 {
		if f.Personnel > 0 {
			return 1
		}
		return 0
	}
	return float64(f.Personnel) / float64(f.Establishment)
}

// Healthy reports whether the formation can be committed to an operation.
func (f *Formation) Healthy() bool {
	return f.Active() && f.PersonnelFraction() >= HealthyPersonnelFraction && f.Cohesion >= HealthyCohesion
}

// Normalize clamps numeric fields into their valid ranges.
func (f *Formation) Normalize() {
	f.Cohesion = clamp(f.Cohesion, 0, 100)
	f.Experience = clamp(f.Experience, 0, 1)
	if f.Personnel < 0 {
		f.Personnel = 0
	}
	if f.WoundedPending < 0 {
		f.WoundedPending = 0
	}
	if f.Equipment.Tanks < 0 {
		f.Equipment.Tanks = 0
	}
	if f.Equipment.Artillery < 0 {
		f.Equipment.Artillery = 0
	}
}

func (f *Formation) clone() *Formation {
	c := *f
	return &c
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
