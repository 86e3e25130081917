package warfront

// CorpsStance modulates subordinate brigades' attack and defense multipliers.
type CorpsStance string

const (
	StanceDefensive  CorpsStance = "defensive"
	StanceBalanced   CorpsStance = "balanced"
	StanceOffensive  CorpsStance = "offensive"
	StanceReorganize CorpsStance = "reorganize"
)

// OperationType is the kind of a corps operation.
type OperationType string

const (
	OpOffensive        OperationType = "offensive"
	OpSectorAttack     OperationType = "sector_attack"
	OpEmergencyDefense OperationType = "emergency_defense"
)

// OperationPhase is a step of the operation lifecycle.
type OperationPhase string

const (
	PhasePlanning  OperationPhase = "planning"
	PhaseExecution OperationPhase = "execution"
	PhaseRecovery  OperationPhase = "recovery"
)

// Operation is a named multi-turn corps undertaking. It runs
// planning -> execution -> recovery and is then cleared from the corps.
type Operation struct {
	Name             string         `json:"name"`
	Type             OperationType  `json:"type"`
	Phase            OperationPhase `json:"phase"`
	StartedTurn      int            `json:"started_turn"`
	PhaseStartedTurn int            `json:"phase_started_turn"`
	Targets          []string       `json:"target_settlements"`
	Participants     []string       `json:"participating_brigades"`
	// Baseline holds participant personnel at the start of execution.
	Baseline     map[string]int `json:"baseline,omitempty"`
	ForcedStance CorpsStance    `json:"forced_stance,omitempty"`
	OGRequested  bool           `json:"og_requested"`
	Result       string         `json:"result,omitempty"`
}

// HasParticipant returns true if the formation takes part in the operation.
func (o *Operation) HasParticipant(id string) bool {
	for _, p := range o.Participants {
		if p == id {
			return true
		}
	}
	return false
}

func (o *Operation) clone() *Operation {
	c := *o
	c.Targets = append([]string(nil), o.Targets...)
	c.Participants = append([]string(nil), o.Participants...)
	if o.Baseline != nil {
		c.Baseline = make(map[string]int, len(o.Baseline))
		for k, v := range o.Baseline {
			c.Baseline[k] = v
		}
	}
	return &c
}

// CorpsCommand is the command state of one corps, keyed by the corps
// formation id.
type CorpsCommand struct {
	CorpsID         string      `json:"corps_id"`
	Stance          CorpsStance `json:"stance"`
	Exhaustion      float64     `json:"exhaustion"`
	ActiveOperation *Operation  `json:"active_operation"`
	OGSlots         int         `json:"og_slots"`
	ActiveOGs       []string    `json:"active_ogs"`
	// LastTurn is the last turn the corps AI advanced this command.
	LastTurn int `json:"last_turn"`
}

// NewCorpsCommand returns a balanced, rested corps with one OG slot.
func NewCorpsCommand(corpsID string) *CorpsCommand {
	return &CorpsCommand{
		CorpsID:  corpsID,
		Stance:   StanceBalanced,
		OGSlots:  1,
		LastTurn: -1,
	}
}

func (c *CorpsCommand) clone() *CorpsCommand {
	cc := *c
	cc.ActiveOGs = append([]string(nil), c.ActiveOGs...)
	if c.ActiveOperation != nil {
		cc.ActiveOperation = c.ActiveOperation.clone()
	}
	return &cc
}

// StandingOrder is an army-wide directive for a faction.
type StandingOrder string

const (
	OrderNone             StandingOrder = ""
	OrderGeneralOffensive StandingOrder = "general_offensive"
	OrderGeneralDefensive StandingOrder = "general_defensive"
)

// Donation is the personnel one brigade gives to a new operational group.
type Donation struct {
	FormationID string `json:"formation_id"`
	Personnel   int    `json:"personnel"`
}

// OGActivationRequest asks the external formation layer to assemble an
// operational group. The core never moves personnel itself.
type OGActivationRequest struct {
	Turn        int        `json:"turn"`
	CorpsID     string     `json:"corps_id"`
	Operation   string     `json:"operation"`
	Donors      []Donation `json:"donors"`
	Focus       []string   `json:"focus"`
	Posture     Posture    `json:"posture"`
	MaxDuration int        `json:"max_duration"`
}
