package warfront

import "sort"

// FrontSegment tracks how long a front edge has been continuously active.
type FrontSegment struct {
	ActiveStreak int `json:"active_streak"`
}

// EdgeKey returns the order-independent key of a settlement pair.
func EdgeKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// RunContext holds cross-turn caches that belong to one run. A new run
// must start from NewRunContext or call Reset.
type RunContext struct {
	// UnsuppliedStreak counts consecutive turns without resupply per formation.
	UnsuppliedStreak map[string]int `json:"unsupplied_streak"`
}

// NewRunContext returns an empty run context.
func NewRunContext() *RunContext {
	return &RunContext{UnsuppliedStreak: make(map[string]int)}
}

// Reset clears every cache.
func (rc *RunContext) Reset() {
	clear(rc.UnsuppliedStreak)
}

// RecordSupply updates the unsupplied streak of a formation for the turn.
func (rc *RunContext) RecordSupply(formationID string, supplied bool) {
	if supplied {
		delete(rc.UnsuppliedStreak, formationID)
		return
	}
	rc.UnsuppliedStreak[formationID]++
}

// Unsupplied returns the consecutive unsupplied turns of a formation.
func (rc *RunContext) Unsupplied(formationID string) int {
	if rc == nil {
		return 0
	}
	return rc.UnsuppliedStreak[formationID]
}

// State is the mutable world state the core runs against once per turn.
// It is exclusively owned by the caller for the duration of a turn; clone
// it first if the turn may need to be discarded.
type State struct {
	Turn       int                      `json:"turn"`
	Control    map[string]Faction       `json:"political_control"`
	Formations map[string]*Formation    `json:"formations"`
	Corps      map[string]*CorpsCommand `json:"corps_command"`
	// BrigadeAoR maps settlement -> owning brigade. Absent means null.
	BrigadeAoR map[string]string `json:"brigade_aor"`
	// BrigadeMunicipalities is the persisted brigade -> municipalities table.
	BrigadeMunicipalities map[string][]string     `json:"brigade_municipality_assignment"`
	FrontSegments         map[string]FrontSegment `json:"front_segments"`
	// FrontPressure maps an edge key to the pressure each faction exerts on it.
	FrontPressure   map[string]map[Faction]float64 `json:"front_pressure"`
	Relations       map[string]Relation            `json:"relations"`
	StandingOrders  map[Faction]StandingOrder      `json:"army_stance"`
	MilitiaPool     map[string]int                 `json:"militia_pool"`
	ExternalSupport map[string]float64             `json:"external_support"` // faction -> attack multiplier
	Ledger          *CasualtyLedger                `json:"casualty_ledger"`
	OGRequests      []OGActivationRequest          `json:"og_requests"`
	Run             *RunContext                    `json:"run_context"`
}

// NewState returns an empty state at turn 0 with every table allocated.
func NewState() *State {
	return &State{
		Control:               make(map[string]Faction),
		Formations:            make(map[string]*Formation),
		Corps:                 make(map[string]*CorpsCommand),
		BrigadeAoR:            make(map[string]string),
		BrigadeMunicipalities: make(map[string][]string),
		FrontSegments:         make(map[string]FrontSegment),
		FrontPressure:         make(map[string]map[Faction]float64),
		Relations:             make(map[string]Relation),
		StandingOrders:        make(map[Faction]StandingOrder),
		MilitiaPool:           make(map[string]int),
		ExternalSupport:       make(map[string]float64),
		Ledger:                NewCasualtyLedger(),
		Run:                   NewRunContext(),
	}
}

// Controller returns the faction controlling a settlement.
func (s *State) Controller(id string) Faction {
	return s.Control[id]
}

// AddFormation registers a formation, creating a corps command for corps.
func (s *State) AddFormation(f *Formation) {
	s.Formations[f.ID] = f
	if f.Kind == KindCorps {
		if _, ok := s.Corps[f.ID]; !ok {
			s.Corps[f.ID] = NewCorpsCommand(f.ID)
		}
	}
}

// Formation returns the formation with the given id, or nil.
func (s *State) Formation(id string) *Formation {
	return s.Formations[id]
}

// FormationIDs returns every formation id in ascending order.
func (s *State) FormationIDs() []string {
	ids := make([]string, 0, len(s.Formations))
	for id := range s.Formations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BrigadesOf returns the active brigades of a faction sorted by id.
func (s *State) BrigadesOf(f Faction) []*Formation {
	var out []*Formation
	for _, id := range s.FormationIDs() {
		fm := s.Formations[id]
		if fm.Faction == f && fm.IsBrigade() {
			out = append(out, fm)
		}
	}
	return out
}

// CorpsBrigades returns the active brigades subordinate to a corps, sorted by id.
func (s *State) CorpsBrigades(corpsID string) []*Formation {
	var out []*Formation
	for _, id := range s.FormationIDs() {
		fm := s.Formations[id]
		if fm.CorpsID == corpsID && fm.IsBrigade() {
			out = append(out, fm)
		}
	}
	return out
}

// CorpsIDs returns every corps command id in ascending order.
func (s *State) CorpsIDs() []string {
	ids := make([]string, 0, len(s.Corps))
	for id := range s.Corps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CorpsFaction returns the faction of a corps, or NoOwner if the corps
// formation is unknown.
func (s *State) CorpsFaction(corpsID string) Faction {
	if f := s.Formations[corpsID]; f != nil {
		return f.Faction
	}
	return NoOwner
}

// Relation returns the relation between two factions.
func (s *State) Relation(a, b Faction) Relation {
	return s.Relations[RelationKey(a, b)]
}

// Allied returns true if two distinct factions are allied.
func (s *State) Allied(a, b Faction) bool {
	if a == b {
		return false
	}
	return s.Relation(a, b).Allied
}

// AoROf returns the sorted settlements owned by a formation.
func (s *State) AoROf(formationID string) []string {
	var out []string
	for sid, owner := range s.BrigadeAoR {
		if owner == formationID {
			out = append(out, sid)
		}
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy of the state. Mutations to the clone do not
// affect the original.
func (s *State) Clone() *State {
	c := &State{
		Turn:                  s.Turn,
		Control:               make(map[string]Faction, len(s.Control)),
		Formations:            make(map[string]*Formation, len(s.Formations)),
		Corps:                 make(map[string]*CorpsCommand, len(s.Corps)),
		BrigadeAoR:            make(map[string]string, len(s.BrigadeAoR)),
		BrigadeMunicipalities: make(map[string][]string, len(s.BrigadeMunicipalities)),
		FrontSegments:         make(map[string]FrontSegment, len(s.FrontSegments)),
		FrontPressure:         make(map[string]map[Faction]float64, len(s.FrontPressure)),
		Relations:             make(map[string]Relation, len(s.Relations)),
		StandingOrders:        make(map[Faction]StandingOrder, len(s.StandingOrders)),
		MilitiaPool:           make(map[string]int, len(s.MilitiaPool)),
		ExternalSupport:       make(map[string]float64, len(s.ExternalSupport)),
		Run:                   NewRunContext(),
	}
	for k, v := range s.Control {
		c.Control[k] = v
	}
	for k, v := range s.Formations {
		c.Formations[k] = v.clone()
	}
	for k, v := range s.Corps {
		c.Corps[k] = v.clone()
	}
	for k, v := range s.BrigadeAoR {
		c.BrigadeAoR[k] = v
	}
	for k, v := range s.BrigadeMunicipalities {
		c.BrigadeMunicipalities[k] = append([]string(nil), v...)
	}
	for k, v := range s.FrontSegments {
		c.FrontSegments[k] = v
	}
	for k, v := range s.FrontPressure {
		m := make(map[Faction]float64, len(v))
		for f, p := range v {
			m[f] = p
		}
		c.FrontPressure[k] = m
	}
	for k, v := range s.Relations {
		c.Relations[k] = v
	}
	for k, v := range s.StandingOrders {
		c.StandingOrders[k] = v
	}
	for k, v := range s.MilitiaPool {
		c.MilitiaPool[k] = v
	}
	for k, v := range s.ExternalSupport {
		c.ExternalSupport[k] = v
	}
	if s.Ledger != nil {
		c.Ledger = s.Ledger.clone()
	} else {
		c.Ledger = NewCasualtyLedger()
	}
	if s.OGRequests != nil {
		c.OGRequests = make([]OGActivationRequest, len(s.OGRequests))
		for i, r := range s.OGRequests {
			r.Donors = append([]Donation(nil), r.Donors...)
			r.Focus = append([]string(nil), r.Focus...)
			c.OGRequests[i] = r
		}
	}
	if s.Run != nil {
		for k, v := range s.Run.UnsuppliedStreak {
			c.Run.UnsuppliedStreak[k] = v
		}
	}
	return c
}

// ensure allocates any table left nil by a decoder or a hand-built state.
func (s *State) ensure() {
	if s.Control == nil {
		s.Control = make(map[string]Faction)
	}
	if s.Formations == nil {
		s.Formations = make(map[string]*Formation)
	}
	if s.Corps == nil {
		s.Corps = make(map[string]*CorpsCommand)
	}
	if s.BrigadeAoR == nil {
		s.BrigadeAoR = make(map[string]string)
	}
	if s.BrigadeMunicipalities == nil {
		s.BrigadeMunicipalities = make(map[string][]string)
	}
	if s.FrontSegments == nil {
		s.FrontSegments = make(map[string]FrontSegment)
	}
	if s.FrontPressure == nil {
		s.FrontPressure = make(map[string]map[Faction]float64)
	}
	if s.Relations == nil {
		s.Relations = make(map[string]Relation)
	}
	if s.StandingOrders == nil {
		s.StandingOrders = make(map[Faction]StandingOrder)
	}
	if s.MilitiaPool == nil {
		s.MilitiaPool = make(map[string]int)
	}
	if s.ExternalSupport == nil {
		s.ExternalSupport = make(map[string]float64)
	}
	if s.Ledger == nil {
		s.Ledger = NewCasualtyLedger()
	}
	if s.Run == nil {
		s.Run = NewRunContext()
	}
}

// Normalize allocates missing tables and clamps formation fields. Callers
// that decode a State from JSON should call it once before the first turn.
func (s *State) Normalize() {
	s.ensure()
	for _, f := range s.Formations {
		f.Normalize()
	}
}
