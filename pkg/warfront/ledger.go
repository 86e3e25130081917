package warfront

// Casualties splits a loss into killed, wounded and missing.
type Casualties struct {
	Killed  int `json:"killed"`
	Wounded int `json:"wounded"`
	Missing int `json:"missing"`
}

// Total returns the sum of all categories.
func (c Casualties) Total() int {
	return c.Killed + c.Wounded + c.Missing
}

// Add returns the element-wise sum.
func (c Casualties) Add(o Casualties) Casualties {
	return Casualties{
		Killed:  c.Killed + o.Killed,
		Wounded: c.Wounded + o.Wounded,
		Missing: c.Missing + o.Missing,
	}
}

// CasualtyLedger accumulates losses over a run. It only ever grows.
type CasualtyLedger struct {
	ByFaction   map[Faction]Casualties `json:"by_faction"`
	ByFormation map[string]Casualties  `json:"by_formation"`
}

// NewCasualtyLedger returns an empty ledger.
func NewCasualtyLedger() *CasualtyLedger {
	return &CasualtyLedger{
		ByFaction:   make(map[Faction]Casualties),
		ByFormation: make(map[string]Casualties),
	}
}

// Record adds a loss for a faction and, if formationID is non-empty, for
// the formation. Negative components are ignored.
func (l *CasualtyLedger) Record(f Faction, formationID string, c Casualties) {
	c = Casualties{Killed: max(0, c.Killed), Wounded: max(0, c.Wounded), Missing: max(0, c.Missing)}
	if c.Total() == 0 {
		return
	}
	l.ByFaction[f] = l.ByFaction[f].Add(c)
	if formationID != "" {
		l.ByFormation[formationID] = l.ByFormation[formationID].Add(c)
	}
}

func (l *CasualtyLedger) clone() *CasualtyLedger {
	c := NewCasualtyLedger()
	for k, v := range l.ByFaction {
		c.ByFaction[k] = v
	}
	for k, v := range l.ByFormation {
		c.ByFormation[k] = v
	}
	return c
}
