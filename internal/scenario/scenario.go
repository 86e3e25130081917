// Package scenario loads the YAML description of a theater and its opening
// order of battle, and builds the core's theater and state from it.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/freeeve/warfront/pkg/warfront"
)

// Scenario is a theater, its opening state and optional scripted orders.
type Scenario struct {
	Name            string                                      `yaml:"name" json:"name"`
	StartTurn       int                                         `yaml:"start_turn" json:"start_turn"`
	Settlements     []Settlement                                `yaml:"settlements" json:"settlements"`
	Edges           []warfront.Edge                             `yaml:"edges" json:"edges"`
	Classes         map[string]warfront.MunicipalityClass       `yaml:"municipality_classes" json:"municipality_classes,omitempty"`
	Relations       []Relation                                  `yaml:"relations" json:"relations,omitempty"`
	Formations      []Formation                                 `yaml:"formations" json:"formations"`
	Militia         map[string]int                              `yaml:"militia" json:"militia,omitempty"`
	ExternalSupport map[string]float64                          `yaml:"external_support" json:"external_support,omitempty"`
	SupplySources   map[warfront.Faction][]string               `yaml:"supply_sources" json:"supply_sources,omitempty"`
	Orders          []TurnOrders                                `yaml:"orders" json:"orders,omitempty"`
	Standing        map[warfront.Faction]warfront.StandingOrder `yaml:"standing_orders" json:"standing_orders,omitempty"`
}

// Settlement is one node with its municipality, controller and terrain.
type Settlement struct {
	ID           string                   `yaml:"id" json:"id"`
	Municipality string                   `yaml:"municipality" json:"municipality"`
	Control      warfront.Faction         `yaml:"control" json:"control,omitempty"`
	Terrain      *warfront.TerrainScalars `yaml:"terrain" json:"terrain,omitempty"`
}

// Relation sets the diplomatic state of a faction pair.
type Relation struct {
	A      warfront.Faction `yaml:"a" json:"a"`
	B      warfront.Faction `yaml:"b" json:"b"`
	Allied bool             `yaml:"allied" json:"allied"`
	AtWar  bool             `yaml:"at_war" json:"at_war"`
}

// Formation is an order-of-battle entry. Unset optional fields keep the
// core's construction defaults.
type Formation struct {
	ID               string                   `yaml:"id" json:"id"`
	Faction          warfront.Faction         `yaml:"faction" json:"faction"`
	Name             string                   `yaml:"name" json:"name,omitempty"`
	Kind             warfront.FormationKind   `yaml:"kind" json:"kind"`
	Corps            string                   `yaml:"corps" json:"corps,omitempty"`
	HQ               string                   `yaml:"hq" json:"hq,omitempty"`
	HomeMunicipality string                   `yaml:"home_municipality" json:"home_municipality,omitempty"`
	Personnel        int                      `yaml:"personnel" json:"personnel"`
	Establishment    int                      `yaml:"establishment" json:"establishment,omitempty"`
	Cohesion         *float64                 `yaml:"cohesion" json:"cohesion,omitempty"`
	Experience       *float64                 `yaml:"experience" json:"experience,omitempty"`
	Posture          warfront.Posture         `yaml:"posture" json:"posture,omitempty"`
	Readiness        warfront.Readiness       `yaml:"readiness" json:"readiness,omitempty"`
	Tanks            int                      `yaml:"tanks" json:"tanks,omitempty"`
	Artillery        int                      `yaml:"artillery" json:"artillery,omitempty"`
	Stance           warfront.CorpsStance     `yaml:"stance" json:"stance,omitempty"`
	OGSlots          *int                     `yaml:"og_slots" json:"og_slots,omitempty"`
	Status           warfront.FormationStatus `yaml:"status" json:"status,omitempty"`
}

// TurnOrders are scripted attack orders (formation -> target) for a turn.
type TurnOrders struct {
	Turn    int               `yaml:"turn" json:"turn"`
	Attacks map[string]string `yaml:"attacks" json:"attacks"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML scenario.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

var validFactions = map[warfront.Faction]bool{
	warfront.RBiH: true,
	warfront.RS:   true,
	warfront.HRHB: true,
}

var validKinds = map[warfront.FormationKind]bool{
	warfront.KindBrigade:          true,
	warfront.KindCorps:            true,
	warfront.KindOperationalGroup: true,
}

// Validate reports every structural problem of the scenario at once.
func (sc *Scenario) Validate() error {
	var errs []error
	settlements := make(map[string]bool, len(sc.Settlements))
	for _, s := range sc.Settlements {
		switch {
		case s.ID == "":
			errs = append(errs, errors.New("settlement with empty id"))
		case settlements[s.ID]:
			errs = append(errs, fmt.Errorf("duplicate settlement %q", s.ID))
		}
		settlements[s.ID] = true
		if s.Control != warfront.NoOwner && !validFactions[s.Control] {
			errs = append(errs, fmt.Errorf("settlement %q: unknown faction %q", s.ID, s.Control))
		}
	}
	for _, e := range sc.Edges {
		if !settlements[e.A] || !settlements[e.B] {
			errs = append(errs, fmt.Errorf("edge %s-%s references an unknown settlement", e.A, e.B))
		}
	}
	for _, r := range sc.Relations {
		if !validFactions[r.A] || !validFactions[r.B] || r.A == r.B {
			errs = append(errs, fmt.Errorf("invalid relation %s-%s", r.A, r.B))
		}
	}

	formations := make(map[string]Formation, len(sc.Formations))
	for _, f := range sc.Formations {
		if _, dup := formations[f.ID]; dup || f.ID == "" {
			errs = append(errs, fmt.Errorf("duplicate or empty formation id %q", f.ID))
		}
		formations[f.ID] = f
		if !validFactions[f.Faction] {
			errs = append(errs, fmt.Errorf("formation %q: unknown faction %q", f.ID, f.Faction))
		}
		if !validKinds[f.Kind] {
			errs = append(errs, fmt.Errorf("formation %q: unknown kind %q", f.ID, f.Kind))
		}
		if f.Personnel < 0 {
			errs = append(errs, fmt.Errorf("formation %q: negative personnel", f.ID))
		}
		if f.HQ != "" && !settlements[f.HQ] {
			errs = append(errs, fmt.Errorf("formation %q: unknown hq %q", f.ID, f.HQ))
		}
	}
	for _, f := range sc.Formations {
		if f.Corps == "" {
			continue
		}
		c, ok := formations[f.Corps]
		if !ok || c.Kind != warfront.KindCorps {
			errs = append(errs, fmt.Errorf("formation %q: corps %q is not a corps formation", f.ID, f.Corps))
		} else if c.Faction != f.Faction {
			errs = append(errs, fmt.Errorf("formation %q: corps %q belongs to %s", f.ID, f.Corps, c.Faction))
		}
	}
	for sid := range sc.Militia {
		if !settlements[sid] {
			errs = append(errs, fmt.Errorf("militia at unknown settlement %q", sid))
		}
	}
	for faction, srcs := range sc.SupplySources {
		for _, sid := range srcs {
			if !settlements[sid] {
				errs = append(errs, fmt.Errorf("%s supply source %q is unknown", faction, sid))
			}
		}
	}
	return errors.Join(errs...)
}

// Theater builds the static theater graph.
func (sc *Scenario) Theater() *warfront.Theater {
	muns := make(map[string]string, len(sc.Settlements))
	for _, s := range sc.Settlements {
		muns[s.ID] = s.Municipality
	}
	t := warfront.NewTheater(muns, sc.Edges)
	for _, s := range sc.Settlements {
		if s.Terrain != nil {
			t.Terrain[s.ID] = *s.Terrain
		}
	}
	for mun, class := range sc.Classes {
		t.Classes[mun] = class
	}
	return t
}

// State builds the opening state. AoR is left empty for the first
// assignment pass.
func (sc *Scenario) State() *warfront.State {
	s := warfront.NewState()
	s.Turn = sc.StartTurn
	for _, st := range sc.Settlements {
		if st.Control != warfront.NoOwner {
			s.Control[st.ID] = st.Control
		}
	}
	for _, r := range sc.Relations {
		s.Relations[warfront.RelationKey(r.A, r.B)] = warfront.Relation{Allied: r.Allied, AtWar: r.AtWar}
	}
	for _, f := range sc.Formations {
		s.AddFormation(f.build())
		if f.Kind != warfront.KindCorps {
			continue
		}
		cmd := s.Corps[f.ID]
		if f.Stance != "" {
			cmd.Stance = f.Stance
		}
		if f.OGSlots != nil {
			cmd.OGSlots = *f.OGSlots
		}
	}
	for sid, n := range sc.Militia {
		s.MilitiaPool[sid] = n
	}
	for k, v := range sc.ExternalSupport {
		s.ExternalSupport[k] = v
	}
	for f, o := range sc.Standing {
		s.StandingOrders[f] = o
	}
	s.Normalize()
	return s
}

func (f Formation) build() *warfront.Formation {
	fm := warfront.NewFormation(f.ID, f.Faction, f.Kind, f.Personnel)
	if f.Name != "" {
		fm.Name = f.Name
	}
	fm.CorpsID = f.Corps
	fm.HQ = f.HQ
	fm.HomeMunicipality = f.HomeMunicipality
	if f.Establishment > 0 {
		fm.Establishment = f.Establishment
	}
	if f.Cohesion != nil {
		fm.Cohesion = *f.Cohesion
	}
	if f.Experience != nil {
		fm.Experience = *f.Experience
	}
	if f.Posture != "" {
		fm.Posture = f.Posture
	}
	if f.Readiness != "" {
		fm.Readiness = f.Readiness
	}
	if f.Status != "" {
		fm.Status = f.Status
	}
	fm.Equipment.Tanks = f.Tanks
	fm.Equipment.Artillery = f.Artillery
	return fm
}

// Sources returns the supply sources in the core's form.
func (sc *Scenario) Sources() warfront.SupplySources {
	out := make(warfront.SupplySources, len(sc.SupplySources))
	for f, srcs := range sc.SupplySources {
		out[f] = slices.Clone(srcs)
	}
	return out
}

// OrdersFor merges every scripted order block for the turn. Later blocks
// override earlier ones for the same formation.
func (sc *Scenario) OrdersFor(turn int) map[string]string {
	out := make(map[string]string)
	for _, o := range sc.Orders {
		if o.Turn != turn {
			continue
		}
		for id, target := range o.Attacks {
			out[id] = target
		}
	}
	return out
}

// ScriptedTurns returns, sorted, the turns with scripted orders.
func (sc *Scenario) ScriptedTurns() []int {
	seen := make(map[int]bool)
	for _, o := range sc.Orders {
		seen[o.Turn] = true
	}
	turns := make([]int, 0, len(seen))
	for t := range seen {
		turns = append(turns, t)
	}
	sort.Ints(turns)
	return turns
}
