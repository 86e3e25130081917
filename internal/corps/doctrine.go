package corps

import (
	"fmt"
	"os"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"

	"github.com/freeeve/warfront/pkg/warfront"
)

// Doctrine is the versioned, hand-authored per-faction configuration the
// corps AI reads: operation catalog, corridors, doctrine phases, standing
// order windows and historical stance overrides.
type Doctrine struct {
	Version  string                               `yaml:"version"`
	Factions map[warfront.Faction]*FactionDoctrine `yaml:"factions"`
}

// FactionDoctrine is one faction's section of the doctrine file.
type FactionDoctrine struct {
	// LowOGThreshold lets the faction form operational groups from two donors.
	LowOGThreshold bool                `yaml:"low_og_threshold"`
	Operations     []OperationTemplate `yaml:"operations"`
	Corridors      []Corridor          `yaml:"corridors"`
	Phases         []Phase             `yaml:"phases"`
	Orders         []OrderWindow       `yaml:"standing_orders"`
	Overrides      []*Override         `yaml:"overrides"`
}

// OperationTemplate names a set of target municipalities for a named operation.
type OperationTemplate struct {
	Name           string   `yaml:"name"`
	Municipalities []string `yaml:"municipalities"`
}

// Corridor is a strip of municipalities the faction must keep open.
type Corridor struct {
	Name           string   `yaml:"name"`
	Municipalities []string `yaml:"municipalities"`
	MaxStripWidth  int      `yaml:"max_strip_width"`
}

// Phase gives balanced corps a default stance for a window of turns.
type Phase struct {
	Name          string               `yaml:"name"`
	FromTurn      int                  `yaml:"from_turn"`
	ToTurn        int                  `yaml:"to_turn"`
	DefaultStance warfront.CorpsStance `yaml:"default_stance"`
}

// OrderWindow is a historical standing order in force for a window of turns.
type OrderWindow struct {
	Order    warfront.StandingOrder `yaml:"order"`
	FromTurn int                    `yaml:"from_turn"`
	ToTurn   int                    `yaml:"to_turn"`
}

// AllianceCondition matches the relation with another faction.
type AllianceCondition struct {
	With   warfront.Faction `yaml:"with"`
	Allied bool             `yaml:"allied"`
}

// Override bounds a corps's stance when every condition holds. An empty
// municipality list matches any corps; a zero ToTurn is open-ended.
type Override struct {
	Name           string               `yaml:"name"`
	Municipalities []string             `yaml:"municipalities"`
	FromTurn       int                  `yaml:"from_turn"`
	ToTurn         int                  `yaml:"to_turn"`
	Alliance       *AllianceCondition   `yaml:"alliance"`
	When           string               `yaml:"when"`
	Floor          warfront.CorpsStance `yaml:"floor"`
	Ceiling        warfront.CorpsStance `yaml:"ceiling"`

	program *vm.Program
}

// RuleEnv is what an override's When expression can see.
type RuleEnv struct {
	Turn              int
	Faction           string
	Corps             string
	Stance            string
	Threat            float64
	Cohesion          float64
	PersonnelFraction float64
	Exhaustion        float64
	Municipalities    []string
}

// HasMunicipality is callable from override expressions.
func (e RuleEnv) HasMunicipality(m string) bool {
	for _, x := range e.Municipalities {
		if x == m {
			return true
		}
	}
	return false
}

// LoadDoctrine reads and compiles a doctrine file.
func LoadDoctrine(path string) (*Doctrine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read doctrine: %w", err)
	}
	return ParseDoctrine(data)
}

// ParseDoctrine decodes YAML doctrine and compiles its override conditions.
func ParseDoctrine(data []byte) (*Doctrine, error) {
	var d Doctrine
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse doctrine: %w", err)
	}
	if err := d.compile(); err != nil {
		return nil, err
	}
	return &d, nil
}

// EmptyDoctrine has no catalog, corridors or overrides.
func EmptyDoctrine() *Doctrine {
	return &Doctrine{Version: "none", Factions: map[warfront.Faction]*FactionDoctrine{}}
}

func (d *Doctrine) compile() error {
	if d.Factions == nil {
		d.Factions = map[warfront.Faction]*FactionDoctrine{}
	}
	for faction, fd := range d.Factions {
		if fd == nil {
			d.Factions[faction] = &FactionDoctrine{}
			continue
		}
		for _, o := range fd.Overrides {
			if err := validStance(o.Floor); err != nil {
				return fmt.Errorf("override %q floor: %w", o.Name, err)
			}
			if err := validStance(o.Ceiling); err != nil {
				return fmt.Errorf("override %q ceiling: %w", o.Name, err)
			}
			if o.When == "" {
				continue
			}
			prog, err := expr.Compile(o.When, expr.Env(RuleEnv{}), expr.AsBool())
			if err != nil {
				return fmt.Errorf("compile override %q: %w", o.Name, err)
			}
			o.program = prog
		}
		for _, c := range fd.Corridors {
			if c.MaxStripWidth <= 0 {
				return fmt.Errorf("corridor %q: max_strip_width must be positive", c.Name)
			}
		}
		for _, p := range fd.Phases {
			if err := validStance(p.DefaultStance); err != nil {
				return fmt.Errorf("phase %q: %w", p.Name, err)
			}
		}
	}
	return nil
}

func validStance(s warfront.CorpsStance) error {
	switch s {
	case "", warfront.StanceDefensive, warfront.StanceBalanced, warfront.StanceOffensive:
		return nil
	default:
		return fmt.Errorf("invalid stance %q", s)
	}
}

// faction returns the faction's section, never nil.
func (d *Doctrine) faction(f warfront.Faction) *FactionDoctrine {
	if d == nil {
		return &FactionDoctrine{}
	}
	if fd := d.Factions[f]; fd != nil {
		return fd
	}
	return &FactionDoctrine{}
}

func inWindow(turn, from, to int) bool {
	return turn >= from && (to == 0 || turn <= to)
}

// phaseDefault returns the default stance of the doctrine phase covering
// the turn, or balanced.
func (fd *FactionDoctrine) phaseDefault(turn int) warfront.CorpsStance {
	for _, p := range fd.Phases {
		if inWindow(turn, p.FromTurn, p.ToTurn) && p.DefaultStance != "" {
			return p.DefaultStance
		}
	}
	return warfront.StanceBalanced
}

// scheduledOrder returns the standing order window covering the turn.
func (fd *FactionDoctrine) scheduledOrder(turn int) (warfront.StandingOrder, bool) {
	for _, w := range fd.Orders {
		if inWindow(turn, w.FromTurn, w.ToTurn) {
			return w.Order, true
		}
	}
	return warfront.OrderNone, false
}
