package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/freeeve/warfront/internal/corps"
	"github.com/freeeve/warfront/internal/model"
	"github.com/freeeve/warfront/pkg/warfront"
)

// Turn is everything one resolved turn produced.
type Turn struct {
	Report     *warfront.TurnReport           `json:"report"`
	CorpsAI    *corps.Result                  `json:"corps_ai"`
	OGRequests []warfront.OGActivationRequest `json:"og_requests,omitempty"`
}

// Engine runs the per-turn pipeline against a state held by the caller.
// It does no I/O.
type Engine struct {
	ai *corps.AI
}

// NewEngine returns an engine driving the given corps AI.
func NewEngine(ai *corps.AI) *Engine {
	return &Engine{ai: ai}
}

// DoctrineVersion is the version of the doctrine table in use.
func (e *Engine) DoctrineVersion() string {
	return e.ai.Doctrine().Version
}

// Prepare brings a freshly built state to the shape the first turn expects.
func (e *Engine) Prepare(t *warfront.Theater, s *warfront.State) {
	s.Normalize()
	warfront.AssignAoR(t, s)
}

// Step resolves one turn in place: AoR, coverage, front pressure and supply
// are refreshed, the corps AI runs, the attack orders are resolved, AoR is
// re-validated against the new control map and the turn counter advances.
// OG activation requests raised this turn are handed back and cleared from
// the state.
func (e *Engine) Step(t *warfront.Theater, s *warfront.State, sources warfront.SupplySources, orders map[string]string) *Turn {
	s.Normalize()
	warfront.AssignAoR(t, s)
	cov := warfront.ComputeCoverage(t, s, nil)
	warfront.UpdateFrontPressure(t, s, cov)
	warfront.UpdateSupply(t, s, sources)

	ai := e.ai.Run(t, s)
	report := warfront.ResolveBattles(t, s, cov, orders)

	warfront.AssignAoR(t, s)
	warfront.AdvanceFrontSegments(t, s)

	requests := s.OGRequests
	s.OGRequests = nil
	s.Turn++
	return &Turn{Report: report, CorpsAI: ai, OGRequests: requests}
}

// Records flattens a turn into its archive rows.
func Records(runID string, turn *Turn, now time.Time) (*model.TurnRecord, []model.BattleRecord, error) {
	report, err := json.Marshal(turn.Report)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal report: %w", err)
	}
	var ai json.RawMessage
	if turn.CorpsAI != nil {
		if ai, err = json.Marshal(turn.CorpsAI); err != nil {
			return nil, nil, fmt.Errorf("marshal corps ai: %w", err)
		}
	}

	rec := &model.TurnRecord{
		RunID:     runID,
		Turn:      turn.Report.Turn,
		Battles:   len(turn.Report.Battles),
		Flips:     turn.Report.Flips,
		Dropped:   len(turn.Report.Dropped),
		Report:    report,
		CorpsAI:   ai,
		CreatedAt: now,
	}
	battles := make([]model.BattleRecord, 0, len(turn.Report.Battles))
	for _, b := range turn.Report.Battles {
		battles = append(battles, model.BattleRecord{
			RunID:              runID,
			Turn:               turn.Report.Turn,
			Location:           b.Location,
			Municipality:       b.Municipality,
			AttackerFaction:    string(b.AttackerFaction),
			DefenderFaction:    string(b.DefenderFaction),
			LeadAttacker:       b.LeadAttacker,
			Defender:           b.Defender,
			Outcome:            string(b.Outcome),
			Ratio:              b.Ratio,
			Flipped:            b.Flipped,
			AttackerCasualties: b.AttackerCasualties.Total(),
			DefenderCasualties: b.DefenderCasualties.Total(),
			CreatedAt:          now,
		})
	}
	return rec, battles, nil
}
