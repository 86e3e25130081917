package corps

import (
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog"

	"github.com/freeeve/warfront/pkg/warfront"
)

// Stance matrix thresholds.
const (
	ReorganizeCohesion  = 25.0
	ReorganizePersonnel = 0.5
)

var stanceRank = map[warfront.CorpsStance]int{
	warfront.StanceDefensive: 0,
	warfront.StanceBalanced:  1,
	warfront.StanceOffensive: 2,
}

// baseStance is the stance matrix before any forcing or override.
func baseStance(v *view, fd *FactionDoctrine, turn int) warfront.CorpsStance {
	switch {
	case v.cohesion < ReorganizeCohesion || v.personnelFraction < ReorganizePersonnel:
		return warfront.StanceReorganize
	case v.threat > DefensiveThreat:
		return warfront.StanceDefensive
	case v.threat < OffensiveThreat && v.cohesion >= warfront.HealthyCohesion &&
		v.personnelFraction >= warfront.HealthyPersonnelFraction:
		return warfront.StanceOffensive
	default:
		return fd.phaseDefault(turn)
	}
}

// selectStance combines the matrix, a forced stance and the doctrine's
// overrides. Reorganize always wins and is never bounded by overrides.
func selectStance(v *view, fd *FactionDoctrine, s *warfront.State, forced warfront.CorpsStance, log zerolog.Logger) warfront.CorpsStance {
	stance := baseStance(v, fd, s.Turn)
	if stance == warfront.StanceReorganize {
		return stance
	}
	if forced != "" {
		stance = forced
	}
	return applyOverrides(stance, v, fd, s, log)
}

func applyOverrides(stance warfront.CorpsStance, v *view, fd *FactionDoctrine, s *warfront.State, log zerolog.Logger) warfront.CorpsStance {
	if stance == warfront.StanceReorganize {
		return stance
	}
	for _, o := range fd.Overrides {
		if !o.matches(v, s, stance, log) {
			continue
		}
		if o.Floor != "" && stanceRank[stance] < stanceRank[o.Floor] {
			stance = o.Floor
		}
		if o.Ceiling != "" && stanceRank[stance] > stanceRank[o.Ceiling] {
			stance = o.Ceiling
		}
		log.Debug().Str("corpsId", v.id).Str("override", o.Name).Str("stance", string(stance)).Msg("Stance override applied")
	}
	return stance
}

func (o *Override) matches(v *view, s *warfront.State, stance warfront.CorpsStance, log zerolog.Logger) bool {
	if !inWindow(s.Turn, o.FromTurn, o.ToTurn) {
		return false
	}
	if len(o.Municipalities) > 0 && !overlaps(o.Municipalities, v.muns) {
		return false
	}
	if o.Alliance != nil && s.Allied(v.faction, o.Alliance.With) != o.Alliance.Allied {
		return false
	}
	if o.program == nil {
		return true
	}
	env := RuleEnv{
		Turn:              s.Turn,
		Faction:           string(v.faction),
		Corps:             v.id,
		Stance:            string(stance),
		Threat:            v.threat,
		Cohesion:          v.cohesion,
		PersonnelFraction: v.personnelFraction,
		Exhaustion:        v.cmd.Exhaustion,
		Municipalities:    v.muns,
	}
	result, err := vm.Run(o.program, env)
	if err != nil {
		log.Warn().Err(err).Str("override", o.Name).Msg("Override condition failed")
		return false
	}
	match, ok := result.(bool)
	return ok && match
}

func overlaps(a, b []string) bool {
	set := make(map[string]bool, len(b))
	for _, x := range b {
		set[x] = true
	}
	for _, x := range a {
		if set[x] {
			return true
		}
	}
	return false
}
