package corps

import (
	"fmt"

	"github.com/freeeve/warfront/pkg/warfront"
)

// Operation lifecycle constants.
const (
	PlanningTurns          = 2
	EmergencyPlanningTurns = 1
	MaxExecutionTurns      = 6
	RecoveryTurns          = 2
	ExhaustionCap          = 60.0
	ClearExhaustion        = 10.0
	IdleRecovery           = 1.0

	MinHealthyForOperation = 3
	MaxParticipants        = 5
	AbortCaptureRate       = 0.2
	AbortAfterTurns        = 2
	SwapLossFraction       = 0.30
)

// Operation results recorded when execution ends.
const (
	ResultSuccess = "success"
	ResultAborted = "aborted"
	ResultTimeout = "timeout"
	ResultHeld    = "held"
)

func planningTurns(op *warfront.Operation) int {
	if op.Type == warfront.OpEmergencyDefense {
		return EmergencyPlanningTurns
	}
	return PlanningTurns
}

// captureRate is the fraction of targets held by the faction. For an
// emergency defense that is the fraction still held.
func captureRate(s *warfront.State, f warfront.Faction, op *warfront.Operation) float64 {
	if len(op.Targets) == 0 {
		return 0
	}
	held := 0
	for _, sid := range op.Targets {
		if s.Control[sid] == f {
			held++
		}
	}
	return float64(held) / float64(len(op.Targets))
}

// advanceOperation moves the corps's operation through its lifecycle.
// Transitions depend only on the turn number, so running it twice in the
// same turn changes nothing the second time.
func (r *run) advanceOperation(v *view) {
	cmd := v.cmd
	op := cmd.ActiveOperation
	if op == nil {
		return
	}
	turn := r.s.Turn
	elapsed := turn - op.PhaseStartedTurn

	switch op.Phase {
	case warfront.PhasePlanning:
		if elapsed >= planningTurns(op) {
			op.Phase = warfront.PhaseExecution
			op.PhaseStartedTurn = turn
			op.Baseline = make(map[string]int, len(op.Participants))
			for _, id := range op.Participants {
				if f := r.s.Formations[id]; f != nil {
					op.Baseline[id] = f.Personnel
				}
			}
			r.event(v.id, EventPhaseChanged, op.Name, string(op.Phase))
		}

	case warfront.PhaseExecution:
		rate := captureRate(r.s, v.faction, op)
		switch {
		case elapsed >= AbortAfterTurns && rate < AbortCaptureRate:
			r.endExecution(v, ResultAborted)
		case op.Type != warfront.OpEmergencyDefense && rate >= 1:
			r.endExecution(v, ResultSuccess)
		case elapsed >= MaxExecutionTurns:
			if op.Type == warfront.OpEmergencyDefense {
				r.endExecution(v, ResultHeld)
			} else {
				r.endExecution(v, ResultTimeout)
			}
		default:
			r.swapCasualties(v)
		}

	case warfront.PhaseRecovery:
		if elapsed >= RecoveryTurns {
			cmd.ActiveOperation = nil
			cmd.Exhaustion = min(100, cmd.Exhaustion+ClearExhaustion)
			r.event(v.id, EventOperationCleared, op.Name, op.Result)
		}
	}
}

func (r *run) endExecution(v *view, result string) {
	op := v.cmd.ActiveOperation
	op.Phase = warfront.PhaseRecovery
	op.PhaseStartedTurn = r.s.Turn
	op.Result = result
	r.event(v.id, EventPhaseChanged, op.Name, fmt.Sprintf("%s (%s)", op.Phase, result))
}

// swapCasualties replaces participants that lost more than 30% of their
// execution-start strength with the strongest healthy brigade of the corps
// not yet committed.
func (r *run) swapCasualties(v *view) {
	op := v.cmd.ActiveOperation
	for i, id := range op.Participants {
		f := r.s.Formations[id]
		base := op.Baseline[id]
		if f == nil || base <= 0 {
			continue
		}
		if f.Active() && float64(f.Personnel) >= float64(base)*(1-SwapLossFraction) {
			continue
		}
		replacement := ""
		for _, b := range v.healthy {
			if !op.HasParticipant(b.ID) {
				replacement = b.ID
				break
			}
		}
		if replacement == "" {
			continue
		}
		op.Participants[i] = replacement
		delete(op.Baseline, id)
		op.Baseline[replacement] = r.s.Formations[replacement].Personnel
		r.event(v.id, EventParticipantSwapped, op.Name, id+" -> "+replacement)
	}
}

// canLaunch checks the common preconditions of a new offensive operation.
func canLaunch(v *view, stance warfront.CorpsStance) bool {
	if v.cmd.ActiveOperation != nil || v.cmd.Exhaustion > ExhaustionCap {
		return false
	}
	if stance != warfront.StanceOffensive && stance != warfront.StanceBalanced {
		return false
	}
	return len(v.healthy) >= MinHealthyForOperation
}

// launchNamedOperation picks the catalog template with the most enemy-held
// settlements among those the corps borders, skipping templates another
// corps of the faction is already running.
func (r *run) launchNamedOperation(v *view, fd *FactionDoctrine) {
	if !canLaunch(v, v.cmd.Stance) {
		return
	}
	var best *warfront.Operation
	for _, tpl := range fd.Operations {
		if r.running[v.faction][tpl.Name] {
			continue
		}
		targets := r.enemyHeldIn(v.faction, tpl.Municipalities)
		if len(targets) == 0 || !v.touches(r.t, toSet(targets)) {
			continue
		}
		if best == nil || len(targets) > len(best.Targets) {
			best = &warfront.Operation{Name: tpl.Name, Targets: targets}
		}
	}
	if best == nil {
		return
	}
	best.Type = warfront.OpOffensive
	r.start(v, best, v.topHealthy(MaxParticipants))
	r.event(v.id, EventOperationLaunched, best.Name, fmt.Sprintf("%d targets", len(best.Targets)))
}

// launchEmergencyDefense starts a defensive operation over the corps's front
// when it has none and faces extreme threat.
func (r *run) launchEmergencyDefense(v *view) bool {
	if v.cmd.ActiveOperation != nil || v.threat < ExtremeThreat || len(v.brigades) == 0 {
		return false
	}
	var targets []string
	for _, sid := range v.aor {
		if warfront.FrontActive(r.t, r.s.Control, sid) {
			targets = append(targets, sid)
		}
	}
	if len(targets) == 0 {
		return false
	}
	participants := make([]*warfront.Formation, len(v.brigades))
	copy(participants, v.brigades)
	sortByPersonnel(participants)
	var ids []string
	for _, b := range participants[:min(MaxParticipants, len(participants))] {
		ids = append(ids, b.ID)
	}
	op := &warfront.Operation{
		Name:         "emergency-defense-" + v.id,
		Type:         warfront.OpEmergencyDefense,
		Targets:      targets,
		ForcedStance: warfront.StanceDefensive,
	}
	r.start(v, op, ids)
	r.event(v.id, EventEmergencyDefense, op.Name, fmt.Sprintf("threat %.2f", v.threat))
	return true
}

func (r *run) start(v *view, op *warfront.Operation, participants []string) {
	op.Phase = warfront.PhasePlanning
	op.StartedTurn = r.s.Turn
	op.PhaseStartedTurn = r.s.Turn
	op.Participants = participants
	v.cmd.ActiveOperation = op
	r.markRunning(v.faction, op.Name)
}

// enemyHeldIn lists, sorted, the settlements of the municipalities held by
// a faction at war with f.
func (r *run) enemyHeldIn(f warfront.Faction, muns []string) []string {
	want := toSet(muns)
	var out []string
	for _, sid := range r.t.SettlementIDs() {
		if !want[r.t.Municipality(sid)] {
			continue
		}
		if c := r.s.Control[sid]; c != warfront.NoOwner && c != f && !r.s.Allied(f, c) {
			out = append(out, sid)
		}
	}
	return out
}

func (r *run) markRunning(f warfront.Faction, name string) {
	if r.running[f] == nil {
		r.running[f] = make(map[string]bool)
	}
	r.running[f][name] = true
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
