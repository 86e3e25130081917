// Package corps implements the corps-level AI: army standing orders, corps
// stance, named operations, emergency defense, corridor breaches and
// operational group requests. It runs once per turn before battles.
package corps

import (
	"slices"

	"github.com/rs/zerolog"

	"github.com/freeeve/warfront/pkg/warfront"
)

// EventKind classifies what the AI did to a corps.
type EventKind string

const (
	EventStanceChanged      EventKind = "stance_changed"
	EventOperationLaunched  EventKind = "operation_launched"
	EventPhaseChanged       EventKind = "phase_changed"
	EventOperationCleared   EventKind = "operation_cleared"
	EventParticipantSwapped EventKind = "participant_swapped"
	EventEmergencyDefense   EventKind = "emergency_defense"
	EventCorridorBreach     EventKind = "corridor_breach"
	EventOGRequested        EventKind = "og_requested"
)

// Event is one AI decision, for reports and logs.
type Event struct {
	Turn      int       `json:"turn"`
	CorpsID   string    `json:"corps_id"`
	Kind      EventKind `json:"kind"`
	Operation string    `json:"operation,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Result summarises one turn of corps AI.
type Result struct {
	Turn           int                                         `json:"turn"`
	StandingOrders map[warfront.Faction]warfront.StandingOrder `json:"standing_orders"`
	Stances        map[string]warfront.CorpsStance             `json:"stances"`
	Threat         map[string]float64                          `json:"threat"`
	Breaches       []BreachPlan                                `json:"breaches,omitempty"`
	OGRequests     []warfront.OGActivationRequest              `json:"og_requests,omitempty"`
	Events         []Event                                     `json:"events"`
}

// AI runs the corps pipeline against a doctrine.
type AI struct {
	doctrine *Doctrine
	log      zerolog.Logger
}

// New returns an AI. A nil doctrine behaves like EmptyDoctrine.
func New(d *Doctrine, log zerolog.Logger) *AI {
	if d == nil {
		d = EmptyDoctrine()
	}
	return &AI{doctrine: d, log: log}
}

// Doctrine returns the doctrine the AI was built with.
func (ai *AI) Doctrine() *Doctrine {
	return ai.doctrine
}

// run holds the working state of one pipeline pass.
type run struct {
	t       *warfront.Theater
	s       *warfront.State
	fd      *FactionDoctrine
	log     zerolog.Logger
	result  *Result
	running map[warfront.Faction]map[string]bool
}

// Run executes the pipeline for every faction in a fixed order: standing
// order, stance forcing, operation progress, stance, named operations,
// emergency defense, corridor breach and OG requests. It mutates corps
// commands, standing orders and the OG request queue in place.
func (ai *AI) Run(t *warfront.Theater, s *warfront.State) *Result {
	s.Normalize()
	r := &run{
		t:   t,
		s:   s,
		log: ai.log,
		result: &Result{
			Turn:           s.Turn,
			StandingOrders: make(map[warfront.Faction]warfront.StandingOrder),
			Stances:        make(map[string]warfront.CorpsStance),
			Threat:         make(map[string]float64),
			Events:         []Event{},
		},
		running: make(map[warfront.Faction]map[string]bool),
	}

	byFaction := make(map[warfront.Faction][]*view)
	idle := make(map[string]bool)
	for _, id := range s.CorpsIDs() {
		v := newView(t, s, id)
		if v.faction == warfront.NoOwner {
			continue
		}
		byFaction[v.faction] = append(byFaction[v.faction], v)
		if op := v.cmd.ActiveOperation; op != nil {
			r.markRunning(v.faction, op.Name)
		} else {
			idle[id] = true
		}
		r.result.Threat[id] = v.threat
	}

	factions := make([]warfront.Faction, 0, len(byFaction))
	for f := range byFaction {
		factions = append(factions, f)
	}
	slices.Sort(factions)

	for _, f := range factions {
		views := byFaction[f]
		r.fd = ai.doctrine.faction(f)

		order := standingOrder(r.fd, views, s.Turn)
		s.StandingOrders[f] = order
		r.result.StandingOrders[f] = order
		forced := forcedByOrder(order, views)

		for _, v := range views {
			pruneOGs(s, v.cmd)
			r.advanceOperation(v)
		}

		for _, v := range views {
			want := forced[v.id]
			if op := v.cmd.ActiveOperation; op != nil && op.ForcedStance != "" {
				want = op.ForcedStance
			}
			r.setStance(v, selectStance(v, r.fd, s, want, r.log))
		}

		for _, v := range views {
			r.launchNamedOperation(v, r.fd)
		}
		for _, v := range views {
			if r.launchEmergencyDefense(v) {
				r.setStance(v, applyOverrides(warfront.StanceDefensive, v, r.fd, s, r.log))
			}
		}
		if plan := r.detectBreach(f, r.fd); plan != nil {
			if v := r.launchBreach(plan, views); v != nil {
				r.setStance(v, applyOverrides(warfront.StanceOffensive, v, r.fd, s, r.log))
				r.result.Breaches = append(r.result.Breaches, *plan)
			}
		}
		for _, v := range views {
			r.requestOG(v, r.fd)
		}

		for _, v := range views {
			if v.cmd.LastTurn < s.Turn {
				if idle[v.id] && v.cmd.ActiveOperation == nil {
					v.cmd.Exhaustion = max(0, v.cmd.Exhaustion-IdleRecovery)
				}
				v.cmd.LastTurn = s.Turn
			}
			r.result.Stances[v.id] = v.cmd.Stance
		}
	}
	return r.result
}

func (r *run) setStance(v *view, stance warfront.CorpsStance) {
	if v.cmd.Stance == stance {
		return
	}
	prev := v.cmd.Stance
	v.cmd.Stance = stance
	r.event(v.id, EventStanceChanged, "", string(prev)+" -> "+string(stance))
}

func (r *run) event(corpsID string, kind EventKind, operation, detail string) {
	e := Event{Turn: r.s.Turn, CorpsID: corpsID, Kind: kind, Operation: operation, Detail: detail}
	r.result.Events = append(r.result.Events, e)
	r.log.Debug().
		Int("turn", e.Turn).
		Str("corpsId", corpsID).
		Str("kind", string(kind)).
		Str("operation", operation).
		Str("detail", detail).
		Msg("Corps decision")
}
