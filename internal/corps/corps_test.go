package corps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/freeeve/warfront/pkg/warfront"
)

var lineIDs = []string{"s01", "s02", "s03", "s04", "s05", "s06", "s07", "s08", "s09", "s10"}

// lineTheater is s01 - s02 - ... - s10 over four municipalities.
func lineTheater() *warfront.Theater {
	muns := map[string]string{
		"s01": "m1", "s02": "m1", "s03": "m1",
		"s04": "m2", "s05": "m2",
		"s06": "m3", "s07": "m3",
		"s08": "m4", "s09": "m4", "s10": "m4",
	}
	var edges []warfront.Edge
	for i := 1; i < len(lineIDs); i++ {
		edges = append(edges, warfront.Edge{A: lineIDs[i-1], B: lineIDs[i]})
	}
	return warfront.NewTheater(muns, edges)
}

// frontState gives RBiH s01..s05 under corps C1 with four brigades and RS
// s06..s10 under corps C9 with two.
func frontState() *warfront.State {
	s := warfront.NewState()
	for i, id := range lineIDs {
		if i < 5 {
			s.Control[id] = warfront.RBiH
		} else {
			s.Control[id] = warfront.RS
		}
	}
	addCorps(s, "C1", warfront.RBiH)
	addBrigade(s, "B1", "C1", warfront.RBiH, 1000, "s01", "s02")
	addBrigade(s, "B2", "C1", warfront.RBiH, 1000, "s03")
	addBrigade(s, "B3", "C1", warfront.RBiH, 1000, "s04")
	addBrigade(s, "B4", "C1", warfront.RBiH, 1000, "s05")
	addCorps(s, "C9", warfront.RS)
	addBrigade(s, "R1", "C9", warfront.RS, 1000, "s06", "s07")
	addBrigade(s, "R2", "C9", warfront.RS, 1000, "s08", "s09", "s10")
	return s
}

func addCorps(s *warfront.State, id string, f warfront.Faction) {
	s.AddFormation(warfront.NewFormation(id, f, warfront.KindCorps, 0))
}

func addBrigade(s *warfront.State, id, corps string, f warfront.Faction, personnel int, aor ...string) *warfront.Formation {
	b := warfront.NewFormation(id, f, warfront.KindBrigade, personnel)
	b.CorpsID = corps
	b.HQ = aor[0]
	s.AddFormation(b)
	for _, sid := range aor {
		s.BrigadeAoR[sid] = id
	}
	return b
}

// setPressure fixes the pressure on the single front edge s05:s06.
func setPressure(s *warfront.State, rbih, rs float64) {
	s.FrontPressure[warfront.EdgeKey("s05", "s06")] = map[warfront.Faction]float64{
		warfront.RBiH: rbih,
		warfront.RS:   rs,
	}
}

func mustParse(t *testing.T, src string) *Doctrine {
	t.Helper()
	d, err := ParseDoctrine([]byte(src))
	if err != nil {
		t.Fatalf("ParseDoctrine: %v", err)
	}
	return d
}

func newTestRun(th *warfront.Theater, s *warfront.State) *run {
	return &run{
		t:       th,
		s:       s,
		fd:      &FactionDoctrine{},
		log:     zerolog.Nop(),
		result:  &Result{},
		running: make(map[warfront.Faction]map[string]bool),
	}
}

// --- Doctrine ---

const operationDoctrine = `
version: test
factions:
  RBiH:
    operations:
      - name: Op North
        municipalities: [m3]
`

func TestParseDoctrine(t *testing.T) {
	d := mustParse(t, `
version: "1995-a"
factions:
  RBiH:
    low_og_threshold: true
    phases:
      - name: consolidation
        from_turn: 10
        to_turn: 20
        default_stance: defensive
    standing_orders:
      - order: general_offensive
        from_turn: 30
    corridors:
      - name: posavina
        municipalities: [m3]
        max_strip_width: 1
  RS: {}
`)
	if d.Version != "1995-a" {
		t.Errorf("expected version 1995-a, got %q", d.Version)
	}
	fd := d.faction(warfront.RBiH)
	if !fd.LowOGThreshold {
		t.Error("expected low OG threshold")
	}
	if got := fd.phaseDefault(15); got != warfront.StanceDefensive {
		t.Errorf("expected defensive phase default at turn 15, got %s", got)
	}
	if got := fd.phaseDefault(25); got != warfront.StanceBalanced {
		t.Errorf("expected balanced outside phases, got %s", got)
	}
	if order, ok := fd.scheduledOrder(99); !ok || order != warfront.OrderGeneralOffensive {
		t.Errorf("expected open-ended general offensive at turn 99, got %q %v", order, ok)
	}
	if _, ok := fd.scheduledOrder(29); ok {
		t.Error("no standing order before turn 30")
	}
	if d.faction(warfront.RS) == nil || d.faction(warfront.HRHB) == nil {
		t.Error("faction sections should never be nil")
	}
}

func TestParseDoctrineRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"bad floor", "factions:\n  RBiH:\n    overrides:\n      - name: x\n        floor: attack\n", "invalid stance"},
		{"bad expression", "factions:\n  RBiH:\n    overrides:\n      - name: x\n        when: \"Threat >\"\n", "compile override"},
		{"non-bool expression", "factions:\n  RBiH:\n    overrides:\n      - name: x\n        when: Threat\n", "compile override"},
		{"unknown variable", "factions:\n  RBiH:\n    overrides:\n      - name: x\n        when: Morale > 3\n", "compile override"},
		{"zero strip width", "factions:\n  RBiH:\n    corridors:\n      - name: c\n        municipalities: [m3]\n", "max_strip_width"},
		{"bad phase stance", "factions:\n  RBiH:\n    phases:\n      - name: p\n        default_stance: reorganize\n", "invalid stance"},
		{"bad yaml", "factions: [", "parse doctrine"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDoctrine([]byte(tt.src))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadDoctrine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doctrine.yaml")
	if err := os.WriteFile(path, []byte(operationDoctrine), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := LoadDoctrine(path)
	if err != nil {
		t.Fatalf("LoadDoctrine: %v", err)
	}
	if got := len(d.faction(warfront.RBiH).Operations); got != 1 {
		t.Errorf("expected 1 operation, got %d", got)
	}
	if _, err := LoadDoctrine(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestShippedDoctrineParses(t *testing.T) {
	d, err := LoadDoctrine(filepath.Join("..", "..", "configs", "doctrine.yaml"))
	if err != nil {
		t.Fatalf("LoadDoctrine: %v", err)
	}
	for _, f := range warfront.AllFactions() {
		if _, ok := d.Factions[f]; !ok {
			t.Errorf("shipped doctrine has no section for %s", f)
		}
	}
}

// --- Stance ---

func TestBaseStanceMatrix(t *testing.T) {
	fd := &FactionDoctrine{Phases: []Phase{{Name: "p", FromTurn: 10, ToTurn: 20, DefaultStance: warfront.StanceDefensive}}}
	tests := []struct {
		name      string
		cohesion  float64
		personnel float64
		threat    float64
		turn      int
		want      warfront.CorpsStance
	}{
		{"low cohesion", 20, 1, 0.5, 0, warfront.StanceReorganize},
		{"low personnel", 80, 0.4, 0.5, 0, warfront.StanceReorganize},
		{"high threat", 80, 1, 2, 0, warfront.StanceDefensive},
		{"low threat healthy", 60, 0.8, 0.5, 0, warfront.StanceOffensive},
		{"low threat worn", 45, 0.8, 0.5, 0, warfront.StanceBalanced},
		{"even threat", 80, 1, 1, 0, warfront.StanceBalanced},
		{"even threat in phase", 80, 1, 1, 15, warfront.StanceDefensive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &view{cohesion: tt.cohesion, personnelFraction: tt.personnel, threat: tt.threat}
			if got := baseStance(v, fd, tt.turn); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestSelectStanceForcedAndReorganize(t *testing.T) {
	s := frontState()
	fd := &FactionDoctrine{}
	v := &view{cohesion: 60, personnelFraction: 1, threat: 1, cmd: warfront.NewCorpsCommand("C1")}
	if got := selectStance(v, fd, s, warfront.StanceOffensive, zerolog.Nop()); got != warfront.StanceOffensive {
		t.Errorf("expected forced offensive, got %s", got)
	}
	v.cohesion = 10
	if got := selectStance(v, fd, s, warfront.StanceOffensive, zerolog.Nop()); got != warfront.StanceReorganize {
		t.Errorf("expected reorganize to beat forcing, got %s", got)
	}
}

func TestOverrides(t *testing.T) {
	d := mustParse(t, `
factions:
  RBiH:
    overrides:
      - name: hold-m2
        municipalities: [m2]
        ceiling: balanced
        when: Threat < 1 && HasMunicipality("m2")
      - name: no-retreat
        from_turn: 5
        floor: balanced
      - name: allied-calm
        alliance: {with: HRHB, allied: true}
        ceiling: defensive
      - name: elsewhere
        municipalities: [m4]
        floor: offensive
`)
	fd := d.faction(warfront.RBiH)
	th := lineTheater()

	tests := []struct {
		name   string
		stance warfront.CorpsStance
		threat float64
		turn   int
		allied bool
		want   warfront.CorpsStance
	}{
		{"ceiling when calm", warfront.StanceOffensive, 0.5, 0, false, warfront.StanceBalanced},
		{"condition false", warfront.StanceOffensive, 1.2, 0, false, warfront.StanceOffensive},
		{"floor before window", warfront.StanceDefensive, 1.2, 4, false, warfront.StanceDefensive},
		{"floor in window", warfront.StanceDefensive, 1.2, 5, false, warfront.StanceBalanced},
		{"alliance ceiling", warfront.StanceOffensive, 1.2, 0, true, warfront.StanceDefensive},
		{"reorganize untouched", warfront.StanceReorganize, 0.5, 5, true, warfront.StanceReorganize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := frontState()
			s.Turn = tt.turn
			if tt.allied {
				s.Relations[warfront.RelationKey(warfront.RBiH, warfront.HRHB)] = warfront.Relation{Allied: true}
			}
			v := newView(th, s, "C1")
			v.threat = tt.threat
			if got := applyOverrides(tt.stance, v, fd, s, zerolog.Nop()); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

// --- Views and standing orders ---

func TestNewView(t *testing.T) {
	th, s := lineTheater(), frontState()
	s.Formations["B4"].Personnel = 500
	setPressure(s, 100, 150)

	v := newView(th, s, "C1")
	if v.faction != warfront.RBiH {
		t.Errorf("expected RBiH, got %s", v.faction)
	}
	if diff := cmp.Diff([]string{"m1", "m2"}, v.muns); diff != "" {
		t.Errorf("municipalities mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"B1", "B2", "B3"}, v.topHealthy(5)); diff != "" {
		t.Errorf("healthy brigades mismatch (-want +got):\n%s", diff)
	}
	if v.threat != 1.5 {
		t.Errorf("expected threat 1.5, got %v", v.threat)
	}
	if v.personnelFraction != 0.875 {
		t.Errorf("expected personnel fraction 0.875, got %v", v.personnelFraction)
	}
}

func TestSectorThreatWithoutOwnPressure(t *testing.T) {
	s := frontState()
	if got := sectorThreat(s, warfront.RBiH, []string{"s05"}); got != 1.0 {
		t.Errorf("expected 1.0 with no pressure, got %v", got)
	}
	setPressure(s, 0, 50)
	if got := sectorThreat(s, warfront.RBiH, []string{"s05"}); got != 2.0 {
		t.Errorf("expected 2.0 when only the enemy pushes, got %v", got)
	}
}

func TestForcedByOrderLeadsWithTopTwo(t *testing.T) {
	mk := func(id string, healthy int, exhaustion float64) *view {
		v := &view{id: id, personnelFraction: 1, cmd: &warfront.CorpsCommand{Exhaustion: exhaustion}}
		for i := 0; i < healthy; i++ {
			v.healthy = append(v.healthy, &warfront.Formation{})
		}
		return v
	}
	views := []*view{mk("A", 2, 0), mk("B", 5, 0), mk("C", 4, 0), mk("D", 5, 50)}

	forced := forcedByOrder(warfront.OrderGeneralOffensive, views)
	want := map[string]warfront.CorpsStance{"B": warfront.StanceOffensive, "D": warfront.StanceOffensive}
	if diff := cmp.Diff(want, forced); diff != "" {
		t.Errorf("forced stances mismatch (-want +got):\n%s", diff)
	}

	forced = forcedByOrder(warfront.OrderGeneralOffensive, views[:2])
	if len(forced) != 2 {
		t.Errorf("with fewer than three corps every corps should be forced, got %v", forced)
	}

	forced = forcedByOrder(warfront.OrderGeneralDefensive, views)
	for _, v := range views {
		if forced[v.id] != warfront.StanceDefensive {
			t.Errorf("expected %s forced defensive, got %q", v.id, forced[v.id])
		}
	}
	if len(forcedByOrder(warfront.OrderNone, views)) != 0 {
		t.Error("no standing order should force nothing")
	}
}

func TestRunGeneralDefensive(t *testing.T) {
	th, s := lineTheater(), frontState()
	setPressure(s, 100, 200)

	res := New(nil, zerolog.Nop()).Run(th, s)
	if got := res.StandingOrders[warfront.RBiH]; got != warfront.OrderGeneralDefensive {
		t.Errorf("expected RBiH general defensive, got %q", got)
	}
	if got := s.StandingOrders[warfront.RBiH]; got != warfront.OrderGeneralDefensive {
		t.Errorf("standing order not written to state, got %q", got)
	}
	if got := s.Corps["C1"].Stance; got != warfront.StanceDefensive {
		t.Errorf("expected C1 defensive, got %s", got)
	}
	if got := s.Corps["C9"].Stance; got != warfront.StanceOffensive {
		t.Errorf("expected C9 offensive at threat 0.5, got %s", got)
	}
	if got := res.StandingOrders[warfront.RS]; got != warfront.OrderNone {
		t.Errorf("a single RS corps cannot drive a general offensive, got %q", got)
	}
	if res.Threat["C1"] != 2 || res.Threat["C9"] != 0.5 {
		t.Errorf("unexpected threat %v", res.Threat)
	}
}

func TestRunScheduledStandingOrder(t *testing.T) {
	th, s := lineTheater(), frontState()
	setPressure(s, 100, 100)
	d := mustParse(t, `
factions:
  RBiH:
    standing_orders:
      - order: general_offensive
        from_turn: 0
        to_turn: 3
`)
	New(d, zerolog.Nop()).Run(th, s)
	if got := s.StandingOrders[warfront.RBiH]; got != warfront.OrderGeneralOffensive {
		t.Errorf("expected scheduled general offensive, got %q", got)
	}
	if got := s.Corps["C1"].Stance; got != warfront.StanceOffensive {
		t.Errorf("expected C1 forced offensive, got %s", got)
	}
}

// --- Operations ---

func TestOperationLifecycle(t *testing.T) {
	th, s := lineTheater(), frontState()
	setPressure(s, 100, 100)
	ai := New(mustParse(t, operationDoctrine), zerolog.Nop())

	res := ai.Run(th, s)
	op := s.Corps["C1"].ActiveOperation
	if op == nil || op.Name != "Op North" {
		t.Fatalf("expected Op North launched, got %+v", op)
	}
	if op.Phase != warfront.PhasePlanning || op.Type != warfront.OpOffensive {
		t.Errorf("expected offensive in planning, got %s %s", op.Type, op.Phase)
	}
	if diff := cmp.Diff([]string{"s06", "s07"}, op.Targets); diff != "" {
		t.Errorf("targets mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"B1", "B2", "B3", "B4"}, op.Participants); diff != "" {
		t.Errorf("participants mismatch (-want +got):\n%s", diff)
	}
	if !hasEvent(res, "C1", EventOperationLaunched) {
		t.Error("expected an operation_launched event")
	}

	s.Turn = 1
	ai.Run(th, s)
	if op.Phase != warfront.PhasePlanning {
		t.Errorf("expected planning at turn 1, got %s", op.Phase)
	}

	s.Turn = 2
	ai.Run(th, s)
	if op.Phase != warfront.PhaseExecution {
		t.Fatalf("expected execution at turn 2, got %s", op.Phase)
	}
	if op.Baseline["B1"] != 1000 {
		t.Errorf("expected baseline recorded, got %v", op.Baseline)
	}
	if len(s.OGRequests) != 1 {
		t.Fatalf("expected one OG request, got %d", len(s.OGRequests))
	}
	req := s.OGRequests[0]
	if req.Posture != warfront.PostureAttack || len(req.Donors) != 4 || req.Donors[0].Personnel != MaxDonation {
		t.Errorf("unexpected OG request %+v", req)
	}
	if diff := cmp.Diff([]string{"s06", "s07"}, req.Focus); diff != "" {
		t.Errorf("focus mismatch (-want +got):\n%s", diff)
	}

	s.Control["s06"] = warfront.RBiH
	s.Control["s07"] = warfront.RBiH
	s.Turn = 3
	ai.Run(th, s)
	if op.Phase != warfront.PhaseRecovery || op.Result != ResultSuccess {
		t.Errorf("expected recovery after success, got %s %q", op.Phase, op.Result)
	}
	if len(s.OGRequests) != 1 {
		t.Errorf("OG request should be made once per operation, got %d", len(s.OGRequests))
	}

	s.Turn = 5
	ai.Run(th, s)
	if s.Corps["C1"].ActiveOperation != nil {
		t.Error("operation should be cleared after recovery")
	}
	if got := s.Corps["C1"].Exhaustion; got != ClearExhaustion {
		t.Errorf("expected exhaustion %v after clearing, got %v", ClearExhaustion, got)
	}
}

func TestOperationAbortsWithoutProgress(t *testing.T) {
	th, s := lineTheater(), frontState()
	setPressure(s, 100, 100)
	ai := New(mustParse(t, operationDoctrine), zerolog.Nop())
	for turn := 0; turn <= 4; turn++ {
		s.Turn = turn
		ai.Run(th, s)
	}
	op := s.Corps["C1"].ActiveOperation
	if op == nil || op.Phase != warfront.PhaseRecovery || op.Result != ResultAborted {
		t.Fatalf("expected aborted operation in recovery, got %+v", op)
	}
}

func TestNamedOperationNeedsHealthyBrigades(t *testing.T) {
	th, s := lineTheater(), frontState()
	setPressure(s, 100, 100)
	s.Formations["B1"].Cohesion = 40
	s.Formations["B2"].Cohesion = 40
	New(mustParse(t, operationDoctrine), zerolog.Nop()).Run(th, s)
	if op := s.Corps["C1"].ActiveOperation; op != nil {
		t.Errorf("expected no operation with two healthy brigades, got %s", op.Name)
	}
}

func TestSwapCasualties(t *testing.T) {
	th, s := lineTheater(), frontState()
	s.Corps["C1"].ActiveOperation = &warfront.Operation{
		Name:         "op",
		Phase:        warfront.PhaseExecution,
		Participants: []string{"B1", "B2"},
		Baseline:     map[string]int{"B1": 1000, "B2": 1000},
	}
	s.Formations["B1"].Personnel = 600

	r := newTestRun(th, s)
	r.swapCasualties(newView(th, s, "C1"))

	op := s.Corps["C1"].ActiveOperation
	if diff := cmp.Diff([]string{"B3", "B2"}, op.Participants); diff != "" {
		t.Errorf("participants mismatch (-want +got):\n%s", diff)
	}
	if _, ok := op.Baseline["B1"]; ok || op.Baseline["B3"] != 1000 {
		t.Errorf("baseline not moved to replacement: %v", op.Baseline)
	}
}

func TestEmergencyDefense(t *testing.T) {
	th, s := lineTheater(), frontState()
	setPressure(s, 100, 300)

	res := New(nil, zerolog.Nop()).Run(th, s)
	op := s.Corps["C1"].ActiveOperation
	if op == nil || op.Type != warfront.OpEmergencyDefense {
		t.Fatalf("expected emergency defense, got %+v", op)
	}
	if op.Name != "emergency-defense-C1" {
		t.Errorf("unexpected name %q", op.Name)
	}
	if diff := cmp.Diff([]string{"s05"}, op.Targets); diff != "" {
		t.Errorf("targets mismatch (-want +got):\n%s", diff)
	}
	if s.Corps["C1"].Stance != warfront.StanceDefensive {
		t.Errorf("expected defensive, got %s", s.Corps["C1"].Stance)
	}
	if !hasEvent(res, "C1", EventEmergencyDefense) {
		t.Error("expected an emergency_defense event")
	}

	s.Turn = 1
	New(nil, zerolog.Nop()).Run(th, s)
	if op.Phase != warfront.PhaseExecution {
		t.Errorf("emergency defense should plan for one turn, got %s", op.Phase)
	}
	if len(s.OGRequests) != 1 || s.OGRequests[0].Posture != warfront.PostureDefend {
		t.Errorf("expected one defensive OG request, got %+v", s.OGRequests)
	}
}

func TestEmergencyDefenseHeldAfterMaxExecution(t *testing.T) {
	th, s := lineTheater(), frontState()
	setPressure(s, 100, 300)
	ai := New(nil, zerolog.Nop())
	for turn := 0; turn <= 1+MaxExecutionTurns; turn++ {
		s.Turn = turn
		ai.Run(th, s)
	}
	op := s.Corps["C1"].ActiveOperation
	if op == nil || op.Result != ResultHeld {
		t.Fatalf("expected held emergency defense, got %+v", op)
	}
}

// --- Corridor breach ---

func TestCorridorBreach(t *testing.T) {
	th := lineTheater()
	s := warfront.NewState()
	for _, id := range lineIDs {
		s.Control[id] = warfront.RBiH
	}
	s.Control["s06"] = warfront.RS
	s.Control["s07"] = warfront.RS
	addCorps(s, "C1", warfront.RBiH)
	addBrigade(s, "B1", "C1", warfront.RBiH, 1000, "s01", "s02", "s03")
	addBrigade(s, "B2", "C1", warfront.RBiH, 1000, "s04", "s05")
	addCorps(s, "C2", warfront.RBiH)
	addBrigade(s, "B5", "C2", warfront.RBiH, 1000, "s08")
	addBrigade(s, "B6", "C2", warfront.RBiH, 1000, "s09", "s10")

	d := mustParse(t, `
factions:
  RBiH:
    corridors:
      - name: posavina
        municipalities: [m3]
        max_strip_width: 1
`)
	res := New(d, zerolog.Nop()).Run(th, s)
	if len(res.Breaches) != 1 {
		t.Fatalf("expected one breach, got %d", len(res.Breaches))
	}
	want := BreachPlan{
		Faction:  warfront.RBiH,
		Corridor: "posavina",
		Strip:    []string{"s06", "s07"},
		Clusters: [2][]string{{"s05"}, {"s08"}},
		CorpsID:  "C1",
	}
	if diff := cmp.Diff(want, res.Breaches[0]); diff != "" {
		t.Errorf("breach mismatch (-want +got):\n%s", diff)
	}
	op := s.Corps["C1"].ActiveOperation
	if op == nil || op.Type != warfront.OpSectorAttack {
		t.Fatalf("expected sector attack, got %+v", op)
	}
	if s.Corps["C1"].Stance != warfront.StanceOffensive {
		t.Errorf("expected C1 offensive, got %s", s.Corps["C1"].Stance)
	}
	if s.Corps["C2"].ActiveOperation != nil {
		t.Error("only one corps should take the breach")
	}

	s.Turn = 1
	res = New(d, zerolog.Nop()).Run(th, s)
	if len(res.Breaches) != 0 {
		t.Error("a running breach should not be launched again")
	}
}

func TestCorridorTooWide(t *testing.T) {
	th, s := lineTheater(), frontState()
	d := mustParse(t, `
factions:
  RBiH:
    corridors:
      - name: wide
        municipalities: [m3, m4]
        max_strip_width: 1
`)
	res := New(d, zerolog.Nop()).Run(th, s)
	if len(res.Breaches) != 0 {
		t.Errorf("five enemy settlements exceed a width-1 corridor, got %+v", res.Breaches)
	}
}

// --- Pipeline properties ---

func TestRunIdempotentWithinTurn(t *testing.T) {
	th, s := lineTheater(), frontState()
	setPressure(s, 100, 100)
	ai := New(mustParse(t, operationDoctrine), zerolog.Nop())
	for turn := 0; turn <= 2; turn++ {
		s.Turn = turn
		ai.Run(th, s)
	}
	once := s.Clone()
	ai.Run(th, s)

	if diff := cmp.Diff(once.Corps, s.Corps); diff != "" {
		t.Errorf("second run changed corps commands (-once +twice):\n%s", diff)
	}
	if diff := cmp.Diff(once.OGRequests, s.OGRequests); diff != "" {
		t.Errorf("second run changed OG requests (-once +twice):\n%s", diff)
	}
	if diff := cmp.Diff(once.StandingOrders, s.StandingOrders); diff != "" {
		t.Errorf("second run changed standing orders (-once +twice):\n%s", diff)
	}
}

func TestIdleExhaustionRecovery(t *testing.T) {
	th, s := lineTheater(), frontState()
	s.Corps["C1"].Exhaustion = 5
	ai := New(nil, zerolog.Nop())
	ai.Run(th, s)
	ai.Run(th, s)
	if got := s.Corps["C1"].Exhaustion; got != 4 {
		t.Errorf("expected one point of recovery per turn, got %v", got)
	}
	s.Turn = 1
	ai.Run(th, s)
	if got := s.Corps["C1"].Exhaustion; got != 3 {
		t.Errorf("expected 3 after the next turn, got %v", got)
	}
}

func TestPruneOGs(t *testing.T) {
	s := frontState()
	og := warfront.NewFormation("OG1", warfront.RBiH, warfront.KindOperationalGroup, 1000)
	gone := warfront.NewFormation("OG2", warfront.RBiH, warfront.KindOperationalGroup, 1000)
	gone.Status = warfront.StatusInactive
	s.AddFormation(og)
	s.AddFormation(gone)
	cmd := s.Corps["C1"]
	cmd.ActiveOGs = []string{"OG1", "OG2", "OG3"}
	pruneOGs(s, cmd)
	if diff := cmp.Diff([]string{"OG1"}, cmd.ActiveOGs); diff != "" {
		t.Errorf("active OGs mismatch (-want +got):\n%s", diff)
	}
}

func hasEvent(res *Result, corpsID string, kind EventKind) bool {
	for _, e := range res.Events {
		if e.CorpsID == corpsID && e.Kind == kind {
			return true
		}
	}
	return false
}
