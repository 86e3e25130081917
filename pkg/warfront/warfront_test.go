package warfront

import "testing"

// lineTheater builds s01 - s02 - ... - s10 split over four municipalities.
// RBiH holds s01..s05 and RS holds s06..s10.
func lineTheater() (*Theater, *State) {
	muns := map[string]string{
		"s01": "m1", "s02": "m1", "s03": "m1",
		"s04": "m2", "s05": "m2",
		"s06": "m3", "s07": "m3",
		"s08": "m4", "s09": "m4", "s10": "m4",
	}
	ids := []string{"s01", "s02", "s03", "s04", "s05", "s06", "s07", "s08", "s09", "s10"}
	var edges []Edge
	for i := 1; i < len(ids); i++ {
		edges = append(edges, Edge{A: ids[i-1], B: ids[i]})
	}
	th := NewTheater(muns, edges)

	s := NewState()
	for i, id := range ids {
		if i < 5 {
			s.Control[id] = RBiH
		} else {
			s.Control[id] = RS
		}
	}
	return th, s
}

func brigade(id string, f Faction, personnel int, hq string) *Formation {
	b := NewFormation(id, f, KindBrigade, personnel)
	b.HQ = hq
	return b
}

// checkPartition verifies the AoR invariants after assignment.
func checkPartition(t *testing.T, th *Theater, s *State) {
	t.Helper()
	for sid, owner := range s.BrigadeAoR {
		f := s.Formations[owner]
		if f == nil || !f.IsBrigade() {
			t.Fatalf("settlement %s owned by non-brigade %q", sid, owner)
		}
		if f.Faction != s.Control[sid] {
			t.Errorf("settlement %s held by %s but owned by %s brigade %s", sid, s.Control[sid], f.Faction, owner)
		}
	}
	for sid := range FrontActiveSet(th, s.Control) {
		if len(s.BrigadesOf(s.Control[sid])) == 0 {
			continue
		}
		if s.BrigadeAoR[sid] == "" {
			t.Errorf("front settlement %s has no owner", sid)
		}
	}
}

// --- Theater ---

func TestBuildAdjacencySortedAndDeduped(t *testing.T) {
	adj := BuildAdjacency([]Edge{
		{A: "c", B: "a"}, {A: "a", B: "b"}, {A: "b", B: "a"}, {A: "a", B: "a"}, {A: "", B: "x"},
	})
	got := adj["a"]
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("expected a -> [b c], got %v", got)
	}
	if _, ok := adj["x"]; ok {
		t.Error("edge with empty endpoint should be skipped")
	}
}

func TestTheaterUnknownMunicipality(t *testing.T) {
	th := NewTheater(map[string]string{"a": "m1", "b": ""}, []Edge{{A: "a", B: "c"}})
	if got := th.Municipality("b"); got != UnknownMunicipality {
		t.Errorf("expected %s for empty municipality, got %s", UnknownMunicipality, got)
	}
	if got := th.Municipality("c"); got != UnknownMunicipality {
		t.Errorf("expected %s for edge-only settlement, got %s", UnknownMunicipality, got)
	}
	if got := th.Municipality("zzz"); got != UnknownMunicipality {
		t.Errorf("expected %s for missing settlement, got %s", UnknownMunicipality, got)
	}
	if !th.Adjacent("a", "c") || !th.Adjacent("c", "a") {
		t.Error("a and c should be adjacent both ways")
	}
}

func TestMaxAttackersAtRoughTerrain(t *testing.T) {
	th, _ := lineTheater()
	th.Terrain["s05"] = TerrainScalars{Slope: 0.4, Friction: 0.3, RoadAccess: 1}
	if got := th.MaxAttackersAt("s05"); got != 2 {
		t.Errorf("expected 2 attackers in rough terrain, got %d", got)
	}
	if got := th.MaxAttackersAt("s04"); got != MaxAttackersPerTarget {
		t.Errorf("expected %d attackers on open ground, got %d", MaxAttackersPerTarget, got)
	}
	th.MaxAttackers = func(TerrainScalars) int { return 9 }
	if got := th.MaxAttackersAt("s04"); got != MaxAttackersPerTarget {
		t.Errorf("max attackers should be capped at %d, got %d", MaxAttackersPerTarget, got)
	}
}

// --- Front ---

func TestFrontActive(t *testing.T) {
	th, s := lineTheater()
	front := FrontActiveSet(th, s.Control)
	if len(front) != 2 || !front["s05"] || !front["s06"] {
		t.Errorf("expected front {s05 s06}, got %v", front)
	}
	delete(s.Control, "s06")
	if FrontActive(th, s.Control, "s05") {
		t.Error("a null neighbor should not make a settlement front-active")
	}
}

func TestAdvanceFrontSegments(t *testing.T) {
	th, s := lineTheater()
	AdvanceFrontSegments(th, s)
	AdvanceFrontSegments(th, s)
	if got := s.FrontSegments[EdgeKey("s06", "s05")].ActiveStreak; got != 2 {
		t.Errorf("expected streak 2, got %d", got)
	}
	s.Control["s06"] = RBiH
	AdvanceFrontSegments(th, s)
	if _, ok := s.FrontSegments[EdgeKey("s05", "s06")]; ok {
		t.Error("inactive segment should be dropped")
	}
	if got := s.FrontSegments[EdgeKey("s06", "s07")].ActiveStreak; got != 1 {
		t.Errorf("new segment should start at 1, got %d", got)
	}
}

// --- AoR ---

func TestAssignAoROneBrigadePerFaction(t *testing.T) {
	th, s := lineTheater()
	s.AddFormation(brigade("b1", RBiH, 2000, "s04"))
	s.AddFormation(brigade("r1", RS, 2000, "s07"))
	AssignAoR(th, s)
	checkPartition(t, th, s)

	for _, sid := range []string{"s03", "s04", "s05"} {
		if s.BrigadeAoR[sid] != "b1" {
			t.Errorf("expected %s owned by b1, got %q", sid, s.BrigadeAoR[sid])
		}
	}
	for _, sid := range []string{"s06", "s07", "s08"} {
		if s.BrigadeAoR[sid] != "r1" {
			t.Errorf("expected %s owned by r1, got %q", sid, s.BrigadeAoR[sid])
		}
	}
	for _, sid := range []string{"s01", "s02", "s09", "s10"} {
		if owner, ok := s.BrigadeAoR[sid]; ok {
			t.Errorf("rear settlement %s should be null, got %s", sid, owner)
		}
	}
	if got := s.BrigadeMunicipalities["b1"]; len(got) != 2 || got[0] != "m1" || got[1] != "m2" {
		t.Errorf("expected b1 -> [m1 m2], got %v", got)
	}
}

func TestAssignAoRRearBrigadeGetsFrontContact(t *testing.T) {
	th, s := lineTheater()
	s.AddFormation(brigade("b1", RBiH, 2000, "s04"))
	s.AddFormation(brigade("b2", RBiH, 2000, "s01"))
	s.AddFormation(brigade("r1", RS, 2000, "s07"))
	AssignAoR(th, s)
	checkPartition(t, th, s)

	for _, id := range []string{"b1", "b2"} {
		if len(s.AoROf(id)) == 0 {
			t.Errorf("brigade %s should own at least one settlement", id)
		}
		touches := false
		for _, mun := range s.BrigadeMunicipalities[id] {
			if mun == "m2" {
				touches = true
			}
		}
		if !touches {
			t.Errorf("brigade %s should touch front municipality m2, has %v", id, s.BrigadeMunicipalities[id])
		}
	}
}

func TestAssignAoRKeepsOwnershipAcrossTurns(t *testing.T) {
	th, s := lineTheater()
	s.AddFormation(brigade("b1", RBiH, 2000, "s04"))
	s.AddFormation(brigade("b2", RBiH, 2000, "s02"))
	s.AddFormation(brigade("r1", RS, 2000, "s07"))
	AssignAoR(th, s)
	first := s.Clone()

	AssignAoR(th, s)
	checkPartition(t, th, s)
	for id, muns := range first.BrigadeMunicipalities {
		if len(s.BrigadeMunicipalities[id]) == 0 {
			t.Errorf("brigade %s lost all municipalities (had %v)", id, muns)
		}
	}
	for sid, owner := range first.BrigadeAoR {
		if s.BrigadeAoR[sid] != owner {
			t.Errorf("settlement %s changed owner %s -> %s with unchanged control", sid, owner, s.BrigadeAoR[sid])
		}
	}
}

func TestAssignAoRFollowsControlChange(t *testing.T) {
	th, s := lineTheater()
	s.AddFormation(brigade("b1", RBiH, 2000, "s04"))
	s.AddFormation(brigade("r1", RS, 2000, "s07"))
	AssignAoR(th, s)

	s.Control["s06"] = RBiH
	AssignAoR(th, s)
	checkPartition(t, th, s)
	if s.BrigadeAoR["s06"] != "b1" {
		t.Errorf("captured s06 should pass to b1, got %q", s.BrigadeAoR["s06"])
	}
	if s.BrigadeAoR["s07"] != "r1" {
		t.Errorf("new front s07 should be r1's, got %q", s.BrigadeAoR["s07"])
	}
}

func TestAssignAoRPurgesInactiveBrigades(t *testing.T) {
	th, s := lineTheater()
	s.AddFormation(brigade("b1", RBiH, 2000, "s04"))
	s.AddFormation(brigade("b2", RBiH, 2000, "s03"))
	s.AddFormation(brigade("r1", RS, 2000, "s07"))
	AssignAoR(th, s)

	s.Formations["b2"].Status = StatusInactive
	AssignAoR(th, s)
	checkPartition(t, th, s)
	if _, ok := s.BrigadeMunicipalities["b2"]; ok {
		t.Error("inactive brigade should be purged from the municipality table")
	}
	if len(s.AoROf("b2")) != 0 {
		t.Error("inactive brigade should hold no AoR")
	}
}

func TestAssignAoRSharedMunicipalitySplitsByBFS(t *testing.T) {
	// Two brigades in one municipality of four settlements.
	th := NewTheater(
		map[string]string{"a": "m", "b": "m", "c": "m", "d": "m", "x": "e", "y": "e", "z": "e", "w": "e"},
		[]Edge{
			{A: "a", B: "b"}, {A: "b", B: "c"}, {A: "c", B: "d"},
			{A: "a", B: "x"}, {A: "b", B: "y"}, {A: "c", B: "z"}, {A: "d", B: "w"},
		},
	)
	s := NewState()
	for _, id := range []string{"a", "b", "c", "d"} {
		s.Control[id] = RBiH
	}
	for _, id := range []string{"x", "y", "z", "w"} {
		s.Control[id] = RS
	}
	s.AddFormation(brigade("b1", RBiH, 2000, "a"))
	s.AddFormation(brigade("b2", RBiH, 2000, "d"))
	s.AddFormation(brigade("r1", RS, 4000, "x"))
	AssignAoR(th, s)
	checkPartition(t, th, s)

	want := map[string]string{"a": "b1", "b": "b1", "c": "b2", "d": "b2"}
	for sid, owner := range want {
		if s.BrigadeAoR[sid] != owner {
			t.Errorf("expected %s owned by %s, got %q", sid, owner, s.BrigadeAoR[sid])
		}
	}
}

func TestAssignAoRFrontOrphanGoesToMostLoaded(t *testing.T) {
	// Five RBiH municipalities of one settlement each, all facing RS.
	tests := []struct {
		name  string
		prior map[string][]string
		want  string
	}{
		{"most loaded", map[string][]string{"b1": {"m3"}, "b2": {"m1", "m2"}}, "b2"},
		{"tie goes to smallest id", map[string][]string{"b1": {"m1", "m2"}, "b2": {"m3", "m5"}}, "b1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			muns := map[string]string{"r": "e"}
			var edges []Edge
			s := NewState()
			s.Control["r"] = RS
			for _, m := range []string{"m1", "m2", "m3", "m4", "m5"} {
				id := "a" + m[1:]
				muns[id] = m
				edges = append(edges, Edge{A: id, B: "r"})
				s.Control[id] = RBiH
			}
			th := NewTheater(muns, edges)
			s.AddFormation(brigade("b1", RBiH, 2000, "a3"))
			s.AddFormation(brigade("b2", RBiH, 2000, "a1"))
			s.AddFormation(brigade("r1", RS, 2000, "r"))
			s.BrigadeMunicipalities = tt.prior

			AssignAoR(th, s)
			checkPartition(t, th, s)
			if got := s.BrigadeAoR["a4"]; got != tt.want {
				t.Errorf("expected orphaned m4 to go to %s, got %q (table %v)", tt.want, got, s.BrigadeMunicipalities)
			}
		})
	}
}

func TestAssignAoRNoBrigades(t *testing.T) {
	th, s := lineTheater()
	AssignAoR(th, s)
	if len(s.BrigadeAoR) != 0 {
		t.Errorf("expected empty AoR, got %v", s.BrigadeAoR)
	}
}

// --- Coverage ---

func TestCoveragePrefersFront(t *testing.T) {
	th, s := lineTheater()
	s.AddFormation(brigade("b1", RBiH, 2000, "s04"))
	s.AddFormation(brigade("r1", RS, 2000, "s07"))
	AssignAoR(th, s)

	cov := ComputeCoverage(th, s, func(*Formation) int { return 2 })
	got := cov.Covered["b1"]
	if len(got) != 2 || got[0] != "s04" || got[1] != "s05" {
		t.Errorf("expected b1 to cover [s04 s05], got %v", got)
	}
	if d := cov.Density(s, "b1", "s05"); d != 1000 {
		t.Errorf("expected density 1000, got %f", d)
	}
	if d := cov.Density(s, "b1", "s03"); d != 0 {
		t.Errorf("uncovered settlement should have density 0, got %f", d)
	}
}

func TestDefaultCoveragePolicy(t *testing.T) {
	tests := []struct {
		name          string
		personnel     int
		establishment int
		readiness     Readiness
		posture       Posture
		want          int
	}{
		{"full strength", 2000, 2000, ReadinessActive, PostureDefend, 10},
		{"degraded attack", 2000, 2000, ReadinessDegraded, PostureAttack, 4},
		{"tiny", 10, 10, ReadinessForming, PostureAttack, 1},
		{"empty", 0, 2000, ReadinessActive, PostureDefend, 0},
		{"understrength keeps nominal frontage", 500, 2000, ReadinessActive, PostureDefend, 10},
		{"no establishment", 1000, 0, ReadinessActive, PostureDefend, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFormation("f", RBiH, KindBrigade, tt.personnel)
			f.Establishment = tt.establishment
			f.Readiness = tt.readiness
			f.Posture = tt.posture
			if got := DefaultCoveragePolicy(f); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

// --- State ---

func TestStateCloneIndependent(t *testing.T) {
	th, s := lineTheater()
	s.AddFormation(brigade("b1", RBiH, 2000, "s04"))
	s.AddFormation(NewFormation("c1", RBiH, KindCorps, 0))
	s.Corps["c1"].ActiveOperation = &Operation{Name: "op", Participants: []string{"b1"}}
	s.Run.RecordSupply("b1", false)
	AssignAoR(th, s)

	c := s.Clone()
	s.Formations["b1"].Personnel = 1
	s.Control["s05"] = RS
	s.Corps["c1"].ActiveOperation.Participants[0] = "zz"
	s.Run.RecordSupply("b1", false)
	s.Ledger.Record(RBiH, "b1", Casualties{Killed: 5})

	if c.Formations["b1"].Personnel != 2000 {
		t.Error("clone formations should be independent")
	}
	if c.Control["s05"] != RBiH {
		t.Error("clone control should be independent")
	}
	if c.Corps["c1"].ActiveOperation.Participants[0] != "b1" {
		t.Error("clone operation should be independent")
	}
	if got := c.Run.Unsupplied("b1"); got != 1 {
		t.Errorf("clone run context should keep streak 1, got %d", got)
	}
	if c.Ledger.ByFaction[RBiH].Total() != 0 {
		t.Error("clone ledger should be independent")
	}
}

func TestRunContextReset(t *testing.T) {
	rc := NewRunContext()
	rc.RecordSupply("b1", false)
	rc.RecordSupply("b1", false)
	if got := rc.Unsupplied("b1"); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	rc.RecordSupply("b1", true)
	if got := rc.Unsupplied("b1"); got != 0 {
		t.Errorf("resupply should clear the streak, got %d", got)
	}
	rc.RecordSupply("b2", false)
	rc.Reset()
	if got := rc.Unsupplied("b2"); got != 0 {
		t.Errorf("reset should clear every streak, got %d", got)
	}
	var nilRC *RunContext
	if nilRC.Unsupplied("b1") != 0 {
		t.Error("nil run context should report 0")
	}
}

func TestFormationNormalizeClamps(t *testing.T) {
	f := NewFormation("f", RS, KindBrigade, 100)
	f.Cohesion = 140
	f.Experience = -1
	f.Personnel = -20
	f.Normalize()
	if f.Cohesion != 100 || f.Experience != 0 || f.Personnel != 0 {
		t.Errorf("expected clamped values, got cohesion=%f exp=%f personnel=%d", f.Cohesion, f.Experience, f.Personnel)
	}
}

func TestLedgerAdditiveOnly(t *testing.T) {
	l := NewCasualtyLedger()
	l.Record(RS, "r1", Casualties{Killed: 3, Wounded: 5, Missing: 1})
	l.Record(RS, "r1", Casualties{Killed: -10})
	l.Record(RS, "", Casualties{Wounded: 2})
	if got := l.ByFaction[RS]; got != (Casualties{Killed: 3, Wounded: 7, Missing: 1}) {
		t.Errorf("unexpected faction totals %+v", got)
	}
	if got := l.ByFormation["r1"].Total(); got != 9 {
		t.Errorf("expected 9 for r1, got %d", got)
	}
}

func TestUpdateSupply(t *testing.T) {
	th, s := lineTheater()
	// RS cuts s03 out of the RBiH network, isolating s01-s02.
	s.Control["s03"] = RS
	s.AddFormation(brigade("b1", RBiH, 1000, "s01"))
	s.AddFormation(brigade("b2", RBiH, 1000, "s05"))
	s.AddFormation(brigade("r1", RS, 1000, "s08"))
	s.BrigadeAoR["s04"] = "b2"

	sources := SupplySources{RBiH: {"s05"}}
	UpdateSupply(th, s, sources)
	UpdateSupply(th, s, sources)
	if got := s.Run.Unsupplied("b1"); got != 2 {
		t.Errorf("cut-off b1 should be unsupplied for 2 turns, got %d", got)
	}
	if got := s.Run.Unsupplied("b2"); got != 0 {
		t.Errorf("b2 sits on the source, got streak %d", got)
	}
	if got := s.Run.Unsupplied("r1"); got != 0 {
		t.Errorf("a faction without sources is always supplied, got %d", got)
	}

	s.Control["s03"] = RBiH
	UpdateSupply(th, s, sources)
	if got := s.Run.Unsupplied("b1"); got != 0 {
		t.Errorf("reconnected b1 should be resupplied, got %d", got)
	}
}
