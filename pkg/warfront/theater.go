package warfront

import (
	"slices"
	"sort"
)

// UnknownMunicipality is the municipality of a settlement the data build
// did not place. It is a real key, not an absence.
const UnknownMunicipality = "_unknown"

// MunicipalityClass designates municipalities that get urban or enclave
// defensive bonuses.
type MunicipalityClass string

const (
	ClassNone        MunicipalityClass = ""
	ClassUrbanCenter MunicipalityClass = "urban_center" // top-tier urban
	ClassLargeUrban  MunicipalityClass = "large_urban"
	ClassEnclave     MunicipalityClass = "enclave"
)

// Settlement is a node of the theater graph.
type Settlement struct {
	ID           string
	Municipality string
	Neighbors    []string // ascending
}

// Edge is an undirected settlement adjacency.
type Edge struct {
	A string `json:"a" yaml:"a"`
	B string `json:"b" yaml:"b"`
}

// TerrainScalars are the per-settlement terrain indices.
type TerrainScalars struct {
	River      float64 `json:"river" yaml:"river"`
	Slope      float64 `json:"slope" yaml:"slope"`
	Urban      float64 `json:"urban" yaml:"urban"`
	Friction   float64 `json:"friction" yaml:"friction"`
	RoadAccess float64 `json:"road_access" yaml:"road_access"`
}

// DefaultTerrain is used for settlements without terrain data: open ground
// with full road access.
func DefaultTerrain() TerrainScalars {
	return TerrainScalars{RoadAccess: 1}
}

// MaxAttackersFunc bounds how many brigades can attack a settlement at once.
type MaxAttackersFunc func(t TerrainScalars) int

// DefaultMaxAttackers allows three attackers on open ground and two in
// rough terrain.
func DefaultMaxAttackers(t TerrainScalars) int {
	if t.Slope+t.Friction >= 0.6 {
		return 2
	}
	return MaxAttackersPerTarget
}

// Theater holds the settlement graph and the static per-settlement lookups.
// It is built once per run and never mutated by the core.
type Theater struct {
	Settlements  map[string]*Settlement
	Terrain      map[string]TerrainScalars
	Classes      map[string]MunicipalityClass // municipality id -> class
	MaxAttackers MaxAttackersFunc
	ids          []string
}

// BuildAdjacency turns an edge list into a deduplicated adjacency map with
// ascending neighbor lists. Self loops are dropped.
func BuildAdjacency(edges []Edge) map[string][]string {
	seen := make(map[string]map[string]bool)
	add := func(a, b string) {
		if seen[a] == nil {
			seen[a] = make(map[string]bool)
		}
		seen[a][b] = true
	}
	for _, e := range edges {
		if e.A == "" || e.B == "" || e.A == e.B {
			continue
		}
		add(e.A, e.B)
		add(e.B, e.A)
	}
	adj := make(map[string][]string, len(seen))
	for id, ns := range seen {
		list := make([]string, 0, len(ns))
		for n := range ns {
			list = append(list, n)
		}
		sort.Strings(list)
		adj[id] = list
	}
	return adj
}

// NewTheater builds a theater from a settlement -> municipality lookup and
// an edge list. Settlements referenced only by edges get UnknownMunicipality.
func NewTheater(municipalities map[string]string, edges []Edge) *Theater {
	adj := BuildAdjacency(edges)
	t := &Theater{
		Settlements:  make(map[string]*Settlement, len(municipalities)),
		Terrain:      make(map[string]TerrainScalars),
		Classes:      make(map[string]MunicipalityClass),
		MaxAttackers: DefaultMaxAttackers,
	}
	for id, mun := range municipalities {
		if mun == "" {
			mun = UnknownMunicipality
		}
		t.Settlements[id] = &Settlement{ID: id, Municipality: mun, Neighbors: adj[id]}
	}
	for id, ns := range adj {
		if _, ok := t.Settlements[id]; !ok {
			t.Settlements[id] = &Settlement{ID: id, Municipality: UnknownMunicipality, Neighbors: ns}
		}
	}
	t.ids = make([]string, 0, len(t.Settlements))
	for id := range t.Settlements {
		t.ids = append(t.ids, id)
	}
	sort.Strings(t.ids)
	return t
}

// SettlementIDs returns every settlement id in ascending order.
func (t *Theater) SettlementIDs() []string {
	return t.ids
}

// Neighbors returns the ascending neighbor list of a settlement.
func (t *Theater) Neighbors(id string) []string {
	s, ok := t.Settlements[id]
	if !ok {
		return nil
	}
	return s.Neighbors
}

// Adjacent returns true if a and b share an edge.
func (t *Theater) Adjacent(a, b string) bool {
	_, found := slices.BinarySearch(t.Neighbors(a), b)
	return found
}

// Municipality returns the municipality of a settlement, or
// UnknownMunicipality if the settlement is not in the theater.
func (t *Theater) Municipality(id string) string {
	s, ok := t.Settlements[id]
	if !ok {
		return UnknownMunicipality
	}
	return s.Municipality
}

// TerrainAt returns the terrain scalars of a settlement.
func (t *Theater) TerrainAt(id string) TerrainScalars {
	if ts, ok := t.Terrain[id]; ok {
		return ts
	}
	return DefaultTerrain()
}

// ClassOf returns the designated class of a municipality.
func (t *Theater) ClassOf(mun string) MunicipalityClass {
	return t.Classes[mun]
}

// MaxAttackersAt returns how many attackers may engage the settlement.
func (t *Theater) MaxAttackersAt(id string) int {
	fn := t.MaxAttackers
	if fn == nil {
		fn = DefaultMaxAttackers
	}
	n := fn(t.TerrainAt(id))
	if n < 1 {
		n = 1
	}
	if n > MaxAttackersPerTarget {
		n = MaxAttackersPerTarget
	}
	return n
}
