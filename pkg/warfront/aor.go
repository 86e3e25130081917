package warfront

import (
	"fmt"
	"slices"
	"sort"
)

// RearDepth is how many same-faction hops behind the front a brigade's
// area of responsibility extends.
const RearDepth = 2

// AssignAoR rebuilds the brigade AoR partition and the persisted brigade ->
// municipality table from current political control. It runs every turn;
// prior table entries are kept while still valid, so an active brigade
// never silently loses its ownership.
func AssignAoR(t *Theater, s *State) {
	s.ensure()
	front := FrontActiveSet(t, s.Control)
	eligible := eligibleSet(t, s.Control, front, RearDepth)

	table := make(map[string][]string)
	aor := make(map[string]string)
	for _, f := range factionsInPlay(s) {
		a := newMunicipalityAssigner(t, s, f, front, eligible)
		a.build()
		for id, muns := range a.owned {
			table[id] = muns
		}
		for sid, owner := range a.splitSettlements() {
			if prev, dup := aor[sid]; dup {
				panic(fmt.Sprintf("warfront: settlement %s assigned to %s and %s", sid, prev, owner))
			}
			aor[sid] = owner
		}
	}
	s.BrigadeMunicipalities = table
	s.BrigadeAoR = aor
	assertPartition(s)
}

// assertPartition panics if the AoR breaks the partition invariant: every
// owner must be an active brigade of the controlling faction.
func assertPartition(s *State) {
	for sid, owner := range s.BrigadeAoR {
		f := s.Formations[owner]
		if f == nil || !f.IsBrigade() {
			panic(fmt.Sprintf("warfront: settlement %s owned by non-brigade %q", sid, owner))
		}
		if f.Faction != s.Control[sid] {
			panic(fmt.Sprintf("warfront: settlement %s (%s) owned by %s brigade %s", sid, s.Control[sid], f.Faction, owner))
		}
	}
}

// eligibleSet returns front-active settlements plus a same-faction
// expansion of the given depth behind them.
func eligibleSet(t *Theater, control map[string]Faction, front map[string]bool, depth int) map[string]bool {
	dist := make(map[string]int, len(front))
	var queue []string
	for _, id := range t.SettlementIDs() {
		if front[id] {
			dist[id] = 0
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if dist[cur] >= depth {
			continue
		}
		for _, n := range t.Neighbors(cur) {
			if _, seen := dist[n]; seen || control[n] != control[cur] {
				continue
			}
			dist[n] = dist[cur] + 1
			queue = append(queue, n)
		}
	}
	set := make(map[string]bool, len(dist))
	for id := range dist {
		set[id] = true
	}
	return set
}

func factionsInPlay(s *State) []Faction {
	seen := make(map[Faction]bool)
	for _, f := range s.Control {
		if f != NoOwner {
			seen[f] = true
		}
	}
	for _, fm := range s.Formations {
		if fm.IsBrigade() {
			seen[fm.Faction] = true
		}
	}
	out := make([]Faction, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// municipalityAssigner builds the municipality table for one faction.
type municipalityAssigner struct {
	t        *Theater
	s        *State
	faction  Faction
	front    map[string]bool
	eligible map[string]bool

	brigades  []*Formation
	munCells  map[string][]string // municipality -> eligible own settlements, sorted
	frontMuns map[string]bool
	owned     map[string][]string // brigade -> municipalities, sorted
}

func newMunicipalityAssigner(t *Theater, s *State, f Faction, front, eligible map[string]bool) *municipalityAssigner {
	a := &municipalityAssigner{
		t:         t,
		s:         s,
		faction:   f,
		front:     front,
		eligible:  eligible,
		brigades:  s.BrigadesOf(f),
		munCells:  make(map[string][]string),
		frontMuns: make(map[string]bool),
		owned:     make(map[string][]string),
	}
	for _, id := range t.SettlementIDs() {
		if s.Control[id] != f || !eligible[id] {
			continue
		}
		mun := t.Municipality(id)
		a.munCells[mun] = append(a.munCells[mun], id)
		if front[id] {
			a.frontMuns[mun] = true
		}
	}
	for _, b := range a.brigades {
		a.owned[b.ID] = nil
	}
	return a
}

func (a *municipalityAssigner) build() {
	for _, b := range a.brigades {
		a.seed(b)
	}
	a.coverOrphans()
	a.ensureEveryBrigadeOwns()
	a.ensureFrontContact()
}

// seed fills a brigade's municipalities from, in order: valid prior table
// entries, its existing AoR, a BFS from its HQ (or corps HQ), and finally
// its HQ municipality.
func (a *municipalityAssigner) seed(b *Formation) {
	for _, mun := range a.s.BrigadeMunicipalities[b.ID] {
		if len(a.munCells[mun]) > 0 {
			a.add(b.ID, mun)
		}
	}
	if len(a.owned[b.ID]) > 0 {
		return
	}

	for _, sid := range a.s.AoROf(b.ID) {
		if a.s.Control[sid] == a.faction && a.eligible[sid] {
			a.add(b.ID, a.t.Municipality(sid))
		}
	}
	if len(a.owned[b.ID]) > 0 {
		return
	}

	if mun := a.bootstrapByBFS(b); mun != "" {
		a.add(b.ID, mun)
		return
	}

	if a.s.Control[b.HQ] == a.faction {
		if mun := a.t.Municipality(b.HQ); len(a.munCells[mun]) > 0 {
			a.add(b.ID, mun)
		}
	}
}

// bootstrapByBFS searches own territory for the nearest eligible
// settlement. A brigade whose HQ sits in the rear seeds at its corps HQ and
// only expands through settlements that are unowned or held by its corps.
func (a *municipalityAssigner) bootstrapByBFS(b *Formation) string {
	hqOwn := a.s.Control[b.HQ] == a.faction
	if hqOwn && !a.eligible[b.HQ] {
		if corps := a.s.Formations[b.CorpsID]; corps != nil && a.s.Control[corps.HQ] == a.faction {
			sameCorps := func(id string) bool {
				owner, ok := a.s.BrigadeAoR[id]
				if !ok {
					return true
				}
				of := a.s.Formations[owner]
				return of != nil && of.CorpsID == b.CorpsID
			}
			if mun := a.nearestEligibleMunicipality(corps.HQ, sameCorps); mun != "" {
				return mun
			}
		}
	}
	if !hqOwn {
		return ""
	}
	return a.nearestEligibleMunicipality(b.HQ, nil)
}

func (a *municipalityAssigner) nearestEligibleMunicipality(seed string, allow func(string) bool) string {
	visited := map[string]bool{seed: true}
	queue := []string{seed}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if a.eligible[cur] {
			return a.t.Municipality(cur)
		}
		for _, n := range a.t.Neighbors(cur) {
			if visited[n] || a.s.Control[n] != a.faction {
				continue
			}
			if allow != nil && !allow(n) {
				continue
			}
			visited[n] = true
			queue = append(queue, n)
		}
	}
	return ""
}

// coverOrphans gives every municipality with eligible settlements an
// owner, front municipalities first. A front orphan goes to the most-loaded
// brigade, which drops one of its shared municipalities if it has any. Rear
// orphans are extended by the least-loaded brigade.
func (a *municipalityAssigner) coverOrphans() {
	if len(a.brigades) == 0 {
		return
	}
	for _, mun := range a.municipalitiesFrontFirst() {
		if len(a.owners(mun)) > 0 {
			continue
		}
		if !a.frontMuns[mun] {
			a.add(a.leastLoaded(nil), mun)
			continue
		}
		mover := a.mostLoaded()
		if shared := a.mostSharedOf(mover); shared != "" {
			a.remove(mover, shared)
		}
		a.add(mover, mun)
	}
}

// ensureEveryBrigadeOwns gives municipality-less brigades a municipality,
// donated by the least-loaded brigade that holds at least two.
func (a *municipalityAssigner) ensureEveryBrigadeOwns() {
	for _, b := range a.brigades {
		if len(a.owned[b.ID]) > 0 {
			continue
		}
		donor := a.leastLoaded(func(id string) bool { return len(a.owned[id]) >= 2 })
		if donor != "" {
			muns := a.owned[donor]
			mun := muns[len(muns)-1]
			a.remove(donor, mun)
			a.add(b.ID, mun)
			continue
		}
		if mun := a.sparsestMunicipality(nil); mun != "" {
			a.add(b.ID, mun)
		}
	}
}

// ensureFrontContact makes every brigade touch at least one front
// municipality when its faction has any.
func (a *municipalityAssigner) ensureFrontContact() {
	if len(a.frontMuns) == 0 {
		return
	}
	for _, b := range a.brigades {
		if len(a.owned[b.ID]) == 0 || a.frontCount(b.ID) > 0 {
			continue
		}
		donor := ""
		best := 1
		for _, d := range a.brigades {
			if n := a.frontCount(d.ID); n > best {
				donor, best = d.ID, n
			}
		}
		if donor != "" {
			var give string
			for _, m := range a.owned[donor] {
				if a.frontMuns[m] {
					give = m
				}
			}
			rear := a.owned[b.ID][0]
			a.remove(donor, give)
			a.add(b.ID, give)
			a.remove(b.ID, rear)
			a.add(donor, rear)
			continue
		}
		if mun := a.sparsestMunicipality(a.frontMuns); mun != "" {
			a.add(b.ID, mun)
		}
	}
}

// splitSettlements divides each municipality's eligible settlements among
// its owners by simultaneous BFS from their seeds.
func (a *municipalityAssigner) splitSettlements() map[string]string {
	out := make(map[string]string)
	for _, mun := range sortedKeys(a.munCells) {
		owners := a.owners(mun)
		if len(owners) == 0 {
			continue
		}
		cells := a.munCells[mun]
		if len(owners) == 1 {
			for _, sid := range cells {
				out[sid] = owners[0]
			}
			continue
		}
		for sid, owner := range a.growWithin(cells, owners) {
			out[sid] = owner
		}
	}
	return out
}

func (a *municipalityAssigner) growWithin(cells, owners []string) map[string]string {
	inMun := make(map[string]bool, len(cells))
	for _, sid := range cells {
		inMun[sid] = true
	}
	claimed := make(map[string]string, len(cells))
	frontier := make(map[string][]string, len(owners))

	for _, o := range owners {
		seed := ""
		if hq := a.s.Formations[o].HQ; inMun[hq] && claimed[hq] == "" {
			seed = hq
		} else {
			for _, sid := range cells {
				if claimed[sid] == "" {
					seed = sid
					break
				}
			}
		}
		if seed == "" {
			continue
		}
		claimed[seed] = o
		frontier[o] = []string{seed}
	}

	for growing := true; growing; {
		growing = false
		for _, o := range owners {
			var next []string
			for _, cur := range frontier[o] {
				for _, n := range a.t.Neighbors(cur) {
					if inMun[n] && claimed[n] == "" {
						claimed[n] = o
						next = append(next, n)
					}
				}
			}
			frontier[o] = next
			if len(next) > 0 {
				growing = true
			}
		}
	}

	i := 0
	for _, sid := range cells {
		if claimed[sid] == "" {
			claimed[sid] = owners[i%len(owners)]
			i++
		}
	}
	return claimed
}

func (a *municipalityAssigner) add(brigade, mun string) {
	muns := a.owned[brigade]
	idx, found := slices.BinarySearch(muns, mun)
	if found {
		return
	}
	a.owned[brigade] = slices.Insert(muns, idx, mun)
}

func (a *municipalityAssigner) remove(brigade, mun string) {
	muns := a.owned[brigade]
	if idx, found := slices.BinarySearch(muns, mun); found {
		a.owned[brigade] = slices.Delete(muns, idx, idx+1)
	}
}

// owners returns the brigades owning a municipality, sorted by id.
func (a *municipalityAssigner) owners(mun string) []string {
	var out []string
	for _, b := range a.brigades {
		if _, found := slices.BinarySearch(a.owned[b.ID], mun); found {
			out = append(out, b.ID)
		}
	}
	return out
}

func (a *municipalityAssigner) frontCount(brigade string) int {
	n := 0
	for _, m := range a.owned[brigade] {
		if a.frontMuns[m] {
			n++
		}
	}
	return n
}

// leastLoaded returns the brigade with the fewest municipalities among
// those accepted by filter, ties broken by smallest id.
func (a *municipalityAssigner) leastLoaded(filter func(string) bool) string {
	best := ""
	bestLoad := 0
	for _, b := range a.brigades {
		if filter != nil && !filter(b.ID) {
			continue
		}
		if load := len(a.owned[b.ID]); best == "" || load < bestLoad {
			best, bestLoad = b.ID, load
		}
	}
	return best
}

// mostLoaded returns the brigade with the most municipalities, ties broken
// by smallest id.
func (a *municipalityAssigner) mostLoaded() string {
	best := ""
	bestLoad := 0
	for _, b := range a.brigades {
		if load := len(a.owned[b.ID]); best == "" || load > bestLoad {
			best, bestLoad = b.ID, load
		}
	}
	return best
}

// mostSharedOf returns the brigade's municipality with the most co-owners,
// or "" if none of them is shared.
func (a *municipalityAssigner) mostSharedOf(brigade string) string {
	best := ""
	bestN := 1
	for _, mun := range a.owned[brigade] {
		if n := len(a.owners(mun)); n > bestN {
			best, bestN = mun, n
		}
	}
	return best
}

// sparsestMunicipality returns the municipality with the most eligible
// settlements per owner, optionally restricted to a set.
func (a *municipalityAssigner) sparsestMunicipality(within map[string]bool) string {
	best := ""
	bestRatio := -1.0
	for _, mun := range sortedKeys(a.munCells) {
		if within != nil && !within[mun] {
			continue
		}
		ratio := float64(len(a.munCells[mun])) / float64(len(a.owners(mun))+1)
		if ratio > bestRatio {
			best, bestRatio = mun, ratio
		}
	}
	return best
}

func (a *municipalityAssigner) municipalitiesFrontFirst() []string {
	muns := sortedKeys(a.munCells)
	sort.SliceStable(muns, func(i, j int) bool {
		return a.frontMuns[muns[i]] && !a.frontMuns[muns[j]]
	})
	return muns
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
