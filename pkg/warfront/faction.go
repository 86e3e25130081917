package warfront

// Faction identifies one of the warring sides.
type Faction string

const (
	RBiH    Faction = "RBiH"
	RS      Faction = "RS"
	HRHB    Faction = "HRHB"
	NoOwner Faction = "" // uncontrolled settlement
)

// AllFactions returns the factions in canonical order.
func AllFactions() []Faction {
	return []Faction{HRHB, RBiH, RS}
}

// Relation describes the diplomatic state between two factions.
type Relation struct {
	Allied bool `json:"allied"`
	AtWar  bool `json:"at_war"`
}

// RelationKey returns the order-independent key for a faction pair.
func RelationKey(a, b Faction) string {
	if a > b {
		a, b = b, a
	}
	return string(a) + "|" + string(b)
}
