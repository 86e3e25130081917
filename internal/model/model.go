package model

import (
	"encoding/json"
	"time"
)

// Run is one simulation run created from a scenario.
type Run struct {
	ID              string    `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Scenario        string    `json:"scenario" db:"scenario"`
	DoctrineVersion string    `json:"doctrine_version" db:"doctrine_version"`
	Turn            int       `json:"turn" db:"turn"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// TurnRecord is the archived outcome of one resolved turn.
type TurnRecord struct {
	RunID     string          `json:"run_id" db:"run_id"`
	Turn      int             `json:"turn" db:"turn"`
	Battles   int             `json:"battles" db:"battles"`
	Flips     int             `json:"flips" db:"flips"`
	Dropped   int             `json:"dropped" db:"dropped"`
	Report    json.RawMessage `json:"report" db:"report"`
	CorpsAI   json.RawMessage `json:"corps_ai,omitempty" db:"corps_ai"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// BattleRecord is one battle flattened for querying.
type BattleRecord struct {
	RunID              string    `json:"run_id" db:"run_id"`
	Turn               int       `json:"turn" db:"turn"`
	Location           string    `json:"location" db:"location"`
	Municipality       string    `json:"municipality" db:"municipality"`
	AttackerFaction    string    `json:"attacker_faction" db:"attacker_faction"`
	DefenderFaction    string    `json:"defender_faction" db:"defender_faction"`
	LeadAttacker       string    `json:"lead_attacker" db:"lead_attacker"`
	Defender           string    `json:"defender" db:"defender"`
	Outcome            string    `json:"outcome" db:"outcome"`
	Ratio              float64   `json:"ratio" db:"ratio"`
	Flipped            bool      `json:"flipped" db:"flipped"`
	AttackerCasualties int       `json:"attacker_casualties" db:"attacker_casualties"`
	DefenderCasualties int       `json:"defender_casualties" db:"defender_casualties"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}
