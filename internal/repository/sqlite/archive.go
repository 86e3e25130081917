// Package sqlite is a single-file report archive for offline runs.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/freeeve/warfront/internal/model"
)

// Archive wraps a SQLite connection holding runs, turns and battles.
type Archive struct {
	conn *sqlx.DB
	now  func() time.Time
}

// Open opens or creates a SQLite archive at the given path. Use ":memory:"
// for a throwaway archive.
func Open(path string) (*Archive, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection keeps an in-memory database alive and serialises writes.
	conn.SetMaxOpenConns(1)

	a := &Archive{conn: conn, now: time.Now}
	if err := a.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return a, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.conn.Close()
}

func (a *Archive) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		scenario TEXT NOT NULL,
		doctrine_version TEXT NOT NULL,
		turn INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS turn_reports (
		run_id TEXT NOT NULL REFERENCES runs(id),
		turn INTEGER NOT NULL,
		battles INTEGER NOT NULL,
		flips INTEGER NOT NULL,
		dropped INTEGER NOT NULL,
		report TEXT NOT NULL,
		corps_ai TEXT,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (run_id, turn)
	);

	CREATE TABLE IF NOT EXISTS battles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		turn INTEGER NOT NULL,
		location TEXT NOT NULL,
		municipality TEXT NOT NULL,
		attacker_faction TEXT NOT NULL,
		defender_faction TEXT NOT NULL,
		lead_attacker TEXT NOT NULL,
		defender TEXT NOT NULL,
		outcome TEXT NOT NULL,
		ratio REAL NOT NULL,
		flipped INTEGER NOT NULL,
		attacker_casualties INTEGER NOT NULL,
		defender_casualties INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_battles_run_turn ON battles(run_id, turn);
	`
	_, err := a.conn.Exec(schema)
	return err
}

// Timestamps are stored as unix milliseconds.
type runRow struct {
	ID              string `db:"id"`
	Name            string `db:"name"`
	Scenario        string `db:"scenario"`
	DoctrineVersion string `db:"doctrine_version"`
	Turn            int    `db:"turn"`
	CreatedAt       int64  `db:"created_at"`
	UpdatedAt       int64  `db:"updated_at"`
}

func (r runRow) model() model.Run {
	return model.Run{
		ID:              r.ID,
		Name:            r.Name,
		Scenario:        r.Scenario,
		DoctrineVersion: r.DoctrineVersion,
		Turn:            r.Turn,
		CreatedAt:       time.UnixMilli(r.CreatedAt).UTC(),
		UpdatedAt:       time.UnixMilli(r.UpdatedAt).UTC(),
	}
}

type turnRow struct {
	RunID     string         `db:"run_id"`
	Turn      int            `db:"turn"`
	Battles   int            `db:"battles"`
	Flips     int            `db:"flips"`
	Dropped   int            `db:"dropped"`
	Report    string         `db:"report"`
	CorpsAI   sql.NullString `db:"corps_ai"`
	CreatedAt int64          `db:"created_at"`
}

type battleRow struct {
	RunID              string  `db:"run_id"`
	Turn               int     `db:"turn"`
	Location           string  `db:"location"`
	Municipality       string  `db:"municipality"`
	AttackerFaction    string  `db:"attacker_faction"`
	DefenderFaction    string  `db:"defender_faction"`
	LeadAttacker       string  `db:"lead_attacker"`
	Defender           string  `db:"defender"`
	Outcome            string  `db:"outcome"`
	Ratio              float64 `db:"ratio"`
	Flipped            bool    `db:"flipped"`
	AttackerCasualties int     `db:"attacker_casualties"`
	DefenderCasualties int     `db:"defender_casualties"`
	CreatedAt          int64   `db:"created_at"`
}

// CreateRun inserts a new run and fills in its timestamps.
func (a *Archive) CreateRun(ctx context.Context, run *model.Run) error {
	now := a.now().UTC().Truncate(time.Millisecond)
	_, err := a.conn.ExecContext(ctx,
		`INSERT INTO runs (id, name, scenario, doctrine_version, turn, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, run.Scenario, run.DoctrineVersion, run.Turn, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	run.CreatedAt, run.UpdatedAt = now, now
	return nil
}

// FindRun returns a run by id, or nil if it does not exist.
func (a *Archive) FindRun(ctx context.Context, id string) (*model.Run, error) {
	var row runRow
	err := a.conn.GetContext(ctx, &row, "SELECT * FROM runs WHERE id = ?", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	run := row.model()
	return &run, nil
}

// ListRuns returns the most recently updated runs first.
func (a *Archive) ListRuns(ctx context.Context) ([]model.Run, error) {
	var rows []runRow
	if err := a.conn.SelectContext(ctx, &rows, "SELECT * FROM runs ORDER BY updated_at DESC, id LIMIT 100"); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	runs := make([]model.Run, 0, len(rows))
	for _, r := range rows {
		runs = append(runs, r.model())
	}
	return runs, nil
}

// SaveTurn stores a turn report with its battles and advances the run's
// turn counter in one transaction.
func (a *Archive) SaveTurn(ctx context.Context, turn *model.TurnRecord, battles []model.BattleRecord) error {
	now := a.now().UTC().Truncate(time.Millisecond)
	tx, err := a.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var corpsAI sql.NullString
	if len(turn.CorpsAI) > 0 {
		corpsAI = sql.NullString{String: string(turn.CorpsAI), Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO turn_reports (run_id, turn, battles, flips, dropped, report, corps_ai, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.RunID, turn.Turn, turn.Battles, turn.Flips, turn.Dropped, string(turn.Report), corpsAI, now.UnixMilli()); err != nil {
		return fmt.Errorf("insert turn report: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx,
		`INSERT INTO battles (run_id, turn, location, municipality, attacker_faction, defender_faction,
		 lead_attacker, defender, outcome, ratio, flipped, attacker_casualties, defender_casualties, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert battle: %w", err)
	}
	defer stmt.Close()

	for _, b := range battles {
		if _, err := stmt.ExecContext(ctx, b.RunID, b.Turn, b.Location, b.Municipality, b.AttackerFaction, b.DefenderFaction,
			b.LeadAttacker, b.Defender, b.Outcome, b.Ratio, b.Flipped, b.AttackerCasualties, b.DefenderCasualties,
			now.UnixMilli()); err != nil {
			return fmt.Errorf("insert battle: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE runs SET turn = ?, updated_at = ? WHERE id = ?", turn.Turn+1, now.UnixMilli(), turn.RunID); err != nil {
		return fmt.Errorf("advance run turn: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit turn: %w", err)
	}
	turn.CreatedAt = now
	return nil
}

// ListTurns returns every archived turn of a run in order.
func (a *Archive) ListTurns(ctx context.Context, runID string) ([]model.TurnRecord, error) {
	var rows []turnRow
	if err := a.conn.SelectContext(ctx, &rows,
		"SELECT * FROM turn_reports WHERE run_id = ? ORDER BY turn", runID); err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	turns := make([]model.TurnRecord, 0, len(rows))
	for _, r := range rows {
		t := model.TurnRecord{
			RunID:     r.RunID,
			Turn:      r.Turn,
			Battles:   r.Battles,
			Flips:     r.Flips,
			Dropped:   r.Dropped,
			Report:    json.RawMessage(r.Report),
			CreatedAt: time.UnixMilli(r.CreatedAt).UTC(),
		}
		if r.CorpsAI.Valid {
			t.CorpsAI = json.RawMessage(r.CorpsAI.String)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// ListBattles returns the battles of one turn ordered by location.
func (a *Archive) ListBattles(ctx context.Context, runID string, turn int) ([]model.BattleRecord, error) {
	var rows []battleRow
	if err := a.conn.SelectContext(ctx, &rows,
		`SELECT run_id, turn, location, municipality, attacker_faction, defender_faction, lead_attacker, defender,
		        outcome, ratio, flipped, attacker_casualties, defender_casualties, created_at
		 FROM battles WHERE run_id = ? AND turn = ? ORDER BY location`, runID, turn); err != nil {
		return nil, fmt.Errorf("list battles: %w", err)
	}
	battles := make([]model.BattleRecord, 0, len(rows))
	for _, r := range rows {
		battles = append(battles, model.BattleRecord{
			RunID:              r.RunID,
			Turn:               r.Turn,
			Location:           r.Location,
			Municipality:       r.Municipality,
			AttackerFaction:    r.AttackerFaction,
			DefenderFaction:    r.DefenderFaction,
			LeadAttacker:       r.LeadAttacker,
			Defender:           r.Defender,
			Outcome:            r.Outcome,
			Ratio:              r.Ratio,
			Flipped:            r.Flipped,
			AttackerCasualties: r.AttackerCasualties,
			DefenderCasualties: r.DefenderCasualties,
			CreatedAt:          time.UnixMilli(r.CreatedAt).UTC(),
		})
	}
	return battles, nil
}
