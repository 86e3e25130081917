package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/freeeve/warfront/internal/model"
)

// ArchiveRepo stores runs, turn reports and battles.
type ArchiveRepo struct {
	db *sql.DB
}

// NewArchiveRepo creates an ArchiveRepo.
func NewArchiveRepo(db *sql.DB) *ArchiveRepo {
	return &ArchiveRepo{db: db}
}

// CreateRun inserts a new run and fills in its timestamps.
func (r *ArchiveRepo) CreateRun(ctx context.Context, run *model.Run) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO runs (id, name, scenario, doctrine_version, turn)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`,
		run.ID, run.Name, run.Scenario, run.DoctrineVersion, run.Turn,
	).Scan(&run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// FindRun returns a run by id, or nil if it does not exist.
func (r *ArchiveRepo) FindRun(ctx context.Context, id string) (*model.Run, error) {
	var run model.Run
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, scenario, doctrine_version, turn, created_at, updated_at
		 FROM runs WHERE id = $1`, id,
	).Scan(&run.ID, &run.Name, &run.Scenario, &run.DoctrineVersion, &run.Turn, &run.CreatedAt, &run.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	return &run, nil
}

// ListRuns returns the most recently updated runs first.
func (r *ArchiveRepo) ListRuns(ctx context.Context) ([]model.Run, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, scenario, doctrine_version, turn, created_at, updated_at
		 FROM runs ORDER BY updated_at DESC LIMIT 100`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var run model.Run
		if err := rows.Scan(&run.ID, &run.Name, &run.Scenario, &run.DoctrineVersion, &run.Turn, &run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SaveTurn stores a turn report with its battles and advances the run's
// turn counter, all in one transaction.
func (r *ArchiveRepo) SaveTurn(ctx context.Context, turn *model.TurnRecord, battles []model.BattleRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO turn_reports (run_id, turn, battles, flips, dropped, report, corps_ai)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		turn.RunID, turn.Turn, turn.Battles, turn.Flips, turn.Dropped, []byte(turn.Report), nullJSON(turn.CorpsAI),
	).Scan(&turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert turn report: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO battles (run_id, turn, location, municipality, attacker_faction, defender_faction,
		                      lead_attacker, defender, outcome, ratio, flipped, attacker_casualties, defender_casualties)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`)
	if err != nil {
		return fmt.Errorf("prepare insert battle: %w", err)
	}
	defer stmt.Close()

	for _, b := range battles {
		_, err := stmt.ExecContext(ctx, b.RunID, b.Turn, b.Location, b.Municipality, b.AttackerFaction, b.DefenderFaction,
			b.LeadAttacker, b.Defender, b.Outcome, b.Ratio, b.Flipped, b.AttackerCasualties, b.DefenderCasualties)
		if err != nil {
			return fmt.Errorf("insert battle: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE runs SET turn = $2, updated_at = now() WHERE id = $1`, turn.RunID, turn.Turn+1); err != nil {
		return fmt.Errorf("advance run turn: %w", err)
	}
	return tx.Commit()
}

// ListTurns returns every archived turn of a run in order.
func (r *ArchiveRepo) ListTurns(ctx context.Context, runID string) ([]model.TurnRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT run_id, turn, battles, flips, dropped, report, corps_ai, created_at
		 FROM turn_reports WHERE run_id = $1 ORDER BY turn`, runID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var turns []model.TurnRecord
	for rows.Next() {
		var t model.TurnRecord
		var report []byte
		var corpsAI sql.NullString
		if err := rows.Scan(&t.RunID, &t.Turn, &t.Battles, &t.Flips, &t.Dropped, &report, &corpsAI, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Report = json.RawMessage(report)
		if corpsAI.Valid {
			t.CorpsAI = json.RawMessage(corpsAI.String)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// ListBattles returns the battles of one turn ordered by location.
func (r *ArchiveRepo) ListBattles(ctx context.Context, runID string, turn int) ([]model.BattleRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT run_id, turn, location, municipality, attacker_faction, defender_faction, lead_attacker, defender,
		        outcome, ratio, flipped, attacker_casualties, defender_casualties, created_at
		 FROM battles WHERE run_id = $1 AND turn = $2 ORDER BY location`, runID, turn)
	if err != nil {
		return nil, fmt.Errorf("list battles: %w", err)
	}
	defer rows.Close()

	var battles []model.BattleRecord
	for rows.Next() {
		var b model.BattleRecord
		if err := rows.Scan(&b.RunID, &b.Turn, &b.Location, &b.Municipality, &b.AttackerFaction, &b.DefenderFaction,
			&b.LeadAttacker, &b.Defender, &b.Outcome, &b.Ratio, &b.Flipped, &b.AttackerCasualties, &b.DefenderCasualties,
			&b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan battle: %w", err)
		}
		battles = append(battles, b)
	}
	return battles, rows.Err()
}

func nullJSON(data json.RawMessage) any {
	if len(data) == 0 {
		return nil
	}
	return []byte(data)
}
