package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/freeeve/warfront/internal/model"
)

// ErrRunNotFound is returned when a run id has no state or archive entry.
var ErrRunNotFound = errors.New("run not found")

// StateCache holds the live state of each run between turns (Redis).
// Misses return nil, nil.
type StateCache interface {
	SetState(ctx context.Context, runID string, state json.RawMessage) error
	GetState(ctx context.Context, runID string) (json.RawMessage, error)
	SetScenario(ctx context.Context, runID string, scenario json.RawMessage) error
	GetScenario(ctx context.Context, runID string) (json.RawMessage, error)
	PushOGRequests(ctx context.Context, runID string, requests []json.RawMessage) error
	DrainOGRequests(ctx context.Context, runID string) ([]json.RawMessage, error)
	DeleteRun(ctx context.Context, runID string) error
}

// ReportArchive stores runs and their turn reports (Postgres or SQLite).
type ReportArchive interface {
	CreateRun(ctx context.Context, run *model.Run) error
	FindRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context) ([]model.Run, error)
	SaveTurn(ctx context.Context, turn *model.TurnRecord, battles []model.BattleRecord) error
	ListTurns(ctx context.Context, runID string) ([]model.TurnRecord, error)
	ListBattles(ctx context.Context, runID string, turn int) ([]model.BattleRecord, error)
}
