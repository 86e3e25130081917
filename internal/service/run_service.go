package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/freeeve/warfront/internal/logger"
	"github.com/freeeve/warfront/internal/metrics"
	"github.com/freeeve/warfront/internal/model"
	"github.com/freeeve/warfront/internal/repository"
	"github.com/freeeve/warfront/internal/scenario"
	"github.com/freeeve/warfront/pkg/warfront"
)

var (
	ErrRunNotFound     = repository.ErrRunNotFound
	ErrInvalidScenario = errors.New("invalid scenario")
	ErrInvalidTurn     = errors.New("invalid turn")
)

// RunService creates runs and drives them turn by turn. Turns of one run
// are serialised; different runs proceed in parallel.
type RunService struct {
	cache       repository.StateCache
	archive     repository.ReportArchive
	engine      *Engine
	metrics     *metrics.Metrics
	broadcaster Broadcaster
	now         func() time.Time

	mu   sync.Mutex
	runs map[string]*runEntry
}

// runEntry holds the per-run lock and the theater built from the run's
// scenario, which never changes after creation.
type runEntry struct {
	mu       sync.Mutex
	scenario *scenario.Scenario
	theater  *warfront.Theater
}

// NewRunService creates a RunService. A nil metrics disables instrumentation.
func NewRunService(cache repository.StateCache, archive repository.ReportArchive, engine *Engine, m *metrics.Metrics, b Broadcaster) *RunService {
	if b == nil {
		b = NoopBroadcaster{}
	}
	return &RunService{
		cache:       cache,
		archive:     archive,
		engine:      engine,
		metrics:     m,
		broadcaster: b,
		now:         time.Now,
		runs:        make(map[string]*runEntry),
	}
}

func (s *RunService) entry(runID string) *runEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.runs[runID]
	if !ok {
		e = &runEntry{}
		s.runs[runID] = e
		if s.metrics != nil {
			s.metrics.ActiveRuns.Inc()
		}
	}
	return e
}

// forget drops the entry of a run that turned out not to exist.
func (s *RunService) forget(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[runID]; ok {
		delete(s.runs, runID)
		if s.metrics != nil {
			s.metrics.ActiveRuns.Dec()
		}
	}
}

// CreateRun validates a YAML scenario, builds its opening state and stores
// both. An empty name falls back to the scenario's own.
func (s *RunService) CreateRun(ctx context.Context, name string, scenarioYAML []byte) (*model.Run, error) {
	sc, err := scenario.Parse(scenarioYAML)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if name == "" {
		name = sc.Name
	}

	th, st := sc.Theater(), sc.State()
	s.engine.Prepare(th, st)

	id := uuid.NewString()
	scenarioJSON, err := json.Marshal(sc)
	if err != nil {
		return nil, fmt.Errorf("marshal scenario: %w", err)
	}
	if err := s.cache.SetScenario(ctx, id, scenarioJSON); err != nil {
		return nil, err
	}
	if err := s.saveState(ctx, id, st); err != nil {
		return nil, err
	}

	run := &model.Run{
		ID:              id,
		Name:            name,
		Scenario:        sc.Name,
		DoctrineVersion: s.engine.DoctrineVersion(),
		Turn:            st.Turn,
	}
	if err := s.archive.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("archive run: %w", err)
	}

	e := s.entry(id)
	e.scenario, e.theater = sc, th

	if s.metrics != nil {
		s.metrics.RunsCreated.Inc()
	}
	runLog := logger.ForRun(ctx, id, st.Turn)
	runLog.Info().
		Str("scenario", sc.Name).
		Int("formations", len(st.Formations)).
		Msg("Run created")
	s.broadcaster.BroadcastRunEvent(id, EventRunCreated, run)
	return run, nil
}

// PlayTurn resolves the run's next turn. Orders map formation ids to target
// settlements and override the scenario's scripted orders for the same
// formation.
func (s *RunService) PlayTurn(ctx context.Context, runID string, orders map[string]string) (*Turn, error) {
	e := s.entry(runID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.loadScenario(ctx, runID, e); err != nil {
		if errors.Is(err, ErrRunNotFound) {
			s.forget(runID)
		}
		return nil, err
	}
	st, err := s.loadState(ctx, runID)
	if err != nil {
		return nil, err
	}

	merged := e.scenario.OrdersFor(st.Turn)
	for id, target := range orders {
		merged[id] = target
	}

	start := s.now()
	turn := s.engine.Step(e.theater, st, e.scenario.Sources(), merged)
	elapsed := s.now().Sub(start)

	log := logger.ForRun(ctx, runID, turn.Report.Turn)
	for _, d := range turn.Report.Dropped {
		log.Debug().
			Str("formationId", d.FormationID).
			Str("target", d.Target).
			Str("reason", d.Reason).
			Msg("Attack order dropped")
	}

	rec, battles, err := Records(runID, turn, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.archive.SaveTurn(ctx, rec, battles); err != nil {
		return nil, fmt.Errorf("archive turn %d: %w", rec.Turn, err)
	}
	if err := s.saveState(ctx, runID, st); err != nil {
		return nil, err
	}
	if len(turn.OGRequests) > 0 {
		if err := s.pushOGRequests(ctx, runID, turn.OGRequests); err != nil {
			return nil, err
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveTurn(turn.Report, len(turn.OGRequests), elapsed)
	}
	log.Info().
		Int("battles", rec.Battles).
		Int("flips", rec.Flips).
		Int("dropped", rec.Dropped).
		Int("ogRequests", len(turn.OGRequests)).
		Dur("durationMs", elapsed).
		Msg("Turn resolved")

	s.broadcaster.BroadcastRunEvent(runID, EventTurnResolved, turn.Report)
	for _, req := range turn.OGRequests {
		s.broadcaster.BroadcastRunEvent(runID, EventOGRequested, req)
	}
	return turn, nil
}

// GetRun returns the archived run.
func (s *RunService) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	run, err := s.archive.FindRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// ListRuns returns every archived run.
func (s *RunService) ListRuns(ctx context.Context) ([]model.Run, error) {
	return s.archive.ListRuns(ctx)
}

// ListTurns returns the archived turns of a run in order.
func (s *RunService) ListTurns(ctx context.Context, runID string) ([]model.TurnRecord, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.archive.ListTurns(ctx, runID)
}

// ListBattles returns the battles of one archived turn.
func (s *RunService) ListBattles(ctx context.Context, runID string, turn int) ([]model.BattleRecord, error) {
	if turn < 0 {
		return nil, ErrInvalidTurn
	}
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.archive.ListBattles(ctx, runID, turn)
}

// GetState returns the live state of a run.
func (s *RunService) GetState(ctx context.Context, runID string) (*warfront.State, error) {
	e := s.entry(runID)
	e.mu.Lock()
	st, err := s.loadState(ctx, runID)
	e.mu.Unlock()
	if errors.Is(err, ErrRunNotFound) {
		s.forget(runID)
	}
	return st, err
}

// DrainOGRequests hands the queued OG activation requests to the caller and
// empties the queue.
func (s *RunService) DrainOGRequests(ctx context.Context, runID string) ([]warfront.OGActivationRequest, error) {
	raw, err := s.cache.DrainOGRequests(ctx, runID)
	if err != nil {
		return nil, err
	}
	out := make([]warfront.OGActivationRequest, 0, len(raw))
	for _, r := range raw {
		var req warfront.OGActivationRequest
		if err := json.Unmarshal(r, &req); err != nil {
			return nil, fmt.Errorf("decode og request: %w", err)
		}
		out = append(out, req)
	}
	return out, nil
}

func (s *RunService) loadScenario(ctx context.Context, runID string, e *runEntry) error {
	if e.theater != nil {
		return nil
	}
	raw, err := s.cache.GetScenario(ctx, runID)
	if err != nil {
		return err
	}
	if raw == nil {
		return ErrRunNotFound
	}
	var sc scenario.Scenario
	if err := json.Unmarshal(raw, &sc); err != nil {
		return fmt.Errorf("decode scenario: %w", err)
	}
	e.scenario, e.theater = &sc, sc.Theater()
	return nil
}

func (s *RunService) loadState(ctx context.Context, runID string) (*warfront.State, error) {
	raw, err := s.cache.GetState(ctx, runID)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrRunNotFound
	}
	st := warfront.NewState()
	if err := json.Unmarshal(raw, st); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	st.Normalize()
	return st, nil
}

func (s *RunService) saveState(ctx context.Context, runID string, st *warfront.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return s.cache.SetState(ctx, runID, data)
}

func (s *RunService) pushOGRequests(ctx context.Context, runID string, reqs []warfront.OGActivationRequest) error {
	raw := make([]json.RawMessage, 0, len(reqs))
	for _, r := range reqs {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal og request: %w", err)
		}
		raw = append(raw, data)
	}
	return s.cache.PushOGRequests(ctx, runID, raw)
}
