package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/freeeve/warfront/internal/model"
)

type mockCache struct {
	mu        sync.Mutex
	states    map[string]json.RawMessage
	scenarios map[string]json.RawMessage
	queues    map[string][]json.RawMessage
	setErr    error
}

func newMockCache() *mockCache {
	return &mockCache{
		states:    make(map[string]json.RawMessage),
		scenarios: make(map[string]json.RawMessage),
		queues:    make(map[string][]json.RawMessage),
	}
}

func (m *mockCache) SetState(_ context.Context, runID string, state json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.states[runID] = append(json.RawMessage(nil), state...)
	return nil
}

func (m *mockCache) GetState(_ context.Context, runID string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[runID]
	if !ok {
		return nil, nil
	}
	return s, nil
}

func (m *mockCache) SetScenario(_ context.Context, runID string, scenario json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenarios[runID] = scenario
	return nil
}

func (m *mockCache) GetScenario(_ context.Context, runID string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scenarios[runID]
	if !ok {
		return nil, nil
	}
	return s, nil
}

func (m *mockCache) PushOGRequests(_ context.Context, runID string, requests []json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[runID] = append(m.queues[runID], requests...)
	return nil
}

func (m *mockCache) DrainOGRequests(_ context.Context, runID string) ([]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queues[runID]
	delete(m.queues, runID)
	return q, nil
}

func (m *mockCache) DeleteRun(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, runID)
	delete(m.scenarios, runID)
	delete(m.queues, runID)
	return nil
}

type mockArchive struct {
	mu      sync.Mutex
	runs    map[string]*model.Run
	turns   map[string][]model.TurnRecord
	battles map[string][]model.BattleRecord
}

func newMockArchive() *mockArchive {
	return &mockArchive{
		runs:    make(map[string]*model.Run),
		turns:   make(map[string][]model.TurnRecord),
		battles: make(map[string][]model.BattleRecord),
	}
}

func (m *mockArchive) CreateRun(_ context.Context, run *model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.CreatedAt = time.Now()
	run.UpdatedAt = run.CreatedAt
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *mockArchive) FindRun(_ context.Context, id string) (*model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *mockArchive) ListRuns(_ context.Context) ([]model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Run
	for _, r := range m.runs {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockArchive) SaveTurn(_ context.Context, turn *model.TurnRecord, battles []model.BattleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.turns[turn.RunID] {
		if t.Turn == turn.Turn {
			return fmt.Errorf("turn %d already archived", turn.Turn)
		}
	}
	m.turns[turn.RunID] = append(m.turns[turn.RunID], *turn)
	m.battles[turn.RunID] = append(m.battles[turn.RunID], battles...)
	if r, ok := m.runs[turn.RunID]; ok {
		r.Turn++
	}
	return nil
}

func (m *mockArchive) ListTurns(_ context.Context, runID string) ([]model.TurnRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.TurnRecord(nil), m.turns[runID]...), nil
}

func (m *mockArchive) ListBattles(_ context.Context, runID string, turn int) ([]model.BattleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.BattleRecord
	for _, b := range m.battles[runID] {
		if b.Turn == turn {
			out = append(out, b)
		}
	}
	return out, nil
}

type broadcastCall struct {
	runID     string
	eventType string
}

type recordingBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (b *recordingBroadcaster) BroadcastRunEvent(runID string, eventType string, _ any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, broadcastCall{runID: runID, eventType: eventType})
}

func (b *recordingBroadcaster) count(eventType string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c.eventType == eventType {
			n++
		}
	}
	return n
}
