package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// AutoPlayer advances runs on a fixed interval, with scripted orders only,
// until each has played the number of turns it was enabled for.
type AutoPlayer struct {
	svc      *RunService
	interval time.Duration

	mu        sync.Mutex
	remaining map[string]int
}

// NewAutoPlayer creates an AutoPlayer.
func NewAutoPlayer(svc *RunService, interval time.Duration) *AutoPlayer {
	return &AutoPlayer{svc: svc, interval: interval, remaining: make(map[string]int)}
}

// Enable schedules turns for a run, replacing any previous schedule.
// Zero or fewer turns disables it.
func (a *AutoPlayer) Enable(runID string, turns int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if turns <= 0 {
		delete(a.remaining, runID)
		return
	}
	a.remaining[runID] = turns
}

// Remaining returns the turns still scheduled for a run.
func (a *AutoPlayer) Remaining(runID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.remaining[runID]
}

// Start plays scheduled turns every interval until ctx is cancelled.
func (a *AutoPlayer) Start(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", a.interval).Msg("Autoplay started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Autoplay stopped")
			return
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

// tick plays one turn for every scheduled run, in run id order.
func (a *AutoPlayer) tick(ctx context.Context) {
	a.mu.Lock()
	ids := make([]string, 0, len(a.remaining))
	for id := range a.remaining {
		ids = append(ids, id)
	}
	a.mu.Unlock()
	sort.Strings(ids)

	for _, id := range ids {
		_, err := a.svc.PlayTurn(ctx, id, nil)
		switch {
		case errors.Is(err, ErrRunNotFound):
			log.Warn().Str("runId", id).Msg("Autoplay run vanished, unscheduling")
			a.Enable(id, 0)
			continue
		case err != nil:
			log.Error().Err(err).Str("runId", id).Msg("Autoplay turn failed")
			continue
		}
		a.mu.Lock()
		if n, ok := a.remaining[id]; ok {
			if n <= 1 {
				delete(a.remaining, id)
			} else {
				a.remaining[id] = n - 1
			}
		}
		a.mu.Unlock()
	}
}
