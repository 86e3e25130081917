// Package memory is an in-process StateCache for single-process use
// (the offline simulator and tests).
package memory

import (
	"context"
	"encoding/json"
	"sync"
)

// Cache keeps run state in maps. Values are copied in and out.
type Cache struct {
	mu        sync.RWMutex
	states    map[string]json.RawMessage
	scenarios map[string]json.RawMessage
	queues    map[string][]json.RawMessage
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{
		states:    make(map[string]json.RawMessage),
		scenarios: make(map[string]json.RawMessage),
		queues:    make(map[string][]json.RawMessage),
	}
}

func clone(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	return append(json.RawMessage(nil), b...)
}

func (c *Cache) SetState(_ context.Context, runID string, state json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[runID] = clone(state)
	return nil
}

func (c *Cache) GetState(_ context.Context, runID string) (json.RawMessage, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clone(c.states[runID]), nil
}

func (c *Cache) SetScenario(_ context.Context, runID string, scenario json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scenarios[runID] = clone(scenario)
	return nil
}

func (c *Cache) GetScenario(_ context.Context, runID string) (json.RawMessage, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clone(c.scenarios[runID]), nil
}

func (c *Cache) PushOGRequests(_ context.Context, runID string, requests []json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range requests {
		c.queues[runID] = append(c.queues[runID], clone(r))
	}
	return nil
}

// DrainOGRequests returns the queued requests in push order and empties the queue.
func (c *Cache) DrainOGRequests(_ context.Context, runID string) ([]json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := c.queues[runID]
	delete(c.queues, runID)
	return q, nil
}

func (c *Cache) DeleteRun(_ context.Context, runID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, runID)
	delete(c.scenarios, runID)
	delete(c.queues, runID)
	return nil
}
