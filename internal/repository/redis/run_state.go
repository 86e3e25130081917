package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Key kinds under a run.
const (
	kindState    = "state"
	kindScenario = "scenario"
	kindOGQueue  = "og_requests"
)

// SetState stores the live run state JSON.
func (c *Client) SetState(ctx context.Context, runID string, state json.RawMessage) error {
	return c.rdb.Set(ctx, c.key(runID, kindState), []byte(state), c.ttl).Err()
}

// GetState retrieves the live run state JSON.
func (c *Client) GetState(ctx context.Context, runID string) (json.RawMessage, error) {
	return c.get(ctx, c.key(runID, kindState), "get run state")
}

// SetScenario stores the scenario the run was created from.
func (c *Client) SetScenario(ctx context.Context, runID string, scenario json.RawMessage) error {
	return c.rdb.Set(ctx, c.key(runID, kindScenario), []byte(scenario), c.ttl).Err()
}

// GetScenario retrieves the scenario of a run.
func (c *Client) GetScenario(ctx context.Context, runID string) (json.RawMessage, error) {
	return c.get(ctx, c.key(runID, kindScenario), "get scenario")
}

func (c *Client) get(ctx context.Context, key, op string) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return json.RawMessage(data), nil
}

// PushOGRequests appends OG activation requests to the run's queue for the
// formation layer to consume.
func (c *Client) PushOGRequests(ctx context.Context, runID string, requests []json.RawMessage) error {
	if len(requests) == 0 {
		return nil
	}
	values := make([]any, len(requests))
	for i, r := range requests {
		values[i] = []byte(r)
	}
	key := c.key(runID, kindOGQueue)
	pipe := c.rdb.TxPipeline()
	pipe.RPush(ctx, key, values...)
	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push og requests: %w", err)
	}
	return nil
}

// DrainOGRequests pops every queued OG activation request in order.
func (c *Client) DrainOGRequests(ctx context.Context, runID string) ([]json.RawMessage, error) {
	key := c.key(runID, kindOGQueue)
	pipe := c.rdb.TxPipeline()
	lrange := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("drain og requests: %w", err)
	}
	out := make([]json.RawMessage, 0, len(lrange.Val()))
	for _, v := range lrange.Val() {
		out = append(out, json.RawMessage(v))
	}
	return out, nil
}

// DeleteRun removes all Redis data for a run.
func (c *Client) DeleteRun(ctx context.Context, runID string) error {
	return c.rdb.Del(ctx, c.key(runID, kindState), c.key(runID, kindScenario), c.key(runID, kindOGQueue)).Err()
}
