package service

// Run feed event types.
const (
	EventRunCreated   = "run_created"
	EventTurnResolved = "turn_resolved"
	EventOGRequested  = "og_requested"
)

// Broadcaster sends real-time events to connected clients.
// Implemented by the WebSocket hub.
type Broadcaster interface {
	BroadcastRunEvent(runID string, eventType string, data any)
}

// NoopBroadcaster is a no-op implementation for testing or when WS is disabled.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BroadcastRunEvent(string, string, any) {}
