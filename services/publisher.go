package services

import (
	"log"
	"sync"
	"time"
)

// Event is the post-commit notification fanned out to best-effort consumers
// (announcer, leaderboard worker, achievement counters). Published only after
// the core transaction commits; a lost event never implies lost state.
type Event struct {
	Kind      string                 `json:"kind"`
	AccountID string                 `json:"account_id,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	At        time.Time              `json:"at"`
}

const (
	EventActionResolved = "action_resolved"
	EventCrateOpened    = "crate_opened"
	EventCrateDropped   = "crate_dropped"
	EventCrateExpired   = "crate_expired"
	EventLevelUp        = "level_up"
	EventHeistStarted   = "heist_started"
	EventHeistWon       = "heist_won"
	EventHeistExpired   = "heist_expired"
	EventCrownChanged   = "crown_changed"
	EventSessionEnded   = "session_ended"
)

// Publisher is the in-process post-commit fan-out. Publish never blocks the
// request path: a subscriber with a full buffer just misses the event (logged).
type Publisher struct {
	mu   sync.RWMutex
	subs []chan Event
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

// Subscribe registers a consumer. Each consumer gets its own buffered channel
// so one slow handler cannot stall another.
func (p *Publisher) Subscribe(buffer int) <-chan Event {
	ch := make(chan Event, buffer)
	p.mu.Lock()
	p.subs = append(p.subs, ch)
	p.mu.Unlock()
	return ch
}

func (p *Publisher) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, ch := range p.subs {
		select {
		case ch <- evt:
		default:
			log.Printf("⚠️  [PUBLISH] subscriber buffer full, dropping %s event", evt.Kind)
		}
	}
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.subs {
		close(ch)
	}
	p.subs = nil
}
