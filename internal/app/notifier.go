package app

import (
	"sync"

	"academy-quiz-service/internal/domain"
)

// Notifier fans progress snapshots out to the live subscribers of each session.
type Notifier struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.Progress]struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{subscribers: make(map[string]map[chan domain.Progress]struct{})}
}

// Subscribe registers a subscriber and immediately delivers initial.
func (n *Notifier) Subscribe(sessionID string, initial domain.Progress) (<-chan domain.Progress, func()) {
	ch := make(chan domain.Progress, 8)

	n.mu.Lock()
	subs, ok := n.subscribers[sessionID]
	if !ok {
		subs = make(map[chan domain.Progress]struct{})
		n.subscribers[sessionID] = subs
	}
	subs[ch] = struct{}{}
	n.mu.Unlock()

	ch <- initial

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		subs := n.subscribers[sessionID]
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(n.subscribers, sessionID)
		}
	}
	return ch, cancel
}

// Broadcast delivers p to every subscriber of its session without blocking.
func (n *Notifier) Broadcast(p domain.Progress) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subscribers[p.SessionID] {
		select {
		case ch <- p:
		default:
			// Slow subscriber: drop the oldest snapshot so the latest one gets through.
			select {
			case <-ch:
			default:
			}
			ch <- p
		}
	}
}
