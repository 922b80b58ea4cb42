// Package connectivity tracks reachability of the remote tier. The monitor
// is fed by the platform's native online/offline notifications (gateway
// ingress in this deployment) plus hints from the remote adapter's call
// outcomes; it never polls.
package connectivity

import (
	"log"
	"sync"
)

// Event is a reachability transition.
type Event int

const (
	WentOnline Event = iota
	WentOffline
)

func (e Event) String() string {
	if e == WentOnline {
		return "went-online"
	}
	return "went-offline"
}

// Monitor exposes the current reachability boolean and a subscription
// mechanism for transitions. The signal is advisory: a write attempted while
// online may still fail, and a write while offline is short-circuited to the
// local tier by the repository.
type Monitor struct {
	mu     sync.RWMutex
	online bool
	subs   map[int]chan Event
	nextID int
}

// NewMonitor starts in the given state; services usually assume online until
// told otherwise.
func NewMonitor(online bool) *Monitor {
	return &Monitor{
		online: online,
		subs:   make(map[int]chan Event),
	}
}

// IsOnline reports current reachability.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Notify records a reachability observation. Only actual transitions are
// broadcast; repeated observations of the same state are absorbed here so
// the remote adapter can report every call outcome.
func (m *Monitor) Notify(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	ev := WentOffline
	if online {
		ev = WentOnline
	}
	subs := make([]chan Event, 0, len(m.subs))
	for _, ch := range m.subs {
		subs = append(subs, ch)
	}
	m.mu.Unlock()

	log.Printf("[CONNECTIVITY] %s", ev)
	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; the signal is advisory, drop rather than block.
		}
	}
}

// Subscribe returns a channel of transitions and a cancel func. The channel
// is buffered; subscribers that fall behind miss events rather than stall
// the notifier.
func (m *Monitor) Subscribe() (<-chan Event, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	ch := make(chan Event, 4)
	m.subs[id] = ch
	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
	return ch, cancel
}
