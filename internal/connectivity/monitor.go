// Package connectivity tracks the device's online/offline/syncing state. The
// monitor is an explicit, injectable object rather than a package-level flag,
// so independent ledgers never share hidden state and tests can fake
// transitions.
package connectivity

import "sync"

type Status int

const (
	Offline Status = iota
	Online
	Syncing
)

func (s Status) String() string {
	switch s {
	case Online:
		return "online"
	case Syncing:
		return "syncing"
	default:
		return "offline"
	}
}

type Monitor struct {
	mu        sync.Mutex
	status    Status
	nextSubID int
	subs      map[int]func(Status, Status)
}

// NewMonitor starts offline; the platform connectivity signal flips it online
// once a connection is confirmed.
func NewMonitor() *Monitor {
	return &Monitor{subs: make(map[int]func(Status, Status))}
}

func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Available reports whether remote calls should be attempted. Syncing counts
// as available: a drain in progress means the network is reachable.
func (m *Monitor) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status != Offline
}

func (m *Monitor) SetOnline()  { m.transition(Online) }
func (m *Monitor) SetOffline() { m.transition(Offline) }
func (m *Monitor) SetSyncing() { m.transition(Syncing) }

func (m *Monitor) transition(next Status) {
	m.mu.Lock()
	if m.status == next {
		m.mu.Unlock()
		return
	}
	prev := m.status
	m.status = next
	callbacks := make([]func(Status, Status), 0, len(m.subs))
	for _, fn := range m.subs {
		callbacks = append(callbacks, fn)
	}
	m.mu.Unlock()
	for _, fn := range callbacks {
		fn(prev, next)
	}
}

// OnChange registers a callback fired on every transition with the previous
// and new status, and returns a cancel function. Subscribers need the edge,
// not just the new state: a reconnect (offline to online) means pending work,
// while a drain finishing (syncing to online) does not. Callbacks run outside
// the monitor lock.
func (m *Monitor) OnChange(fn func(prev, next Status)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSubID
	m.nextSubID++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}
