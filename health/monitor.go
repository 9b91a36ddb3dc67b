package health

import (
	"sort"
	"sync"
	"time"
)

// Monitor tracks health of multiple components in a thread-safe manner
type Monitor struct {
	mu       sync.RWMutex
	statuses map[string]Status
	sources  map[string]func() Status
}

// NewMonitor creates a new health monitor
func NewMonitor() *Monitor {
	return &Monitor{
		statuses: make(map[string]Status),
		sources:  make(map[string]func() Status),
	}
}

// Update stores a status for name.
func (m *Monitor) Update(name string, status Status) {
	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}

	m.mu.Lock()
	m.statuses[name] = status
	m.mu.Unlock()
}

// Watch registers a function polled on every Get or Aggregate call.
// It takes precedence over statuses stored with Update.
func (m *Monitor) Watch(name string, source func() Status) {
	m.mu.Lock()
	m.sources[name] = source
	m.mu.Unlock()
}

// Get retrieves the health status for a named component
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	source, watched := m.sources[name]
	status, exists := m.statuses[name]
	m.mu.RUnlock()

	if watched {
		s := source()
		s.Component = name
		return s, true
	}
	return status, exists
}

// Names returns the monitored component names, sorted.
func (m *Monitor) Names() []string {
	m.mu.RLock()
	seen := make(map[string]struct{}, len(m.statuses)+len(m.sources))
	for name := range m.statuses {
		seen[name] = struct{}{}
	}
	for name := range m.sources {
		seen[name] = struct{}{}
	}
	m.mu.RUnlock()

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Remove stops tracking name.
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	delete(m.statuses, name)
	delete(m.sources, name)
	m.mu.Unlock()
}

// AggregateHealth returns an aggregated health status for the entire system
func (m *Monitor) AggregateHealth(systemName string) Status {
	names := m.Names()
	subs := make([]Status, 0, len(names))
	for _, name := range names {
		if s, ok := m.Get(name); ok {
			subs = append(subs, s)
		}
	}
	return Aggregate(systemName, subs)
}
