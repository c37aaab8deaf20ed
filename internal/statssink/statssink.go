// Package statssink implements rxcall.StatsSink as a plain in-memory
// counter map. Grounded on the RWMutex-guarded
// Statistics() map[string]uint64 snapshot pattern used throughout
// Lzww0608-AetherFlow/internal/quantum (recv_buffer.go, send_buffer.go,
// bbr.go), generalized from each of those types' fixed set of named fields
// to an open map, since the receive path bumps a much larger and
// spec-defined set of counter names (rx_data, proto_abort_LSN,
// proto_abort_VLD, and so on) than any single teacher struct enumerates.
package statssink

import "sync"

// Sink is a mutex-guarded map of named counters.
type Sink struct {
	mu       sync.RWMutex
	counters map[string]uint64
}

// New creates an empty Sink.
func New() *Sink {
	return &Sink{counters: make(map[string]uint64)}
}

// Inc bumps the named counter by 1.
func (s *Sink) Inc(name string) {
	s.Add(name, 1)
}

// Add bumps the named counter by n.
func (s *Sink) Add(name string, n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name] += n
}

// Get returns the current value of the named counter.
func (s *Sink) Get(name string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters[name]
}

// Statistics returns a snapshot of every counter touched so far, matching
// the teacher's Statistics() map[string]uint64 convention.
func (s *Sink) Statistics() map[string]uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]uint64, len(s.counters))
	for k, v := range s.counters {
		out[k] = v
	}
	return out
}

// Reset clears every counter.
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters = make(map[string]uint64)
}
