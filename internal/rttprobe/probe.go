// Package rttprobe implements the fixed-size RTT probe table used to match
// an outbound serial number against the ACK that eventually references it,
// per spec.md §4.5 and rxrpc_complete_rtt_probe in the original source.
// It is grounded on the RTT/RTO bookkeeping in
// Lzww0608-AetherFlow/internal/quantum/reliability/send_buffer.go (a
// smoothed-RTT estimator fed by matching a sent packet's timestamp against
// its ACK), generalized here to the kernel's bounded slot table rather than
// the teacher's per-packet timestamp lookup, since a per-call budget of a
// handful of outstanding probes is the point of the design.
package rttprobe

import (
	"sync"
	"time"

	"github.com/relaywire/rxcall/internal/seqnum"
)

// Slots is the fixed number of concurrently outstanding RTT probes a call
// may track.
const Slots = 4

type slotState uint8

const (
	slotFree slotState = iota
	slotPending
)

type slot struct {
	state  slotState
	serial uint32
	sentAt time.Time
}

// Table is the per-call RTT probe slot table. The zero value is not
// usable; construct with New.
type Table struct {
	mu    sync.Mutex
	slots [Slots]slot
}

// New creates an empty probe table with every slot free.
func New() *Table {
	return &Table{}
}

// Start records a new outbound probe tagged with serial, returning the slot
// index used and true, or false if every slot is already pending (the
// caller should skip requesting a probe for this packet rather than block).
func (t *Table) Start(serial uint32, sentAt time.Time) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.slots {
		if t.slots[i].state == slotFree {
			t.slots[i] = slot{state: slotPending, serial: serial, sentAt: sentAt}
			return i, true
		}
	}
	return -1, false
}

// Match is one probe slot resolved by Complete.
type Match struct {
	Index  int
	Serial uint32
	RTT    time.Duration // zero when the slot was only obsoleted, not sampled
	Sample bool          // true when RTT should be fed to the congestion/peer RTT estimator
}

// Complete resolves outstanding probes against an acked serial number, per
// rxrpc_complete_rtt_probe: a slot whose serial exactly matches is freed and,
// when reportSample is true (the ACK type that carries a usable RTT, e.g.
// PING_RESPONSE or REQUESTED), returned with its round-trip time. Any
// pending slot whose serial is older than ackedSerial is obsolete — it was
// superseded by a later probe's ACK arriving first — and is freed without a
// sample, regardless of reportSample.
func (t *Table) Complete(ackedSerial uint32, respTime time.Time, reportSample bool) []Match {
	t.mu.Lock()
	defer t.mu.Unlock()

	var matches []Match
	for i := range t.slots {
		s := &t.slots[i]
		if s.state != slotPending {
			continue
		}

		if s.serial == ackedSerial {
			m := Match{Index: i, Serial: s.serial}
			if reportSample {
				m.RTT = respTime.Sub(s.sentAt)
				m.Sample = true
			}
			matches = append(matches, m)
			s.state = slotFree
			continue
		}

		if seqnum.After(ackedSerial, s.serial) {
			s.state = slotFree
		}
	}
	return matches
}

// Pending reports how many probe slots are currently in flight.
func (t *Table) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for i := range t.slots {
		if t.slots[i].state == slotPending {
			n++
		}
	}
	return n
}
