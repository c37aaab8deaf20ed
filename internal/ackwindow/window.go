// Package ackwindow implements the receive side of the call: the sliding
// admission window, the selective-ACK bitmap, and the bounded out-of-order
// queue, per spec.md §4.2 and §4.3. It is grounded on the shape of
// internal/quantum/reliability.ReceiveBuffer in the teacher repo (a
// seq-keyed map draining into an ordered delivery stream with a
// Statistics() snapshot) but the admission, duplicate, and anti-DoS rules
// below follow the receive-window state machine of net/rxrpc/receive.c,
// not the teacher's simpler reassembly buffer.
package ackwindow

import (
	"sync"
	"sync/atomic"

	"github.com/relaywire/rxcall/internal/seqnum"
	"github.com/relaywire/rxcall/internal/wire"
)

// maxJumboBad is the anti-DoS threshold from spec.md §4.3: once more than
// this many jumbo packets have carried an in-window duplicate subpacket,
// every further jumbo DATA packet on the call is refused outright.
const maxJumboBad = 3

// AdmitResult reports the outcome of offering one packet (or jumbo
// subpacket) to the window.
type AdmitResult struct {
	// Delivered holds the packets (this one, plus any out-of-order packets
	// it unblocked) now ready for in-order delivery to the user, oldest first.
	Delivered []*Packet

	// ImmediateAck is true when the receive path itself proposes sending an
	// ACK right away, tagged with Reason. When false, the caller should
	// merely bump its pending-ACK counter and let the delayed-ACK timer fire.
	ImmediateAck bool
	Reason       wire.AckReason
}

// Window is the receive-side admission window for one call's single
// direction of travel. The zero value is not usable; construct with New.
type Window struct {
	mu sync.Mutex

	// packed holds window (low 32 bits) and wtop (high 32 bits) so readers
	// that only need a window snapshot (e.g. for building an outbound ACK)
	// need not take mu.
	packed atomic.Uint64

	rxWinSize uint32
	sackTable [SACKSize]bool
	oos       []*Packet // ascending by Seq, strictly within (window, wtop)

	rxHighestSeq uint32
	nrJumboBad   int
}

// New creates a Window whose next expected sequence number is 1, per
// spec.md §4.1 (calls start counting DATA packets at seq 1).
func New(rxWinSize uint32) *Window {
	w := &Window{rxWinSize: rxWinSize}
	w.store(1, 1)
	return w
}

func (w *Window) store(window, wtop uint32) {
	w.packed.Store(uint64(wtop)<<32 | uint64(window))
}

// Snapshot returns the current (window, wtop) pair without blocking on mu.
func (w *Window) Snapshot() (window, wtop uint32) {
	v := w.packed.Load()
	return uint32(v), uint32(v >> 32)
}

// RxWinSize returns the configured receive window size.
func (w *Window) RxWinSize() uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rxWinSize
}

// SetRxWinSize adjusts the receive window size, e.g. from a peer's ackinfo.
func (w *Window) SetRxWinSize(n uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rxWinSize = n
}

// NrJumboBad reports how many jumbo packets have carried at least one
// in-window duplicate subpacket so far (each jumbo counts once).
func (w *Window) NrJumboBad() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.nrJumboBad
}

// JumboRefused reports whether the anti-DoS threshold has been crossed and
// every further jumbo DATA packet on this call should be refused with
// ACK(NOSPACE) before it is even split into subpackets.
func (w *Window) JumboRefused() bool {
	return w.NrJumboBad() > maxJumboBad
}

// RxHighestSeq returns the highest sequence number seen so far, for
// diagnostics.
func (w *Window) RxHighestSeq() uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rxHighestSeq
}

func (w *Window) noteHighest(seq uint32) {
	if seqnum.After(seq, w.rxHighestSeq) {
		w.rxHighestSeq = seq
	}
}

// Admit offers one packet (or, when called from SplitJumbo, one jumbo
// subpacket) to the window and classifies it per spec.md §4.2:
//
//   - seq before window: a plain duplicate, ACK(DUPLICATE).
//   - seq after window+rxWinSize-1: exceeds the window, ACK(EXCEEDS_WINDOW).
//   - seq == window: delivered in order; drains any contiguous run already
//     queued out-of-order; proposes ACK(DELAY) if anything drained,
//     ACK(REQUESTED) if the packet asked for one, or defers to the delayed
//     ACK timer otherwise.
//   - window < seq <= window+rxWinSize-1, SACK bit clear: queued
//     out-of-order, ACK(OUT_OF_SEQUENCE), SACK bit set, wtop extended to
//     seq+1 if needed.
//   - window < seq <= window+rxWinSize-1, SACK bit already set: an
//     in-window duplicate.
//     When jumboBad is non-nil and the packet is a jumbo subpacket, this
//     bumps nrJumboBad at most once per jumbo packet (tracked via the
//     caller-owned jumboBad flag, shared across that jumbo's subpackets),
//     per spec.md §4.3. ACK(DUPLICATE) either way.
func (w *Window) Admit(pkt *Packet, jumboBad *bool) AdmitResult {
	w.mu.Lock()
	defer w.mu.Unlock()

	v := w.packed.Load()
	window, wtop := uint32(v), uint32(v>>32)
	wlimit := window + w.rxWinSize - 1
	seq := pkt.Seq

	w.noteHighest(seq)

	switch {
	case seqnum.Before(seq, window):
		return AdmitResult{Reason: wire.AckDuplicate, ImmediateAck: true}

	case seqnum.After(seq, wlimit):
		return AdmitResult{Reason: wire.AckExceedsWindow, ImmediateAck: true}

	case seq == window:
		delivered := []*Packet{pkt}
		window++
		if seqnum.After(window, wtop) {
			wtop = window
		}

		drainedAny := false
		for len(w.oos) > 0 && w.oos[0].Seq == window {
			head := w.oos[0]
			w.oos = w.oos[1:]
			w.sackTable[head.Seq%SACKSize] = false
			delivered = append(delivered, head)
			window++
			if seqnum.After(window, wtop) {
				wtop = window
			}
			drainedAny = true
		}
		w.store(window, wtop)

		switch {
		case drainedAny:
			return AdmitResult{Delivered: delivered, ImmediateAck: true, Reason: wire.AckDelay}
		case pkt.Flags.Has(wire.FlagRequestAck):
			return AdmitResult{Delivered: delivered, ImmediateAck: true, Reason: wire.AckRequested}
		default:
			return AdmitResult{Delivered: delivered, ImmediateAck: false}
		}

	default: // window < seq <= wlimit
		idx := seq % SACKSize
		if !w.sackTable[idx] {
			w.sackTable[idx] = true
			w.insertOOS(pkt)
			if seqnum.After(seq+1, wtop) {
				wtop = seq + 1
				w.store(window, wtop)
			}
			return AdmitResult{ImmediateAck: true, Reason: wire.AckOutOfSequence}
		}

		if jumboBad != nil && pkt.Flags.Has(wire.FlagJumbo) && !*jumboBad {
			w.nrJumboBad++
			*jumboBad = true
		}
		return AdmitResult{ImmediateAck: true, Reason: wire.AckDuplicate}
	}
}

// insertOOS inserts pkt into the out-of-order queue keeping it sorted
// ascending by Seq. The queue is bounded by rxWinSize entries in practice
// (the window admits nothing past wlimit), so a linear insert is fine.
func (w *Window) insertOOS(pkt *Packet) {
	i := 0
	for i < len(w.oos) && seqnum.Before(w.oos[i].Seq, pkt.Seq) {
		i++
	}
	w.oos = append(w.oos, nil)
	copy(w.oos[i+1:], w.oos[i:])
	w.oos[i] = pkt
}

// SACKBits returns a copy of the soft-ACK array for the nAcks seq starting
// at window, suitable for building an outbound AckBody: 1 for each seq
// already queued or delivered, 0 (NAK) otherwise. Used by the ACK-building
// collaborator, not by Admit itself.
func (w *Window) SACKBits(nAcks uint8) []wire.AckSoftType {
	w.mu.Lock()
	defer w.mu.Unlock()

	window := uint32(w.packed.Load())
	bits := make([]wire.AckSoftType, nAcks)
	for i := range bits {
		seq := window + uint32(i)
		if w.sackTable[seq%SACKSize] {
			bits[i] = wire.AckSoftAck
		}
	}
	return bits
}

// ValidateLastPacket applies the LSN/LSA checks from spec.md §4.2 against
// the window's current wtop. rxLastAlreadySet and isLast describe the call's
// RX_LAST flag state before and the incoming packet's FlagLast bit; the
// caller (rxcall's dispatcher) owns that flag and decides whether to set it.
func (w *Window) ValidateLastPacket(seq uint32, isLast, rxLastAlreadySet bool) error {
	_, wtop := w.Snapshot()
	if isLast {
		if rxLastAlreadySet && seq+1 != wtop {
			return ErrLSN
		}
		return nil
	}
	if rxLastAlreadySet && seqnum.AfterEq(seq, wtop) {
		return ErrLSA
	}
	return nil
}
