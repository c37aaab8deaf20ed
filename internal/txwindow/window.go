// Package txwindow implements the send side of the call: the queue of
// outbound packets still awaiting acknowledgment and the hard-ack rotation
// that advances it, per spec.md §4.2/§4.4. It is grounded on the shape of
// internal/quantum/reliability.SendBuffer in the teacher repo (an
// unacked-packet buffer advancing a send base on ACK, with retransmit
// bookkeeping) but the rotation rules below follow
// rxrpc_rotate_tx_window/rxrpc_receiving_reply in the original source
// rather than the teacher's RTO-driven retransmit loop, which belongs to
// the congestion controller in this rewrite.
package txwindow

import (
	"sync"
	"sync/atomic"

	"github.com/relaywire/rxcall/internal/seqnum"
)

// TxBuf is one queued outbound packet awaiting a hard ACK.
type TxBuf struct {
	Seq     uint32
	Last    bool // this is the final packet of the call's Tx phase
	Payload []byte
}

// RotateResult reports what a Rotate call observed, mirroring the
// rxrpc_ack_summary fields rxrpc_rotate_tx_window populates.
type RotateResult struct {
	NrRotNewAcks int  // packets newly rotated past by this call
	RotLast      bool // the rotated range included the call's last Tx packet
	NewLowNak    bool // the lowest-NAK mark advanced past where it was
}

// Window is the send-side outbound queue for one call's single direction
// of travel. The zero value is not usable; construct with New.
type Window struct {
	mu sync.Mutex

	buf []*TxBuf // ascending by Seq, Seq > hardAck

	hardAck   atomic.Uint32 // acks_hard_ack: highest seq fully rotated past
	top       uint32        // tx_top: highest seq queued so far
	lowestNak uint32        // acks_lowest_nak

	txLast   bool // RXRPC_CALL_TX_LAST
	allAcked bool // RXRPC_CALL_TX_ALL_ACKED
}

// New creates an empty Window.
func New() *Window {
	return &Window{}
}

// Queue appends a packet to the outbound buffer. Callers are expected to
// queue strictly increasing sequence numbers (the caller owns the
// seq-number allocator), so this just tracks tx_top.
func (w *Window) Queue(tb *TxBuf) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, tb)
	if seqnum.After(tb.Seq, w.top) {
		w.top = tb.Seq
	}
}

// HardAck returns the highest sequence number rotated past so far.
func (w *Window) HardAck() uint32 { return w.hardAck.Load() }

// Top returns the highest sequence number queued so far (tx_top).
func (w *Window) Top() uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.top
}

// TxLast reports whether the call's final outbound packet has been
// rotated past (RXRPC_CALL_TX_LAST).
func (w *Window) TxLast() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.txLast
}

// AllAcked reports whether every outbound packet, including the last, has
// been rotated past (RXRPC_CALL_TX_ALL_ACKED).
func (w *Window) AllAcked() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.allAcked
}

// Pending returns the packets still queued beyond the current hard ack,
// for retransmission or congestion-window accounting.
func (w *Window) Pending() []*TxBuf {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*TxBuf, len(w.buf))
	copy(out, w.buf)
	return out
}

// Rotate applies a hard ACK up to and including seq `to`, per
// rxrpc_rotate_tx_window: every buffered packet at or below the prior hard
// ack is skipped, every packet above it up to and including `to` counts as
// newly rotated and is dropped from the buffer (it no longer needs
// retransmission), and the last-packet/all-acked flags are set if the
// rotated range reached the call's final outbound packet.
//
// acks_lowest_nak tracks the lowest sequence number known to have been
// NAK'd since the last rotation: when rotation catches up to where it was
// sitting, it resets to `to`; when `to` moves past it, NewLowNak reports
// that advance so the caller can treat it as a fresh loss signal.
func (w *Window) Rotate(to uint32) RotateResult {
	w.mu.Lock()
	defer w.mu.Unlock()

	var res RotateResult
	hardAck := w.hardAck.Load()

	kept := make([]*TxBuf, 0, len(w.buf))
	for _, txb := range w.buf {
		if seqnum.BeforeEq(txb.Seq, hardAck) || seqnum.After(txb.Seq, to) {
			kept = append(kept, txb)
			continue
		}
		res.NrRotNewAcks++
		if txb.Last {
			w.txLast = true
			res.RotLast = true
		}
	}
	w.buf = kept

	if res.RotLast {
		w.allAcked = true
	}

	if w.lowestNak == hardAck {
		w.lowestNak = to
	} else if seqnum.After(to, w.lowestNak) {
		res.NewLowNak = true
		w.lowestNak = to
	}

	w.hardAck.Store(to)
	return res
}
