package rxcall

import (
	"fmt"

	"github.com/relaywire/rxcall/internal/txwindow"
)

// applyRotate publishes a txwindow.Rotate outcome onto the call's own flag
// bits, which are the authoritative copy consulted by endTxPhase and the
// dispatcher (TX_LAST/TX_ALL_ACKED live on the call, not the window, since
// spec.md §5 has the call own all of its component state).
func (c *Call) applyRotate(res txwindow.RotateResult) {
	if res.RotLast {
		c.flags.Set(FlagTxLast)
		c.flags.Set(FlagTxAllAcked)
	}
}

// endTxPhase implements rxrpc_end_tx_phase: it is only ever called once
// FlagTxLast is set, and applies the phase transition for the end of the
// outbound direction, per spec.md §4.6.
func (c *Call) endTxPhase(replyBegun bool, abortWhy string) error {
	if !c.flags.Has(FlagTxLast) {
		return fmt.Errorf("rxcall: endTxPhase called before FlagTxLast was set")
	}

	c.mu.Lock()
	state := c.phase
	var next Phase
	ok := true

	switch state {
	case ClientSendRequest, ClientAwaitReply:
		if replyBegun {
			next = ClientRecvReply
		} else {
			next = ClientAwaitReply
		}
	case ServerAwaitAck:
		next = CompleteNormal
	default:
		ok = false
	}

	if ok {
		c.setPhase(next)
	}
	c.mu.Unlock()

	if !ok {
		return c.abort(abortWhy, c.Tx.Top())
	}
	if next == CompleteNormal && c.col.Notifier != nil {
		c.col.Notifier.NotifyCompletion(c, CompleteNormal, 0, nil)
	}
	if next == CompleteNormal && c.col.Conn != nil {
		c.col.Conn.DetachCall(c)
	}
	return nil
}

// receivingReply implements rxrpc_receiving_reply: on the first DATA
// packet of a reply while the client is still in its send phase, every
// remaining buffered request packet is implicitly ACK'd by rotating the Tx
// window all the way to tx_top, and the Tx phase ends with replyBegun=true.
func (c *Call) receivingReply() error {
	top := c.Tx.Top()

	if !c.flags.Has(FlagTxLast) {
		res := c.Tx.Rotate(top)
		c.applyRotate(res)
		if !res.RotLast {
			return c.abort("TXL", top)
		}
	}
	return c.endTxPhase(true, "ETD")
}
