package rxcall

import (
	"time"

	"github.com/relaywire/rxcall/internal/congestion"
	"github.com/relaywire/rxcall/internal/seqnum"
	"github.com/relaywire/rxcall/internal/wire"
)

// AckInput is an already-parsed ACK packet, assembled by the dispatcher
// from internal/wire's AckBody/AckInfo before handing it to ProcessAck.
type AckInput struct {
	AckSerial    uint32 // the ACK packet's own header serial
	AckedSerial  uint32 // ack.serial: a serial this ACK is acknowledging
	FirstSoftAck uint32
	PrevPkt      uint32
	Reason       wire.AckReason
	NAcks        uint8
	SoftAcks     []wire.AckSoftType
	Info         *wire.AckInfo // nil if the packet carried no ackinfo extension
	RequestAck   bool          // the packet's own header carried FlagRequestAck
	RecvTime     time.Time
}

// ProcessAck runs the 12-step ACK algorithm of spec.md §4.4.
func (c *Call) ProcessAck(in AckInput) error {
	hardAck := in.FirstSoftAck - 1

	// Step 2 — RTT matching.
	reportSample := in.Reason == wire.AckPingResponse || in.Reason == wire.AckRequested
	if in.Reason == wire.AckPingResponse || in.Reason == wire.AckRequested || in.AckedSerial != 0 {
		for _, m := range c.RTT.Complete(in.AckedSerial, in.RecvTime, reportSample) {
			if m.Sample && c.col.Peer != nil {
				c.col.Peer.AddRTT(m.RTT)
			}
		}
	}

	// Step 3 — reactive ACKs.
	if c.col.Actions != nil {
		if in.Reason == wire.AckPing {
			_ = c.col.Actions.SendAck(c, wire.AckPingResponse, in.AckSerial)
		} else if in.RequestAck {
			_ = c.col.Actions.SendAck(c, wire.AckRequested, in.AckSerial)
		}
	}

	// Step 4 — NAT/migration shortcuts (client calls only). Completed as
	// remotely aborted with a transport-reset errno, per spec.md §4.4 Step 4
	// and §8 scenario 7, matching receive.c's
	// rxrpc_set_call_completion(call, RXRPC_CALL_REMOTELY_ABORTED, 0, -ENETRESET).
	if c.IsClient {
		if in.Reason == wire.AckExceedsWindow && in.FirstSoftAck == 1 && in.PrevPkt == 0 {
			c.complete(CompleteRemoteAbort, 0, errNetReset)
			return nil
		}
		if in.Reason == wire.AckOutOfSequence && in.FirstSoftAck == 1 && in.PrevPkt == 0 && c.Tx.HardAck() == 0 {
			c.complete(CompleteRemoteAbort, 0, errNetReset)
			return nil
		}
	}

	// Step 5 — monotonicity check.
	c.mu.Lock()
	base := c.acksFirstSeq
	prevBase := c.acksPrevSeq
	txWinSize := c.cfg.TxWinSize
	c.mu.Unlock()

	valid := false
	switch {
	case seqnum.After(in.FirstSoftAck, base):
		valid = true
	case seqnum.Before(in.FirstSoftAck, base):
		valid = false
	case seqnum.AfterEq(in.PrevPkt, prevBase):
		valid = true
	case seqnum.Before(in.PrevPkt, base+txWinSize):
		valid = true
	}
	if !valid {
		return nil
	}

	// Step 6 — update bookkeeping.
	c.mu.Lock()
	c.acksLatestTS = in.RecvTime
	c.acksFirstSeq = in.FirstSoftAck
	c.acksPrevSeq = in.PrevPkt
	if in.Reason != wire.AckPing && seqnum.After(in.AckedSerial, c.acksHighestSerial) {
		c.acksHighestSerial = in.AckedSerial
	}
	c.mu.Unlock()

	// Step 7 — ackinfo.
	if in.Info != nil {
		c.applyAckInfo(in.Info)
	}

	if in.FirstSoftAck == 0 {
		return c.abort("AK0", 0)
	}

	// Step 8 — state guard.
	phase := c.Phase()
	switch phase {
	case ClientSendRequest, ClientAwaitReply, ServerSendReply, ServerAwaitAck:
	default:
		return nil
	}

	txTop := c.Tx.Top()
	oldHardAck := c.Tx.HardAck()
	if seqnum.Before(hardAck, oldHardAck) || seqnum.After(hardAck, txTop) {
		return c.abort("AKW", 0)
	}
	if uint32(in.NAcks) > txTop-hardAck {
		return c.abort("AKN", 0)
	}

	var summary congestion.Summary
	summary.TxTop = txTop
	summary.HardAck = hardAck
	summary.RetransTimeout = c.flags.TestAndClear(FlagRetransTimeout)

	// Step 9 — Tx rotation.
	if seqnum.After(hardAck, oldHardAck) {
		res := c.Tx.Rotate(hardAck)
		c.applyRotate(res)
		summary.NrRotNewAcks = res.NrRotNewAcks
		summary.NewLowNack = res.NewLowNak
		if res.RotLast {
			return c.endTxPhase(false, "ETA")
		}
	}

	// Step 10 — soft-ACK scan.
	for i, bit := range in.SoftAcks {
		if bit == wire.AckSoftAck {
			summary.NrAcks++
			summary.NrNewAcks++
			continue
		}
		if !summary.SawNacks {
			seq := in.FirstSoftAck + uint32(i)
			c.mu.Lock()
			lowest := c.acksLowestNak
			if lowest != seq {
				c.acksLowestNak = seq
				summary.NewLowNack = true
			}
			c.mu.Unlock()
		}
		summary.SawNacks = true
	}

	summary.TxLastSet = c.flags.Has(FlagTxLast)

	// Step 11 — ping-for-lost-reply.
	if summary.TxLastSet && uint32(summary.NrAcks) == txTop-hardAck && c.IsClient {
		if c.col.Actions != nil {
			_ = c.col.Actions.ProposePing(c, in.AckSerial)
		}
	}

	// Step 12 — congestion.
	srtt := time.Duration(0)
	rttCount := 0
	if c.col.Peer != nil {
		srtt = c.col.Peer.SRTT()
		rttCount = c.col.Peer.RTTCount()
	}
	result := c.Cong.Manage(in.RecvTime, c.txLastSentAt(), srtt, rttCount, summary)
	if result.Resend && c.col.Actions != nil {
		_ = c.col.Actions.Resend(c)
	}

	return nil
}

func (c *Call) applyAckInfo(info *wire.AckInfo) {
	rwind := info.RWind
	if rwind > uint32(c.cfg.Congestion.TxMaxWindow) {
		rwind = uint32(c.cfg.Congestion.TxMaxWindow)
	}

	c.mu.Lock()
	changed := c.cfg.TxWinSize != rwind
	grew := rwind > c.cfg.TxWinSize
	if changed {
		c.cfg.TxWinSize = rwind
	}
	c.mu.Unlock()

	c.Cong.LowerSsthresh(int(rwind))

	mtu := info.RxMTU
	if info.MaxMTU < mtu {
		mtu = info.MaxMTU
	}
	if c.col.Peer != nil && mtu < c.col.Peer.MaxData() {
		c.col.Peer.SetMaxData(mtu)
	}

	if changed && grew && c.col.Actions != nil {
		// A grown receive window means held-back DATA can be sent now;
		// wake the sender rather than merely scheduling a delayed ACK.
		_ = c.col.Actions.Resend(c)
	}
}

// txLastSentAt reports when the last DATA packet went out, for the
// congestion controller's idle-reset check. Calls that never queued
// anything report the zero time, which trivially satisfies "idle".
func (c *Call) txLastSentAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.txLastSent
}

// NoteSent records that a DATA packet was just sent, for the idle-reset
// check in the congestion controller.
func (c *Call) NoteSent(at time.Time) {
	c.mu.Lock()
	c.txLastSent = at
	c.mu.Unlock()
}
