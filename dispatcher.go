package rxcall

import (
	"time"

	"go.uber.org/zap"

	"github.com/relaywire/rxcall/internal/ackwindow"
	"github.com/relaywire/rxcall/internal/wire"
)

// Packet is a decoded inbound datagram: the common header, still-encrypted
// (or plaintext, if SecurityIndex is 0) payload, and receive timestamp. The
// dispatcher owns turning this into DATA/ACK/ACKALL/ABORT handling; it
// never looks past the header for BUSY.
type Packet struct {
	Header   wire.PacketHeader
	Payload  []byte // everything after the common header
	RecvTime time.Time
}

// Receive is the engine's single entry point, per spec.md §4.6's
// dispatcher: refresh the receive timer, then dispatch by packet type.
func (c *Call) Receive(pkt Packet) error {
	if c.col.Timers != nil {
		c.col.Timers.ResetReceiveTimer(c, c.cfg.NextRxTimeout)
	}

	if int32(pkt.Header.Serial-c.rxSerial) > 0 {
		c.rxSerial = pkt.Header.Serial
	}

	switch pkt.Header.Type {
	case wire.TypeData:
		return c.receiveData(pkt)
	case wire.TypeAck:
		return c.receiveAckPacket(pkt)
	case wire.TypeAckAll:
		return c.receiveAckAll(pkt)
	case wire.TypeAbort:
		return c.receiveAbort(pkt)
	case wire.TypeBusy:
		// Ignore BUSY packets entirely; the retry/lifespan timers handle
		// whatever follows.
		return nil
	default:
		return nil
	}
}

func (c *Call) receiveData(pkt Packet) error {
	if c.Phase().IsTerminal() {
		return nil
	}

	// Once the anti-DoS threshold is crossed, every further jumbo is refused
	// with ACK(NOSPACE) before it is split or admitted.
	if pkt.Header.Flags.Has(wire.FlagJumbo) && c.Window.JumboRefused() {
		if c.col.Actions != nil {
			_ = c.col.Actions.SendAck(c, wire.AckNoSpace, pkt.Header.Serial)
		}
		return nil
	}

	payload := pkt.Payload
	if pkt.Header.SecurityIndex != 0 {
		if c.col.Scheduler != nil {
			payload = c.col.Scheduler.CloneIfShared(payload)
		}
		if c.col.Decryptor != nil {
			if err := c.col.Decryptor.Decrypt(pkt.Header.SecurityIndex, pkt.Header.Seq, payload); err != nil {
				return c.abort("XAK", pkt.Header.Seq)
			}
		}
	}

	// Any reply DATA packet — not just seq 1 — marks the start of the reply,
	// per receive.c's unconditional rxrpc_receiving_reply call; a reordered
	// reply whose first arrival is seq 2 must still rotate the Tx window.
	if c.IsClient {
		switch c.Phase() {
		case ClientSendRequest, ClientAwaitReply:
			if err := c.receivingReply(); err != nil {
				return err
			}
		}
	}

	root := &ackwindow.Packet{
		Seq:     pkt.Header.Seq,
		Serial:  pkt.Header.Serial,
		Flags:   pkt.Header.Flags,
		Payload: payload,
	}

	var results []ackwindow.AdmitResult
	if pkt.Header.Flags.Has(wire.FlagJumbo) {
		already := c.flags.Has(FlagRxLast)
		var tailIsLast bool
		var err error
		results, tailIsLast, err = c.Window.SplitJumbo(root, already)
		if err != nil {
			switch err {
			case ackwindow.ErrLSN:
				return c.abort("LSN", pkt.Header.Seq)
			case ackwindow.ErrLSA:
				return c.abort("LSA", pkt.Header.Seq)
			default:
				return c.abort("VLD", pkt.Header.Seq)
			}
		}
		if tailIsLast {
			c.flags.Set(FlagRxLast)
		}
	} else {
		if err := c.checkLastPacket(root); err != nil {
			return err
		}
		results = []ackwindow.AdmitResult{c.Window.Admit(root, nil)}
	}

	for _, res := range results {
		c.applyAdmitResult(pkt.Header.Serial, res)
	}

	c.log.Debug("rx data", zap.Uint32("seq", pkt.Header.Seq), zap.Uint32("serial", pkt.Header.Serial))
	return nil
}

// checkLastPacket applies the LSN/LSA validation and, for the last packet,
// publishes FlagRxLast, before the packet is handed to Admit.
func (c *Call) checkLastPacket(pkt *ackwindow.Packet) error {
	isLast := pkt.Flags.Has(wire.FlagLast)
	if isLast {
		already := c.flags.TestAndSet(FlagRxLast)
		if err := c.Window.ValidateLastPacket(pkt.Seq, true, already); err != nil {
			return c.abort("LSN", pkt.Seq)
		}
		return nil
	}
	if err := c.Window.ValidateLastPacket(pkt.Seq, false, c.flags.Has(FlagRxLast)); err != nil {
		return c.abort("LSA", pkt.Seq)
	}
	return nil
}

func (c *Call) applyAdmitResult(serial uint32, res ackwindow.AdmitResult) {
	c.statInc("rx_data")
	for _, pkt := range res.Delivered {
		last := pkt.Flags.Has(wire.FlagLast)
		if c.col.Notifier != nil {
			c.col.Notifier.NotifyData(c, pkt.Seq, pkt.Payload, last)
		}
	}

	if res.Reason == wire.AckNoSpace && c.col.Actions != nil {
		_ = c.col.Actions.SendAck(c, wire.AckNoSpace, serial)
		return
	}

	if res.ImmediateAck {
		if c.col.Actions != nil {
			_ = c.col.Actions.SendAck(c, res.Reason, serial)
		}
		return
	}
	if c.col.Actions != nil {
		_ = c.col.Actions.ProposeDelayAck(c, serial)
	}
}

func (c *Call) receiveAckPacket(pkt Packet) error {
	body, err := wire.UnmarshalAckBody(pkt.Payload, 0)
	if err != nil {
		return c.abort("XAK", 0)
	}

	in := AckInput{
		AckSerial:    pkt.Header.Serial,
		AckedSerial:  body.Serial,
		FirstSoftAck: body.FirstPacket,
		PrevPkt:      body.PreviousPacket,
		Reason:       body.Reason,
		NAcks:        body.NAcks,
		RequestAck:   pkt.Header.Flags.Has(wire.FlagRequestAck),
		RecvTime:     pkt.RecvTime,
	}

	offset := wire.AckBodySize
	if int(body.NAcks) > 0 {
		if offset+int(body.NAcks) > len(pkt.Payload) {
			return c.abort("XSA", 0)
		}
		in.SoftAcks = make([]wire.AckSoftType, body.NAcks)
		for i := range in.SoftAcks {
			in.SoftAcks[i] = wire.AckSoftType(pkt.Payload[offset+i])
		}
	}

	infoOffset := wire.AckInfoOffset(0, body.NAcks)
	if len(pkt.Payload) >= infoOffset+wire.AckInfoSize {
		info, err := wire.UnmarshalAckInfo(pkt.Payload, infoOffset)
		if err != nil {
			return c.abort("XAI", 0)
		}
		if info.RxMTU != 0 {
			in.Info = info
		}
	}

	return c.ProcessAck(in)
}

func (c *Call) receiveAckAll(pkt Packet) error {
	top := c.Tx.Top()
	res := c.Tx.Rotate(top)
	c.applyRotate(res)
	if res.RotLast {
		return c.endTxPhase(false, "ETL")
	}
	return nil
}

func (c *Call) receiveAbort(pkt Packet) error {
	var code uint32
	if body, err := wire.UnmarshalAbortBody(pkt.Payload, 0); err == nil {
		code = body.Code
	}
	c.complete(CompleteRemoteAbort, code, errRemoteAbort)
	return nil
}

// ImplicitEndCall handles a new call number arriving on the same channel:
// the terminating packet is presented to this (old) call one last time,
// then the call is forced through to completion or aborted, per
// rxrpc_implicit_end_call.
func (c *Call) ImplicitEndCall(pkt Packet) error {
	if c.Phase().IsTerminal() {
		return nil
	}

	c.flags.Set(FlagIsDead)
	_ = c.Receive(pkt)

	switch c.Phase() {
	case ServerAwaitAck:
		c.complete(CompleteNormal, 0, nil)
	case CompleteNormal:
		// endTxPhase completed the call while handling pkt and has already
		// detached it from the connection.
		return nil
	case CompleteLocalAbort, CompleteRemoteAbort, CompleteNetworkError, CompleteExpired:
	default:
		if err := c.abort("IMP", 0); err != nil {
			c.log.Warn("improper call termination", zap.Error(err))
		}
	}

	if c.col.Conn != nil {
		c.col.Conn.DetachCall(c)
	}
	return nil
}
