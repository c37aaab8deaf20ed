package ackwindow

import "github.com/relaywire/rxcall/internal/wire"

// SplitJumbo walks a jumbo DATA packet's payload into its fixed-length
// subpackets plus a trailing tail subpacket, admitting each one in turn,
// per spec.md §4.3 and rxrpc_receive_split_jumbo in the original source.
//
// Each subpacket but the tail must be exactly wire.JumboSubpacketLen bytes
// (JumboDataLen of data followed by a wire.JumboHeader trailer carrying the
// next subpacket's flags); a short subpacket, or any non-tail subpacket
// that itself carries FlagLast, is malformed and reported as ErrVLD.
//
// The caller must check JumboRefused before calling SplitJumbo: once the
// anti-DoS threshold has been crossed, jumbo packets are refused wholesale
// and never reach the splitter.
//
// rxLastAlreadySet mirrors checkLastPacket's role for the non-jumbo path:
// every subpacket runs the LSA check against it before being admitted, and
// the tail, the only subpacket a jumbo datagram can mark FlagLast on (a
// non-tail subpacket carrying it is already rejected above as ErrVLD), runs
// the LSN check when it carries FlagLast. tailIsLast reports whether the
// caller must publish FlagRxLast once this returns without error.
func (w *Window) SplitJumbo(pkt *Packet, rxLastAlreadySet bool) (results []AdmitResult, tailIsLast bool, err error) {
	data := pkt.Payload
	flags := pkt.Flags
	seq := pkt.Seq
	serial := pkt.Serial
	offset := 0

	var jumboBad bool

	for flags.Has(wire.FlagJumbo) {
		if len(data)-offset < wire.JumboSubpacketLen {
			return nil, false, ErrVLD
		}
		if flags.Has(wire.FlagLast) {
			return nil, false, ErrVLD
		}

		jh, uerr := wire.UnmarshalJumboHeader(data, offset+wire.JumboDataLen)
		if uerr != nil {
			return nil, false, ErrVLD
		}

		// A non-tail subpacket is never itself the last packet (FlagLast
		// there is already rejected above), but it can still land beyond an
		// already-established last packet, per receive.c's LSA check on
		// every admitted subpacket, not just the tail.
		if verr := w.ValidateLastPacket(seq, false, rxLastAlreadySet); verr != nil {
			return nil, false, verr
		}

		sub := &Packet{Seq: seq, Serial: serial, Flags: flags, Payload: data[offset : offset+wire.JumboDataLen]}
		results = append(results, w.Admit(sub, &jumboBad))

		flags = jh.Flags
		seq++
		serial++
		offset += wire.JumboSubpacketLen
	}

	tailIsLast = flags.Has(wire.FlagLast)
	if verr := w.ValidateLastPacket(seq, tailIsLast, rxLastAlreadySet); verr != nil {
		return nil, false, verr
	}

	tail := &Packet{Seq: seq, Serial: serial, Flags: flags, Payload: data[offset:]}
	results = append(results, w.Admit(tail, &jumboBad))

	return results, tailIsLast, nil
}
