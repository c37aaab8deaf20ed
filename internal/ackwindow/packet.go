package ackwindow

import "github.com/relaywire/rxcall/internal/wire"

// Packet is the minimal view of an inbound DATA packet (or jumbo subpacket)
// that the receive window needs: everything else (security, scheduling,
// user delivery) is handled by collaborators above this package.
type Packet struct {
	Seq     uint32
	Serial  uint32
	Flags   wire.Flags
	Payload []byte
}

// SACKSize is the fixed size of the selective-ACK bitmap and the cap on the
// out-of-order queue; must be a power of two at least as large as the
// largest supported receive window.
const SACKSize = 256
