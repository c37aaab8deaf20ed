// Package wire implements the bit-exact packet formats consumed by the
// receive path: the common packet header, the ACK body and its optional
// ackinfo extension, the ABORT body, and the jumbo subpacket header. All
// multi-byte fields are big-endian, matching the RxRPC wire layout in
// spec.md §6.
package wire

import (
	"encoding/binary"
	"fmt"
)

// PacketType identifies the kind of packet a header describes.
type PacketType uint8

const (
	TypeData PacketType = iota + 1
	TypeAck
	TypeBusy
	TypeAbort
	TypeAckAll
)

func (t PacketType) String() string {
	switch t {
	case TypeData:
		return "DATA"
	case TypeAck:
		return "ACK"
	case TypeBusy:
		return "BUSY"
	case TypeAbort:
		return "ABORT"
	case TypeAckAll:
		return "ACKALL"
	default:
		return "UNKNOWN"
	}
}

// Flags are the per-packet control bits carried in the header.
type Flags uint8

const (
	// FlagRequestAck asks the peer to acknowledge this packet immediately.
	FlagRequestAck Flags = 1 << iota
	// FlagJumbo marks this DATA packet as a concatenation of fixed-length
	// subpackets followed by a non-jumbo tail.
	FlagJumbo
	// FlagLast marks the final packet of this direction of the call.
	FlagLast
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// HeaderSize is the fixed size in bytes of PacketHeader on the wire.
const HeaderSize = 16

// PacketHeader is the common header present on every packet type.
type PacketHeader struct {
	Type          PacketType
	Flags         Flags
	SecurityIndex uint8
	Seq           uint32
	Serial        uint32
	ServiceID     uint16
}

// Marshal serializes the header into a newly allocated HeaderSize-byte slice.
func (h *PacketHeader) Marshal() []byte {
	buf := make([]byte, HeaderSize)
	buf[0] = uint8(h.Type)
	buf[1] = uint8(h.Flags)
	buf[2] = h.SecurityIndex
	binary.BigEndian.PutUint32(buf[4:8], h.Seq)
	binary.BigEndian.PutUint32(buf[8:12], h.Serial)
	binary.BigEndian.PutUint16(buf[12:14], h.ServiceID)
	return buf
}

// UnmarshalHeader parses the fixed header from the front of data.
func UnmarshalHeader(data []byte) (*PacketHeader, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("wire: packet too small for header: need %d bytes, got %d", HeaderSize, len(data))
	}
	return &PacketHeader{
		Type:          PacketType(data[0]),
		Flags:         Flags(data[1]),
		SecurityIndex: data[2],
		Seq:           binary.BigEndian.Uint32(data[4:8]),
		Serial:        binary.BigEndian.Uint32(data[8:12]),
		ServiceID:     binary.BigEndian.Uint16(data[12:14]),
	}, nil
}
