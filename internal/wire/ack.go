package wire

import (
	"encoding/binary"
	"fmt"
)

// AckReason is both the wire `reason` byte of an inbound ACK and the tag
// used when the receive path itself proposes an outbound ACK.
type AckReason uint8

const (
	AckRequested AckReason = iota
	AckDuplicate
	AckOutOfSequence
	AckExceedsWindow
	AckNoSpace
	AckPing
	AckPingResponse
	AckDelay
	// AckInvalid is the sentinel for a reason byte outside the known range;
	// ack processing still runs, but congestion/RTT code treats it as opaque.
	AckInvalid
)

func (r AckReason) String() string {
	switch r {
	case AckRequested:
		return "REQUESTED"
	case AckDuplicate:
		return "DUPLICATE"
	case AckOutOfSequence:
		return "OUT_OF_SEQUENCE"
	case AckExceedsWindow:
		return "EXCEEDS_WINDOW"
	case AckNoSpace:
		return "NOSPACE"
	case AckPing:
		return "PING"
	case AckPingResponse:
		return "PING_RESPONSE"
	case AckDelay:
		return "DELAY"
	default:
		return "INVALID"
	}
}

// AckSoftType is the per-seq byte in the soft-ACK array: 1 means ACK, any
// other value means NACK.
type AckSoftType uint8

const AckSoftAck AckSoftType = 1

// AckBodySize is the fixed portion of the ACK body, before the nAcks array.
const AckBodySize = 4 + 4 + 4 + 1 + 1

// AckBody is the fixed portion of an ACK packet's payload, following the
// common PacketHeader.
type AckBody struct {
	Serial         uint32 // acked_serial: the serial this ACK is acknowledging
	FirstPacket    uint32 // first soft-ACK'd/NAK'd seq in the Acks array
	PreviousPacket uint32 // soft-ACK anchor, or a serial number on some peers
	Reason         AckReason
	NAcks          uint8
}

// UnmarshalAckBody parses the fixed ACK body starting at offset in data.
func UnmarshalAckBody(data []byte, offset int) (*AckBody, error) {
	if len(data) < offset+AckBodySize {
		return nil, fmt.Errorf("wire: packet too small for ack body: need %d bytes at offset %d, got %d", AckBodySize, offset, len(data))
	}
	reason := data[offset+12]
	r := AckReason(reason)
	if r > AckDelay {
		r = AckInvalid
	}
	return &AckBody{
		Serial:         binary.BigEndian.Uint32(data[offset : offset+4]),
		FirstPacket:    binary.BigEndian.Uint32(data[offset+4 : offset+8]),
		PreviousPacket: binary.BigEndian.Uint32(data[offset+8 : offset+12]),
		Reason:         r,
		NAcks:          data[offset+13],
	}, nil
}

// Marshal serializes the fixed ACK body (the nAcks array is appended by the
// caller, since its content comes from the receive window's SACK state).
func (b *AckBody) Marshal() []byte {
	buf := make([]byte, AckBodySize)
	binary.BigEndian.PutUint32(buf[0:4], b.Serial)
	binary.BigEndian.PutUint32(buf[4:8], b.FirstPacket)
	binary.BigEndian.PutUint32(buf[8:12], b.PreviousPacket)
	buf[12] = uint8(b.Reason)
	buf[13] = b.NAcks
	return buf
}

// AckInfoSize is the size in bytes of the optional ackinfo extension.
const AckInfoSize = 4 + 4 + 4 + 4

// AckInfo is the optional extension carried after the nAcks array and its
// 3 padding bytes, advertising the peer's MTU and receive-window sizing.
type AckInfo struct {
	RxMTU    uint32
	MaxMTU   uint32
	RWind    uint32
	JumboMax uint32
}

// AckInfoOffset returns the byte offset of the ackinfo extension within an
// ACK packet's payload, given the offset of the ack body and nAcks.
func AckInfoOffset(ackBodyOffset int, nAcks uint8) int {
	return ackBodyOffset + AckBodySize + int(nAcks) + 3
}

// UnmarshalAckInfo parses the ackinfo extension if data is long enough to
// hold it at the given offset; the caller is expected to have checked
// length first per spec.md §4.4 step 7.
func UnmarshalAckInfo(data []byte, offset int) (*AckInfo, error) {
	if len(data) < offset+AckInfoSize {
		return nil, fmt.Errorf("wire: packet too small for ackinfo: need %d bytes at offset %d, got %d", AckInfoSize, offset, len(data))
	}
	return &AckInfo{
		RxMTU:    binary.BigEndian.Uint32(data[offset : offset+4]),
		MaxMTU:   binary.BigEndian.Uint32(data[offset+4 : offset+8]),
		RWind:    binary.BigEndian.Uint32(data[offset+8 : offset+12]),
		JumboMax: binary.BigEndian.Uint32(data[offset+12 : offset+16]),
	}, nil
}

// Marshal serializes the ackinfo extension.
func (i *AckInfo) Marshal() []byte {
	buf := make([]byte, AckInfoSize)
	binary.BigEndian.PutUint32(buf[0:4], i.RxMTU)
	binary.BigEndian.PutUint32(buf[4:8], i.MaxMTU)
	binary.BigEndian.PutUint32(buf[8:12], i.RWind)
	binary.BigEndian.PutUint32(buf[12:16], i.JumboMax)
	return buf
}

// AbortBody is the payload of an ABORT packet: a single big-endian abort code.
type AbortBody struct {
	Code uint32
}

// UnmarshalAbortBody parses the abort code at the given offset (normally
// immediately after the common PacketHeader). A short packet is tolerated
// by the caller, which falls back to a default code per spec.md §4.6.
func UnmarshalAbortBody(data []byte, offset int) (*AbortBody, error) {
	if len(data) < offset+4 {
		return nil, fmt.Errorf("wire: packet too small for abort body: need 4 bytes at offset %d, got %d", offset, len(data))
	}
	return &AbortBody{Code: binary.BigEndian.Uint32(data[offset : offset+4])}, nil
}

// Marshal serializes the abort code.
func (a *AbortBody) Marshal() []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, a.Code)
	return buf
}
