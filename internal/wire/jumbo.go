package wire

import (
	"encoding/binary"
	"fmt"
)

// JumboDataLen is the fixed payload size of each subpacket inside a jumbo
// DATA packet.
const JumboDataLen = 1412

// JumboHeaderSize is the size of the per-subpacket trailer: flags + 2
// reserved bytes.
const JumboHeaderSize = 3

// JumboSubpacketLen is the total size on the wire of one jumbo subpacket:
// its data portion plus its trailing header.
const JumboSubpacketLen = JumboDataLen + JumboHeaderSize

// JumboHeader is the per-subpacket trailer following each subpacket's
// JumboDataLen bytes, carrying the flags and implicit seq/serial increment
// for the next subpacket (or the tail).
type JumboHeader struct {
	Flags   Flags
	Reserved uint16
}

// UnmarshalJumboHeader parses a JumboHeader at the given offset.
func UnmarshalJumboHeader(data []byte, offset int) (*JumboHeader, error) {
	if len(data) < offset+JumboHeaderSize {
		return nil, fmt.Errorf("wire: packet too small for jumbo header at offset %d", offset)
	}
	return &JumboHeader{
		Flags:    Flags(data[offset]),
		Reserved: binary.BigEndian.Uint16(data[offset+1 : offset+3]),
	}, nil
}

// Marshal serializes the jumbo subpacket trailer.
func (j *JumboHeader) Marshal() []byte {
	buf := make([]byte, JumboHeaderSize)
	buf[0] = uint8(j.Flags)
	binary.BigEndian.PutUint16(buf[1:3], j.Reserved)
	return buf
}
