package wire

import "testing"

func TestHeaderRoundTrip(t *testing.T) {
	h := &PacketHeader{
		Type:          TypeData,
		Flags:         FlagRequestAck | FlagJumbo,
		SecurityIndex: 2,
		Seq:           1001,
		Serial:        42,
		ServiceID:     7,
	}

	parsed, err := UnmarshalHeader(h.Marshal())
	if err != nil {
		t.Fatalf("UnmarshalHeader failed: %v", err)
	}
	if *parsed != *h {
		t.Errorf("round trip mismatch: got %+v, want %+v", parsed, h)
	}
}

func TestHeaderTooShort(t *testing.T) {
	if _, err := UnmarshalHeader(make([]byte, HeaderSize-1)); err == nil {
		t.Error("expected error unmarshaling a short header")
	}
}

func TestAckBodyRoundTripAndInvalidReason(t *testing.T) {
	b := &AckBody{Serial: 9, FirstPacket: 5, PreviousPacket: 4, Reason: AckDelay, NAcks: 3}
	parsed, err := UnmarshalAckBody(b.Marshal(), 0)
	if err != nil {
		t.Fatalf("UnmarshalAckBody failed: %v", err)
	}
	if *parsed != *b {
		t.Errorf("round trip mismatch: got %+v, want %+v", parsed, b)
	}

	raw := b.Marshal()
	raw[12] = 200 // out-of-range reason byte
	parsed2, err := UnmarshalAckBody(raw, 0)
	if err != nil {
		t.Fatalf("UnmarshalAckBody failed: %v", err)
	}
	if parsed2.Reason != AckInvalid {
		t.Errorf("out-of-range reason byte should parse as AckInvalid, got %v", parsed2.Reason)
	}
}

func TestAckInfoOffset(t *testing.T) {
	// ackBodyOffset=16 (after a PacketHeader), nAcks=5: ack body (14) + 5 acks + 3 padding.
	got := AckInfoOffset(HeaderSize, 5)
	want := HeaderSize + AckBodySize + 5 + 3
	if got != want {
		t.Errorf("AckInfoOffset = %d, want %d", got, want)
	}
}

func TestJumboHeaderRoundTrip(t *testing.T) {
	j := &JumboHeader{Flags: FlagLast, Reserved: 0}
	parsed, err := UnmarshalJumboHeader(j.Marshal(), 0)
	if err != nil {
		t.Fatalf("UnmarshalJumboHeader failed: %v", err)
	}
	if *parsed != *j {
		t.Errorf("round trip mismatch: got %+v, want %+v", parsed, j)
	}
}
