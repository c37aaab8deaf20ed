package rxcall

import (
	"time"

	"github.com/relaywire/rxcall/internal/wire"
)

// This file declares the collaborator interfaces a Call depends on but does
// not implement itself: socket I/O, connection/peer registries, crypto key
// derivation, packet scheduling, the user-facing receive API, timers,
// stats, tracing, and decryption. Exactly one of these (TraceSink) has a
// real implementation in this module, in internal/tracing; StatsSink has a
// default in-memory implementation in internal/statssink. Everything else
// is wired by whatever embeds this engine (a real UDP socket, a real
// connection table, a real security class), per spec.md §2's ownership
// boundary: this package is the receive-side protocol engine of a single
// call, not a transport.

// ActionSink is how the engine asks its host to actually put bytes on the
// wire: send an ACK, an abort, or trigger a resend of buffered DATA.
type ActionSink interface {
	SendAck(call *Call, reason wire.AckReason, serial uint32) error
	SendAbort(call *Call, code uint32) error
	Resend(call *Call) error
	ProposePing(call *Call, serial uint32) error
	ProposeDelayAck(call *Call, serial uint32) error
}

// PeerHandle exposes the peer state the receive path consults and updates:
// the smoothed RTT estimate, how many samples fed it, and new RTT samples;
// and the negotiated MTU ceiling, which ackinfo may lower.
type PeerHandle interface {
	SRTT() time.Duration
	RTTCount() int
	AddRTT(sample time.Duration)
	MaxData() uint32
	SetMaxData(uint32)
}

// ConnectionHandle is the slice of the owning connection the engine needs:
// detaching a call when it completes normally at the end of its Tx phase
// or is implicitly ended.
type ConnectionHandle interface {
	DetachCall(call *Call)
}

// KeyDeriver abstracts the per-call security class's key derivation
// capability: base is the session/connection key, constant selects the
// usage (e.g. per-direction, per-packet-type) the way rfc3961_simplified.c's
// KRB5 key-derivation function does, and length is the output key size in
// bytes. This engine never touches raw key material itself.
type KeyDeriver interface {
	Derive(base []byte, constant uint32, length int) ([]byte, error)
}

// SecurityDecryptor decrypts (or verifies the checksum of) a DATA packet's
// payload in place, given the securityIndex carried in its header.
type SecurityDecryptor interface {
	Decrypt(securityIndex uint8, seq uint32, payload []byte) error
}

// PacketScheduler is consulted by the DATA path, before decrypting a
// packet whose SecurityIndex is non-zero, to decide whether the packet's
// buffer may be mutated in place or must be cloned first, per spec.md
// §4.6's "unique ownership before decryption" rule.
type PacketScheduler interface {
	CloneIfShared(payload []byte) []byte
}

// UserNotifier delivers in-order packets to whatever is reading the call
// (a blocking Recv call, a channel, a callback).
type UserNotifier interface {
	NotifyData(call *Call, seq uint32, payload []byte, last bool)
	NotifyCompletion(call *Call, phase Phase, abortCode uint32, err error)
}

// TimerHooks lets the engine refresh the call's receive-activity and
// resend timers without owning a goroutine itself.
type TimerHooks interface {
	ResetReceiveTimer(call *Call, timeout time.Duration)
	ResetResendTimer(call *Call, timeout time.Duration)
}

// StatsSink accumulates the named counters the receive path bumps (see
// internal/statssink for the default in-memory implementation).
type StatsSink interface {
	Inc(name string)
	Add(name string, n uint64)
}

// TraceSink records named receive-path events for tracing/observability
// (see internal/tracing for the otel-backed implementation).
type TraceSink interface {
	Event(name string, attrs map[string]any)
}
