package rxcall

import (
	"errors"
	"fmt"
)

// errNetReset is reported when an EXCEEDS_WINDOW or OUT_OF_SEQUENCE ACK
// arrives from a server that evidently lost the call after a NAT remap, per
// spec.md §4.4 step 4.
var errNetReset = errors.New("rxcall: call reset by peer, likely after a NAT address change")

// errRemoteAbort is reported to the user when an ABORT packet arrives from
// the peer, per rxrpc_abort_call in the original source.
var errRemoteAbort = errors.New("rxcall: call aborted by peer")

// ProtoAbort is a protocol-level abort: the call is terminated locally and
// an ABORT packet should go out to the peer, per rxrpc_proto_abort in the
// original source. Why is the short tag used throughout spec.md §4 (e.g.
// "LSN", "VLD") so logs and traces can cross-reference it directly.
type ProtoAbort struct {
	Why string
	Seq uint32
}

func (e *ProtoAbort) Error() string {
	return fmt.Sprintf("rxcall: protocol abort %q at seq %d", e.Why, e.Seq)
}

func abortf(why string, seq uint32) error { return &ProtoAbort{Why: why, Seq: seq} }
