package rxcall

import (
	"errors"
	"testing"
	"time"

	"github.com/relaywire/rxcall/internal/txwindow"
	"github.com/relaywire/rxcall/internal/wire"
)

func queueSeqs(c *Call, lastSeq uint32, withLast bool) {
	for seq := uint32(1); seq <= lastSeq; seq++ {
		c.Tx.Queue(&txwindow.TxBuf{Seq: seq, Last: withLast && seq == lastSeq})
	}
}

func TestProcessAckRotatesTxWindow(t *testing.T) {
	f := &fakeCollab{}
	c := newTestCall(true, ClientAwaitReply, f)
	queueSeqs(c, 3, false)

	err := c.ProcessAck(AckInput{FirstSoftAck: 3, Reason: wire.AckRequested, RecvTime: time.Now()})
	if err != nil {
		t.Fatalf("ProcessAck returned %v, want nil", err)
	}
	if c.Tx.HardAck() != 2 {
		t.Fatalf("HardAck = %d, want 2", c.Tx.HardAck())
	}
	if got := len(c.Tx.Pending()); got != 1 {
		t.Fatalf("pending = %d, want 1 (seq 3 not yet rotated)", got)
	}
	if f.resends != 0 {
		t.Fatalf("resends = %d, want 0 for a clean ack", f.resends)
	}
}

func TestProcessAckZeroFirstSoftAckAborts(t *testing.T) {
	f := &fakeCollab{}
	c := newTestCall(true, ClientAwaitReply, f)

	err := c.ProcessAck(AckInput{FirstSoftAck: 0, RecvTime: time.Now()})
	var pa *ProtoAbort
	if !errors.As(err, &pa) || pa.Why != "AK0" {
		t.Fatalf("err = %v, want ProtoAbort{Why: \"AK0\"}", err)
	}
	if c.Phase() != CompleteLocalAbort {
		t.Fatalf("phase = %v, want CompleteLocalAbort", c.Phase())
	}
}

func TestProcessAckIgnoresStaleAck(t *testing.T) {
	f := &fakeCollab{}
	c := newTestCall(true, ClientAwaitReply, f)
	queueSeqs(c, 5, false)

	if err := c.ProcessAck(AckInput{FirstSoftAck: 5, RecvTime: time.Now()}); err != nil {
		t.Fatalf("first ack failed: %v", err)
	}
	if c.Tx.HardAck() != 4 {
		t.Fatalf("HardAck = %d, want 4 after first ack", c.Tx.HardAck())
	}

	// A stale ack reporting an earlier FirstSoftAck than already recorded
	// must be silently dropped, per spec.md §4.4 step 5.
	if err := c.ProcessAck(AckInput{FirstSoftAck: 3, RecvTime: time.Now()}); err != nil {
		t.Fatalf("stale ack should be ignored, not erred: %v", err)
	}
	if c.Tx.HardAck() != 4 {
		t.Fatalf("HardAck = %d, want unchanged at 4 after a stale ack", c.Tx.HardAck())
	}
	if len(f.completions) != 0 {
		t.Fatalf("stale ack should not complete the call: %+v", f.completions)
	}
}

func TestProcessAckExceedsWindowTriggersNetReset(t *testing.T) {
	f := &fakeCollab{}
	c := newTestCall(true, ClientSendRequest, f)

	err := c.ProcessAck(AckInput{Reason: wire.AckExceedsWindow, FirstSoftAck: 1, PrevPkt: 0, RecvTime: time.Now()})
	if err != nil {
		t.Fatalf("ProcessAck returned %v, want nil (completion, not an abort)", err)
	}
	if c.Phase() != CompleteRemoteAbort {
		t.Fatalf("phase = %v, want CompleteRemoteAbort", c.Phase())
	}
	if len(f.completions) != 1 || !errors.Is(f.completions[0].err, errNetReset) {
		t.Fatalf("completions = %+v, want one errNetReset completion", f.completions)
	}
}

func TestProcessAckRotationThroughLastEndsTxPhase(t *testing.T) {
	f := &fakeCollab{}
	c := newTestCall(true, ClientSendRequest, f)
	queueSeqs(c, 1, true)

	err := c.ProcessAck(AckInput{FirstSoftAck: 2, RecvTime: time.Now()})
	if err != nil {
		t.Fatalf("ProcessAck returned %v, want nil", err)
	}
	if c.Phase() != ClientAwaitReply {
		t.Fatalf("phase = %v, want ClientAwaitReply after the Tx phase ends", c.Phase())
	}
	if !c.flags.Has(FlagTxLast) {
		t.Fatal("FlagTxLast should be set once rotation reaches the last packet")
	}
	if f.detached {
		t.Fatal("ending the Tx phase on a client should not detach the call yet")
	}
}

func TestProcessAckRttSampleFedToPeer(t *testing.T) {
	f := &fakeCollab{}
	c := newTestCall(true, ClientAwaitReply, f)

	sentAt := time.Now()
	idx, ok := c.RTT.Start(42, sentAt)
	if !ok || idx < 0 {
		t.Fatalf("Start failed: idx=%d ok=%v", idx, ok)
	}

	respAt := sentAt.Add(20 * time.Millisecond)
	err := c.ProcessAck(AckInput{
		Reason:      wire.AckPingResponse,
		AckedSerial: 42,
		FirstSoftAck: 1,
		RecvTime:   respAt,
	})
	if err != nil {
		t.Fatalf("ProcessAck returned %v, want nil", err)
	}
	if len(f.rtts) != 1 {
		t.Fatalf("expected one RTT sample fed to the peer, got %d", len(f.rtts))
	}
	if f.rtts[0] != 20*time.Millisecond {
		t.Errorf("RTT sample = %v, want 20ms", f.rtts[0])
	}
}
