package rxcall

import "testing"

func TestApplyRotatePublishesFlagsOnlyWhenLastRotated(t *testing.T) {
	f := &fakeCollab{}
	c := newTestCall(true, ClientSendRequest, f)
	queueSeqs(c, 2, false)

	res := c.Tx.Rotate(2)
	c.applyRotate(res)
	if c.flags.Has(FlagTxLast) {
		t.Fatal("FlagTxLast should not be set: no queued packet was marked Last")
	}
}

func TestEndTxPhaseBeforeTxLastErrors(t *testing.T) {
	f := &fakeCollab{}
	c := newTestCall(true, ClientSendRequest, f)

	if err := c.endTxPhase(false, "ETD"); err == nil {
		t.Fatal("endTxPhase should refuse to run before FlagTxLast is set")
	}
}

func TestEndTxPhaseServerAwaitAckCompletesAndDetaches(t *testing.T) {
	f := &fakeCollab{}
	c := newTestCall(false, ServerAwaitAck, f)
	c.flags.Set(FlagTxLast)

	if err := c.endTxPhase(false, "ETA"); err != nil {
		t.Fatalf("endTxPhase returned %v, want nil", err)
	}
	if c.Phase() != CompleteNormal {
		t.Fatalf("phase = %v, want CompleteNormal", c.Phase())
	}
	if !f.detached {
		t.Fatal("completing a call normally should detach it from the connection")
	}
	if len(f.completions) != 1 || f.completions[0].phase != CompleteNormal {
		t.Fatalf("expected one CompleteNormal completion, got %+v", f.completions)
	}
}

func TestEndTxPhaseWrongStateAborts(t *testing.T) {
	f := &fakeCollab{}
	c := newTestCall(false, ServerRecvRequest, f)
	c.flags.Set(FlagTxLast)

	if err := c.endTxPhase(false, "ETD"); err == nil {
		t.Fatal("endTxPhase from a state with no defined transition should abort")
	}
	if c.Phase() != CompleteLocalAbort {
		t.Fatalf("phase = %v, want CompleteLocalAbort", c.Phase())
	}
}

func TestReceivingReplyRotatesRemainderAndEndsTxPhase(t *testing.T) {
	f := &fakeCollab{}
	c := newTestCall(true, ClientSendRequest, f)
	queueSeqs(c, 3, true) // seq 3 carries Last

	if err := c.receivingReply(); err != nil {
		t.Fatalf("receivingReply returned %v, want nil", err)
	}
	if c.Phase() != ClientRecvReply {
		t.Fatalf("phase = %v, want ClientRecvReply", c.Phase())
	}
	if !c.flags.Has(FlagTxLast) {
		t.Fatal("FlagTxLast should be set once the remaining request packets are implicitly acked")
	}
	if got := len(c.Tx.Pending()); got != 0 {
		t.Fatalf("pending = %d, want 0 (everything rotated through the last packet)", got)
	}
}

func TestReceivingReplyAlreadyTxLastSkipsRotate(t *testing.T) {
	f := &fakeCollab{}
	c := newTestCall(true, ClientAwaitReply, f)
	c.flags.Set(FlagTxLast)

	if err := c.receivingReply(); err != nil {
		t.Fatalf("receivingReply returned %v, want nil", err)
	}
	if c.Phase() != ClientRecvReply {
		t.Fatalf("phase = %v, want ClientRecvReply", c.Phase())
	}
}
