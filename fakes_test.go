package rxcall

import (
	"time"

	"github.com/relaywire/rxcall/internal/wire"
	"github.com/relaywire/rxcall/pkg/guuid"
)

// fakeCollab is a single recording stand-in for every collaborator
// interface the root package exercises in its own tests, in the teacher's
// plain hand-rolled-fake style (no mocking library anywhere in the pack).
type fakeCollab struct {
	acks        []ackSent
	aborts      []uint32
	resends     int
	pings       []uint32
	delayAcks   []uint32
	delivered   []dataDelivered
	completions []completion
	detached    bool

	srtt     time.Duration
	rttCount int
	rtts     []time.Duration
	maxData  uint32
}

type ackSent struct {
	reason wire.AckReason
	serial uint32
}

type dataDelivered struct {
	seq  uint32
	data []byte
	last bool
}

type completion struct {
	phase     Phase
	abortCode uint32
	err       error
}

func (f *fakeCollab) SendAck(call *Call, reason wire.AckReason, serial uint32) error {
	f.acks = append(f.acks, ackSent{reason, serial})
	return nil
}
func (f *fakeCollab) SendAbort(call *Call, code uint32) error { f.aborts = append(f.aborts, code); return nil }
func (f *fakeCollab) Resend(call *Call) error                 { f.resends++; return nil }
func (f *fakeCollab) ProposePing(call *Call, serial uint32) error {
	f.pings = append(f.pings, serial)
	return nil
}
func (f *fakeCollab) ProposeDelayAck(call *Call, serial uint32) error {
	f.delayAcks = append(f.delayAcks, serial)
	return nil
}

func (f *fakeCollab) SRTT() time.Duration           { return f.srtt }
func (f *fakeCollab) RTTCount() int                 { return f.rttCount }
func (f *fakeCollab) AddRTT(sample time.Duration)   { f.rtts = append(f.rtts, sample) }
func (f *fakeCollab) MaxData() uint32               { return f.maxData }
func (f *fakeCollab) SetMaxData(n uint32)           { f.maxData = n }

func (f *fakeCollab) DetachCall(call *Call) { f.detached = true }

func (f *fakeCollab) NotifyData(call *Call, seq uint32, payload []byte, last bool) {
	f.delivered = append(f.delivered, dataDelivered{seq, payload, last})
}
func (f *fakeCollab) NotifyCompletion(call *Call, phase Phase, abortCode uint32, err error) {
	f.completions = append(f.completions, completion{phase, abortCode, err})
}

func newTestCall(isClient bool, start Phase, f *fakeCollab) *Call {
	col := Collaborators{Actions: f, Peer: f, Conn: f, Notifier: f}
	return New(guuid.Zero(), 1, isClient, start, nil, col, nil)
}
