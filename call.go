// Package rxcall implements the receive-side protocol engine of a single
// RxRPC-style call: sequence arithmetic, the receive and transmit windows,
// RTT probing, congestion control, and the phase state machine that ties
// them together, per spec.md. It is grounded on the top-level Connection
// type in Lzww0608-AetherFlow/internal/quantum/connection.go (a
// State-enum/Config/zap-logger-injected struct with collaborator fields)
// generalized to a single call rather than a whole multiplexed connection,
// and on rxrpc_receive_call_packet/rxrpc_receive_ack/rxrpc_congestion_management
// in the original source for the dispatch and ACK-processing semantics.
package rxcall

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/relaywire/rxcall/internal/ackwindow"
	"github.com/relaywire/rxcall/internal/congestion"
	"github.com/relaywire/rxcall/internal/rttprobe"
	"github.com/relaywire/rxcall/internal/txwindow"
	"github.com/relaywire/rxcall/pkg/guuid"
)

// Config configures a Call's window sizes and congestion tuning. Matches
// the teacher's Config/DefaultConfig constructor pattern.
type Config struct {
	RxWinSize     uint32
	TxWinSize     uint32
	NextRxTimeout time.Duration
	Congestion    *congestion.Config
}

// DefaultConfig returns the engine's default tuning.
func DefaultConfig() *Config {
	return &Config{
		RxWinSize:     32,
		TxWinSize:     32,
		NextRxTimeout: 65 * time.Second,
		Congestion:    congestion.DefaultConfig(),
	}
}

// Collaborators bundles every external dependency a Call needs but does not
// implement itself (see collaborators.go). Fields left nil are simply not
// exercised by the operations that would have used them; ActionSink and
// UserNotifier are the only two expected on every call.
type Collaborators struct {
	Actions     ActionSink
	Peer        PeerHandle
	Conn        ConnectionHandle
	Keys        KeyDeriver
	Decryptor   SecurityDecryptor
	Scheduler   PacketScheduler
	Notifier    UserNotifier
	Timers      TimerHooks
	Stats       StatsSink
	Trace       TraceSink
}

// Call is one RxRPC-style call's receive-side engine. A Call exclusively
// owns its AckWindow, TxWindow, RttProbes, and Congestion state (spec.md
// §5's ownership model) — packets entering the receive path are either
// consumed or passed through, never shared.
type Call struct {
	ID        guuid.GUUID
	ServiceID uint16
	IsClient  bool

	mu    sync.Mutex // guards phase and the acks_* bookkeeping below
	phase Phase

	flags Flags

	Window *ackwindow.Window
	Tx     *txwindow.Window
	RTT    *rttprobe.Table
	Cong   *congestion.Controller

	rxSerial uint32 // highest serial seen across any packet type on this call

	// ACK bookkeeping (acks_first_seq, acks_prev_seq, acks_highest_serial,
	// acks_latest_ts in the original source).
	acksFirstSeq      uint32
	acksPrevSeq       uint32
	acksHighestSerial uint32
	acksLowestNak     uint32
	acksLatestTS      time.Time

	txLastSent time.Time

	cfg *Config
	col Collaborators

	log *zap.Logger
}

// New creates a Call in the given starting phase (ClientSendRequest or
// ServerRecvRequest, typically) with the given config (nil uses
// DefaultConfig) and collaborators.
func New(id guuid.GUUID, serviceID uint16, isClient bool, start Phase, cfg *Config, col Collaborators, log *zap.Logger) *Call {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfgCopy := *cfg
	if cfgCopy.Congestion != nil {
		congCopy := *cfgCopy.Congestion
		cfgCopy.Congestion = &congCopy
	}
	cfg = &cfgCopy
	if log == nil {
		log = zap.NewNop()
	}
	return &Call{
		ID:        id,
		ServiceID: serviceID,
		IsClient:  isClient,
		phase:     start,
		Window:    ackwindow.New(cfg.RxWinSize),
		Tx:        txwindow.New(),
		RTT:       rttprobe.New(),
		Cong:      congestion.New(cfg.Congestion),
		cfg:       cfg,
		col:       col,
		log:       log.With(zap.String("call_id", id.String())),
	}
}

// Phase returns the call's current phase.
func (c *Call) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Call) setPhase(p Phase) {
	c.phase = p
}

func (c *Call) statInc(name string) {
	if c.col.Stats != nil {
		c.col.Stats.Inc(name)
	}
}

func (c *Call) trace(name string, attrs map[string]any) {
	if c.col.Trace != nil {
		c.col.Trace.Event(name, attrs)
	}
}

// abort transitions the call to a local protocol-abort terminal state and
// asks the action sink to send an ABORT packet, per rxrpc_proto_abort.
func (c *Call) abort(why string, seq uint32) error {
	c.mu.Lock()
	c.setPhase(CompleteLocalAbort)
	c.mu.Unlock()

	c.log.Warn("protocol abort", zap.String("why", why), zap.Uint32("seq", seq))
	c.statInc("proto_abort_" + why)
	if c.col.Actions != nil {
		_ = c.col.Actions.SendAbort(c, 0)
	}
	if c.col.Notifier != nil {
		c.col.Notifier.NotifyCompletion(c, CompleteLocalAbort, 0, abortf(why, seq))
	}
	return abortf(why, seq)
}

// complete transitions the call to a terminal state and notifies the user,
// without sending anything further on the wire.
func (c *Call) complete(p Phase, abortCode uint32, err error) {
	c.mu.Lock()
	c.setPhase(p)
	c.mu.Unlock()

	if c.col.Notifier != nil {
		c.col.Notifier.NotifyCompletion(c, p, abortCode, err)
	}
}
