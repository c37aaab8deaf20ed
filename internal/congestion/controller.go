// Package congestion implements the four-state TCP-style congestion
// controller [RFC 5681] driven by the AckSummary produced by ACK
// processing, per spec.md §4.5 and rxrpc_congestion_management in the
// original source. It is grounded on the shape of
// Lzww0608-AetherFlow/internal/quantum/bbr.BBR (a mutex-guarded struct with
// a String()-able State enum, a Config/DefaultConfig constructor pair, and
// a Statistics() snapshot map) though the state machine itself is the
// kernel's slow-start/congestion-avoidance/packet-loss/fast-retransmit
// scheme, not BBR's bandwidth-probing model.
package congestion

import (
	"sync"
	"time"
)

// Mode is one of the controller's four states.
type Mode int

const (
	SlowStart Mode = iota
	CongestAvoidance
	PacketLoss
	FastRetransmit
)

func (m Mode) String() string {
	switch m {
	case SlowStart:
		return "SLOW_START"
	case CongestAvoidance:
		return "CONGEST_AVOIDANCE"
	case PacketLoss:
		return "PACKET_LOSS"
	case FastRetransmit:
		return "FAST_RETRANSMIT"
	default:
		return "UNKNOWN"
	}
}

// Config holds the tunables of the controller.
type Config struct {
	InitialCwnd     int
	InitialSsthresh int
	SMSS            int // sender maximum segment size, used by the idle-reset thresholds
	TxMaxWindow     int
}

// DefaultConfig returns the controller's default tuning.
func DefaultConfig() *Config {
	return &Config{
		InitialCwnd:     2,
		InitialSsthresh: 1 << 30,
		SMSS:            1412,
		TxMaxWindow:     256,
	}
}

// Summary is the per-ACK input to Manage, assembled by ACK processing
// (spec.md §4.4) from the soft-ACK scan and the Tx rotation it just ran.
type Summary struct {
	NrAcks       int
	NrNewAcks    int
	NrRotNewAcks int
	SawNacks     bool
	NewLowNack   bool

	// RetransTimeout reports a test-and-cleared RETRANS_TIMEOUT flag: the
	// caller must clear its own flag exactly once per timeout and report it
	// here exactly once.
	RetransTimeout bool

	TxTop   uint32
	HardAck uint32

	// TxLastSet reports whether the call's TX_LAST flag is already set
	// (hard-ACK rotation has passed the final outbound packet), used by the
	// send-extra check below.
	TxLastSet bool
}

// Result is the outcome of one Manage call.
type Result struct {
	Mode   Mode
	Cwnd   int
	Resend bool // the caller should retransmit now
	Extra  int  // cumulative cong_extra: previously-unsent DATA to release
}

// Controller is the per-call congestion state. The zero value is not
// usable; construct with New.
type Controller struct {
	mu sync.Mutex

	cfg *Config

	mode      Mode
	cwnd      int
	ssthresh  int
	dupAcks   int
	cumulAcks int
	extra     int
	tstamp    time.Time
}

// New creates a Controller in SLOW_START with the given config (nil uses
// DefaultConfig).
func New(cfg *Config) *Controller {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Controller{
		cfg:      cfg,
		mode:     SlowStart,
		cwnd:     cfg.InitialCwnd,
		ssthresh: cfg.InitialSsthresh,
	}
}

// LowerSsthresh pulls cong_ssthresh down to rwind if rwind is smaller, per
// spec.md §4.4 Step 7 and receive.c's
// "if (call->cong_ssthresh > rwind) call->cong_ssthresh = rwind".
func (c *Controller) LowerSsthresh(rwind int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ssthresh > rwind {
		c.ssthresh = rwind
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Manage runs one pass of the congestion state machine, per spec.md §4.5.
// now is the ACK's receive time; txLastSent is the time the last DATA
// packet went out; srtt and rttCount come from the peer's RTT estimator
// (internal/rttprobe feeds the estimator the caller owns).
func (c *Controller) Manage(now, txLastSent time.Time, srtt time.Duration, rttCount int, s Summary) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	flightSize := int(int32(s.TxTop-s.HardAck)) - s.NrAcks

	if s.RetransTimeout {
		c.ssthresh = maxInt(flightSize/2, 2)
		c.cwnd = 1
		if c.cwnd >= c.ssthresh && c.mode == SlowStart {
			c.mode = CongestAvoidance
			c.tstamp = now
			c.cumulAcks = 0
		}
	}

	c.cumulAcks += s.NrNewAcks + s.NrRotNewAcks
	if c.cumulAcks > 255 {
		c.cumulAcks = 255
	}

	// Idle reset: if nothing has gone out for more than one RTT, start over
	// from slow start with a fresh initial window (spec.md §4.5); unlike the
	// kernel's tracing-only snapshot, this is committed to live state.
	if (c.mode == SlowStart || c.mode == CongestAvoidance) && now.After(txLastSent.Add(srtt)) {
		c.mode = SlowStart
		switch {
		case c.cfg.SMSS > 2190:
			c.cwnd = 2
		case c.cfg.SMSS > 1095:
			c.cwnd = 3
		default:
			c.cwnd = 4
		}
	}

	clearCumulative := true
	sendExtraData := false
	resend := false

	switch c.mode {
	case SlowStart:
		if s.SawNacks {
			c.mode = PacketLoss
			c.dupAcks = 0
			clearCumulative = false
			sendExtraData = true
			break
		}
		if c.cumulAcks > 0 {
			c.cwnd++
		}
		if c.cwnd >= c.ssthresh {
			c.mode = CongestAvoidance
			c.tstamp = now
		}

	case CongestAvoidance:
		switch {
		case s.SawNacks:
			c.mode = PacketLoss
			c.dupAcks = 0
			clearCumulative = false
			sendExtraData = true
		case rttCount == 0:
			// nothing to measure against yet; fall through to clear+clamp.
		case now.Before(c.tstamp.Add(srtt)):
			clearCumulative = false
		default:
			c.tstamp = now
			if c.cumulAcks >= c.cwnd {
				c.cwnd++
			}
		}

	case PacketLoss:
		switch {
		case !s.SawNacks:
			c.dupAcks = 0
			c.extra = 0
			c.tstamp = now
			if c.cwnd < c.ssthresh {
				c.mode = SlowStart
			} else {
				c.mode = CongestAvoidance
			}
		case s.NewLowNack:
			c.dupAcks = 1
			if c.extra > 1 {
				c.extra = 1
			}
			clearCumulative = false
			sendExtraData = true
		default:
			c.dupAcks++
			if c.dupAcks < 3 {
				clearCumulative = false
				sendExtraData = true
				break
			}
			c.mode = FastRetransmit
			c.ssthresh = maxInt(flightSize/2, 2)
			c.cwnd = c.ssthresh + 3
			c.extra = 0
			c.dupAcks = 0
			resend = true
		}

	case FastRetransmit:
		if !s.NewLowNack {
			if s.NrNewAcks == 0 {
				c.cwnd++
			}
			c.dupAcks++
			if c.dupAcks == 2 {
				resend = true
				c.dupAcks = 0
			}
			break
		}
		c.cwnd = c.ssthresh
		if !s.SawNacks {
			c.dupAcks = 0
			c.extra = 0
			c.tstamp = now
			if c.cwnd < c.ssthresh {
				c.mode = SlowStart
			} else {
				c.mode = CongestAvoidance
			}
		}
	}

	if sendExtraData {
		if s.TxLastSet || s.NrAcks != int(int32(s.TxTop-s.HardAck)) {
			c.extra++
		}
	}
	if clearCumulative {
		c.cumulAcks = 0
	}

	if c.cwnd >= c.cfg.TxMaxWindow {
		c.cwnd = c.cfg.TxMaxWindow
	}

	return Result{Mode: c.mode, Cwnd: c.cwnd, Resend: resend, Extra: c.extra}
}

// Statistics returns a snapshot of the controller's state.
func (c *Controller) Statistics() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	return map[string]interface{}{
		"mode":       c.mode.String(),
		"cwnd":       c.cwnd,
		"ssthresh":   c.ssthresh,
		"dup_acks":   c.dupAcks,
		"cumul_acks": c.cumulAcks,
		"extra":      c.extra,
	}
}
