// Command rxcall-harness drives a single call through a scripted
// request/reply exchange so the engine's behavior can be observed without a
// real UDP transport, in the same flag+yaml+zap shape as
// Lzww0608-AetherFlow/cmd/session-service/main.go (a config-file flag,
// zap.NewProduction/NewDevelopment by config, signal-free since this
// process does nothing but run the scenario and exit).
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"

	"github.com/relaywire/rxcall"
	harnessconfig "github.com/relaywire/rxcall/cmd/rxcall-harness/config"
	"github.com/relaywire/rxcall/internal/congestion"
	"github.com/relaywire/rxcall/internal/statssink"
	"github.com/relaywire/rxcall/internal/tracing"
	"github.com/relaywire/rxcall/internal/txwindow"
	"github.com/relaywire/rxcall/internal/wire"
	"github.com/relaywire/rxcall/pkg/guuid"
)

var configFile = flag.String("f", "configs/harness.yaml", "scenario config file path")

func main() {
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	defer logger.Sync()

	tracer, err := tracing.New(&tracing.Config{
		Enable:      cfg.Tracing.Enable,
		ServiceName: cfg.Tracing.ServiceName,
		Endpoint:    cfg.Tracing.Endpoint,
		Exporter:    cfg.Tracing.Exporter,
		SampleRate:  cfg.Tracing.SampleRate,
		Environment: cfg.Tracing.Environment,
	}, logger)
	if err != nil {
		logger.Fatal("failed to create tracer", zap.Error(err))
	}

	stats := statssink.New()
	col := rxcall.Collaborators{
		Actions:  &logActions{log: logger},
		Peer:     &logPeer{log: logger, srtt: 50 * time.Millisecond},
		Conn:     &logConn{log: logger},
		Notifier: &logNotifier{log: logger},
		Timers:   &logTimers{log: logger},
		Stats:    stats,
		Trace:    tracer,
	}

	callCfg := &rxcall.Config{
		RxWinSize:     cfg.Call.RxWinSize,
		TxWinSize:     cfg.Call.TxWinSize,
		NextRxTimeout: cfg.Call.NextRxTimeout,
		Congestion: &congestion.Config{
			InitialCwnd:     cfg.Call.InitialCwnd,
			InitialSsthresh: cfg.Call.InitialSsthresh,
			SMSS:            cfg.Call.SMSS,
			TxMaxWindow:     cfg.Call.TxMaxWindow,
		},
	}

	id, err := guuid.NewWithTimestamp()
	if err != nil {
		logger.Fatal("failed to mint call id", zap.Error(err))
	}

	call := rxcall.New(id, 1, true, rxcall.ClientSendRequest, callCfg, col, logger)
	logger.Info("call created", zap.String("call_id", id.String()))

	runScenario(call, logger)

	logger.Info("scenario complete",
		zap.Stringer("final_phase", call.Phase()),
		zap.Any("congestion", call.Cong.Statistics()),
		zap.Any("stats", stats.Statistics()))
}

// runScenario queues a 3-packet client request, acknowledges it wholesale
// with ACKALL, then receives a 2-packet reply — exercising the Tx rotation,
// receivingReply, and receive-window admission paths end to end.
func runScenario(call *rxcall.Call, logger *zap.Logger) {
	call.Tx.Queue(&txwindow.TxBuf{Seq: 1, Payload: []byte("request-part-1")})
	call.Tx.Queue(&txwindow.TxBuf{Seq: 2, Payload: []byte("request-part-2")})
	call.Tx.Queue(&txwindow.TxBuf{Seq: 3, Last: true, Payload: []byte("request-part-3")})
	call.NoteSent(time.Now())

	if err := call.Receive(rxcall.Packet{
		Header:   wire.PacketHeader{Type: wire.TypeAckAll, Serial: 1},
		RecvTime: time.Now(),
	}); err != nil {
		logger.Error("ACKALL handling failed", zap.Error(err))
		return
	}

	if err := call.Receive(rxcall.Packet{
		Header:   wire.PacketHeader{Type: wire.TypeData, Seq: 1, Serial: 10},
		Payload:  []byte("reply-part-1"),
		RecvTime: time.Now(),
	}); err != nil {
		logger.Error("reply DATA(1) handling failed", zap.Error(err))
		return
	}

	if err := call.Receive(rxcall.Packet{
		Header:   wire.PacketHeader{Type: wire.TypeData, Seq: 2, Serial: 11, Flags: wire.FlagLast},
		Payload:  []byte("reply-part-2"),
		RecvTime: time.Now(),
	}); err != nil {
		logger.Error("reply DATA(2) handling failed", zap.Error(err))
		return
	}
}

func buildLogger(cfg harnessconfig.LogConfig) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Format == "json" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	level := zapcore.InfoLevel
	if err := level.Set(cfg.Level); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zcfg.Build()
}

func loadConfig(filename string) (*harnessconfig.Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return harnessconfig.DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := harnessconfig.DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
