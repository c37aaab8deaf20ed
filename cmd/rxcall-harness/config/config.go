// Package config is the rxcall-harness's YAML configuration, in the same
// Server/Log/Tracing section layout as
// Lzww0608-AetherFlow/cmd/session-service/config.Config, generalized from a
// network service's listener config to a single call's window/congestion
// tuning.
package config

import "time"

// Config is the harness's top-level configuration.
type Config struct {
	Call    CallConfig    `yaml:"Call"`
	Log     LogConfig     `yaml:"Log"`
	Tracing TracingConfig `yaml:"Tracing"`
}

// CallConfig mirrors rxcall.Config's tunables in YAML form.
type CallConfig struct {
	RxWinSize     uint32        `yaml:"RxWinSize"`
	TxWinSize     uint32        `yaml:"TxWinSize"`
	NextRxTimeout time.Duration `yaml:"NextRxTimeout"`

	InitialCwnd     int `yaml:"InitialCwnd"`
	InitialSsthresh int `yaml:"InitialSsthresh"`
	SMSS            int `yaml:"SMSS"`
	TxMaxWindow     int `yaml:"TxMaxWindow"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"Level"`  // debug, info, warn, error
	Format string `yaml:"Format"` // json, console
}

// TracingConfig mirrors internal/tracing.Config in YAML form.
type TracingConfig struct {
	Enable      bool    `yaml:"Enable"`
	ServiceName string  `yaml:"ServiceName"`
	Endpoint    string  `yaml:"Endpoint"`
	Exporter    string  `yaml:"Exporter"`
	SampleRate  float64 `yaml:"SampleRate"`
	Environment string  `yaml:"Environment"`
}

// DefaultConfig returns the harness's default tuning: a small window and a
// disabled tracer, suitable for running the demo scenario without any
// external collector present.
func DefaultConfig() *Config {
	return &Config{
		Call: CallConfig{
			RxWinSize:       32,
			TxWinSize:       32,
			NextRxTimeout:   65 * time.Second,
			InitialCwnd:     2,
			InitialSsthresh: 1 << 30,
			SMSS:            1412,
			TxMaxWindow:     256,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Tracing: TracingConfig{
			Enable:      false,
			ServiceName: "rxcall-harness",
			Endpoint:    "http://localhost:14268/api/traces",
			Exporter:    "jaeger",
			SampleRate:  1.0,
			Environment: "development",
		},
	}
}
