package tracing

import (
	"testing"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func TestNewDisabledTracerIsNoop(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	tr, err := New(&Config{Enable: false}, logger)
	if err != nil {
		t.Fatalf("New returned %v, want nil for a disabled tracer", err)
	}
	// Event must not panic even though no exporter/provider exists.
	tr.Event("duplicate", map[string]any{"seq": uint32(5)})
}

func TestNewUnsupportedExporterErrors(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	_, err := New(&Config{Enable: true, ServiceName: "x", Exporter: "carrier-pigeon"}, logger)
	if err == nil {
		t.Fatal("New should error on an unrecognized exporter")
	}
}

func TestLimiterForOnlyThrottlesNamedEvents(t *testing.T) {
	tr := &Tracer{
		cfg: &Config{
			ThrottledEvents: map[string]rate.Limit{"duplicate": 50},
			ThrottleBurst:   10,
		},
		limiters: make(map[string]*rate.Limiter),
	}

	if l := tr.limiterFor("duplicate"); l == nil {
		t.Fatal("expected a limiter for a throttled event name")
	}
	if l := tr.limiterFor("ack_rotated"); l != nil {
		t.Fatal("expected no limiter for an event name absent from ThrottledEvents")
	}
}

func TestLimiterForReusesLimiterPerName(t *testing.T) {
	tr := &Tracer{
		cfg: &Config{
			ThrottledEvents: map[string]rate.Limit{"duplicate": 50},
			ThrottleBurst:   10,
		},
		limiters: make(map[string]*rate.Limiter),
	}

	a := tr.limiterFor("duplicate")
	b := tr.limiterFor("duplicate")
	if a != b {
		t.Fatal("limiterFor should return the same limiter instance for repeated calls with the same name")
	}
}

func TestAttributeForTypes(t *testing.T) {
	cases := []struct {
		key string
		val any
	}{
		{"s", "hello"},
		{"b", true},
		{"i", 5},
		{"u32", uint32(7)},
	}
	for _, c := range cases {
		kv := attributeFor(c.key, c.val)
		if string(kv.Key) != c.key {
			t.Errorf("attributeFor(%q, %v) key = %q, want %q", c.key, c.val, kv.Key, c.key)
		}
	}
}
