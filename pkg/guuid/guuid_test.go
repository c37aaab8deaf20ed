package guuid

import "testing"

func TestNewIsNotZero(t *testing.T) {
	g, err := New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if g.IsZero() {
		t.Error("freshly generated GUUID should not be zero")
	}
}

func TestStringRoundTrip(t *testing.T) {
	g, err := New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	parsed, err := FromString(g.String())
	if err != nil {
		t.Fatalf("FromString() failed: %v", err)
	}
	if !parsed.Equal(g) {
		t.Errorf("round trip mismatch: got %s, want %s", parsed, g)
	}

	parsed2, err := FromString(g.StringWithHyphens())
	if err != nil {
		t.Fatalf("FromString(hyphenated) failed: %v", err)
	}
	if !parsed2.Equal(g) {
		t.Errorf("hyphenated round trip mismatch: got %s, want %s", parsed2, g)
	}
}

func TestTimestampedOrdering(t *testing.T) {
	a, err := NewWithTimestamp()
	if err != nil {
		t.Fatalf("NewWithTimestamp() failed: %v", err)
	}
	b, err := NewWithTimestamp()
	if err != nil {
		t.Fatalf("NewWithTimestamp() failed: %v", err)
	}
	if b.Timestamp().Before(a.Timestamp()) {
		t.Errorf("second GUUID timestamp %v before first %v", b.Timestamp(), a.Timestamp())
	}
}

func TestZero(t *testing.T) {
	if !Zero().IsZero() {
		t.Error("Zero() should be zero-valued")
	}
}
