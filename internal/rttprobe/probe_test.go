package rttprobe

import (
	"testing"
	"time"
)

func TestStartAndMatch(t *testing.T) {
	tbl := New()
	sentAt := time.Now()

	idx, ok := tbl.Start(42, sentAt)
	if !ok {
		t.Fatal("Start should succeed with a free slot")
	}
	if tbl.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", tbl.Pending())
	}

	matches := tbl.Complete(42, sentAt.Add(50*time.Millisecond), true)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Index != idx || !matches[0].Sample || matches[0].RTT != 50*time.Millisecond {
		t.Errorf("unexpected match: %+v", matches[0])
	}
	if tbl.Pending() != 0 {
		t.Errorf("Pending() = %d after match, want 0", tbl.Pending())
	}
}

func TestCompleteWithoutSample(t *testing.T) {
	tbl := New()
	sentAt := time.Now()
	tbl.Start(7, sentAt)

	matches := tbl.Complete(7, sentAt.Add(time.Millisecond), false)
	if len(matches) != 1 || matches[0].Sample {
		t.Fatalf("expected a sample-less match, got %+v", matches)
	}
}

func TestObsoleteSlotIsFreedWithoutMatch(t *testing.T) {
	tbl := New()
	sentAt := time.Now()
	tbl.Start(10, sentAt)

	matches := tbl.Complete(20, sentAt.Add(time.Millisecond), true)
	if len(matches) != 0 {
		t.Fatalf("expected no matches for an obsolete probe, got %+v", matches)
	}
	if tbl.Pending() != 0 {
		t.Errorf("obsolete slot should be freed, Pending() = %d", tbl.Pending())
	}
}

func TestAllSlotsBusyRefusesStart(t *testing.T) {
	tbl := New()
	for i := 0; i < Slots; i++ {
		if _, ok := tbl.Start(uint32(i+1), time.Now()); !ok {
			t.Fatalf("slot %d should have been free", i)
		}
	}
	if _, ok := tbl.Start(99, time.Now()); ok {
		t.Error("expected Start to fail once every slot is pending")
	}
}
