package statssink

import "testing"

func TestIncAndGet(t *testing.T) {
	s := New()
	s.Inc("rx_data")
	s.Inc("rx_data")
	s.Inc("proto_abort_LSN")

	if got := s.Get("rx_data"); got != 2 {
		t.Errorf("rx_data = %d, want 2", got)
	}
	if got := s.Get("proto_abort_LSN"); got != 1 {
		t.Errorf("proto_abort_LSN = %d, want 1", got)
	}
	if got := s.Get("never_touched"); got != 0 {
		t.Errorf("never_touched = %d, want 0", got)
	}
}

func TestAdd(t *testing.T) {
	s := New()
	s.Add("bytes_delivered", 100)
	s.Add("bytes_delivered", 50)

	if got := s.Get("bytes_delivered"); got != 150 {
		t.Errorf("bytes_delivered = %d, want 150", got)
	}
}

func TestStatisticsSnapshotIsIndependentCopy(t *testing.T) {
	s := New()
	s.Inc("rx_data")

	snap := s.Statistics()
	snap["rx_data"] = 999
	s.Inc("rx_data")

	if got := s.Get("rx_data"); got != 2 {
		t.Errorf("rx_data = %d, want 2 (mutating a snapshot must not affect the sink)", got)
	}
}

func TestReset(t *testing.T) {
	s := New()
	s.Inc("rx_data")
	s.Reset()

	if got := s.Get("rx_data"); got != 0 {
		t.Errorf("rx_data = %d, want 0 after Reset", got)
	}
	if len(s.Statistics()) != 0 {
		t.Error("Statistics should be empty after Reset")
	}
}
