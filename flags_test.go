package rxcall

import "testing"

func TestFlagsSetHasClear(t *testing.T) {
	var f Flags
	if f.Has(FlagTxLast) {
		t.Fatal("zero value should have no flags set")
	}
	f.Set(FlagTxLast)
	if !f.Has(FlagTxLast) {
		t.Fatal("FlagTxLast should be set")
	}
	if f.Has(FlagRxLast) {
		t.Fatal("FlagRxLast should not be affected by setting FlagTxLast")
	}
	f.Clear(FlagTxLast)
	if f.Has(FlagTxLast) {
		t.Fatal("FlagTxLast should be cleared")
	}
}

func TestFlagsTestAndSet(t *testing.T) {
	var f Flags
	if f.TestAndSet(FlagRxLast) {
		t.Fatal("first TestAndSet should report the flag was not already set")
	}
	if !f.TestAndSet(FlagRxLast) {
		t.Fatal("second TestAndSet should report the flag was already set")
	}
	if !f.Has(FlagRxLast) {
		t.Fatal("FlagRxLast should remain set")
	}
}

func TestFlagsTestAndClear(t *testing.T) {
	var f Flags
	f.Set(FlagRetransTimeout)
	if !f.TestAndClear(FlagRetransTimeout) {
		t.Fatal("TestAndClear should report the flag was set")
	}
	if f.Has(FlagRetransTimeout) {
		t.Fatal("flag should now be clear")
	}
	if f.TestAndClear(FlagRetransTimeout) {
		t.Fatal("TestAndClear on an already-clear flag should report false")
	}
}

func TestFlagsIndependentBits(t *testing.T) {
	var f Flags
	f.Set(FlagTxLast)
	f.Set(FlagTxAllAcked)
	f.Set(FlagIsDead)
	if !f.Has(FlagTxLast) || !f.Has(FlagTxAllAcked) || !f.Has(FlagIsDead) {
		t.Fatal("all three independently set flags should be observed set")
	}
	f.Clear(FlagTxAllAcked)
	if !f.Has(FlagTxLast) || f.Has(FlagTxAllAcked) || !f.Has(FlagIsDead) {
		t.Fatal("clearing one flag should not disturb the others")
	}
}
