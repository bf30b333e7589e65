package model

import "testing"

func TestAnyIncludeSetFalseWhenAllUnset(t *testing.T) {
	var c CaptureSettings
	if c.AnyIncludeSet() {
		t.Error("expected AnyIncludeSet() to be false for a zero-value CaptureSettings")
	}
}

func TestAnyIncludeSetTrueWhenOneFlagSet(t *testing.T) {
	c := CaptureSettings{IncludeNetwork: true}
	if !c.AnyIncludeSet() {
		t.Error("expected AnyIncludeSet() to be true when IncludeNetwork is set")
	}
}

func TestNowMsIsMonotonicIncreasingAcrossCalls(t *testing.T) {
	first := NowMs()
	second := NowMs()
	if second < first {
		t.Errorf("NowMs() went backwards: %d then %d", first, second)
	}
}
