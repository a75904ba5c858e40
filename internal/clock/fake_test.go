package clock

import (
	"testing"
	"time"
)

func TestFake_AdvanceFiresDueTimers(t *testing.T) {
	fc := NewFake(time.Unix(0, 0))
	timer := fc.NewTimer(10 * time.Millisecond)

	select {
	case <-timer.C():
		t.Fatal("timer fired before Advance")
	default:
	}

	fc.Advance(5 * time.Millisecond)
	select {
	case <-timer.C():
		t.Fatal("timer fired before its deadline")
	default:
	}

	fc.Advance(5 * time.Millisecond)
	select {
	case <-timer.C():
	default:
		t.Fatal("timer did not fire once Advance crossed its deadline")
	}
}

func TestFake_ZeroDurationTimerFiresImmediately(t *testing.T) {
	fc := NewFake(time.Unix(0, 0))
	timer := fc.NewTimer(0)

	select {
	case <-timer.C():
	default:
		t.Fatal("zero-duration timer did not fire immediately")
	}
}

func TestFake_StopPreventsFire(t *testing.T) {
	fc := NewFake(time.Unix(0, 0))
	timer := fc.NewTimer(10 * time.Millisecond)

	if !timer.Stop() {
		t.Error("Stop() on an active timer should return true")
	}
	fc.Advance(20 * time.Millisecond)

	select {
	case <-timer.C():
		t.Fatal("stopped timer fired")
	default:
	}
}

func TestFake_NowReflectsAdvance(t *testing.T) {
	start := time.Unix(1000, 0)
	fc := NewFake(start)

	if !fc.Now().Equal(start) {
		t.Fatalf("Now() = %v, want %v", fc.Now(), start)
	}
	fc.Advance(time.Minute)
	want := start.Add(time.Minute)
	if !fc.Now().Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", fc.Now(), want)
	}
}
