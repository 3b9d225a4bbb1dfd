package synclock

import (
	"testing"
	"time"
)

func TestTry_SingleFlight(t *testing.T) {
	l := New(nil)

	release, ok := l.Try()
	if !ok {
		t.Fatal("expected first Try to succeed")
	}
	if _, ok := l.Try(); ok {
		t.Error("expected second Try to fail while busy")
	}
	if !l.Busy() {
		t.Error("expected Busy to report true while held")
	}

	release()
	if l.Busy() {
		t.Error("expected Busy to report false after release")
	}
	if _, ok := l.Try(); !ok {
		t.Error("expected Try to succeed again after release")
	}
}

func TestBusy_AutoRecoversAfterTimeout(t *testing.T) {
	l := New(nil)
	if _, ok := l.Try(); !ok {
		t.Fatal("expected Try to succeed")
	}
	l.busySince = time.Now().Add(-Timeout - time.Second)

	if l.Busy() {
		t.Error("expected Busy to auto-recover a stale lock")
	}
	if _, ok := l.Try(); !ok {
		t.Error("expected Try to succeed after auto-recovery")
	}
}

func TestTry_AutoRecoversAfterTimeoutWithoutBusyCall(t *testing.T) {
	l := New(nil)
	if _, ok := l.Try(); !ok {
		t.Fatal("expected Try to succeed")
	}
	l.busySince = time.Now().Add(-Timeout - time.Second)

	// Nothing calls Busy() here: a hung cycle whose deferred release never
	// ran must still be recoverable by the next scheduled or manual Try.
	if _, ok := l.Try(); !ok {
		t.Error("expected Try to auto-recover a stale lock on its own")
	}
}

func TestBusySince_ZeroWhenIdle(t *testing.T) {
	l := New(nil)
	if !l.BusySince().IsZero() {
		t.Error("expected zero BusySince on a fresh lock")
	}
}
