package retry

import (
	"testing"
	"time"
)

func waitFire(t *testing.T, ch <-chan uint64) uint64 {
	t.Helper()
	select {
	case gen := <-ch:
		return gen
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
		return 0
	}
}

func TestRetransmitThenExhaust(t *testing.T) {
	fires := make(chan uint64, 8)
	m := New(2, func(gen uint64) { fires <- gen })
	m.Arm(KindMoveReply, "OP1CALL OP2CALL JS8CHESS 1E2E4", 10*time.Millisecond)

	for i := 0; i < 2; i++ {
		gen := waitFire(t, fires)
		text, kind, oc := m.OnFire(gen)
		if oc != OutcomeRetransmit {
			t.Fatalf("fire %d outcome = %v, want retransmit", i+1, oc)
		}
		if kind != KindMoveReply {
			t.Fatalf("fire %d kind = %v, want move-reply", i+1, kind)
		}
		if text != "OP1CALL OP2CALL JS8CHESS 1E2E4" {
			t.Fatalf("fire %d text = %q", i+1, text)
		}
	}

	gen := waitFire(t, fires)
	_, kind, oc := m.OnFire(gen)
	if oc != OutcomeExhausted {
		t.Fatalf("final outcome = %v, want exhausted", oc)
	}
	if kind != KindMoveReply {
		t.Fatalf("final kind = %v, want move-reply", kind)
	}
	if m.Armed() {
		t.Fatal("slot still armed after exhaustion")
	}
}

func TestCancelMakesPendingFireStale(t *testing.T) {
	fires := make(chan uint64, 8)
	m := New(3, func(gen uint64) { fires <- gen })
	m.Arm(KindAck, "X", 10*time.Millisecond)

	gen := waitFire(t, fires)
	m.Cancel()
	if _, _, oc := m.OnFire(gen); oc != OutcomeStale {
		t.Fatalf("outcome after cancel = %v, want stale", oc)
	}
	if m.Armed() {
		t.Fatal("slot armed after cancel")
	}
}

func TestArmReplacesOutstandingSlot(t *testing.T) {
	fires := make(chan uint64, 8)
	m := New(3, func(gen uint64) { fires <- gen })

	m.Arm(KindAck, "OLD", time.Hour)
	m.Arm(KindMoveReply, "NEW", 10*time.Millisecond)

	gen := waitFire(t, fires)
	text, kind, oc := m.OnFire(gen)
	if oc != OutcomeRetransmit || text != "NEW" || kind != KindMoveReply {
		t.Fatalf("got (%q, %v, %v), want retransmit of the replacement", text, kind, oc)
	}
	m.Cancel()
}

func TestZeroRetriesExhaustsOnFirstFire(t *testing.T) {
	fires := make(chan uint64, 1)
	m := New(0, func(gen uint64) { fires <- gen })
	m.Arm(KindAck, "X", 10*time.Millisecond)

	gen := waitFire(t, fires)
	if _, _, oc := m.OnFire(gen); oc != OutcomeExhausted {
		t.Fatalf("outcome = %v, want exhausted with zero retries", oc)
	}
}
