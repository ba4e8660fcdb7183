// Package retry owns the single outstanding retransmission deadline. The
// protocol is strictly half-duplex: at most one transmission ever awaits a
// counterpart response, so one timer slot is enough. Timer expirations are
// not acted on here; they are posted to the event loop, which calls OnFire
// so all protocol work stays serialized.
package retry

import (
	"sync"
	"time"
)

// Kind distinguishes the two configured deadlines.
type Kind int

const (
	// KindAck waits for a proposal acceptance or resync acknowledgement.
	KindAck Kind = iota
	// KindMoveReply waits for the opponent's next move.
	KindMoveReply
)

func (k Kind) String() string {
	if k == KindAck {
		return "ack"
	}
	return "move-reply"
}

// Outcome is the result of servicing one deadline expiry.
type Outcome int

const (
	// OutcomeStale means the fire belonged to a cancelled or replaced slot.
	OutcomeStale Outcome = iota
	// OutcomeRetransmit means the pending text must be sent again.
	OutcomeRetransmit
	// OutcomeExhausted means the retry budget is spent; the slot is cleared.
	OutcomeExhausted
)

type pending struct {
	kind    Kind
	text    string
	wait    time.Duration
	retries int
}

// Manager schedules one single-shot deadline at a time. Arm replaces any
// previous slot; a generation counter invalidates fires from replaced or
// cancelled timers.
type Manager struct {
	mu         sync.Mutex
	maxRetries int
	fire       func(gen uint64)
	timer      *time.Timer
	gen        uint64
	slot       *pending
}

// New creates a manager. fire is invoked from a timer goroutine and must
// hand the generation to the event loop, which then calls OnFire.
func New(maxRetries int, fire func(gen uint64)) *Manager {
	return &Manager{maxRetries: maxRetries, fire: fire}
}

// Arm starts (or replaces) the deadline for an outstanding transmission.
func (m *Manager) Arm(kind Kind, text string, wait time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
	m.gen++
	m.slot = &pending{kind: kind, text: text, wait: wait}
	m.scheduleLocked()
}

// Cancel disarms the deadline; the awaited counterpart arrived.
func (m *Manager) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
	m.gen++
	m.slot = nil
}

// Armed reports whether a transmission is outstanding.
func (m *Manager) Armed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slot != nil
}

// OnFire services one expiry previously posted by the fire callback. On
// OutcomeRetransmit the returned text must be sent again (the deadline has
// already been re-armed); on OutcomeExhausted the slot is cleared and the
// returned kind identifies which wait gave up.
func (m *Manager) OnFire(gen uint64) (text string, kind Kind, oc Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slot == nil || gen != m.gen {
		return "", 0, OutcomeStale
	}
	if m.slot.retries < m.maxRetries {
		m.slot.retries++
		m.scheduleLocked()
		return m.slot.text, m.slot.kind, OutcomeRetransmit
	}
	kind = m.slot.kind
	m.stopLocked()
	m.slot = nil
	return "", kind, OutcomeExhausted
}

func (m *Manager) scheduleLocked() {
	gen := m.gen
	m.timer = time.AfterFunc(m.slot.wait, func() { m.fire(gen) })
}

func (m *Manager) stopLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
