package session

import (
	"time"

	"js8chess/internal/retry"
)

// Effect is one output of a state transition. The multiplexer flushes all
// effects of an event before handling the next event.
type Effect interface{ sessionEffect() }

// SendRadio transmits an encoded line to the remote peer.
type SendRadio struct {
	Text string
}

// SendLocal emits a line on the local engine interface ("info string ..."
// or "bestmove ...").
type SendLocal struct {
	Line string
}

// ArmTimer starts (or replaces) the retransmission deadline for Text.
type ArmTimer struct {
	Kind retry.Kind
	Text string
	Wait time.Duration
}

// CancelTimer disarms the retransmission deadline.
type CancelTimer struct{}

func (SendRadio) sessionEffect()   {}
func (SendLocal) sessionEffect()   {}
func (ArmTimer) sessionEffect()    {}
func (CancelTimer) sessionEffect() {}
