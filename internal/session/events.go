package session

import (
	"js8chess/internal/retry"
	"js8chess/internal/wire"
)

// Event is one serialized input to the state machine. The multiplexer
// guarantees events are handled one at a time, in arrival order.
type Event interface{ sessionEvent() }

// LocalPropose transmits a NEW game proposal (startup flag or operator
// "propose" command).
type LocalPropose struct {
	Side wire.Side
}

// LocalResync starts an explicit operator-initiated resync exchange.
type LocalResync struct{}

// LocalResume reloads an in-flight game record found at startup.
type LocalResume struct {
	GameID string
}

// LocalReset clears the session (ucinewgame).
type LocalReset struct{}

// LocalPosition records the GUI's current move list ("position startpos
// moves ...").
type LocalPosition struct {
	Moves []string
}

// LocalGo is the GUI's search request: transmit any new local move, then
// wait for the remote reply.
type LocalGo struct{}

// LocalStop aborts an outstanding go ("stop").
type LocalStop struct{}

// RemoteMessage is a decoded OTA message from the configured peer.
type RemoteMessage struct {
	Msg wire.Message
}

// RemoteMalformed is a line addressed to us that failed to parse.
type RemoteMalformed struct {
	Raw string
}

// RetriesExhausted is the retry manager's terminal signal: the retransmit
// budget for the outstanding transmission is spent.
type RetriesExhausted struct {
	Kind retry.Kind
}

func (LocalPropose) sessionEvent()     {}
func (LocalResync) sessionEvent()      {}
func (LocalResume) sessionEvent()      {}
func (LocalReset) sessionEvent()       {}
func (LocalPosition) sessionEvent()    {}
func (LocalGo) sessionEvent()          {}
func (LocalStop) sessionEvent()        {}
func (RemoteMessage) sessionEvent()    {}
func (RemoteMalformed) sessionEvent()  {}
func (RetriesExhausted) sessionEvent() {}
