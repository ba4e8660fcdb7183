// Package mux is the transport multiplexer: one serialized event loop that
// merges inbound remote text, local engine-interface commands, and timer
// expirations, feeds them one at a time to the session state machine, and
// flushes each transition's effects before taking the next event. This gives
// the session an implicit single-writer guarantee with no further locking.
package mux

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"js8chess/internal/retry"
	"js8chess/internal/session"
	"js8chess/internal/wire"
)

type item struct {
	ev       session.Event
	timerGen uint64
	isTimer  bool
}

// Loop owns the event inbox and routes session effects back out.
type Loop struct {
	localCall  string
	remoteCall string

	sess  *session.Session
	rm    *retry.Manager
	radio func(text string) error
	local func(line string)
	log   *zap.Logger

	inbox chan item
	fatal chan error
	done  chan struct{}
}

// Config wires the loop's collaborators. Radio is the remote transport send;
// Local emits one line on the engine interface.
type Config struct {
	LocalCall  string
	RemoteCall string
	MaxRetries int
	Radio      func(text string) error
	Local      func(line string)
}

func New(cfg Config, sess *session.Session, log *zap.Logger) *Loop {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Loop{
		localCall:  wire.NormalizeCallsign(cfg.LocalCall),
		remoteCall: wire.NormalizeCallsign(cfg.RemoteCall),
		sess:       sess,
		radio:      cfg.Radio,
		local:      cfg.Local,
		log:        log,
		inbox:      make(chan item, 64),
		fatal:      make(chan error, 1),
		done:       make(chan struct{}),
	}
	l.rm = retry.New(cfg.MaxRetries, func(gen uint64) {
		l.post(item{timerGen: gen, isTimer: true})
	})
	return l
}

// post queues one item, giving up once Run has returned so producer
// goroutines (bridge, engine reader, timers) never block across shutdown.
func (l *Loop) post(it item) {
	select {
	case l.inbox <- it:
	case <-l.done:
	}
}

// PostEvent queues a local-interface or session event.
func (l *Loop) PostEvent(ev session.Event) {
	l.post(item{ev: ev})
}

// PostRemoteText decodes one received transport line and queues it. Lines
// between other stations are dropped here; lines addressed to us that fail
// the grammar reach the session as RemoteMalformed.
func (l *Loop) PostRemoteText(raw string) {
	msg, err := wire.Decode(raw, l.localCall, l.remoteCall)
	if err != nil {
		if errors.Is(err, wire.ErrForeignStation) {
			l.log.Debug("foreign_line_dropped", zap.String("raw", raw))
			return
		}
		l.post(item{ev: session.RemoteMalformed{Raw: raw}})
		return
	}
	l.log.Info("radio_rx", zap.String("type", fmt.Sprintf("%T", msg)))
	l.post(item{ev: session.RemoteMessage{Msg: msg}})
}

// Fail aborts the loop with a transport-level fault (fatal per design: the
// process must exit non-zero).
func (l *Loop) Fail(err error) {
	select {
	case l.fatal <- err:
	default:
	}
}

// Run processes events until the context is cancelled (clean quit) or a
// fatal fault occurs.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	defer l.rm.Cancel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-l.fatal:
			return fmt.Errorf("transport failure: %w", err)
		case it := <-l.inbox:
			if err := l.step(it); err != nil {
				return err
			}
		}
	}
}

func (l *Loop) step(it item) error {
	if it.isTimer {
		return l.stepTimer(it.timerGen)
	}
	effects, err := l.sess.Handle(it.ev)
	if aerr := l.apply(effects); aerr != nil {
		return aerr
	}
	return err
}

func (l *Loop) stepTimer(gen uint64) error {
	text, kind, oc := l.rm.OnFire(gen)
	switch oc {
	case retry.OutcomeStale:
		return nil
	case retry.OutcomeRetransmit:
		l.local("info string RETRY TX: " + text)
		l.log.Info("retransmit", zap.String("kind", kind.String()), zap.String("text", text))
		if err := l.radio(text); err != nil {
			return fmt.Errorf("transport failure: %w", err)
		}
		return nil
	case retry.OutcomeExhausted:
		effects, err := l.sess.Handle(session.RetriesExhausted{Kind: kind})
		if aerr := l.apply(effects); aerr != nil {
			return aerr
		}
		return err
	default:
		return nil
	}
}

func (l *Loop) apply(effects []session.Effect) error {
	for _, e := range effects {
		switch fx := e.(type) {
		case session.SendRadio:
			l.log.Info("radio_tx", zap.String("text", fx.Text))
			if err := l.radio(fx.Text); err != nil {
				return fmt.Errorf("transport failure: %w", err)
			}
		case session.SendLocal:
			l.local(fx.Line)
		case session.ArmTimer:
			l.rm.Arm(fx.Kind, fx.Text, fx.Wait)
		case session.CancelTimer:
			l.rm.Cancel()
		default:
			l.log.Warn("unhandled_effect", zap.String("type", fmt.Sprintf("%T", e)))
		}
	}
	return nil
}
