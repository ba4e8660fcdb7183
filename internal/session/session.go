// Package session implements the JS8Chess protocol state machine. One live
// game per process; every transition is a single dispatch
// (state, event) -> (state, effects) with no I/O of its own except the game
// record file, whose write failure is fatal to the process.
package session

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"js8chess/internal/record"
	"js8chess/internal/retry"
	"js8chess/internal/rules"
	"js8chess/internal/wire"
)

// State is the session lifecycle position. Acceptance of an inbound
// proposal and the answer to an inbound resync request are both computed
// synchronously inside their handlers, so no intermediate state is
// observable between events on those paths.
type State int

const (
	StateIdle State = iota
	StateProposed
	StateAwaitingLocalMove
	StateAwaitingRemoteMove
	StateResyncRequested
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateProposed:
		return "PROPOSED"
	case StateAwaitingLocalMove:
		return "AWAITING_LOCAL_MOVE"
	case StateAwaitingRemoteMove:
		return "AWAITING_REMOTE_MOVE"
	case StateResyncRequested:
		return "RESYNC_REQUESTED"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// Active reports whether a game is in progress in this state.
func (s State) Active() bool {
	switch s {
	case StateAwaitingLocalMove, StateAwaitingRemoteMove,
		StateResyncRequested:
		return true
	}
	return false
}

// Config carries the protocol parameters of one session.
type Config struct {
	LocalCall  string
	RemoteCall string
	AckWait    time.Duration
	MoveWait   time.Duration
	MaxRetries int
	AutoAccept bool
}

// Session is the single live game's state. It must only be touched from the
// multiplexer's event-processing step.
type Session struct {
	cfg   Config
	store *record.Store
	log   *zap.Logger
	now   func() time.Time

	state  State
	side   wire.Side
	gameID string
	board  rules.Board
	path   string

	guiMoves  []string
	goPending bool
}

func New(cfg Config, store *record.Store, log *zap.Logger) *Session {
	cfg.LocalCall = wire.NormalizeCallsign(cfg.LocalCall)
	cfg.RemoteCall = wire.NormalizeCallsign(cfg.RemoteCall)
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{cfg: cfg, store: store, log: log, now: time.Now, state: StateIdle}
}

// SetClock replaces the wall clock (tests).
func (s *Session) SetClock(now func() time.Time) { s.now = now }

func (s *Session) State() State   { return s.state }
func (s *Session) GameID() string { return s.gameID }

// Handle runs one state transition. The returned error is process-fatal
// (game record write failure); all protocol faults are absorbed as effects.
func (s *Session) Handle(ev Event) ([]Effect, error) {
	switch e := ev.(type) {
	case LocalPropose:
		return s.handlePropose(e)
	case LocalResync:
		return s.handleResync()
	case LocalResume:
		return s.handleResume(e)
	case LocalReset:
		return s.handleReset()
	case LocalPosition:
		s.guiMoves = append([]string(nil), e.Moves...)
		s.log.Debug("gui_position", zap.Strings("moves", s.guiMoves))
		return nil, nil
	case LocalGo:
		return s.handleGo()
	case LocalStop:
		return s.handleStop()
	case RemoteMessage:
		return s.handleRemote(e.Msg)
	case RemoteMalformed:
		return s.handleMalformed(e)
	case RetriesExhausted:
		return s.handleExhausted(e)
	default:
		s.log.Warn("unhandled_event", zap.String("type", fmt.Sprintf("%T", ev)))
		return nil, nil
	}
}

// ---------------------------------------------------------------------------
// Local events
// ---------------------------------------------------------------------------

func (s *Session) handlePropose(e LocalPropose) ([]Effect, error) {
	if !e.Side.Valid() {
		return fx(infof("propose: side must be W or B")), nil
	}
	switch s.state {
	case StateIdle, StateTerminated:
	default:
		return fx(infof("cannot propose: session is %s", s.state)), nil
	}
	text, err := s.encode(wire.NewProposal{Side: e.Side})
	if err != nil {
		return nil, err
	}
	s.state = StateProposed
	s.side = e.Side
	s.log.Info("proposal_sent",
		zap.String("side", string(e.Side)),
		zap.String("remote", s.cfg.RemoteCall),
	)
	return fx(
		SendRadio{Text: text},
		infof("TX new proposal: %s", text),
		ArmTimer{Kind: retry.KindAck, Text: text, Wait: s.cfg.AckWait},
	), nil
}

func (s *Session) handleResync() ([]Effect, error) {
	if s.gameID == "" || s.board == nil {
		return fx(infof("resync: no game on record")), nil
	}
	board, err := s.store.Load(s.path)
	if err != nil {
		s.log.Error("resync_reload_failed", zap.Error(err))
		return fx(infof("resync: reload failed: %v", err)), nil
	}
	s.board = board
	ply := s.expectedPly()
	text, err := s.encode(wire.ResyncRequest{GameID: s.gameID, Ply: ply})
	if err != nil {
		return nil, err
	}
	s.state = StateResyncRequested
	s.log.Info("resync_requested", zap.String("game_id", s.gameID), zap.Int("ply", ply))
	return fx(
		SendRadio{Text: text},
		infof("TX resync request: %s", text),
		ArmTimer{Kind: retry.KindAck, Text: text, Wait: s.cfg.AckWait},
	), nil
}

func (s *Session) handleResume(e LocalResume) ([]Effect, error) {
	path := s.store.Path(s.cfg.RemoteCall, e.GameID)
	board, err := s.store.Load(path)
	if err != nil {
		s.log.Warn("resume_failed", zap.String("game_id", e.GameID), zap.Error(err))
		return fx(infof("resume: could not reload game %s: %v", e.GameID, err)), nil
	}
	tags := board.TagPairs()
	var side wire.Side
	switch s.cfg.LocalCall {
	case wire.NormalizeCallsign(tags.White):
		side = wire.SideWhite
	case wire.NormalizeCallsign(tags.Black):
		side = wire.SideBlack
	default:
		return fx(infof("resume: record %s names neither callsign", e.GameID)), nil
	}
	if tags.Result != rules.OutcomeNone {
		return fx(infof("resume: game %s already finished (%s)", e.GameID, tags.Result)), nil
	}
	s.gameID = e.GameID
	s.board = board
	s.path = path
	s.side = side
	s.guiMoves = nil
	s.realign()
	s.log.Info("session_resumed",
		zap.String("game_id", s.gameID),
		zap.String("side", string(side)),
		zap.Int("expected_ply", s.expectedPly()),
	)
	return fx(infof("resumed game %s as %s, expected move %d",
		s.gameID, side, s.expectedPly())), nil
}

func (s *Session) handleReset() ([]Effect, error) {
	s.log.Info("session_reset", zap.String("prev_state", s.state.String()))
	s.state = StateIdle
	s.side = ""
	s.gameID = ""
	s.board = nil
	s.path = ""
	s.guiMoves = nil
	s.goPending = false
	return fx(CancelTimer{}), nil
}

func (s *Session) handleGo() ([]Effect, error) {
	s.goPending = true
	switch s.state {
	case StateIdle, StateProposed, StateTerminated:
		return fx(infof("waiting for a game to be established via radio")), nil
	case StateAwaitingRemoteMove:
		return fx(infof("waiting for remote move via radio")), nil
	case StateResyncRequested:
		return fx(infof("resync in progress; waiting for peer")), nil
	}

	applied := s.board.Moves()
	if len(s.guiMoves) <= len(applied) {
		return fx(infof("no new local move; supply a move through the GUI")), nil
	}
	var out []Effect
	for _, uci := range s.guiMoves[len(applied):] {
		ply := s.expectedPly()
		if err := s.board.ValidateAndApply(uci); err != nil {
			s.goPending = false
			s.log.Warn("local_move_rejected", zap.String("uci", uci), zap.Error(err))
			return append(out,
				infof("ERROR: invalid local move %s", uci),
				SendLocal{Line: "bestmove 0000"},
			), nil
		}
		if err := s.store.Save(s.path, s.board); err != nil {
			return out, err
		}
		text, err := s.encode(wire.Move{Ply: ply, UCI: uci})
		if err != nil {
			return out, err
		}
		s.log.Info("local_move_sent", zap.Int("ply", ply), zap.String("uci", uci))
		out = append(out,
			SendRadio{Text: text},
			infof("TX: %s", text),
			ArmTimer{Kind: retry.KindMoveReply, Text: text, Wait: s.cfg.MoveWait},
		)
	}
	s.state = StateAwaitingRemoteMove
	over, err := s.finishIfOver(&out)
	if err != nil {
		return out, err
	}
	if !over {
		out = append(out, infof("waiting for remote move via radio"))
	}
	return out, nil
}

func (s *Session) handleStop() ([]Effect, error) {
	if !s.goPending {
		return nil, nil
	}
	s.goPending = false
	return fx(SendLocal{Line: "bestmove 0000"}), nil
}

// ---------------------------------------------------------------------------
// Remote events
// ---------------------------------------------------------------------------

func (s *Session) handleRemote(msg wire.Message) ([]Effect, error) {
	switch m := msg.(type) {
	case wire.Ack:
		// JS8Call's automatic reception acknowledgement; not a protocol
		// response, so the retransmission deadline stays armed.
		s.log.Debug("auto_ack_ignored", zap.String("state", s.state.String()))
		return nil, nil
	case wire.NewProposal:
		return s.handleNewProposal(m)
	case wire.Accept:
		return s.handleAccept(m)
	case wire.Move:
		return s.handleRemoteMove(m)
	case wire.ProtocolError:
		return s.handleRemoteError(m)
	case wire.ResyncRequest:
		return s.handleResyncRequest(m)
	case wire.ResyncAck:
		return s.handleResyncAck(m)
	default:
		s.log.Warn("unhandled_message", zap.String("type", fmt.Sprintf("%T", msg)))
		return nil, nil
	}
}

func (s *Session) handleNewProposal(m wire.NewProposal) ([]Effect, error) {
	var out []Effect
	switch s.state {
	case StateAwaitingLocalMove, StateAwaitingRemoteMove,
		StateResyncRequested:
		// A proposal repeated for the game we already accepted means our
		// acceptance was lost: answer it again instead of deadlocking the
		// handshake.
		if m.Side == s.side.Opposite() && s.gameID != "" {
			text, err := s.encode(wire.Accept{GameID: s.gameID, Side: s.side})
			if err != nil {
				return nil, err
			}
			s.log.Info("acceptance_resent", zap.String("game_id", s.gameID))
			return fx(SendRadio{Text: text}, infof("RETX acceptance: %s", text)), nil
		}
		s.log.Warn("proposal_ignored_active", zap.String("side", string(m.Side)))
		return nil, nil
	case StateProposed:
		// Simultaneous proposals: the lexically lesser callsign's proposal
		// wins; the other station drops its own and accepts.
		if s.cfg.LocalCall < s.cfg.RemoteCall {
			s.log.Info("proposal_tiebreak_ours_wins")
			return nil, nil
		}
		s.log.Info("proposal_tiebreak_theirs_wins")
		out = append(out, CancelTimer{})
	}

	if !s.cfg.AutoAccept {
		s.state = StateIdle
		s.log.Info("proposal_declined_auto_accept_off")
		return append(out,
			infof("game proposal from %s ignored (auto_accept disabled)", s.cfg.RemoteCall),
		), nil
	}

	gameID := wire.FormatGameID(s.now())
	localSide := m.Side.Opposite()
	if err := s.startGame(gameID, localSide); err != nil {
		return out, err
	}
	text, err := s.encode(wire.Accept{GameID: gameID, Side: localSide})
	if err != nil {
		return out, err
	}
	s.log.Info("game_accepted",
		zap.String("game_id", gameID),
		zap.String("local_side", string(localSide)),
	)
	return append(out,
		SendRadio{Text: text},
		infof("TX acceptance: %s", text),
		infof("game started: id %s, local %s, remote %s", gameID, localSide, m.Side),
	), nil
}

func (s *Session) handleAccept(m wire.Accept) ([]Effect, error) {
	if s.state != StateProposed {
		s.log.Debug("acceptance_ignored", zap.String("state", s.state.String()))
		return nil, nil
	}
	localSide := m.Side.Opposite()
	if err := s.startGame(m.GameID, localSide); err != nil {
		return nil, err
	}
	s.log.Info("game_started",
		zap.String("game_id", m.GameID),
		zap.String("local_side", string(localSide)),
	)
	return fx(
		CancelTimer{},
		infof("game accepted: id %s, local %s, remote %s", m.GameID, localSide, m.Side),
	), nil
}

func (s *Session) handleRemoteMove(m wire.Move) ([]Effect, error) {
	switch s.state {
	case StateIdle, StateProposed, StateTerminated:
		return s.sendError(wire.ErrCodeNoSession)
	case StateResyncRequested:
		s.log.Warn("move_during_resync", zap.Int("ply", m.Ply))
		return s.sendError(wire.ErrCodeDesync)
	}

	expected := s.expectedPly()
	if m.Ply != expected {
		s.log.Warn("ply_mismatch", zap.Int("got", m.Ply), zap.Int("want", expected))
		out, err := s.sendError(wire.ErrCodeBadPly)
		if err != nil {
			return out, err
		}
		return append(out,
			infof("wrong move number from peer: got %d, expected %d", m.Ply, expected),
		), nil
	}
	if s.state == StateAwaitingLocalMove {
		// Ply parity says it is our turn; a remote move here means the two
		// sides disagree about who moves.
		s.log.Warn("move_out_of_turn", zap.Int("ply", m.Ply))
		return s.sendError(wire.ErrCodeDesync)
	}

	if err := s.board.ValidateAndApply(m.UCI); err != nil {
		s.log.Warn("illegal_remote_move", zap.Int("ply", m.Ply), zap.String("uci", m.UCI))
		return s.sendError(wire.ErrCodeIllegalMove)
	}
	if err := s.store.Save(s.path, s.board); err != nil {
		return nil, err
	}
	s.state = StateAwaitingLocalMove
	s.log.Info("remote_move_applied", zap.Int("ply", m.Ply), zap.String("uci", m.UCI))

	out := fx(
		CancelTimer{},
		infof("RX move: %d%s", m.Ply, m.UCI),
	)
	if s.goPending {
		s.goPending = false
		out = append(out, SendLocal{Line: "bestmove " + m.UCI})
	}
	if _, err := s.finishIfOver(&out); err != nil {
		return out, err
	}
	return out, nil
}

func (s *Session) handleRemoteError(m wire.ProtocolError) ([]Effect, error) {
	s.log.Warn("remote_error",
		zap.String("code", m.Code),
		zap.String("state", s.state.String()),
	)
	out := fx(infof("remote error %s: %s", m.Code, wire.ErrDescription(m.Code)))
	if m.Code == wire.ErrCodeNoSession && s.state.Active() {
		// Peer has no record of this game; our session is void.
		s.state = StateIdle
		s.gameID = ""
		s.board = nil
		s.path = ""
		s.goPending = false
		out = append(out,
			CancelTimer{},
			infof("peer reports no session; returning to idle"),
		)
	}
	return out, nil
}

func (s *Session) handleResyncRequest(m wire.ResyncRequest) ([]Effect, error) {
	if s.gameID == "" || s.board == nil {
		return s.sendError(wire.ErrCodeNoSession)
	}
	if m.GameID != s.gameID {
		s.log.Warn("resync_game_mismatch",
			zap.String("got", m.GameID),
			zap.String("want", s.gameID),
		)
		return s.sendError(wire.ErrCodeDesync)
	}
	board, err := s.store.Load(s.path)
	if err != nil {
		s.log.Error("resync_reload_failed", zap.Error(err))
		return s.sendError(wire.ErrCodeDesync)
	}
	s.board = board
	ours := s.expectedPly()
	var out []Effect
	if m.Ply != ours {
		// The locally reloaded record is authoritative; the difference is
		// re-reconciled on the next move exchange.
		s.log.Warn("resync_ply_mismatch", zap.Int("peer", m.Ply), zap.Int("local", ours))
		out = append(out, infof("resync ply mismatch: peer says %d, local record says %d", m.Ply, ours))
	}
	text, err := s.encode(wire.ResyncAck{GameID: s.gameID, Ply: ours})
	if err != nil {
		return out, err
	}
	s.realign()
	s.log.Info("resync_acknowledged", zap.Int("ply", ours), zap.String("state", s.state.String()))
	return append(out,
		CancelTimer{},
		SendRadio{Text: text},
		infof("TX resync OK: %s", text),
		infof("resynced at move %d", ours),
	), nil
}

func (s *Session) handleResyncAck(m wire.ResyncAck) ([]Effect, error) {
	if s.state != StateResyncRequested {
		s.log.Debug("resync_ack_ignored", zap.String("state", s.state.String()))
		return nil, nil
	}
	if m.GameID != s.gameID {
		s.log.Warn("resync_ack_game_mismatch", zap.String("got", m.GameID))
		return fx(infof("resync ack for unknown game %s ignored", m.GameID)), nil
	}
	ours := s.expectedPly()
	out := fx(CancelTimer{})
	if m.Ply != ours {
		s.log.Warn("resync_ack_ply_mismatch", zap.Int("peer", m.Ply), zap.Int("local", ours))
		out = append(out, infof("peer resynced at %d, local record says %d; local record is authoritative", m.Ply, ours))
	}
	s.realign()
	s.log.Info("resync_complete", zap.Int("ply", ours), zap.String("state", s.state.String()))
	return append(out, infof("resync complete; play resumes at move %d", ours)), nil
}

func (s *Session) handleMalformed(e RemoteMalformed) ([]Effect, error) {
	s.log.Warn("malformed_payload", zap.String("raw", e.Raw))
	if !s.state.Active() {
		return nil, nil
	}
	return s.sendError(wire.ErrCodeParse)
}

func (s *Session) handleExhausted(e RetriesExhausted) ([]Effect, error) {
	s.log.Warn("retries_exhausted",
		zap.String("kind", e.Kind.String()),
		zap.String("state", s.state.String()),
	)
	switch s.state {
	case StateProposed:
		s.state = StateTerminated
		return fx(infof("ERROR: no acceptance after max retries; proposal abandoned")), nil
	case StateAwaitingRemoteMove:
		// Frozen, not terminated: the operator decides whether to resync
		// or abandon.
		return fx(infof("ERROR: peer unresponsive after max retries; consider resync")), nil
	case StateResyncRequested:
		return fx(infof("ERROR: resync unanswered after max retries; still desynced")), nil
	default:
		return nil, nil
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *Session) startGame(gameID string, localSide wire.Side) error {
	tags := rules.Tags{
		Event:  "JS8Chess Radio Game",
		Site:   "JS8Call",
		Date:   fmt.Sprintf("%s.%s.%s", gameID[:4], gameID[4:6], gameID[6:8]),
		White:  s.cfg.LocalCall,
		Black:  s.cfg.RemoteCall,
		GameID: gameID,
		Result: rules.OutcomeNone,
	}
	if localSide == wire.SideBlack {
		tags.White, tags.Black = s.cfg.RemoteCall, s.cfg.LocalCall
	}
	board := rules.New(tags)
	path := s.store.Path(s.cfg.RemoteCall, gameID)
	if err := s.store.Save(path, board); err != nil {
		return err
	}
	s.gameID = gameID
	s.side = localSide
	s.board = board
	s.path = path
	s.guiMoves = nil
	s.realign()
	return nil
}

// expectedPly is the next OTA move number: 1-based, one per half-move.
func (s *Session) expectedPly() int {
	if s.board == nil {
		return 1
	}
	return len(s.board.Moves()) + 1
}

func (s *Session) localToMove() bool {
	return s.board.WhiteToMove() == (s.side == wire.SideWhite)
}

func (s *Session) realign() {
	if s.localToMove() {
		s.state = StateAwaitingLocalMove
	} else {
		s.state = StateAwaitingRemoteMove
	}
}

// finishIfOver records a decisive outcome and terminates the session. The
// retransmission timer (if any) is left armed so the final move keeps being
// offered to the peer until the budget runs out.
func (s *Session) finishIfOver(out *[]Effect) (bool, error) {
	oc := s.board.Outcome()
	if oc == rules.OutcomeNone {
		return false, nil
	}
	s.board.SetResult(oc)
	if err := s.store.Save(s.path, s.board); err != nil {
		return true, err
	}
	s.state = StateTerminated
	s.log.Info("game_over", zap.String("game_id", s.gameID), zap.String("result", oc))
	*out = append(*out, infof("game over: %s", oc))
	return true, nil
}

func (s *Session) sendError(code string) ([]Effect, error) {
	text, err := s.encode(wire.ProtocolError{Code: code})
	if err != nil {
		return nil, err
	}
	return fx(
		SendRadio{Text: text},
		infof("TX error %s: %s", code, wire.ErrDescription(code)),
	), nil
}

func (s *Session) encode(msg wire.Message) (string, error) {
	text, err := wire.Encode(msg, s.cfg.LocalCall, s.cfg.RemoteCall)
	if err != nil {
		s.log.Error("encode_failed", zap.Error(err))
		return "", fmt.Errorf("encode outbound message: %w", err)
	}
	return text, nil
}

func infof(format string, args ...any) Effect {
	return SendLocal{Line: "info string " + fmt.Sprintf(format, args...)}
}

func fx(effects ...Effect) []Effect { return effects }
