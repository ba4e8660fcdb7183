// Package wire implements the over-the-air JS8Chess message grammar.
//
// All OTA text is uppercase, space separated, and addressed
// "<SENDER> <RECIPIENT> JS8CHESS <payload>". Moves travel uppercase on the
// air and are held as lowercase UCI internally.
package wire

import (
	"strings"
	"time"
)

// Tag marks every JS8Chess transmission on shared spectrum.
const Tag = "JS8CHESS"

// Side is the color a station plays, as carried on the wire.
type Side string

const (
	SideWhite Side = "W"
	SideBlack Side = "B"
)

func (s Side) Valid() bool { return s == SideWhite || s == SideBlack }

func (s Side) Opposite() Side {
	if s == SideWhite {
		return SideBlack
	}
	return SideWhite
}

// Protocol error codes.
const (
	ErrCodeIllegalMove = "ERR01"
	ErrCodeBadPly      = "ERR02"
	ErrCodeNoSession   = "ERR03"
	ErrCodeParse       = "ERR04"
	ErrCodeDesync      = "ERR05"
)

var errDescriptions = map[string]string{
	ErrCodeIllegalMove: "illegal move",
	ErrCodeBadPly:      "unexpected move number",
	ErrCodeNoSession:   "not in active session",
	ErrCodeParse:       "protocol parse error",
	ErrCodeDesync:      "state desync detected",
}

// ErrDescription returns the human-readable text for an ERRxx code.
func ErrDescription(code string) string {
	if d, ok := errDescriptions[code]; ok {
		return d
	}
	return "unknown error"
}

// Message is one decoded OTA payload. Routing callsigns are validated and
// stripped by the codec; variants carry protocol payload only.
type Message interface{ otaMessage() }

// Ack is JS8Call's automatic directed acknowledgement: an empty payload or
// a bare chevron. It confirms reception and carries no protocol content.
type Ack struct{}

// NewProposal offers a new game; Side is the sender's requested color.
type NewProposal struct {
	Side Side
}

// Accept answers a proposal. GameID is the acceptance timestamp
// (YYYYMMDDHHMM) and Side is the acceptor's color.
type Accept struct {
	GameID string
	Side   Side
}

// Move carries one half-move. Ply is the 1-based sequential move number and
// UCI the lowercase coordinate move (e.g. "e7e5", "e7e8q").
type Move struct {
	Ply int
	UCI string
}

// ProtocolError reports an ERRxx condition to the peer.
type ProtocolError struct {
	Code string
}

// ResyncRequest asks the peer to realign to our game record.
type ResyncRequest struct {
	GameID string
	Ply    int
}

// ResyncAck confirms a resync at the responder's expected ply.
type ResyncAck struct {
	GameID string
	Ply    int
}

func (Ack) otaMessage()           {}
func (NewProposal) otaMessage()   {}
func (Accept) otaMessage()        {}
func (Move) otaMessage()          {}
func (ProtocolError) otaMessage() {}
func (ResyncRequest) otaMessage() {}
func (ResyncAck) otaMessage()     {}

// NormalizeCallsign uppercases and trims a callsign for comparison and
// filename use.
func NormalizeCallsign(call string) string {
	return strings.ToUpper(strings.TrimSpace(call))
}

// FormatGameID renders the canonical 12-digit acceptance timestamp.
func FormatGameID(t time.Time) string {
	return t.Format("200601021504")
}
