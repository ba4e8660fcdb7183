// Package rules isolates the chess-rules library behind the small capability
// surface the protocol engine needs: validate-and-apply, legal move listing,
// and game-record (PGN) serialization. Any conformant rules library can be
// substituted without touching the protocol code.
package rules

import "errors"

// ErrIllegalMove is returned by ValidateAndApply when the move is not legal
// in the current position (or does not parse as a coordinate move).
var ErrIllegalMove = errors.New("illegal move")

// Outcome tokens, as written to the PGN Result tag.
const (
	OutcomeNone     = "*"
	OutcomeWhiteWon = "1-0"
	OutcomeBlackWon = "0-1"
	OutcomeDraw     = "1/2-1/2"
)

// Tags are the PGN tag pairs carried by a game record.
type Tags struct {
	Event  string
	Site   string
	Date   string
	White  string
	Black  string
	GameID string
	Result string
}

// Board is one game's authoritative position plus its move history.
type Board interface {
	// ValidateAndApply applies a lowercase UCI coordinate move, or returns
	// ErrIllegalMove leaving the position untouched.
	ValidateAndApply(uciMove string) error
	// LegalMoves lists the legal moves of the current position in UCI form.
	LegalMoves() []string
	// Moves returns the applied moves in order, lowercase UCI.
	Moves() []string
	// WhiteToMove reports whose turn it is.
	WhiteToMove() bool
	// Outcome returns one of the Outcome tokens for the current position.
	Outcome() string
	// MarshalPGN serializes the game record, tags included.
	MarshalPGN() ([]byte, error)
	// TagPairs returns the record's tag pairs.
	TagPairs() Tags
	// SetResult overrides the Result tag (used when a game ends).
	SetResult(result string)
}
