package rules

import (
	"fmt"
	"regexp"
	"strings"

	chesslib "github.com/corentings/chess/v2"
)

type board struct {
	game *chesslib.Game
	tags Tags
	san  []string
}

// New creates an empty starting-position board carrying the given tags.
func New(tags Tags) Board {
	if tags.Result == "" {
		tags.Result = OutcomeNone
	}
	return &board{game: chesslib.NewGame(), tags: tags}
}

func (b *board) ValidateAndApply(uciMove string) error {
	uci := strings.ToLower(strings.TrimSpace(uciMove))
	if uci == "" {
		return fmt.Errorf("%w: empty move", ErrIllegalMove)
	}
	pos := b.game.Position()
	if err := b.game.PushNotationMove(uci, chesslib.UCINotation{}, nil); err != nil {
		return fmt.Errorf("%w: %q", ErrIllegalMove, uciMove)
	}
	moves := b.game.Moves()
	last := moves[len(moves)-1]
	b.san = append(b.san, chesslib.AlgebraicNotation{}.Encode(pos, last))
	return nil
}

func (b *board) LegalMoves() []string {
	valid := b.game.ValidMoves()
	out := make([]string, 0, len(valid))
	for _, mv := range valid {
		out = append(out, mv.String())
	}
	return out
}

func (b *board) Moves() []string {
	moves := b.game.Moves()
	out := make([]string, 0, len(moves))
	for _, mv := range moves {
		out = append(out, mv.String())
	}
	return out
}

func (b *board) WhiteToMove() bool {
	return b.game.Position().Turn() == chesslib.White
}

func (b *board) Outcome() string {
	switch b.game.Outcome() {
	case chesslib.WhiteWon:
		return OutcomeWhiteWon
	case chesslib.BlackWon:
		return OutcomeBlackWon
	case chesslib.Draw:
		return OutcomeDraw
	default:
		return OutcomeNone
	}
}

func (b *board) TagPairs() Tags { return b.tags }

func (b *board) SetResult(result string) { b.tags.Result = result }

// MarshalPGN builds the PGN text by hand: tag pairs, then numbered SAN
// movetext, then the result token.
func (b *board) MarshalPGN() ([]byte, error) {
	var sb strings.Builder
	writeTag := func(name, value string) {
		if strings.TrimSpace(value) != "" {
			fmt.Fprintf(&sb, "[%s \"%s\"]\n", name, sanitizeTag(value))
		}
	}
	writeTag("Event", b.tags.Event)
	writeTag("Site", b.tags.Site)
	writeTag("Date", b.tags.Date)
	writeTag("White", b.tags.White)
	writeTag("Black", b.tags.Black)
	writeTag("GameID", b.tags.GameID)
	result := b.tags.Result
	if result == "" {
		result = OutcomeNone
	}
	fmt.Fprintf(&sb, "[Result \"%s\"]\n\n", result)

	for i := 0; i < len(b.san); i += 2 {
		fmt.Fprintf(&sb, "%d. %s", i/2+1, b.san[i])
		if i+1 < len(b.san) {
			sb.WriteString(" ")
			sb.WriteString(b.san[i+1])
		}
		sb.WriteString(" ")
	}
	sb.WriteString(result)
	sb.WriteString("\n")
	return []byte(sb.String()), nil
}

var tagRe = regexp.MustCompile(`^\[(\w+)\s+"([^"]*)"\]$`)

// FromPGN rebuilds a board by replaying the SAN movetext from the starting
// position.
func FromPGN(data []byte) (Board, error) {
	var (
		tags     Tags
		moveText strings.Builder
	)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := tagRe.FindStringSubmatch(line); m != nil {
			switch m[1] {
			case "Event":
				tags.Event = m[2]
			case "Site":
				tags.Site = m[2]
			case "Date":
				tags.Date = m[2]
			case "White":
				tags.White = m[2]
			case "Black":
				tags.Black = m[2]
			case "GameID":
				tags.GameID = m[2]
			case "Result":
				tags.Result = m[2]
			}
			continue
		}
		moveText.WriteString(line)
		moveText.WriteString(" ")
	}

	b := &board{game: chesslib.NewGame(), tags: tags}
	if b.tags.Result == "" {
		b.tags.Result = OutcomeNone
	}
	for _, tok := range strings.Fields(moveText.String()) {
		if strings.HasSuffix(tok, ".") || isResultToken(tok) {
			continue
		}
		// tolerate "1.e4" style glued numbering
		if i := strings.LastIndex(tok, "."); i >= 0 {
			tok = tok[i+1:]
			if tok == "" {
				continue
			}
		}
		pos := b.game.Position()
		if err := b.game.PushNotationMove(tok, chesslib.AlgebraicNotation{}, nil); err != nil {
			return nil, fmt.Errorf("replay move %q: %w", tok, err)
		}
		moves := b.game.Moves()
		b.san = append(b.san, chesslib.AlgebraicNotation{}.Encode(pos, moves[len(moves)-1]))
	}
	return b, nil
}

func isResultToken(tok string) bool {
	switch tok {
	case OutcomeNone, OutcomeWhiteWon, OutcomeBlackWon, OutcomeDraw:
		return true
	}
	return false
}

func sanitizeTag(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
