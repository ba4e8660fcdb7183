package rules

import (
	"errors"
	"strings"
	"testing"
)

func testTags() Tags {
	return Tags{
		Event:  "JS8Chess Radio Game",
		Site:   "JS8Call",
		Date:   "2026.01.15",
		White:  "OP1CALL",
		Black:  "OP2CALL",
		GameID: "202601151230",
		Result: OutcomeNone,
	}
}

func mustApply(t *testing.T, b Board, moves ...string) {
	t.Helper()
	for _, mv := range moves {
		if err := b.ValidateAndApply(mv); err != nil {
			t.Fatalf("ValidateAndApply(%q): %v", mv, err)
		}
	}
}

func TestStartingPositionHasTwentyMoves(t *testing.T) {
	b := New(testTags())
	if got := len(b.LegalMoves()); got != 20 {
		t.Fatalf("legal moves = %d, want 20", got)
	}
	if !b.WhiteToMove() {
		t.Fatal("White must move first")
	}
	if b.Outcome() != OutcomeNone {
		t.Fatalf("outcome = %q, want *", b.Outcome())
	}
}

func TestApplyAndTurnAlternation(t *testing.T) {
	b := New(testTags())
	mustApply(t, b, "e2e4")
	if b.WhiteToMove() {
		t.Fatal("turn did not pass to Black")
	}
	mustApply(t, b, "e7e5")
	got := b.Moves()
	want := []string{"e2e4", "e7e5"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Moves() = %v, want %v", got, want)
	}
}

func TestIllegalMoveLeavesPositionUntouched(t *testing.T) {
	b := New(testTags())
	for _, mv := range []string{"e2e5", "e7e5", "a1a8", "nonsense", ""} {
		err := b.ValidateAndApply(mv)
		if !errors.Is(err, ErrIllegalMove) {
			t.Errorf("ValidateAndApply(%q) err = %v, want ErrIllegalMove", mv, err)
		}
	}
	if len(b.Moves()) != 0 {
		t.Fatalf("rejected moves mutated the board: %v", b.Moves())
	}
}

func TestMarshalReplayRoundTrip(t *testing.T) {
	b := New(testTags())
	// Includes a capture and kingside castling to stress SAN replay.
	mustApply(t, b, "e2e4", "e7e5", "g1f3", "b8c6", "f1c4", "g8f6", "e1g1", "f6e4")

	data, err := b.MarshalPGN()
	if err != nil {
		t.Fatalf("MarshalPGN: %v", err)
	}
	if !strings.Contains(string(data), "O-O") {
		t.Fatalf("movetext lacks castling SAN:\n%s", data)
	}

	replayed, err := FromPGN(data)
	if err != nil {
		t.Fatalf("FromPGN: %v", err)
	}
	a, z := b.Moves(), replayed.Moves()
	if len(a) != len(z) {
		t.Fatalf("replayed %d plies, want %d", len(z), len(a))
	}
	for i := range a {
		if a[i] != z[i] {
			t.Fatalf("ply %d: replayed %q, want %q", i+1, z[i], a[i])
		}
	}
	if replayed.TagPairs() != b.TagPairs() {
		t.Fatalf("tags diverged: %+v vs %+v", replayed.TagPairs(), b.TagPairs())
	}
}

func TestPromotionRoundTrip(t *testing.T) {
	b := New(testTags())
	mustApply(t, b,
		"h2h4", "g7g5", "h4g5", "h7h6", "g5h6", "e7e5", "h6h7", "e5e4", "h7g8q",
	)
	moves := b.Moves()
	if moves[len(moves)-1] != "h7g8q" {
		t.Fatalf("last move = %q, want h7g8q", moves[len(moves)-1])
	}

	data, err := b.MarshalPGN()
	if err != nil {
		t.Fatalf("MarshalPGN: %v", err)
	}
	replayed, err := FromPGN(data)
	if err != nil {
		t.Fatalf("FromPGN: %v", err)
	}
	z := replayed.Moves()
	if z[len(z)-1] != "h7g8q" {
		t.Fatalf("replayed last move = %q, want h7g8q", z[len(z)-1])
	}
}

func TestCheckmateOutcome(t *testing.T) {
	b := New(testTags())
	mustApply(t, b, "f2f3", "e7e5", "g2g4", "d8h4")
	if got := b.Outcome(); got != OutcomeBlackWon {
		t.Fatalf("outcome = %q, want 0-1", got)
	}
	b.SetResult(b.Outcome())
	data, err := b.MarshalPGN()
	if err != nil {
		t.Fatalf("MarshalPGN: %v", err)
	}
	if !strings.Contains(string(data), `[Result "0-1"]`) {
		t.Fatalf("result tag missing:\n%s", data)
	}
	if !strings.HasSuffix(strings.TrimSpace(string(data)), "0-1") {
		t.Fatalf("movetext must end with the result token:\n%s", data)
	}
}

func TestFromPGNToleratesGluedNumbering(t *testing.T) {
	pgn := "[White \"OP1CALL\"]\n[Black \"OP2CALL\"]\n[Result \"*\"]\n\n1.e4 e5 2.Nf3 Nc6 *\n"
	b, err := FromPGN([]byte(pgn))
	if err != nil {
		t.Fatalf("FromPGN: %v", err)
	}
	if got := len(b.Moves()); got != 4 {
		t.Fatalf("replayed %d plies, want 4", got)
	}
}

func TestFromPGNRejectsCorruptMovetext(t *testing.T) {
	pgn := "[Result \"*\"]\n\n1. e4 e5 2. Qh7 *\n"
	if _, err := FromPGN([]byte(pgn)); err == nil {
		t.Fatal("FromPGN accepted an impossible move")
	}
}
