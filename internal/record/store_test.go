package record

import (
	"os"
	"path/filepath"
	"testing"

	"js8chess/internal/rules"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func testBoard(t *testing.T, moves ...string) rules.Board {
	t.Helper()
	b := rules.New(rules.Tags{
		Event:  "JS8Chess Radio Game",
		Site:   "JS8Call",
		Date:   "2026.01.15",
		White:  "OP1CALL",
		Black:  "OP2CALL",
		GameID: "202601151230",
		Result: "*",
	})
	for _, mv := range moves {
		if err := b.ValidateAndApply(mv); err != nil {
			t.Fatalf("apply %q: %v", mv, err)
		}
	}
	return b
}

func TestPathNaming(t *testing.T) {
	s := newTestStore(t)
	path := s.Path("op2call", "202601151230")
	if filepath.Base(path) != "OP2CALL-202601151230.pgn" {
		t.Fatalf("Path = %q, want OP2CALL-202601151230.pgn basename", path)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	b := testBoard(t, "e2e4", "e7e5", "g1f3", "b8c6")
	path := s.Path("OP2CALL", "202601151230")

	if err := s.Save(path, b); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := s.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	a, z := b.Moves(), loaded.Moves()
	if len(a) != len(z) {
		t.Fatalf("loaded %d plies, want %d", len(z), len(a))
	}
	for i := range a {
		if a[i] != z[i] {
			t.Fatalf("ply %d: loaded %q, want %q", i+1, z[i], a[i])
		}
	}
	if loaded.TagPairs().GameID != "202601151230" {
		t.Fatalf("GameID tag = %q", loaded.TagPairs().GameID)
	}
}

func TestSaveOverwritesPerPly(t *testing.T) {
	s := newTestStore(t)
	b := testBoard(t)
	path := s.Path("OP2CALL", "202601151230")

	if err := s.Save(path, b); err != nil {
		t.Fatalf("Save empty: %v", err)
	}
	if err := b.ValidateAndApply("e2e4"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := s.Save(path, b); err != nil {
		t.Fatalf("Save after ply: %v", err)
	}
	loaded, err := s.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := len(loaded.Moves()); got != 1 {
		t.Fatalf("loaded %d plies, want 1", got)
	}
}

func TestFindLatestPicksNewestGame(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"202601151230", "202603020900", "202602011200"} {
		if err := s.Save(s.Path("OP2CALL", id), testBoard(t)); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}
	// Noise that must be ignored.
	if err := s.Save(s.Path("OP9CALL", "202612312359"), testBoard(t)); err != nil {
		t.Fatalf("Save noise: %v", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, "OP2CALL-notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write noise file: %v", err)
	}

	id, ok := s.FindLatest("OP2CALL")
	if !ok {
		t.Fatal("FindLatest found nothing")
	}
	if id != "202603020900" {
		t.Fatalf("FindLatest = %q, want 202603020900", id)
	}
}

func TestFindLatestEmptyDir(t *testing.T) {
	s := newTestStore(t)
	if id, ok := s.FindLatest("OP2CALL"); ok {
		t.Fatalf("FindLatest = %q on empty dir, want none", id)
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Load(s.Path("OP2CALL", "202601151230")); err == nil {
		t.Fatal("Load of missing record succeeded")
	}
}
