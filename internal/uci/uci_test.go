package uci

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		line string
		want Command
		ok   bool
	}{
		{"uci", Handshake{}, true},
		{"isready", IsReady{}, true},
		{"ucinewgame", NewGame{}, true},
		{"position startpos", Position{Moves: nil}, true},
		{"position startpos moves e2e4 e7e5", Position{Moves: []string{"e2e4", "e7e5"}}, true},
		{"position startpos moves E2E4", Position{Moves: []string{"e2e4"}}, true},
		{"go", Go{}, true},
		{"go wtime 300000 btime 300000", Go{}, true},
		{"stop", Stop{}, true},
		{"quit", Quit{}, true},
		{"propose w", Propose{Side: "W"}, true},
		{"propose B", Propose{Side: "B"}, true},
		{"propose", nil, false},
		{"resync", Resync{}, true},
		{"", nil, false},
		{"   ", nil, false},
		{"setoption name Hash value 16", nil, false},
		{"xyzzy", nil, false},
	}
	for _, tc := range cases {
		got, ok := Parse(tc.line)
		if ok != tc.ok {
			t.Errorf("Parse(%q) ok = %v, want %v", tc.line, ok, tc.ok)
			continue
		}
		if ok && !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Parse(%q) = %#v, want %#v", tc.line, got, tc.want)
		}
	}
}

func TestReaderPumpsUntilEOF(t *testing.T) {
	input := "uci\nnot-a-command\nisready\nquit\n"
	var got []Command
	rd := NewReader(strings.NewReader(input), func(c Command) { got = append(got, c) })
	if err := rd.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []Command{Handshake{}, IsReady{}, Quit{}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("commands = %#v, want %#v", got, want)
	}
}

func TestWriterIdentify(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Identify()
	out := buf.String()
	for _, want := range []string{"id name JS8Chess\n", "id author ", "uciok\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("Identify output %q lacks %q", out, want)
		}
	}
	if !strings.HasSuffix(out, "uciok\n") {
		t.Errorf("handshake must end with uciok, got %q", out)
	}
}

func TestWriterLines(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Ready()
	w.Line("bestmove e7e5")
	w.Info("RX move: %d%s", 5, "e7e5")
	want := "readyok\nbestmove e7e5\ninfo string RX move: 5e7e5\n"
	if buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}
}
