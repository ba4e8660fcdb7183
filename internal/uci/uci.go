// Package uci handles the GUI side of the engine protocol: parsing inbound
// commands and serializing engine output. Only the subset needed to drive
// moves is consumed, plus the operator extensions "propose" and "resync".
package uci

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Command is one parsed GUI line.
type Command interface{ uciCommand() }

type Handshake struct{}
type IsReady struct{}
type NewGame struct{}

// Position carries the GUI's move list, lowercase UCI.
type Position struct {
	Moves []string
}

type Go struct{}
type Stop struct{}
type Quit struct{}

// Propose is the operator command to transmit a NEW proposal ("propose W").
type Propose struct {
	Side string
}

// Resync is the operator command to start a resync exchange.
type Resync struct{}

func (Handshake) uciCommand() {}
func (IsReady) uciCommand()   {}
func (NewGame) uciCommand()   {}
func (Position) uciCommand()  {}
func (Go) uciCommand()        {}
func (Stop) uciCommand()      {}
func (Quit) uciCommand()      {}
func (Propose) uciCommand()   {}
func (Resync) uciCommand()    {}

// Parse maps one input line to a command. Unknown verbs return ok=false and
// are ignored by the caller.
func Parse(line string) (Command, bool) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return nil, false
	}
	switch fields[0] {
	case "uci":
		return Handshake{}, true
	case "isready":
		return IsReady{}, true
	case "ucinewgame":
		return NewGame{}, true
	case "position":
		return Position{Moves: parseMoves(fields[1:])}, true
	case "go":
		return Go{}, true
	case "stop":
		return Stop{}, true
	case "quit":
		return Quit{}, true
	case "propose":
		if len(fields) < 2 {
			return nil, false
		}
		return Propose{Side: strings.ToUpper(fields[1])}, true
	case "resync":
		return Resync{}, true
	default:
		return nil, false
	}
}

func parseMoves(tokens []string) []string {
	for i, tok := range tokens {
		if tok == "moves" {
			moves := make([]string, 0, len(tokens)-i-1)
			for _, mv := range tokens[i+1:] {
				moves = append(moves, strings.ToLower(mv))
			}
			return moves
		}
	}
	return nil
}

// Reader pumps GUI commands from r to the handler until EOF.
type Reader struct {
	r      io.Reader
	handle func(Command)
}

func NewReader(r io.Reader, handle func(Command)) *Reader {
	return &Reader{r: r, handle: handle}
}

func (rd *Reader) Run() error {
	scanner := bufio.NewScanner(rd.r)
	for scanner.Scan() {
		cmd, ok := Parse(scanner.Text())
		if !ok {
			continue
		}
		rd.handle(cmd)
	}
	return scanner.Err()
}

// Writer serializes engine-to-GUI output. Safe for use from the reader
// callback (handshake replies) and the event loop concurrently.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

func (w *Writer) Line(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.w, line)
}

func (w *Writer) Info(format string, args ...any) {
	w.Line("info string " + fmt.Sprintf(format, args...))
}

func (w *Writer) Identify() {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.w, "id name JS8Chess")
	fmt.Fprintln(w.w, "id author JS8Chess Project")
	fmt.Fprintln(w.w, "uciok")
}

func (w *Writer) Ready() { w.Line("readyok") }
