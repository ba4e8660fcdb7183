package wire

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrForeignStation marks a line that is not a JS8Chess message between the
// configured pair of callsigns. Callers drop these silently: other stations
// legitimately share the spectrum.
var ErrForeignStation = errors.New("not addressed between configured callsigns")

// ErrMalformed marks a line addressed to us whose payload does not match the
// grammar. The session answers with ERR04 while a game is active.
var ErrMalformed = errors.New("malformed payload")

var (
	newRe    = regexp.MustCompile(`^NEW ([WB])$`)
	acceptRe = regexp.MustCompile(`^(\d{12}) ([WB])$`)
	moveRe   = regexp.MustCompile(`^(\d+)([A-H][1-8][A-H][1-8][PNBRQ]?)$`)
	errRe    = regexp.MustCompile(`^(ERR0[1-5])\s*>?$`)
	resyncRe = regexp.MustCompile(`^RS (\d{12}) MN=(\d+)$`)
	rsAckRe  = regexp.MustCompile(`^OK RS (\d{12}) MN=(\d+)$`)
	gameIDRe = regexp.MustCompile(`^\d{12}$`)
)

// ValidGameID reports whether s is a 12-digit YYYYMMDDHHMM timestamp.
func ValidGameID(s string) bool { return gameIDRe.MatchString(s) }

// Decode parses one received line. The sender must be the configured remote
// callsign and the recipient our own, otherwise ErrForeignStation.
func Decode(line, localCall, remoteCall string) (Message, error) {
	text := strings.ToUpper(strings.TrimSpace(line))
	local := NormalizeCallsign(localCall)
	remote := NormalizeCallsign(remoteCall)

	prefix := remote + " " + local + " " + Tag
	if !strings.HasPrefix(text, prefix) {
		return nil, ErrForeignStation
	}
	rest := text[len(prefix):]
	if rest != "" && !strings.HasPrefix(rest, " ") {
		return nil, ErrForeignStation
	}
	payload := strings.TrimSpace(rest)

	// JS8Call auto-ACKs a directed message by echoing the addressing with an
	// empty payload or a bare chevron.
	if payload == "" || payload == ">" {
		return Ack{}, nil
	}
	if m := newRe.FindStringSubmatch(payload); m != nil {
		return NewProposal{Side: Side(m[1])}, nil
	}
	if m := acceptRe.FindStringSubmatch(payload); m != nil {
		return Accept{GameID: m[1], Side: Side(m[2])}, nil
	}
	if m := errRe.FindStringSubmatch(payload); m != nil {
		return ProtocolError{Code: m[1]}, nil
	}
	if m := resyncRe.FindStringSubmatch(payload); m != nil {
		ply, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformed, payload)
		}
		return ResyncRequest{GameID: m[1], Ply: ply}, nil
	}
	if m := rsAckRe.FindStringSubmatch(payload); m != nil {
		ply, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformed, payload)
		}
		return ResyncAck{GameID: m[1], Ply: ply}, nil
	}
	if m := moveRe.FindStringSubmatch(payload); m != nil {
		ply, err := strconv.Atoi(m[1])
		if err != nil || ply < 1 {
			return nil, fmt.Errorf("%w: %q", ErrMalformed, payload)
		}
		return Move{Ply: ply, UCI: strings.ToLower(m[2])}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrMalformed, payload)
}

// Encode renders a message as the line to hand to the transport.
func Encode(msg Message, localCall, remoteCall string) (string, error) {
	local := NormalizeCallsign(localCall)
	remote := NormalizeCallsign(remoteCall)
	head := local + " " + remote + " " + Tag + " "

	switch m := msg.(type) {
	case NewProposal:
		if !m.Side.Valid() {
			return "", fmt.Errorf("encode proposal: invalid side %q", m.Side)
		}
		return head + "NEW " + string(m.Side), nil
	case Accept:
		if !ValidGameID(m.GameID) {
			return "", fmt.Errorf("encode acceptance: invalid game id %q", m.GameID)
		}
		if !m.Side.Valid() {
			return "", fmt.Errorf("encode acceptance: invalid side %q", m.Side)
		}
		return head + m.GameID + " " + string(m.Side), nil
	case Move:
		if m.Ply < 1 {
			return "", fmt.Errorf("encode move: invalid ply %d", m.Ply)
		}
		uci := strings.ToUpper(strings.TrimSpace(m.UCI))
		if !moveRe.MatchString("1" + uci) {
			return "", fmt.Errorf("encode move: invalid coordinate move %q", m.UCI)
		}
		return head + strconv.Itoa(m.Ply) + uci, nil
	case ProtocolError:
		if _, ok := errDescriptions[m.Code]; !ok {
			return "", fmt.Errorf("encode error: unknown code %q", m.Code)
		}
		return head + m.Code, nil
	case ResyncRequest:
		if !ValidGameID(m.GameID) {
			return "", fmt.Errorf("encode resync: invalid game id %q", m.GameID)
		}
		return head + "RS " + m.GameID + " MN=" + strconv.Itoa(m.Ply), nil
	case ResyncAck:
		if !ValidGameID(m.GameID) {
			return "", fmt.Errorf("encode resync ack: invalid game id %q", m.GameID)
		}
		return head + "OK RS " + m.GameID + " MN=" + strconv.Itoa(m.Ply), nil
	default:
		return "", fmt.Errorf("encode: unsupported message %T", msg)
	}
}
