// Package js8 is the TCP client for the JS8Call API (newline-delimited
// JSON). Inbound RX.DIRECTED messages are handed to a callback; outbound
// text is wrapped in TX.SEND_MESSAGE. The bridge only produces events — it
// never touches session state.
package js8

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const dialTimeout = 5 * time.Second

// Exact field names vary between JS8Call versions; both upper and lower
// case variants are accepted on receive.
type envelope struct {
	Type  string         `json:"type"`
	Value map[string]any `json:"value"`
}

// DirectedHandler receives every inbound directed message.
type DirectedHandler func(from, to, text string)

// DownHandler is called once when the connection is lost.
type DownHandler func(err error)

// Bridge maintains one connection to JS8Call.
type Bridge struct {
	addr       string
	onDirected DirectedHandler
	onDown     DownHandler
	log        *zap.Logger

	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

func New(host string, port int, onDirected DirectedHandler, onDown DownHandler, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{
		addr:       net.JoinHostPort(host, strconv.Itoa(port)),
		onDirected: onDirected,
		onDown:     onDown,
		log:        log,
	}
}

// Connect dials JS8Call and starts the background receive loop.
func (b *Bridge) Connect(ctx context.Context) error {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", b.addr)
	if err != nil {
		return fmt.Errorf("connect js8call %s: %w", b.addr, err)
	}
	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()
	b.log.Info("js8call_connected", zap.String("addr", b.addr))
	go b.readLoop(conn)
	return nil
}

// Send queues a directed text transmission. The actual on-air transmission
// is delayed by JS8Call's own PTT and channel-access scheduling.
func (b *Bridge) Send(to, text string) error {
	raw, err := json.Marshal(envelope{
		Type: "TX.SEND_MESSAGE",
		Value: map[string]any{
			"TO":   strings.ToUpper(strings.TrimSpace(to)),
			"TEXT": text,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal js8call message: %w", err)
	}
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("send: not connected to js8call")
	}
	if _, err := conn.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("send to js8call: %w", err)
	}
	b.log.Debug("js8call_tx", zap.String("to", to), zap.String("text", text))
	return nil
}

// Close tears the connection down; the read loop exits without reporting a
// fault.
func (b *Bridge) Close() error {
	b.mu.Lock()
	b.closed = true
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (b *Bridge) readLoop(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var env envelope
		if err := json.Unmarshal([]byte(line), &env); err != nil {
			// JS8Call intersperses non-JSON status lines on the API socket;
			// they are not a transport fault.
			b.log.Warn("js8call_non_json_line", zap.String("line", line))
			continue
		}
		b.dispatch(env)
	}

	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	b.log.Error("js8call_connection_lost", zap.Error(err))
	b.onDown(fmt.Errorf("js8call connection lost: %w", err))
}

func (b *Bridge) dispatch(env envelope) {
	switch env.Type {
	case "RX.DIRECTED", "RX.DIRECTED.ME":
		from := valueString(env.Value, "FROM", "from")
		to := valueString(env.Value, "TO", "to")
		text := valueString(env.Value, "TEXT", "text", "VALUE")
		b.log.Info("js8call_rx",
			zap.String("from", from),
			zap.String("to", to),
			zap.String("text", text),
		)
		b.onDirected(strings.ToUpper(from), strings.ToUpper(to), text)
	default:
		b.log.Debug("js8call_event_ignored", zap.String("type", env.Type))
	}
}

func valueString(value map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := value[k]; ok {
			if s, ok := v.(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
