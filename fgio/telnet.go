package fgio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
)

var ErrNotConnected = errors.New("fgio: telnet channel not connected")

const telnetTerminator = "\r\n"

// Telnet is a line-oriented duplex channel to FlightGear's property server
// (--telnet=<port>). Received lines are passed through untouched; they are
// free-form replies, not generic protocol records.
type Telnet struct {
	addr    string
	timeout time.Duration
	onLine  func(line []byte)
	onState func(connected bool)

	mu   sync.Mutex
	conn net.Conn
	done chan struct{}

	writeMu sync.Mutex
}

// NewTelnet creates a disconnected channel. Either callback may be nil.
func NewTelnet(addr string, timeout time.Duration, onLine func([]byte), onState func(bool)) *Telnet {
	if onLine == nil {
		onLine = func([]byte) {}
	}
	if onState == nil {
		onState = func(bool) {}
	}
	return &Telnet{addr: addr, timeout: timeout, onLine: onLine, onState: onState}
}

func (t *Telnet) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

func (t *Telnet) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.conn != nil {
		t.mu.Unlock()
		return nil
	}
	d := net.Dialer{Timeout: t.timeout}
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		t.mu.Unlock()
		return fmt.Errorf("dial telnet: %w", err)
	}
	done := make(chan struct{})
	t.conn = conn
	t.done = done
	t.mu.Unlock()

	go t.readLoop(conn, done)

	slog.Info("telnet connected", "addr", t.addr)
	t.onState(true)
	return nil
}

func (t *Telnet) Disconnect() error {
	t.mu.Lock()
	conn, done := t.conn, t.done
	t.conn = nil
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	<-done

	slog.Info("telnet disconnected", "addr", t.addr)
	t.onState(false)
	return err
}

// Send trims text and writes it with the CRLF terminator.
func (t *Telnet) Send(text string) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.timeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(t.timeout))
	}
	if _, err := conn.Write([]byte(strings.TrimSpace(text) + telnetTerminator)); err != nil {
		return fmt.Errorf("write telnet: %w", err)
	}
	slog.Debug("telnet sent", "line", strings.TrimSpace(text))
	return nil
}

// Run keeps the channel connected until ctx is done, redialing after
// retry when the connection fails or drops.
func (t *Telnet) Run(ctx context.Context, retry time.Duration) error {
	defer t.Disconnect()

	for {
		if err := t.Connect(ctx); err != nil {
			slog.Warn("telnet connect failed", "addr", t.addr, "error", err, "retry", retry)
		} else {
			t.mu.Lock()
			done := t.done
			t.mu.Unlock()

			select {
			case <-ctx.Done():
				return nil
			case <-done:
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(retry):
		}
	}
}

func (t *Telnet) readLoop(conn net.Conn, done chan struct{}) {
	defer close(done)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())
		t.onLine(line)
	}

	t.mu.Lock()
	lost := t.conn == conn
	if lost {
		t.conn = nil
	}
	t.mu.Unlock()

	if lost {
		conn.Close()
		slog.Warn("telnet connection lost", "addr", t.addr, "error", scanner.Err())
		t.onState(false)
	}
}
