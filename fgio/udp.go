package fgio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// UDPReader receives generic protocol datagrams pushed by FlightGear
// (--generic=socket,out,<hz>,<host>,<port>,udp,<protocol>). Every datagram
// is framed in all-records mode.
type UDPReader struct {
	addr string
	sink *Sink

	mu   sync.Mutex
	conn *net.UDPConn
}

func NewUDPReader(addr string, sink *Sink) *UDPReader {
	return &UDPReader{addr: addr, sink: sink}
}

// Listen binds the socket. Run calls it when it has not been called.
func (u *UDPReader) Listen() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.conn != nil {
		return nil
	}

	addr, err := net.ResolveUDPAddr("udp", u.addr)
	if err != nil {
		return fmt.Errorf("resolve addr: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listen udp: %w", err)
	}
	u.conn = conn
	slog.Info("generic udp reader listening", "transport", u.sink.Name, "addr", conn.LocalAddr().String())
	return nil
}

// Addr is the bound address, or nil before Listen.
func (u *UDPReader) Addr() net.Addr {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.conn == nil {
		return nil
	}
	return u.conn.LocalAddr()
}

// Run reads until ctx is done. The socket is closed on return.
func (u *UDPReader) Run(ctx context.Context) error {
	if err := u.Listen(); err != nil {
		return err
	}
	u.mu.Lock()
	conn := u.conn
	u.mu.Unlock()

	defer func() {
		u.mu.Lock()
		conn.Close()
		u.conn = nil
		u.mu.Unlock()
	}()

	buf := make([]byte, 65536)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read udp: %w", err)
		}

		res := u.sink.feed(buf[:n], false)
		if res.Rejected > 0 {
			slog.Debug("udp datagram had rejected records", "transport", u.sink.Name, "rejected", res.Rejected)
		}
	}
}
