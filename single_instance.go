package main

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

const singleInstanceAddr = "127.0.0.1:49876"

var errAlreadyRunning = errors.New("another instance is already running")

// SingleInstance holds a loopback listener for the life of the process so
// a second bridge refuses to start. The listener also accepts a "stop"
// request from `simbridge -stop`.
type SingleInstance struct {
	listener net.Listener
	mu       sync.Mutex
	onStop   func()
}

func NewSingleInstance(addr string) (*SingleInstance, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		if conn, dialErr := net.DialTimeout("tcp", addr, time.Second); dialErr == nil {
			conn.Close()
			return nil, errAlreadyRunning
		}
		return nil, fmt.Errorf("instance lock: %w", err)
	}

	si := &SingleInstance{listener: listener}
	go si.listenLoop()
	return si, nil
}

func (si *SingleInstance) SetOnStop(fn func()) {
	si.mu.Lock()
	si.onStop = fn
	si.mu.Unlock()
}

func (si *SingleInstance) Close() {
	si.listener.Close()
}

func (si *SingleInstance) listenLoop() {
	for {
		conn, err := si.listener.Accept()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(time.Second))
		line, _ := bufio.NewReader(conn).ReadString('\n')
		conn.Close()

		if strings.TrimSpace(line) == "stop" {
			si.mu.Lock()
			fn := si.onStop
			si.mu.Unlock()
			if fn != nil {
				fn()
			}
		}
	}
}

// requestStop asks the instance listening on addr to shut down.
func requestStop(addr string) error {
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		return fmt.Errorf("no running instance: %w", err)
	}
	defer conn.Close()
	_, err = conn.Write([]byte("stop\n"))
	return err
}
