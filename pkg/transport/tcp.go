// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// TCPConfig describes a TCP endpoint, typically a serial-over-IP gateway or
// a camera with a native VISCA-over-IP port
type TCPConfig struct {
	Address      string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	InterByteGap time.Duration
}

// TCP is a Transport over a TCP client socket
type TCP struct {
	cfg TCPConfig

	mu   sync.Mutex
	conn net.Conn
}

// NewTCP creates a TCP transport. No connection is made until Open.
func NewTCP(cfg TCPConfig) *TCP {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.InterByteGap == 0 {
		cfg.InterByteGap = DefaultInterByteGap
	}
	return &TCP{cfg: cfg}
}

// Open dials the endpoint
func (t *TCP) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return ErrAlreadyOpen
	}

	dialer := net.Dialer{Timeout: t.cfg.DialTimeout}
	conn, err := dialer.Dial("tcp", t.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", t.cfg.Address, err)
	}

	t.conn = conn
	return nil
}

// IsOpen reports whether the socket is connected
func (t *TCP) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

func (t *TCP) current() (net.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil, ErrNotOpen
	}
	return t.conn, nil
}

// Read returns one burst of bytes from the socket
func (t *TCP) Read(p []byte) (int, error) {
	conn, err := t.current()
	if err != nil {
		return 0, err
	}

	return readBurst(p, t.cfg.ReadTimeout, t.cfg.InterByteGap, func(buf []byte, wait time.Duration) (int, error) {
		if err := conn.SetReadDeadline(time.Now().Add(wait)); err != nil {
			return 0, mapNetError(err)
		}
		n, err := conn.Read(buf)
		if err != nil {
			return n, mapNetError(err)
		}
		return n, nil
	})
}

// Write writes all of p to the socket
func (t *TCP) Write(p []byte) (int, error) {
	conn, err := t.current()
	if err != nil {
		return 0, err
	}
	n, err := writeAll(conn, p)
	if err != nil {
		return n, mapNetError(err)
	}
	return n, nil
}

// Close closes the socket. Closing a closed transport is a no-op.
func (t *TCP) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// String describes the endpoint for log output
func (t *TCP) String() string {
	return fmt.Sprintf("TCP: %s", t.cfg.Address)
}

func mapNetError(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return ErrConnectionClosed
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return fmt.Errorf("tcp: %w", err)
}
